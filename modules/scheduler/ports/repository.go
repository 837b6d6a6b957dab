package ports

import (
	"context"
	"time"

	"github.com/hweber/secondbrain/modules/scheduler/model"
)

// ScheduleRepository defines data access for schedules
type ScheduleRepository interface {
	Create(ctx context.Context, schedule *model.Schedule) error
	GetByID(ctx context.Context, id int64) (*model.Schedule, error)
	List(ctx context.Context) ([]*model.Schedule, error)
	Update(ctx context.Context, schedule *model.Schedule) error
	Delete(ctx context.Context, id int64) error
}

// JobRepository defines data access for scheduled jobs
type JobRepository interface {
	ListWithSchedule(ctx context.Context) ([]*model.ScheduledJob, error)
	ListRunnable(ctx context.Context) ([]*model.ScheduledJob, error)
	GetByID(ctx context.Context, id int64) (*model.ScheduledJob, error)
	Update(ctx context.Context, id int64, enabled *bool, scheduleID *int64) (*model.ScheduledJob, error)
	RecordSuccess(ctx context.Context, jobName string, lastRun, nextRun time.Time) error
	RecordFailure(ctx context.Context, jobName, message string) error
}
