package ports

import (
	"context"
	"time"

	"github.com/hweber/secondbrain/modules/tasks/model"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id int64) (*model.Task, error)
	ListOpen(ctx context.Context, limit int) ([]*model.Task, error)
	ListDueOn(ctx context.Context, day time.Time) ([]*model.Task, error)
	ListDueBetween(ctx context.Context, from, to time.Time) ([]*model.Task, error)
	CountByStatus(ctx context.Context, statuses ...string) (int, error)
	CountOverdue(ctx context.Context, today time.Time) (int, error)
	CountCompletedBetween(ctx context.Context, from, to time.Time) (int, error)
}
