package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hweber/secondbrain/modules/scheduler/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const jobSelect = `
	SELECT j.id, j.job_name, j.schedule_id, s.name, j.enabled, j.last_run, j.next_run,
		j.run_count, j.error_count, j.last_error,
		s.id, s.type, s.interval_minutes, s.time_of_day, s.day_of_week, s.day_of_month, s.enabled
	FROM scheduled_jobs j
	LEFT JOIN schedules s ON j.schedule_id = s.id
`

// JobRepository implements ports.JobRepository
type JobRepository struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new scheduled job repository
func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func scanJob(row pgx.Row) (*model.ScheduledJob, error) {
	job := &model.ScheduledJob{}
	var scheduleID *int64
	var scheduleType *string
	var intervalMinutes, dayOfWeek, dayOfMonth *int
	var timeOfDay *string
	var scheduleEnabled *bool

	err := row.Scan(
		&job.ID, &job.JobName, &job.ScheduleID, &job.ScheduleName, &job.Enabled,
		&job.LastRun, &job.NextRun, &job.RunCount, &job.ErrorCount, &job.LastError,
		&scheduleID, &scheduleType, &intervalMinutes, &timeOfDay, &dayOfWeek, &dayOfMonth, &scheduleEnabled,
	)
	if err != nil {
		return nil, err
	}

	if scheduleID != nil && scheduleType != nil {
		name := ""
		if job.ScheduleName != nil {
			name = *job.ScheduleName
		}
		job.Schedule = &model.Schedule{
			ID:              *scheduleID,
			Name:            name,
			Type:            *scheduleType,
			IntervalMinutes: intervalMinutes,
			TimeOfDay:       timeOfDay,
			DayOfWeek:       dayOfWeek,
			DayOfMonth:      dayOfMonth,
			Enabled:         scheduleEnabled != nil && *scheduleEnabled,
		}
	}
	return job, nil
}

func (r *JobRepository) queryJobs(ctx context.Context, query string, args ...interface{}) ([]*model.ScheduledJob, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*model.ScheduledJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ListWithSchedule returns all jobs with their joined schedule name
func (r *JobRepository) ListWithSchedule(ctx context.Context) ([]*model.ScheduledJob, error) {
	return r.queryJobs(ctx, jobSelect+` ORDER BY j.id`)
}

// ListRunnable returns jobs whose job and schedule are both enabled
func (r *JobRepository) ListRunnable(ctx context.Context) ([]*model.ScheduledJob, error) {
	return r.queryJobs(ctx, jobSelect+` WHERE j.enabled = TRUE AND s.enabled = TRUE ORDER BY j.id`)
}

// GetByID returns one job with its schedule
func (r *JobRepository) GetByID(ctx context.Context, id int64) (*model.ScheduledJob, error) {
	job, err := scanJob(r.pool.QueryRow(ctx, jobSelect+` WHERE j.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// Update patches a job's enabled flag and/or schedule binding
func (r *JobRepository) Update(ctx context.Context, id int64, enabled *bool, scheduleID *int64) (*model.ScheduledJob, error) {
	query := `
		UPDATE scheduled_jobs
		SET enabled = COALESCE($2, enabled),
			schedule_id = COALESCE($3, schedule_id),
			updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, enabled, scheduleID)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected() == 0 {
		return nil, model.ErrJobNotFound
	}
	return r.GetByID(ctx, id)
}

// RecordSuccess stores the completed run and the recomputed next_run
func (r *JobRepository) RecordSuccess(ctx context.Context, jobName string, lastRun, nextRun time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE scheduled_jobs
		SET last_run = $2, next_run = $3, run_count = run_count + 1, last_error = NULL, updated_at = NOW()
		WHERE job_name = $1
	`, jobName, lastRun, nextRun)
	return err
}

// RecordFailure stores the error; the next scheduled tick retries
func (r *JobRepository) RecordFailure(ctx context.Context, jobName, message string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE scheduled_jobs
		SET error_count = error_count + 1, last_error = $2, updated_at = NOW()
		WHERE job_name = $1
	`, jobName, message)
	return err
}
