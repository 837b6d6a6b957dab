package repository

import (
	"context"
	"errors"

	"github.com/hweber/secondbrain/modules/scheduler/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const scheduleColumns = `id, name, type, interval_minutes, time_of_day, day_of_week, day_of_month, enabled, created_at, updated_at`

// ScheduleRepository implements ports.ScheduleRepository
type ScheduleRepository struct {
	pool *pgxpool.Pool
}

// NewScheduleRepository creates a new schedule repository
func NewScheduleRepository(pool *pgxpool.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

func scanSchedule(row pgx.Row) (*model.Schedule, error) {
	s := &model.Schedule{}
	err := row.Scan(
		&s.ID, &s.Name, &s.Type, &s.IntervalMinutes, &s.TimeOfDay,
		&s.DayOfWeek, &s.DayOfMonth, &s.Enabled, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new schedule
func (r *ScheduleRepository) Create(ctx context.Context, schedule *model.Schedule) error {
	query := `
		INSERT INTO schedules (name, type, interval_minutes, time_of_day, day_of_week, day_of_month, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	return r.pool.QueryRow(ctx, query,
		schedule.Name, schedule.Type, schedule.IntervalMinutes, schedule.TimeOfDay,
		schedule.DayOfWeek, schedule.DayOfMonth, schedule.Enabled,
	).Scan(&schedule.ID, &schedule.CreatedAt, &schedule.UpdatedAt)
}

// GetByID retrieves a schedule by ID
func (r *ScheduleRepository) GetByID(ctx context.Context, id int64) (*model.Schedule, error) {
	schedule, err := scanSchedule(r.pool.QueryRow(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrScheduleNotFound
		}
		return nil, err
	}
	return schedule, nil
}

// List returns all schedules
func (r *ScheduleRepository) List(ctx context.Context) ([]*model.Schedule, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+scheduleColumns+` FROM schedules ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []*model.Schedule
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
	}
	return schedules, rows.Err()
}

// Update updates a schedule
func (r *ScheduleRepository) Update(ctx context.Context, schedule *model.Schedule) error {
	query := `
		UPDATE schedules
		SET name = $2, type = $3, interval_minutes = $4, time_of_day = $5,
			day_of_week = $6, day_of_month = $7, enabled = $8, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		schedule.ID, schedule.Name, schedule.Type, schedule.IntervalMinutes,
		schedule.TimeOfDay, schedule.DayOfWeek, schedule.DayOfMonth, schedule.Enabled,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return model.ErrScheduleNotFound
	}
	return nil
}

// Delete removes a schedule
func (r *ScheduleRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return model.ErrScheduleNotFound
	}
	return nil
}
