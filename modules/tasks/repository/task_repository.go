package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hweber/secondbrain/modules/tasks/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = `id, title, status, priority, due_date, project_id, person_id, tags, notes,
		created_at, updated_at, deleted_at`

// TaskRepository implements ports.TaskRepository
type TaskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

func scanTask(row pgx.Row) (*model.Task, error) {
	t := &model.Task{}
	var tags []byte
	err := row.Scan(
		&t.ID, &t.Title, &t.Status, &t.Priority, &t.DueDate, &t.ProjectID, &t.PersonID,
		&tags, &t.Notes, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &t.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	return t, nil
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...interface{}) ([]*model.Task, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// Create inserts a new task
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if task.Status == "" {
		task.Status = model.StatusInbox
	}
	if task.Priority == 0 {
		task.Priority = 2
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}

	tags, err := json.Marshal(task.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	query := `
		INSERT INTO tasks (title, status, priority, due_date, project_id, person_id, tags, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	return r.pool.QueryRow(ctx, query,
		task.Title, task.Status, task.Priority, task.DueDate, task.ProjectID, task.PersonID,
		tags, task.Notes, task.CreatedAt, task.UpdatedAt,
	).Scan(&task.ID)
}

// GetByID retrieves a live task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE id = $1 AND deleted_at IS NULL`, taskColumns)

	task, err := scanTask(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// ListOpen returns open tasks ordered by priority and due date
func (r *TaskRepository) ListOpen(ctx context.Context, limit int) ([]*model.Task, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tasks
		WHERE deleted_at IS NULL AND status IN ('inbox', 'next', 'waiting')
		ORDER BY priority, due_date NULLS LAST, id
		LIMIT $1
	`, taskColumns)

	return r.queryTasks(ctx, query, limit)
}

// ListDueOn returns live tasks due on the given day
func (r *TaskRepository) ListDueOn(ctx context.Context, day time.Time) ([]*model.Task, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tasks
		WHERE deleted_at IS NULL AND status != 'done' AND due_date = $1
		ORDER BY priority, id
	`, taskColumns)

	return r.queryTasks(ctx, query, day)
}

// ListDueBetween returns live unfinished tasks due in [from, to]
func (r *TaskRepository) ListDueBetween(ctx context.Context, from, to time.Time) ([]*model.Task, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tasks
		WHERE deleted_at IS NULL AND status != 'done' AND due_date BETWEEN $1 AND $2
		ORDER BY due_date, priority, id
	`, taskColumns)

	return r.queryTasks(ctx, query, from, to)
}

// CountByStatus counts live tasks in any of the given statuses
func (r *TaskRepository) CountByStatus(ctx context.Context, statuses ...string) (int, error) {
	query := `SELECT COUNT(*) FROM tasks WHERE deleted_at IS NULL AND status = ANY($1)`

	var count int
	err := r.pool.QueryRow(ctx, query, statuses).Scan(&count)
	return count, err
}

// CountOverdue counts live unfinished tasks whose due date has passed
func (r *TaskRepository) CountOverdue(ctx context.Context, today time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM tasks
		WHERE deleted_at IS NULL AND due_date < $1 AND status NOT IN ('done', 'someday')
	`

	var count int
	err := r.pool.QueryRow(ctx, query, today).Scan(&count)
	return count, err
}

// CountCompletedBetween counts tasks completed in the given window
func (r *TaskRepository) CountCompletedBetween(ctx context.Context, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM tasks
		WHERE deleted_at IS NULL AND status = 'done' AND updated_at BETWEEN $1 AND $2
	`

	var count int
	err := r.pool.QueryRow(ctx, query, from, to).Scan(&count)
	return count, err
}
