package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hweber/secondbrain/modules/projects/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const projectColumns = `id, name, status, priority, notes, created_at, updated_at, deleted_at`

// ProjectRepository implements ports.ProjectRepository
type ProjectRepository struct {
	pool *pgxpool.Pool
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

func scanProject(row pgx.Row) (*model.Project, error) {
	p := &model.Project{}
	err := row.Scan(&p.ID, &p.Name, &p.Status, &p.Priority, &p.Notes, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new project
func (r *ProjectRepository) Create(ctx context.Context, project *model.Project) error {
	if project.Status == "" {
		project.Status = model.StatusActive
	}
	if project.Priority == 0 {
		project.Priority = 2
	}

	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now

	query := `
		INSERT INTO projects (name, status, priority, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	return r.pool.QueryRow(ctx, query,
		project.Name, project.Status, project.Priority, project.Notes, project.CreatedAt, project.UpdatedAt,
	).Scan(&project.ID)
}

// GetByID retrieves a live project by ID
func (r *ProjectRepository) GetByID(ctx context.Context, id int64) (*model.Project, error) {
	query := fmt.Sprintf(`SELECT %s FROM projects WHERE id = $1 AND deleted_at IS NULL`, projectColumns)

	project, err := scanProject(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrProjectNotFound
		}
		return nil, err
	}
	return project, nil
}

// FindByPartialName retrieves a live project whose name contains the given
// fragment, case-insensitive
func (r *ProjectRepository) FindByPartialName(ctx context.Context, name string) (*model.Project, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM projects
		WHERE LOWER(name) LIKE LOWER($1) AND deleted_at IS NULL
		ORDER BY id LIMIT 1
	`, projectColumns)

	project, err := scanProject(r.pool.QueryRow(ctx, query, "%"+name+"%"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrProjectNotFound
		}
		return nil, err
	}
	return project, nil
}

// ListActive returns live active projects
func (r *ProjectRepository) ListActive(ctx context.Context) ([]*model.Project, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM projects
		WHERE deleted_at IS NULL AND status = 'active'
		ORDER BY priority, name
	`, projectColumns)

	return r.queryProjects(ctx, query)
}

// ListUpdatedSince returns live projects touched since the given time
func (r *ProjectRepository) ListUpdatedSince(ctx context.Context, since time.Time) ([]*model.Project, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM projects
		WHERE deleted_at IS NULL AND updated_at >= $1
		ORDER BY updated_at DESC
	`, projectColumns)

	return r.queryProjects(ctx, query, since)
}

func (r *ProjectRepository) queryProjects(ctx context.Context, query string, args ...interface{}) ([]*model.Project, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}
