package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hweber/secondbrain/modules/ideas/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdeaRepository provides idea data access
type IdeaRepository struct {
	pool *pgxpool.Pool
}

// NewIdeaRepository creates a new idea repository
func NewIdeaRepository(pool *pgxpool.Pool) *IdeaRepository {
	return &IdeaRepository{pool: pool}
}

// Create inserts a new idea
func (r *IdeaRepository) Create(ctx context.Context, idea *model.Idea) error {
	if idea.Status == "" {
		idea.Status = model.StatusInbox
	}
	if idea.Priority == 0 {
		idea.Priority = 2
	}
	if idea.Tags == nil {
		idea.Tags = []string{}
	}

	tags, err := json.Marshal(idea.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	now := time.Now().UTC()
	idea.CreatedAt = now
	idea.UpdatedAt = now

	query := `
		INSERT INTO ideas (name, one_liner, status, priority, tags, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	return r.pool.QueryRow(ctx, query,
		idea.Name, idea.OneLiner, idea.Status, idea.Priority, tags, idea.Notes, idea.CreatedAt, idea.UpdatedAt,
	).Scan(&idea.ID)
}

// GetByID retrieves a live idea by ID
func (r *IdeaRepository) GetByID(ctx context.Context, id int64) (*model.Idea, error) {
	query := `
		SELECT id, name, one_liner, status, priority, tags, notes, created_at, updated_at, deleted_at
		FROM ideas WHERE id = $1 AND deleted_at IS NULL
	`

	idea := &model.Idea{}
	var tags []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&idea.ID, &idea.Name, &idea.OneLiner, &idea.Status, &idea.Priority,
		&tags, &idea.Notes, &idea.CreatedAt, &idea.UpdatedAt, &idea.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrIdeaNotFound
		}
		return nil, err
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &idea.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	return idea, nil
}

// CountInbox counts live ideas still in the inbox
func (r *IdeaRepository) CountInbox(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM ideas WHERE deleted_at IS NULL AND status = 'inbox'`,
	).Scan(&count)
	return count, err
}
