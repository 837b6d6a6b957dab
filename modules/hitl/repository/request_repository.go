package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hweber/secondbrain/modules/hitl/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RequestRepository implements ports.RequestRepository
type RequestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository creates a new human request repository
func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{pool: pool}
}

// Create inserts a new pending request and returns its id
func (r *RequestRepository) Create(ctx context.Context, automation, requestType, question string, options []string, reqContext json.RawMessage) (int64, error) {
	var optionsJSON interface{}
	if options != nil {
		encoded, err := json.Marshal(options)
		if err != nil {
			return 0, fmt.Errorf("encode options: %w", err)
		}
		optionsJSON = encoded
	}

	query := `
		INSERT INTO human_requests (automation, request_type, question, options, context)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := r.pool.QueryRow(ctx, query, automation, requestType, question, optionsJSON, reqContext).Scan(&id)
	return id, err
}

func scanRequest(row pgx.Row) (*model.HumanRequest, error) {
	req := &model.HumanRequest{}
	var options []byte
	err := row.Scan(
		&req.ID, &req.Automation, &req.RequestType, &req.Question, &options,
		&req.Status, &req.Response, &req.Context, &req.CreatedAt, &req.AnsweredAt,
	)
	if err != nil {
		return nil, err
	}
	if len(options) > 0 {
		if err := json.Unmarshal(options, &req.Options); err != nil {
			return nil, fmt.Errorf("decode options: %w", err)
		}
	}
	return req, nil
}

// GetByID retrieves a request
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*model.HumanRequest, error) {
	query := `
		SELECT id, automation, request_type, question, options, status, response, context, created_at, answered_at
		FROM human_requests WHERE id = $1
	`

	req, err := scanRequest(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

// ListPending returns pending requests for an automation, oldest first
func (r *RequestRepository) ListPending(ctx context.Context, automation string) ([]*model.HumanRequest, error) {
	query := `
		SELECT id, automation, request_type, question, options, status, response, context, created_at, answered_at
		FROM human_requests
		WHERE automation = $1 AND status = 'pending'
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, automation)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*model.HumanRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// Resolve moves a pending request to a terminal status. A non-pending row
// yields ErrTerminalRequest.
func (r *RequestRepository) Resolve(ctx context.Context, id int64, status, response string) error {
	query := `
		UPDATE human_requests
		SET status = $2, response = $3, answered_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.pool.Exec(ctx, query, id, status, response)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		// distinguish missing from already resolved
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return model.ErrTerminalRequest
	}
	return nil
}

// MarkTimeout flips a still-pending request to timeout
func (r *RequestRepository) MarkTimeout(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE human_requests SET status = 'timeout', answered_at = NOW() WHERE id = $1 AND status = 'pending'`,
		id,
	)
	return err
}
