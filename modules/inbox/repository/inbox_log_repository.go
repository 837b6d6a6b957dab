package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LogEntry is one audit record of a processed input
type LogEntry struct {
	CapturedText string
	Intent       string
	TargetTable  string
	TargetID     *int64
	Changes      json.RawMessage
	Confidence   float64
	NeedsReview  bool
}

// InboxLogRepository writes the pipeline audit trail
type InboxLogRepository struct {
	pool *pgxpool.Pool
}

// NewInboxLogRepository creates a new inbox log repository
func NewInboxLogRepository(pool *pgxpool.Pool) *InboxLogRepository {
	return &InboxLogRepository{pool: pool}
}

// Write inserts one audit record
func (r *InboxLogRepository) Write(ctx context.Context, entry LogEntry) error {
	query := `
		INSERT INTO inbox_log (captured_text, intent, target_table, target_id, changes, confidence, needs_review)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		entry.CapturedText, entry.Intent, entry.TargetTable, entry.TargetID,
		entry.Changes, entry.Confidence, entry.NeedsReview,
	)
	return err
}

// ListRecent returns the newest audit records
func (r *InboxLogRepository) ListRecent(ctx context.Context, limit int) ([]map[string]interface{}, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, captured_text, intent, target_table, target_id, changes, confidence, needs_review, created_at
		FROM inbox_log ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var results []map[string]interface{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(fields))
		for i, field := range fields {
			row[string(field.Name)] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
