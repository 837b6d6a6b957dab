package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/hweber/secondbrain/modules/events/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `id, title, description, location, start_time, end_time, all_day, recurrence,
		person_id, calendar_id, icloud_uid, etag, created_at, updated_at`

// EventRepository implements ports.EventRepository
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new calendar event repository
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func scanEvent(row pgx.Row) (*model.CalendarEvent, error) {
	e := &model.CalendarEvent{}
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Location, &e.StartTime, &e.EndTime, &e.AllDay,
		&e.Recurrence, &e.PersonID, &e.CalendarID, &e.ICloudUID, &e.Etag, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Create inserts a new calendar event
func (r *EventRepository) Create(ctx context.Context, event *model.CalendarEvent) error {
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now

	query := `
		INSERT INTO calendar_events (title, description, location, start_time, end_time, all_day,
			recurrence, person_id, calendar_id, icloud_uid, etag, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`

	return r.pool.QueryRow(ctx, query,
		event.Title, event.Description, event.Location, event.StartTime, event.EndTime, event.AllDay,
		event.Recurrence, event.PersonID, event.CalendarID, event.ICloudUID, event.Etag,
		event.CreatedAt, event.UpdatedAt,
	).Scan(&event.ID)
}

// UpsertByICloudUID inserts an event pulled from CalDAV or updates the row
// already carrying its UID.
func (r *EventRepository) UpsertByICloudUID(ctx context.Context, event *model.CalendarEvent) error {
	query := `
		INSERT INTO calendar_events (title, description, location, start_time, end_time, all_day,
			recurrence, calendar_id, icloud_uid, etag, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		ON CONFLICT (icloud_uid) WHERE icloud_uid IS NOT NULL
		DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			location = EXCLUDED.location,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			all_day = EXCLUDED.all_day,
			recurrence = EXCLUDED.recurrence,
			calendar_id = EXCLUDED.calendar_id,
			etag = EXCLUDED.etag,
			updated_at = NOW()
		RETURNING id
	`

	return r.pool.QueryRow(ctx, query,
		event.Title, event.Description, event.Location, event.StartTime, event.EndTime, event.AllDay,
		event.Recurrence, event.CalendarID, event.ICloudUID, event.Etag,
	).Scan(&event.ID)
}

// ListOnDay returns events starting on the given day
func (r *EventRepository) ListOnDay(ctx context.Context, day time.Time) ([]*model.CalendarEvent, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return r.ListBetween(ctx, from, from.AddDate(0, 0, 1))
}

// ListBetween returns events starting in [from, to)
func (r *EventRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*model.CalendarEvent, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM calendar_events
		WHERE start_time >= $1 AND start_time < $2
		ORDER BY start_time
	`, eventColumns)

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*model.CalendarEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// CountOnDay counts events starting on the given day
func (r *EventRepository) CountOnDay(ctx context.Context, day time.Time) (int, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())

	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM calendar_events WHERE start_time >= $1 AND start_time < $2`,
		from, from.AddDate(0, 0, 1),
	).Scan(&count)
	return count, err
}
