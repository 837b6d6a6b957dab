package ports

import (
	"context"
	"time"

	"github.com/hweber/secondbrain/modules/events/model"
)

// EventRepository defines the interface for calendar event data access
type EventRepository interface {
	Create(ctx context.Context, event *model.CalendarEvent) error
	UpsertByICloudUID(ctx context.Context, event *model.CalendarEvent) error
	ListOnDay(ctx context.Context, day time.Time) ([]*model.CalendarEvent, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]*model.CalendarEvent, error)
	CountOnDay(ctx context.Context, day time.Time) (int, error)
}
