package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hweber/secondbrain/internal/platform/logger"
	eventports "github.com/hweber/secondbrain/modules/events/ports"
	peoplemodel "github.com/hweber/secondbrain/modules/people/model"
	peopleports "github.com/hweber/secondbrain/modules/people/ports"
	"github.com/hweber/secondbrain/modules/sync/model"
	"github.com/hweber/secondbrain/modules/sync/provider"
	"github.com/hweber/secondbrain/modules/sync/resolver"
	"go.uber.org/zap"
)

// calendarPullWindow is how far ahead the calendar sync job looks
const calendarPullWindow = 90 * 24 * time.Hour

// ConfigStore is the sync configuration and logging surface
type ConfigStore interface {
	GetConfig(ctx context.Context, providerName string) (*model.Config, error)
	ListAll(ctx context.Context) ([]*model.Config, error)
	ListEnabled(ctx context.Context) ([]*model.Config, error)
	SaveSyncToken(ctx context.Context, providerName, token string) error
	MarkSynced(ctx context.Context, providerName string) error
	WriteLog(ctx context.Context, providerName, direction, action, status string, details interface{}) error
}

// ContactProviderFactory builds a fresh adapter per run
type ContactProviderFactory func(name string) (provider.ContactProvider, error)

// defaultContactProviders is the closed adapter registry
func defaultContactProviders(name string) (provider.ContactProvider, error) {
	switch name {
	case provider.ProviderNextcloud:
		return provider.NewNextcloudProvider(), nil
	case provider.ProviderICloud:
		return provider.NewICloudProvider(), nil
	case provider.ProviderGoogle:
		return provider.NewGoogleProvider(), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
}

// Service orchestrates pull, merge, push and delete against the providers
type Service struct {
	configs  ConfigStore
	people   peopleports.PersonRepository
	events   eventports.EventRepository
	log      *logger.Logger
	contacts ContactProviderFactory
	calendar func() provider.CalendarProvider
	now      func() time.Time
}

// NewService creates a sync service
func NewService(configs ConfigStore, people peopleports.PersonRepository, events eventports.EventRepository, log *logger.Logger) *Service {
	return &Service{
		configs:  configs,
		people:   people,
		events:   events,
		log:      log,
		contacts: defaultContactProviders,
		calendar: func() provider.CalendarProvider { return provider.NewICloudCalendarProvider() },
		now:      time.Now,
	}
}

// SyncAll runs SyncProvider for every enabled provider. Per-provider
// failures are logged; the first error is returned after all providers ran.
func (s *Service) SyncAll(ctx context.Context) error {
	configs, err := s.configs.ListEnabled(ctx)
	if err != nil {
		return err
	}

	var firstErr error
	for _, cfg := range configs {
		if _, err := s.SyncProvider(ctx, cfg.Provider); err != nil {
			s.log.WithProvider(cfg.Provider).Error("provider sync failed", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// SyncProvider runs one full pull/merge/delete/push cycle for a provider.
// Pulls apply before pushes; a single bad contact does not stop the run.
func (s *Service) SyncProvider(ctx context.Context, name string) (*model.Stats, error) {
	log := s.log.WithProvider(name)

	cfg, err := s.configs.GetConfig(ctx, name)
	if err != nil {
		return nil, err
	}

	adapter, err := s.contacts(name)
	if err != nil {
		return nil, err
	}
	if err := adapter.Authenticate(ctx, cfg.Credentials); err != nil {
		return nil, err
	}

	stats := &model.Stats{}

	changes, err := adapter.ChangesSince(ctx, cfg.SyncToken())
	if err != nil {
		return nil, err
	}

	// pull: remote -> local
	remote := append(changes.Created, changes.Updated...)
	for _, contact := range remote {
		outcome, err := s.applyRemoteContact(ctx, name, contact)
		if err != nil {
			log.Warn("remote contact apply failed", zap.Error(err))
			stats.Errors++
			continue
		}
		switch outcome {
		case resolver.ActionPull:
			stats.Pulled++
		case resolver.ActionPush:
			stats.Conflicts++
		}
	}

	// remote deletes -> soft delete
	for _, uid := range changes.Deleted {
		if err := s.people.SoftDeleteByProviderUID(ctx, name, uid); err != nil {
			log.Warn("remote delete apply failed", zap.String("uid", uid), zap.Error(err))
			stats.Errors++
			continue
		}
		stats.Deleted++
	}

	// push: local pending -> remote
	pending, err := s.people.ListPendingForProvider(ctx, name)
	if err != nil {
		return stats, err
	}
	for _, person := range pending {
		uid, err := adapter.PushContact(ctx, person)
		if err != nil {
			log.Warn("contact push failed", zap.Int64("person_id", person.ID), zap.Error(err))
			stats.Errors++
			continue
		}
		if err := s.people.MarkSynced(ctx, person.ID, name, uid); err != nil {
			log.Warn("mark synced failed", zap.Int64("person_id", person.ID), zap.Error(err))
			stats.Errors++
			continue
		}
		stats.Pushed++
	}

	if changes.SyncToken != "" {
		if err := s.configs.SaveSyncToken(ctx, name, changes.SyncToken); err != nil {
			log.Warn("sync token save failed", zap.Error(err))
		}
	}
	if err := s.configs.MarkSynced(ctx, name); err != nil {
		log.Warn("last sync stamp failed", zap.Error(err))
	}

	s.writeStats(ctx, name, stats)
	log.Info("provider sync complete",
		zap.Int("pulled", stats.Pulled),
		zap.Int("pushed", stats.Pushed),
		zap.Int("deleted", stats.Deleted),
		zap.Int("conflicts", stats.Conflicts),
		zap.Int("errors", stats.Errors),
	)
	return stats, nil
}

// applyRemoteContact inserts an unknown remote contact or resolves the
// conflict with the matching local row.
func (s *Service) applyRemoteContact(ctx context.Context, providerName string, remote *peoplemodel.Person) (string, error) {
	uid := remote.ProviderUID(providerName)
	if uid == nil || *uid == "" {
		return resolver.ActionNone, fmt.Errorf("remote contact without %s uid", providerName)
	}

	local, err := s.people.FindByProviderUID(ctx, providerName, *uid)
	if err != nil && !errors.Is(err, peoplemodel.ErrPersonNotFound) {
		return resolver.ActionNone, err
	}

	if local == nil {
		remote.SyncStatus = peoplemodel.SyncStatusSynced
		remote.Name = remote.FullName()
		if err := s.people.Create(ctx, remote); err != nil {
			return resolver.ActionNone, err
		}
		return resolver.ActionPull, nil
	}

	result, err := resolver.Resolve(local, remote, providerName)
	if err != nil {
		return resolver.ActionNone, err
	}

	if result.Action == resolver.ActionPull {
		if err := s.people.UpdateFromSync(ctx, result.Contact); err != nil {
			return resolver.ActionNone, err
		}
	}
	// ActionPush means the local version wins; the push phase handles it
	return result.Action, nil
}

func (s *Service) writeStats(ctx context.Context, providerName string, stats *model.Stats) {
	entries := []struct {
		direction string
		action    string
		count     int
	}{
		{model.DirectionPull, "pulled", stats.Pulled},
		{model.DirectionPush, "pushed", stats.Pushed},
		{model.DirectionPull, "deleted", stats.Deleted},
		{model.DirectionPull, "conflicts", stats.Conflicts},
		{model.DirectionPull, "errors", stats.Errors},
	}

	for _, entry := range entries {
		if entry.count == 0 {
			continue
		}
		status := "ok"
		if entry.action == "errors" {
			status = "error"
		}
		if err := s.configs.WriteLog(ctx, providerName, entry.direction, entry.action, status,
			map[string]interface{}{"count": entry.count}); err != nil {
			s.log.WithProvider(providerName).Warn("sync log write failed", zap.Error(err))
		}
	}
}

// SyncCalendar pulls the next 90 days of events from every discovered
// CalDAV calendar and upserts them by UID.
func (s *Service) SyncCalendar(ctx context.Context) error {
	cfg, err := s.configs.GetConfig(ctx, provider.ProviderICloud)
	if err != nil {
		return err
	}

	adapter := s.calendar()
	if err := adapter.Authenticate(ctx, cfg.Credentials); err != nil {
		return err
	}

	calendars, err := adapter.ListCalendars(ctx)
	if err != nil {
		return err
	}

	start := s.now()
	end := start.Add(calendarPullWindow)
	log := s.log.WithProvider(provider.ProviderICloud)

	total := 0
	for _, calendar := range calendars {
		events, err := adapter.PullEvents(ctx, calendar, start, end)
		if err != nil {
			log.Warn("calendar pull failed", zap.String("calendar", calendar.Name), zap.Error(err))
			continue
		}

		for _, event := range events {
			if event.ICloudUID == nil || *event.ICloudUID == "" {
				continue
			}
			if err := s.events.UpsertByICloudUID(ctx, event); err != nil {
				log.Warn("event upsert failed", zap.String("uid", *event.ICloudUID), zap.Error(err))
				continue
			}
			total++
		}
	}

	if err := s.configs.WriteLog(ctx, provider.ProviderICloud, model.DirectionPull, "calendar_events", "ok",
		map[string]interface{}{"count": total}); err != nil {
		log.Warn("sync log write failed", zap.Error(err))
	}
	log.Info("calendar sync complete", zap.Int("events", total))
	return nil
}

// Status reports every configured provider
func (s *Service) Status(ctx context.Context) ([]*model.ProviderStatus, error) {
	configs, err := s.configs.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]*model.ProviderStatus, 0, len(configs))
	for _, cfg := range configs {
		statuses = append(statuses, &model.ProviderStatus{
			Provider: cfg.Provider,
			Enabled:  cfg.Enabled,
			LastSync: cfg.LastSync,
			Interval: cfg.SyncInterval,
		})
	}
	return statuses, nil
}
