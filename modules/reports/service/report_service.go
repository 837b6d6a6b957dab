package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hweber/secondbrain/internal/platform/logger"
	agentmodel "github.com/hweber/secondbrain/modules/agents/model"
	eventmodel "github.com/hweber/secondbrain/modules/events/model"
	eventports "github.com/hweber/secondbrain/modules/events/ports"
	notifyservice "github.com/hweber/secondbrain/modules/notify/service"
	projectports "github.com/hweber/secondbrain/modules/projects/ports"
	taskmodel "github.com/hweber/secondbrain/modules/tasks/model"
	taskports "github.com/hweber/secondbrain/modules/tasks/ports"
	"go.uber.org/zap"
)

// Report types
const (
	TypeDaily  = "daily"
	TypeWeekly = "weekly"
)

// AgentRunner is the report agent surface
type AgentRunner interface {
	Execute(ctx context.Context, templateContext map[string]interface{}) (map[string]interface{}, *agentmodel.AgentError)
}

// Service builds the daily and weekly reports
type Service struct {
	tasks      taskports.TaskRepository
	events     eventports.EventRepository
	projects   projectports.ProjectRepository
	daily      AgentRunner
	weekly     AgentRunner
	dispatcher *notifyservice.ReportDispatcher
	location   *time.Location
	log        *logger.Logger
	now        func() time.Time
}

// NewService creates a report service
func NewService(
	tasks taskports.TaskRepository,
	events eventports.EventRepository,
	projects projectports.ProjectRepository,
	daily, weekly AgentRunner,
	dispatcher *notifyservice.ReportDispatcher,
	location *time.Location,
	log *logger.Logger,
) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		tasks:      tasks,
		events:     events,
		projects:   projects,
		daily:      daily,
		weekly:     weekly,
		dispatcher: dispatcher,
		location:   location,
		log:        log,
		now:        time.Now,
	}
}

// Daily builds and dispatches the daily report
func (s *Service) Daily(ctx context.Context) error {
	today := s.today()

	dueToday, err := s.tasks.ListDueOn(ctx, today)
	if err != nil {
		return fmt.Errorf("load due tasks: %w", err)
	}
	overdue, err := s.tasks.CountOverdue(ctx, today)
	if err != nil {
		return fmt.Errorf("count overdue: %w", err)
	}
	todaysEvents, err := s.events.ListOnDay(ctx, today)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}

	data := map[string]interface{}{
		"date":          today.Format("2006-01-02"),
		"tasks_due":     taskSummaries(dueToday),
		"overdue_count": overdue,
		"events":        eventSummaries(todaysEvents),
	}

	summary := s.summarize(ctx, s.daily, data, s.fallbackDailyText(dueToday, overdue, todaysEvents))

	report := notifyservice.Report{
		Type:        TypeDaily,
		Title:       "Daily Report " + today.Format("02.01.2006"),
		SummaryText: summary,
		Data:        data,
	}
	s.dispatcher.Dispatch(ctx, report)
	return nil
}

// Weekly builds and dispatches the weekly report
func (s *Service) Weekly(ctx context.Context) error {
	today := s.today()
	weekAgo := today.AddDate(0, 0, -7)
	weekAhead := today.AddDate(0, 0, 7)

	dueThisWeek, err := s.tasks.ListDueBetween(ctx, today, weekAhead)
	if err != nil {
		return fmt.Errorf("load due tasks: %w", err)
	}
	completed, err := s.tasks.CountCompletedBetween(ctx, weekAgo, today.AddDate(0, 0, 1))
	if err != nil {
		return fmt.Errorf("count completed: %w", err)
	}
	touchedProjects, err := s.projects.ListUpdatedSince(ctx, weekAgo)
	if err != nil {
		return fmt.Errorf("load projects: %w", err)
	}
	upcomingEvents, err := s.events.ListBetween(ctx, today, weekAhead)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}

	projectNames := make([]string, 0, len(touchedProjects))
	for _, p := range touchedProjects {
		projectNames = append(projectNames, fmt.Sprintf("%s (%s)", p.Name, p.Status))
	}

	data := map[string]interface{}{
		"week_start":      today.Format("2006-01-02"),
		"tasks_due":       taskSummaries(dueThisWeek),
		"completed_count": completed,
		"projects":        projectNames,
		"events":          eventSummaries(upcomingEvents),
	}

	fallback := fmt.Sprintf("%d Aufgaben fällig, %d erledigt, %d Projekte in Bewegung.",
		len(dueThisWeek), completed, len(touchedProjects))
	summary := s.summarize(ctx, s.weekly, data, fallback)

	report := notifyservice.Report{
		Type:        TypeWeekly,
		Title:       "Weekly Report KW " + isoWeek(today),
		SummaryText: summary,
		Data:        data,
	}
	s.dispatcher.Dispatch(ctx, report)
	return nil
}

// summarize asks the report agent for a summary_text, falling back to a
// deterministic rendering when the agent fails.
func (s *Service) summarize(ctx context.Context, agent AgentRunner, data map[string]interface{}, fallback string) string {
	if agent == nil {
		return fallback
	}

	result, agentErr := agent.Execute(ctx, data)
	if agentErr != nil {
		s.log.Warn("report agent failed, using fallback summary",
			zap.String("agent", agentErr.AgentName),
			zap.String("error", agentErr.ErrorMessage),
		)
		return fallback
	}

	if summary, ok := result["summary_text"].(string); ok && summary != "" {
		return summary
	}
	return fallback
}

func (s *Service) fallbackDailyText(due []*taskmodel.Task, overdue int, events []*eventmodel.CalendarEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d Aufgaben heute fällig", len(due))
	if overdue > 0 {
		fmt.Fprintf(&b, ", %d überfällig", overdue)
	}
	fmt.Fprintf(&b, ". %d Termine heute.", len(events))
	return b.String()
}

func (s *Service) today() time.Time {
	now := s.now().In(s.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
}

func taskSummaries(tasks []*taskmodel.Task) []map[string]interface{} {
	summaries := make([]map[string]interface{}, 0, len(tasks))
	for _, task := range tasks {
		summary := map[string]interface{}{
			"title":    task.Title,
			"status":   task.Status,
			"priority": task.Priority,
		}
		if task.DueDate != nil {
			summary["due_date"] = task.DueDate.Format("2006-01-02")
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

func eventSummaries(events []*eventmodel.CalendarEvent) []map[string]interface{} {
	summaries := make([]map[string]interface{}, 0, len(events))
	for _, event := range events {
		summary := map[string]interface{}{"title": event.Title}
		if event.StartTime != nil {
			summary["start_time"] = event.StartTime.Format(time.RFC3339)
		}
		if event.Location != nil {
			summary["location"] = *event.Location
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

func isoWeek(t time.Time) string {
	_, week := t.ISOWeek()
	return fmt.Sprintf("%02d", week)
}
