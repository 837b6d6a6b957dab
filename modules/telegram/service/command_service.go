package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	eventports "github.com/hweber/secondbrain/modules/events/ports"
	inboxservice "github.com/hweber/secondbrain/modules/inbox/service"
	notifymodel "github.com/hweber/secondbrain/modules/notify/model"
	reportservice "github.com/hweber/secondbrain/modules/reports/service"
	taskports "github.com/hweber/secondbrain/modules/tasks/ports"
)

// commands maps verbs to their help text, in display order
var commands = []struct {
	verb string
	help string
}{
	{"help", "Zeigt alle verfügbaren Befehle"},
	{"status", "Zeigt System-Status (offene Aufgaben, etc.)"},
	{"query", "Fragt das Second Brain (z.B. /query Projekt Alpha)"},
	{"tasks", "Zeigt deine offenen Aufgaben"},
	{"today", "Zeigt heutige Termine und Aufgaben"},
	{"daily", "Fordert den Daily Report an"},
}

// ParsedMessage is the command structure of one incoming message
type ParsedMessage struct {
	IsCommand bool
	Command   string
	Args      []string
	Freetext  string
}

// Pipeline is the intent pipeline surface the command handler delegates to
type Pipeline interface {
	Process(ctx context.Context, text string, channel notifymodel.ChannelContext, confirmed bool, pendingAction map[string]interface{}) inboxservice.Result
}

// CommandService handles Telegram slash commands. Trivial reads hit the
// repositories directly; query and free text go through the full pipeline.
type CommandService struct {
	tasks    taskports.TaskRepository
	events   eventports.EventRepository
	pipeline Pipeline
	reports  *reportservice.Service
	location *time.Location
	now      func() time.Time
}

// NewCommandService creates a Telegram command service
func NewCommandService(tasks taskports.TaskRepository, events eventports.EventRepository, pipeline Pipeline, reports *reportservice.Service, location *time.Location) *CommandService {
	if location == nil {
		location = time.UTC
	}
	return &CommandService{
		tasks:    tasks,
		events:   events,
		pipeline: pipeline,
		reports:  reports,
		location: location,
		now:      time.Now,
	}
}

// ParseMessage splits "/verb args…" into its parts; anything else is
// free text.
func ParseMessage(text string) ParsedMessage {
	text = strings.TrimSpace(text)

	if !strings.HasPrefix(text, "/") {
		return ParsedMessage{Freetext: text}
	}

	parts := strings.Fields(text[1:])
	parsed := ParsedMessage{IsCommand: true}
	if len(parts) > 0 {
		parsed.Command = strings.ToLower(parts[0])
	}
	if len(parts) > 1 {
		parsed.Args = parts[1:]
	}
	return parsed
}

// Handle processes one incoming message and returns the HTML response text
func (s *CommandService) Handle(ctx context.Context, text, chatID string) string {
	parsed := ParseMessage(text)
	channel := notifymodel.ChannelContext{Channel: notifymodel.ChannelTelegram, ChannelID: chatID}

	if !parsed.IsCommand {
		result := s.pipeline.Process(ctx, parsed.Freetext, channel, false, nil)
		return s.renderResult(result)
	}

	switch parsed.Command {
	case "help":
		return s.cmdHelp()
	case "status":
		return s.cmdStatus(ctx)
	case "query":
		return s.cmdQuery(ctx, parsed.Args, channel)
	case "tasks":
		return s.cmdTasks(ctx)
	case "today":
		return s.cmdToday(ctx)
	case "daily":
		return s.cmdDaily(ctx)
	default:
		return fmt.Sprintf("Befehl /%s ist unbekannt. Nutze /help für eine Liste.", parsed.Command)
	}
}

func (s *CommandService) renderResult(result inboxservice.Result) string {
	switch {
	case result.NeedsClarification:
		var b strings.Builder
		fmt.Fprintf(&b, "❓ %s", result.Question)
		for i, option := range result.Options {
			fmt.Fprintf(&b, "\n%d. %s", i+1, option)
		}
		return b.String()
	case result.NeedsConfirmation:
		return "⚠️ " + result.ConfirmationQuestion
	case result.Success:
		if result.Message != "" {
			return result.Message
		}
		return "✅ Erledigt."
	default:
		return "❌ " + result.Error
	}
}

func (s *CommandService) cmdHelp() string {
	lines := []string{"<b>Verfügbare Befehle:</b>", ""}
	for _, cmd := range commands {
		lines = append(lines, fmt.Sprintf("/%s - %s", cmd.verb, cmd.help))
	}
	return strings.Join(lines, "\n")
}

func (s *CommandService) cmdStatus(ctx context.Context) string {
	open, err := s.tasks.CountByStatus(ctx, "next", "waiting")
	if err != nil {
		return "Status derzeit nicht verfügbar."
	}
	overdue, err := s.tasks.CountOverdue(ctx, s.today())
	if err != nil {
		return "Status derzeit nicht verfügbar."
	}
	eventsToday, err := s.events.CountOnDay(ctx, s.today())
	if err != nil {
		return "Status derzeit nicht verfügbar."
	}

	return strings.Join([]string{
		"<b>Status:</b>",
		fmt.Sprintf("Offene Aufgaben: %d", open),
		fmt.Sprintf("Überfällig: %d", overdue),
		fmt.Sprintf("Termine heute: %d", eventsToday),
	}, "\n")
}

// cmdQuery routes through the full query pipeline instead of a canned
// reply, so Telegram and web answers never diverge.
func (s *CommandService) cmdQuery(ctx context.Context, args []string, channel notifymodel.ChannelContext) string {
	if len(args) == 0 {
		return "Wonach soll ich suchen? z.B. /query offene Aufgaben"
	}

	question := strings.Join(args, " ")
	result := s.pipeline.Process(ctx, "? "+question, channel, false, nil)
	return s.renderResult(result)
}

func (s *CommandService) cmdTasks(ctx context.Context) string {
	tasks, err := s.tasks.ListOpen(ctx, 10)
	if err != nil {
		return "Aufgaben derzeit nicht verfügbar."
	}
	if len(tasks) == 0 {
		return "Keine offenen Aufgaben. 🎉"
	}

	lines := []string{"<b>Offene Aufgaben:</b>"}
	for _, task := range tasks {
		line := "• " + task.Title
		if task.DueDate != nil {
			line += " (bis " + task.DueDate.Format("02.01.") + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (s *CommandService) cmdToday(ctx context.Context) string {
	today := s.today()

	tasks, err := s.tasks.ListDueOn(ctx, today)
	if err != nil {
		return "Tagesübersicht derzeit nicht verfügbar."
	}
	events, err := s.events.ListOnDay(ctx, today)
	if err != nil {
		return "Tagesübersicht derzeit nicht verfügbar."
	}

	lines := []string{fmt.Sprintf("<b>Heute, %s:</b>", today.Format("02.01.2006"))}
	if len(events) == 0 && len(tasks) == 0 {
		lines = append(lines, "Nichts geplant.")
	}
	for _, event := range events {
		line := "📅 " + event.Title
		if event.StartTime != nil && !event.AllDay {
			line = fmt.Sprintf("📅 %s %s", event.StartTime.In(s.location).Format("15:04"), event.Title)
		}
		lines = append(lines, line)
	}
	for _, task := range tasks {
		lines = append(lines, "☑️ "+task.Title)
	}
	return strings.Join(lines, "\n")
}

func (s *CommandService) cmdDaily(ctx context.Context) string {
	if err := s.reports.Daily(ctx); err != nil {
		return "Daily Report konnte nicht erstellt werden."
	}
	return "Daily Report wird zugestellt."
}

func (s *CommandService) today() time.Time {
	now := s.now().In(s.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
}
