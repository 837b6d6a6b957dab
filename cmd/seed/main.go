// Command seed loads the default agent configs, language mappings, system
// settings and schedules into the database. It is idempotent.
package main

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hweber/secondbrain/internal/config"
	"github.com/hweber/secondbrain/internal/platform/logger"
	"github.com/hweber/secondbrain/internal/platform/postgres"
	agentmodel "github.com/hweber/secondbrain/modules/agents/model"
	agentRepo "github.com/hweber/secondbrain/modules/agents/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg, err := logger.New(cfg.Log.Level, "console")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logg.Sync()

	ctx := context.Background()

	pgClient, err := postgres.New(ctx, cfg.Database)
	if err != nil {
		logg.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgClient.Close()

	if err := postgres.RunMigrations(ctx, cfg.Database, logg, "./migrations"); err != nil {
		logg.Fatal("Failed to run migrations", zap.Error(err))
	}

	if err := seedAgents(ctx, pgClient.Pool); err != nil {
		logg.Fatal("Failed to seed agent configs", zap.Error(err))
	}
	if err := seedLanguageMappings(ctx, pgClient.Pool); err != nil {
		logg.Fatal("Failed to seed language mappings", zap.Error(err))
	}
	if err := seedSystemSettings(ctx, pgClient.Pool); err != nil {
		logg.Fatal("Failed to seed system settings", zap.Error(err))
	}
	if err := seedSchedules(ctx, pgClient.Pool); err != nil {
		logg.Fatal("Failed to seed schedules", zap.Error(err))
	}

	logg.Info("Seeding complete")
}

func rawSchema(schema map[string]interface{}) json.RawMessage {
	encoded, err := json.Marshal(schema)
	if err != nil {
		panic(err)
	}
	return encoded
}

func seedAgents(ctx context.Context, pool *pgxpool.Pool) error {
	repo := agentRepo.NewAgentConfigRepository(pool)

	configs := []*agentmodel.AgentConfig{
		{
			AgentName: agentmodel.AgentIntent,
			Provider:  "anthropic",
			Model:     "claude-sonnet-4-20250514",
			SystemPrompt: "Du klassifizierst Eingaben für ein Second-Brain-System. " +
				"Antworte ausschließlich mit einem JSON-Objekt.",
			UserPromptTemplate: "Eingabe: {text}\n\nGefundene Einträge in der Datenbank:\n{matches}\n\n" +
				"Bestimme den Intent (create, update, complete, delete oder unclear), die Ziel-Kategorie " +
				"(tasks, projects, people, ideas, calendar_events) und bei Bezug auf einen bestehenden Eintrag das Ziel. " +
				"Bei Unklarheit: intent unclear mit question und options (je {{\"label\", \"table\", \"id\", \"intent\"}}). " +
				"Antworte als JSON: {{\"intent\": ..., \"category\": ..., \"target\": {{\"table\": ..., \"id\": ...}}, " +
				"\"options\": [...], \"question\": ..., \"confidence\": 0.0-1.0, \"reasoning\": ...}}",
			OutputSchema: rawSchema(map[string]interface{}{
				"intent":     map[string]interface{}{"type": "string", "required": true},
				"category":   map[string]interface{}{"type": "string"},
				"confidence": map[string]interface{}{"type": "number", "default": 0},
				"reasoning":  map[string]interface{}{"type": "string"},
			}),
			RetryCount: 3, TimeoutSeconds: 30, MaxTokens: 1024, Temperature: 0.2, IsActive: true,
		},
		{
			AgentName: agentmodel.AgentStructure,
			Provider:  "anthropic",
			Model:     "claude-sonnet-4-20250514",
			SystemPrompt: "Du extrahierst strukturierte Felder aus Freitext für ein Second-Brain-System. " +
				"Antworte ausschließlich mit einem JSON-Objekt.",
			UserPromptTemplate: "Eingabe: {text}\nIntent: {intent}\nKategorie: {category}\nZiel: {target}\n" +
				"Heutiges Datum: {current_date}\n" +
				"Vorverarbeitung: due_date={resolved_due_date}, time={resolved_time}, start_time={resolved_start_time}, " +
				"priority={resolved_priority}, status={resolved_status}, hints={preprocessing_hints}\n\n" +
				"Bei create: JSON {{\"data\": {{...kategorie-spezifische Felder..., \"linked_entities\": " +
				"{{\"person_name\": ..., \"project_name\": ...}}}}}}. " +
				"Bei update: JSON {{\"changes\": {{...nur geänderte Felder...}}}}. " +
				"Nutze die vorverarbeiteten Werte, wenn sie gesetzt sind.",
			OutputSchema: rawSchema(map[string]interface{}{
				"data":    map[string]interface{}{"type": "object"},
				"changes": map[string]interface{}{"type": "object"},
			}),
			RetryCount: 3, TimeoutSeconds: 30, MaxTokens: 1024, Temperature: 0.2, IsActive: true,
		},
		{
			AgentName: agentmodel.AgentQueryClassifier,
			Provider:  "anthropic",
			Model:     "claude-sonnet-4-20250514",
			SystemPrompt: "Du ordnest Fragen einer Tabelle und einer Suchart zu. " +
				"Antworte ausschließlich mit einem JSON-Objekt.",
			UserPromptTemplate: "Frage: {question}\nHeute: {today}\n" +
				"Tabellen: tasks, projects, people, ideas, calendar_events.\n" +
				"Sucharten: name, date_range (Wert als YYYY-MM-DD oder YYYY-MM-DD..YYYY-MM-DD), fulltext, all.\n" +
				"Antworte als JSON: {{\"table\": ..., \"search_type\": ..., \"search_value\": ...}}",
			OutputSchema: rawSchema(map[string]interface{}{
				"table":        map[string]interface{}{"type": "string", "required": true},
				"search_type":  map[string]interface{}{"type": "string", "default": "all"},
				"search_value": map[string]interface{}{"type": "string"},
			}),
			RetryCount: 3, TimeoutSeconds: 30, MaxTokens: 512, Temperature: 0.1, IsActive: true,
		},
		{
			AgentName: agentmodel.AgentQuery,
			Provider:  "anthropic",
			Model:     "claude-sonnet-4-20250514",
			SystemPrompt: "Du beantwortest Fragen über persönliche Daten knapp und freundlich auf Deutsch. " +
				"Antworte ausschließlich mit einem JSON-Objekt.",
			UserPromptTemplate: "Frage: {question}\nHeute: {today}\nDaten:\n{rows}\n\n" +
				"Formuliere eine natürliche Antwort. Antworte als JSON: {{\"answer\": ...}}",
			OutputSchema: rawSchema(map[string]interface{}{
				"answer": map[string]interface{}{"type": "string", "required": true},
			}),
			RetryCount: 3, TimeoutSeconds: 30, MaxTokens: 1024, Temperature: 0.4, IsActive: true,
		},
		{
			AgentName: agentmodel.AgentEdit,
			Provider:  "anthropic",
			Model:     "claude-sonnet-4-20250514",
			SystemPrompt: "Du übersetzt Änderungswünsche in eine konkrete Datenbank-Aktion. " +
				"Antworte ausschließlich mit einem JSON-Objekt.",
			UserPromptTemplate: "Anweisung: {instruction}\nHeute: {today}\n" +
				"Tabellen: tasks, projects, people, ideas, calendar_events.\n" +
				"Antworte als JSON: {{\"action\": {{\"operation\": \"update\"|\"delete\", \"table\": ..., \"id\": ..., " +
				"\"field\": ..., \"new_value\": ..., \"target_name\": ...}}, \"confirmation_question\": ...}}",
			OutputSchema: rawSchema(map[string]interface{}{
				"action": map[string]interface{}{"type": "object", "required": true},
			}),
			RetryCount: 3, TimeoutSeconds: 30, MaxTokens: 512, Temperature: 0.1, IsActive: true,
		},
		{
			AgentName: agentmodel.AgentDailyReport,
			Provider:  "anthropic",
			Model:     "claude-haiku-4-5",
			SystemPrompt: "Du schreibst einen knappen täglichen Überblick auf Deutsch. " +
				"Antworte ausschließlich mit einem JSON-Objekt.",
			UserPromptTemplate: "Datum: {date}\nFällige Aufgaben: {tasks_due}\nÜberfällig: {overdue_count}\n" +
				"Termine: {events}\n\nAntworte als JSON: {{\"summary_text\": ...}}",
			OutputSchema: rawSchema(map[string]interface{}{
				"summary_text": map[string]interface{}{"type": "string", "required": true},
			}),
			RetryCount: 2, TimeoutSeconds: 30, MaxTokens: 1024, Temperature: 0.5, IsActive: true,
		},
		{
			AgentName: agentmodel.AgentWeeklyReport,
			Provider:  "anthropic",
			Model:     "claude-haiku-4-5",
			SystemPrompt: "Du schreibst einen Wochenrückblick mit Ausblick auf Deutsch. " +
				"Antworte ausschließlich mit einem JSON-Objekt.",
			UserPromptTemplate: "Wochenstart: {week_start}\nFällige Aufgaben: {tasks_due}\nErledigt: {completed_count}\n" +
				"Projekte: {projects}\nTermine: {events}\n\nAntworte als JSON: {{\"summary_text\": ...}}",
			OutputSchema: rawSchema(map[string]interface{}{
				"summary_text": map[string]interface{}{"type": "string", "required": true},
			}),
			RetryCount: 2, TimeoutSeconds: 30, MaxTokens: 1024, Temperature: 0.5, IsActive: true,
		},
	}

	for _, config := range configs {
		if err := repo.Upsert(ctx, config); err != nil {
			return err
		}
	}
	return nil
}

func seedLanguageMappings(ctx context.Context, pool *pgxpool.Pool) error {
	type mapping struct {
		mappingType string
		key         string
		value       interface{}
	}

	mappings := []mapping{
		{"stopwords", "default", []string{
			"der", "die", "das", "ein", "eine", "und", "oder", "für", "von", "mit",
			"auf", "ist", "im", "in", "an", "zu", "bei", "bis", "the", "a", "an",
			"and", "or", "for", "of", "with", "to", "at", "is",
		}},
		{"priority", "high", []string{"dringend", "asap", "sofort", "wichtig", "urgent", "kritisch", "eilig"}},
		{"priority", "low", []string{"irgendwann", "wenn zeit", "niedrig", "low", "unwichtig", "someday"}},
		{"completion", "default", []string{"erledigt", "fertig", "done", "abgeschlossen", "geschafft"}},
		{"deletion", "default", []string{"löschen", "entfernen", "weg damit", "delete", "streichen"}},
		{"status", "tasks", map[string][]string{
			"next":    {"als nächstes", "jetzt", "sofort anfangen", "next"},
			"waiting": {"warte auf", "wartend", "blocked", "blockiert"},
			"someday": {"irgendwann", "someday", "vielleicht", "maybe"},
			"done":    {"erledigt", "done", "fertig", "abgeschlossen"},
		}},
		{"status", "ideas", map[string][]string{
			"done": {"umgesetzt", "erledigt", "done"},
		}},
		{"status", "projects", map[string][]string{
			"on_hold":   {"pausiert", "on hold", "pause"},
			"completed": {"abgeschlossen", "fertig", "completed"},
			"cancelled": {"abgebrochen", "cancelled", "storniert"},
		}},
	}

	for _, m := range mappings {
		value, err := json.Marshal(m.value)
		if err != nil {
			return err
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO language_mappings (mapping_type, mapping_key, language, mapping_value)
			VALUES ($1, $2, 'de', $3)
			ON CONFLICT (mapping_type, mapping_key, language)
			DO UPDATE SET mapping_value = $3, updated_at = NOW()
		`, m.mappingType, m.key, value)
		if err != nil {
			return err
		}
	}
	return nil
}

func seedSystemSettings(ctx context.Context, pool *pgxpool.Pool) error {
	settings := []struct {
		key         string
		value       interface{}
		description string
	}{
		{"confidence_threshold", 0.3, "Below this confidence the pipeline asks for clarification"},
		{"max_matches", 5, "Maximum fuzzy-search matches handed to the intent agent"},
		{"keyword_min_length", 2, "Minimum token length for keyword extraction"},
		{"timezone", "Europe/Berlin", "Timezone for date resolution and reports"},
	}

	for _, s := range settings {
		value, err := json.Marshal(s.value)
		if err != nil {
			return err
		}
		_, err = pool.Exec(ctx, `
			INSERT INTO system_settings (setting_key, setting_value, description)
			VALUES ($1, $2, $3)
			ON CONFLICT (setting_key) DO NOTHING
		`, s.key, value, s.description)
		if err != nil {
			return err
		}
	}
	return nil
}

func seedSchedules(ctx context.Context, pool *pgxpool.Pool) error {
	type jobSeed struct {
		jobName      string
		scheduleName string
		scheduleType string
		interval     *int
		timeOfDay    *string
		dayOfWeek    *int
	}

	intervalMinutes := 15
	sevenAM := "07:00"
	eightAM := "08:00"
	sunday := 6

	seeds := []jobSeed{
		{jobName: "contact_sync", scheduleName: "Contact sync every 15m", scheduleType: "interval", interval: &intervalMinutes},
		{jobName: "calendar_sync", scheduleName: "Calendar sync every 15m", scheduleType: "interval", interval: &intervalMinutes},
		{jobName: "daily_report", scheduleName: "Daily report 07:00", scheduleType: "daily", timeOfDay: &sevenAM},
		{jobName: "weekly_report", scheduleName: "Weekly report Sun 08:00", scheduleType: "weekly", timeOfDay: &eightAM, dayOfWeek: &sunday},
	}

	for _, seed := range seeds {
		var scheduleID int64
		err := pool.QueryRow(ctx, `
			SELECT id FROM schedules WHERE name = $1
		`, seed.scheduleName).Scan(&scheduleID)
		if err != nil {
			err = pool.QueryRow(ctx, `
				INSERT INTO schedules (name, type, interval_minutes, time_of_day, day_of_week)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id
			`, seed.scheduleName, seed.scheduleType, seed.interval, seed.timeOfDay, seed.dayOfWeek).Scan(&scheduleID)
			if err != nil {
				return err
			}
		}

		_, err = pool.Exec(ctx, `
			INSERT INTO scheduled_jobs (job_name, schedule_id)
			VALUES ($1, $2)
			ON CONFLICT (job_name) DO NOTHING
		`, seed.jobName, scheduleID)
		if err != nil {
			return err
		}
	}
	return nil
}
