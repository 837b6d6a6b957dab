package preprocess

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Mon 2026-01-12
var reference = time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)

func TestResolveDate(t *testing.T) {
	p := New(reference)

	tests := []struct {
		name string
		text string
		want string
	}{
		{"heute", "das muss heute passieren", "2026-01-12"},
		{"morgen", "morgen anrufen", "2026-01-13"},
		{"uebermorgen", "übermorgen abgeben", "2026-01-14"},
		{"naechste woche", "nächste woche planen", "2026-01-19"},
		{"bare weekday strictly future", "freitag abgeben", "2026-01-16"},
		{"same weekday rolls a week", "montag nochmal prüfen", "2026-01-19"},
		{"naechsten freitag", "nächsten freitag fertig", "2026-01-16"},
		{"in n tagen", "in 3 tagen nachfassen", "2026-01-15"},
		{"in n wochen", "in 2 wochen review", "2026-01-26"},
		{"ende der woche", "bis ende der woche", "2026-01-16"},
		{"ende des monats", "ende des monats abrechnen", "2026-01-31"},
		{"explicit dmy", "am 24.12.2026 feiern", "2026-12-24"},
		{"explicit ymd", "deadline 2026-03-01", "2026-03-01"},
		{"invalid explicit date ignored", "am 31.02.2026", ""},
		{"no cue", "einfach eine notiz", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := p.ResolveDate(tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDateEndOfWeekOnFriday(t *testing.T) {
	// Fri 2026-01-16: end of week is inclusive, stays on the same day
	p := New(time.Date(2026, 1, 16, 8, 0, 0, 0, time.UTC))
	got, _ := p.ResolveDate("ende der woche")
	assert.Equal(t, "2026-01-16", got)
}

func TestResolveTime(t *testing.T) {
	p := New(reference)

	tests := []struct {
		name string
		text string
		want string
	}{
		{"named abends", "abends einkaufen", "18:00"},
		{"named morgens", "morgens joggen", "08:00"},
		{"named mittags", "mittags essen", "12:00"},
		{"explicit hh:mm", "termin um 14:30", "14:30"},
		{"explicit hh uhr", "um 9 uhr", "09:00"},
		{"explicit wins over named", "abends um 19:15", "19:15"},
		{"invalid hour ignored", "um 25:00 gibt es nicht", ""},
		{"no cue", "ohne zeitangabe", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := p.ResolveTime(tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolvePriority(t *testing.T) {
	p := New(reference)

	assert.Equal(t, PriorityHigh, p.ResolvePriority("das ist dringend"))
	assert.Equal(t, PriorityHigh, p.ResolvePriority("ASAP bitte"))
	assert.Equal(t, PriorityLow, p.ResolvePriority("irgendwann mal"))
	assert.Equal(t, PriorityLow, p.ResolvePriority("wenn zeit ist"))
	assert.Equal(t, PriorityMedium, p.ResolvePriority("ganz normal"))
}

func TestResolveStatus(t *testing.T) {
	p := New(reference)

	tests := []struct {
		category string
		text     string
		want     string
	}{
		{CategoryTasks, "warte auf Antwort", "waiting"},
		{CategoryTasks, "das ist erledigt", "done"},
		{CategoryTasks, "neue Aufgabe", "inbox"},
		{CategoryIdeas, "Idee umgesetzt", "done"},
		{CategoryIdeas, "neue Idee", "inbox"},
		{CategoryProjects, "Projekt pausiert", "on_hold"},
		{CategoryProjects, "neues Projekt", "active"},
		{CategoryPeople, "Anna kennengelernt", ""},
		{CategoryEvents, "Termin morgen", ""},
	}

	for _, tt := range tests {
		got := p.ResolveStatus(tt.text, tt.category)
		assert.Equal(t, tt.want, got, "%s / %s", tt.category, tt.text)
	}
}

func TestPromptContext(t *testing.T) {
	p := New(reference)

	t.Run("calendar event gets combined start time", func(t *testing.T) {
		ctx := p.PromptContext("Zahnarzt morgen abends", CategoryEvents)
		assert.Equal(t, "2026-01-13T18:00:00", ctx["resolved_start_time"])
	})

	t.Run("calendar event defaults to noon", func(t *testing.T) {
		ctx := p.PromptContext("Zahnarzt morgen", CategoryEvents)
		assert.Equal(t, "2026-01-13T12:00:00", ctx["resolved_start_time"])
	})

	t.Run("task has no start time", func(t *testing.T) {
		ctx := p.PromptContext("Rechnung bis freitag", CategoryTasks)
		assert.Nil(t, ctx["resolved_start_time"])
		assert.Equal(t, "2026-01-16", ctx["resolved_due_date"])
		assert.Equal(t, "2026-01-12", ctx["current_date"])
	})
}

func TestSeedScenarioLinkedPersonDueDate(t *testing.T) {
	// "Rechnung an Schmidt schicken bis Freitag" on Mon 2026-01-12
	p := New(reference)
	result := p.Preprocess("Rechnung an Schmidt schicken bis Freitag", CategoryTasks)

	assert.Equal(t, "2026-01-16", result.ResolvedDate)
	assert.Equal(t, PriorityMedium, result.Priority)
	assert.Equal(t, "inbox", result.Status)
}
