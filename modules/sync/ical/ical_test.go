package ical

import (
	"testing"
	"time"

	"github.com/hweber/secondbrain/modules/events/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCalendar = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Test//EN
BEGIN:VEVENT
UID:event-1
SUMMARY:Zahnarzt
DESCRIPTION:Kontrolle
LOCATION:Berlin
DTSTART:20260312T140000Z
DTEND:20260312T143000Z
END:VEVENT
BEGIN:VEVENT
UID:event-2
SUMMARY:Geburtstag Anna
DTSTART;VALUE=DATE:20260401
DTEND;VALUE=DATE:20260402
RRULE:FREQ=YEARLY
END:VEVENT
END:VCALENDAR`

func TestParse(t *testing.T) {
	events := Parse(sampleCalendar)
	require.Len(t, events, 2)

	first := events[0]
	assert.Equal(t, "event-1", *first.ICloudUID)
	assert.Equal(t, "Zahnarzt", first.Title)
	assert.Equal(t, "Kontrolle", *first.Description)
	assert.Equal(t, "Berlin", *first.Location)
	assert.False(t, first.AllDay)
	require.NotNil(t, first.StartTime)
	assert.Equal(t, time.Date(2026, 3, 12, 14, 0, 0, 0, time.UTC), *first.StartTime)
	require.NotNil(t, first.EndTime)
	assert.Equal(t, time.Date(2026, 3, 12, 14, 30, 0, 0, time.UTC), *first.EndTime)

	second := events[1]
	assert.Equal(t, "event-2", *second.ICloudUID)
	assert.True(t, second.AllDay)
	require.NotNil(t, second.StartTime)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), *second.StartTime)
	require.NotNil(t, second.Recurrence)
	assert.Equal(t, "FREQ=YEARLY", *second.Recurrence)
}

func TestParseEmptyInput(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("BEGIN:VCALENDAR\nEND:VCALENDAR"))
}

func TestRoundTrip(t *testing.T) {
	uid := "rt-event"
	desc := "Planung Q2"
	loc := "Büro"
	rrule := "FREQ=WEEKLY;BYDAY=MO"
	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	end := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	original := &model.CalendarEvent{
		Title:       "Teammeeting",
		Description: &desc,
		Location:    &loc,
		StartTime:   &start,
		EndTime:     &end,
		Recurrence:  &rrule,
		ICloudUID:   &uid,
	}

	parsed := Parse(Serialize(original))
	require.Len(t, parsed, 1)
	again := parsed[0]

	assert.Equal(t, original.Title, again.Title)
	assert.Equal(t, original.Description, again.Description)
	assert.Equal(t, original.Location, again.Location)
	assert.Equal(t, original.StartTime.UTC(), again.StartTime.UTC())
	assert.Equal(t, original.EndTime.UTC(), again.EndTime.UTC())
	assert.Equal(t, original.Recurrence, again.Recurrence)
	assert.Equal(t, original.ICloudUID, again.ICloudUID)
	assert.Equal(t, original.AllDay, again.AllDay)
}

func TestRoundTripAllDay(t *testing.T) {
	uid := "ad-1"
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC)

	original := &model.CalendarEvent{
		Title:     "Feiertag",
		AllDay:    true,
		StartTime: &start,
		EndTime:   &end,
		ICloudUID: &uid,
	}

	parsed := Parse(Serialize(original))
	require.Len(t, parsed, 1)

	assert.True(t, parsed[0].AllDay)
	assert.Equal(t, start, *parsed[0].StartTime)
	assert.Equal(t, end, *parsed[0].EndTime)
}
