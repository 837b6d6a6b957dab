// Package ical converts between iCalendar text and calendar events.
package ical

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hweber/secondbrain/modules/events/model"
)

var veventRe = regexp.MustCompile(`(?s)BEGIN:VEVENT(.*?)END:VEVENT`)

// Parse extracts all VEVENT blocks of a VCALENDAR
func Parse(input string) []*model.CalendarEvent {
	var events []*model.CalendarEvent

	for _, match := range veventRe.FindAllStringSubmatch(input, -1) {
		if event := parseVEvent(match[1]); event != nil {
			events = append(events, event)
		}
	}
	return events
}

func parseVEvent(content string) *model.CalendarEvent {
	event := &model.CalendarEvent{}

	for _, line := range strings.Split(strings.TrimSpace(content), "\n") {
		line = strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(line, "UID:"):
			uid := strings.TrimSpace(line[4:])
			event.ICloudUID = &uid

		case strings.HasPrefix(line, "SUMMARY:"):
			event.Title = strings.TrimSpace(line[8:])

		case strings.HasPrefix(line, "DESCRIPTION:"):
			desc := strings.TrimSpace(line[12:])
			event.Description = &desc

		case strings.HasPrefix(line, "LOCATION:"):
			loc := strings.TrimSpace(line[9:])
			event.Location = &loc

		case strings.HasPrefix(line, "DTSTART"):
			start, allDay := parseDateTime(line)
			event.StartTime = start
			event.AllDay = allDay

		case strings.HasPrefix(line, "DTEND"):
			end, _ := parseDateTime(line)
			event.EndTime = end

		case strings.HasPrefix(line, "RRULE:"):
			rrule := strings.TrimSpace(line[6:])
			event.Recurrence = &rrule
		}
	}

	if event.Title == "" && event.ICloudUID == nil {
		return nil
	}
	return event
}

// parseDateTime handles DTSTART/DTEND lines. VALUE=DATE marks an all-day
// event in YYYYMMDD; everything else is YYYYMMDDTHHMMSS with an optional
// trailing Z.
func parseDateTime(line string) (*time.Time, bool) {
	idx := strings.LastIndex(line, ":")
	if idx < 0 {
		return nil, false
	}
	value := strings.TrimSpace(line[idx+1:])

	if strings.Contains(line, "VALUE=DATE") {
		if t, err := time.Parse("20060102", value); err == nil {
			return &t, true
		}
		return nil, true
	}

	value = strings.TrimSuffix(value, "Z")
	if strings.Contains(value, "T") {
		if t, err := time.Parse("20060102T150405", value); err == nil {
			return &t, false
		}
	}
	return nil, false
}

// Serialize renders a single-event VCALENDAR
func Serialize(event *model.CalendarEvent) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Second Brain//CalDAV//EN",
		"BEGIN:VEVENT",
	}

	if event.ICloudUID != nil && *event.ICloudUID != "" {
		lines = append(lines, "UID:"+*event.ICloudUID)
	}
	if event.Title != "" {
		lines = append(lines, "SUMMARY:"+event.Title)
	}
	if event.Description != nil && *event.Description != "" {
		lines = append(lines, "DESCRIPTION:"+*event.Description)
	}
	if event.Location != nil && *event.Location != "" {
		lines = append(lines, "LOCATION:"+*event.Location)
	}

	if event.StartTime != nil {
		lines = append(lines, formatDateTime("DTSTART", *event.StartTime, event.AllDay))
	}
	if event.EndTime != nil {
		lines = append(lines, formatDateTime("DTEND", *event.EndTime, event.AllDay))
	}
	if event.Recurrence != nil && *event.Recurrence != "" {
		lines = append(lines, "RRULE:"+*event.Recurrence)
	}

	lines = append(lines, "END:VEVENT", "END:VCALENDAR")
	return strings.Join(lines, "\n")
}

func formatDateTime(field string, t time.Time, allDay bool) string {
	if allDay {
		return fmt.Sprintf("%s;VALUE=DATE:%s", field, t.Format("20060102"))
	}
	return fmt.Sprintf("%s:%sZ", field, t.UTC().Format("20060102T150405"))
}
