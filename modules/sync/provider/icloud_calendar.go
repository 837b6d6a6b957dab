package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	eventmodel "github.com/hweber/secondbrain/modules/events/model"
	"github.com/hweber/secondbrain/modules/sync/ical"
)

const icloudCalendarURL = "https://caldav.icloud.com"

const (
	calendarHomePropfindBody = `<?xml version="1.0" encoding="UTF-8"?>
<d:propfind xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:prop>
    <c:calendar-home-set/>
  </d:prop>
</d:propfind>`

	calendarListPropfindBody = `<?xml version="1.0" encoding="UTF-8"?>
<d:propfind xmlns:d="DAV:" xmlns:cs="http://calendarserver.org/ns/" xmlns:ic="http://apple.com/ns/ical/">
  <d:prop>
    <d:resourcetype/>
    <d:displayname/>
    <ic:calendar-color/>
    <cs:getctag/>
  </d:prop>
</d:propfind>`
)

// ICloudCalendarProvider is the Apple-style CalDAV adapter
type ICloudCalendarProvider struct {
	dav     *davClient
	homeURL string
}

// NewICloudCalendarProvider creates an Apple-style CalDAV adapter
func NewICloudCalendarProvider() *ICloudCalendarProvider {
	return &ICloudCalendarProvider{}
}

// Authenticate verifies the app-specific password and discovers the
// calendar home set.
func (p *ICloudCalendarProvider) Authenticate(ctx context.Context, credentials map[string]string) error {
	if err := requireCredentials(credentials, "apple_id", "app_password"); err != nil {
		return err
	}

	appleID := strings.TrimSpace(credentials["apple_id"])
	password := strings.TrimSpace(credentials["app_password"])
	password = strings.ReplaceAll(password, "-", "")
	password = strings.ReplaceAll(password, " ", "")

	p.dav = newDAVClient(appleID, password)

	status, body, err := p.dav.request(ctx, "PROPFIND", icloudCalendarURL, "0", principalPropfindBody, authTimeout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if status == http.StatusUnauthorized {
		return fmt.Errorf("%w: 401 unauthorized", ErrAuthFailed)
	}
	if status != http.StatusOK && status != http.StatusMultiStatus {
		return fmt.Errorf("%w: status %d", ErrAuthFailed, status)
	}

	ms, err := parseMultistatus(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	var principalURL string
	for _, response := range ms.Responses {
		if href := response.prop().CurrentUserPrincipal.Href; href != "" {
			principalURL = absoluteURL(icloudCalendarURL, href)
			break
		}
	}
	if principalURL == "" {
		return fmt.Errorf("%w: no current-user-principal", ErrAuthFailed)
	}

	status, body, err = p.dav.request(ctx, "PROPFIND", principalURL, "0", calendarHomePropfindBody, authTimeout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if status != http.StatusOK && status != http.StatusMultiStatus {
		return fmt.Errorf("%w: home-set status %d", ErrAuthFailed, status)
	}

	homeMS, err := parseMultistatus(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	for _, response := range homeMS.Responses {
		if href := response.prop().CalendarHomeSet.Href; href != "" {
			p.homeURL = absoluteURL(icloudCalendarURL, href)
			return nil
		}
	}
	return fmt.Errorf("%w: no calendar-home-set", ErrAuthFailed)
}

// ListCalendars returns the calendars in the home set with display name,
// colour and ctag.
func (p *ICloudCalendarProvider) ListCalendars(ctx context.Context) ([]Calendar, error) {
	if p.dav == nil || p.homeURL == "" {
		return nil, ErrNotAuthenticated
	}

	status, body, err := p.dav.request(ctx, "PROPFIND", p.homeURL, "1", calendarListPropfindBody, authTimeout)
	if err != nil {
		return nil, err
	}
	if status != http.StatusMultiStatus {
		return nil, fmt.Errorf("calendar listing returned status %d", status)
	}

	ms, err := parseMultistatus(body)
	if err != nil {
		return nil, err
	}

	var calendars []Calendar
	for _, response := range ms.Responses {
		prop := response.prop()
		if prop.ResourceType.Calendar == nil || response.Href == "" {
			continue
		}
		calendars = append(calendars, Calendar{
			URL:   absoluteURL(icloudCalendarURL, response.Href),
			Name:  prop.DisplayName,
			Color: prop.CalendarColor,
			CTag:  prop.CTag,
		})
	}
	return calendars, nil
}

// PullEvents runs a calendar-query with a time-range filter
func (p *ICloudCalendarProvider) PullEvents(ctx context.Context, calendar Calendar, start, end time.Time) ([]*eventmodel.CalendarEvent, error) {
	if p.dav == nil {
		return nil, ErrNotAuthenticated
	}

	body := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<c:calendar-query xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:prop>
    <d:getetag/>
    <c:calendar-data/>
  </d:prop>
  <c:filter>
    <c:comp-filter name="VCALENDAR">
      <c:comp-filter name="VEVENT">
        <c:time-range start="%s" end="%s"/>
      </c:comp-filter>
    </c:comp-filter>
  </c:filter>
</c:calendar-query>`, start.UTC().Format("20060102T150405Z"), end.UTC().Format("20060102T150405Z"))

	status, data, err := p.dav.request(ctx, "REPORT", calendar.URL, "1", body, bulkTimeout)
	if err != nil {
		return nil, err
	}
	if status != http.StatusMultiStatus {
		return nil, fmt.Errorf("calendar-query returned status %d", status)
	}

	ms, err := parseMultistatus(data)
	if err != nil {
		return nil, err
	}

	var events []*eventmodel.CalendarEvent
	for _, response := range ms.Responses {
		prop := response.prop()
		if prop.CalendarData == "" {
			continue
		}

		etag := strings.Trim(prop.Etag, `"`)
		for _, event := range ical.Parse(prop.CalendarData) {
			if etag != "" {
				e := etag
				event.Etag = &e
			}
			calID := calendar.URL
			event.CalendarID = &calID
			events = append(events, event)
		}
	}
	return events, nil
}

// PushEvent uploads one event at {calendar}{uid}.ics
func (p *ICloudCalendarProvider) PushEvent(ctx context.Context, calendarURL string, event *eventmodel.CalendarEvent) (string, error) {
	if p.dav == nil {
		return "", ErrNotAuthenticated
	}

	uid := ""
	if event.ICloudUID != nil {
		uid = *event.ICloudUID
	}
	if uid == "" {
		uid = uuid.New().String()
		event.ICloudUID = &uid
	}

	payload := ical.Serialize(event)
	status, err := p.dav.put(ctx, calendarURL+uid+".ics", "text/calendar; charset=utf-8", payload)
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated && status != http.StatusNoContent {
		return "", fmt.Errorf("push event returned status %d", status)
	}
	return uid, nil
}

// DeleteEvent removes one event
func (p *ICloudCalendarProvider) DeleteEvent(ctx context.Context, calendarURL, uid string) error {
	if p.dav == nil {
		return ErrNotAuthenticated
	}

	status, _, err := p.dav.request(ctx, http.MethodDelete, calendarURL+uid+".ics", "", "", authTimeout)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNoContent && status != http.StatusNotFound {
		return fmt.Errorf("delete event returned status %d", status)
	}
	return nil
}
