// Package provider contains the wire-level sync adapters: CardDAV
// (generic and Apple-style), CalDAV, and the Google People API.
package provider

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	eventmodel "github.com/hweber/secondbrain/modules/events/model"
	"github.com/hweber/secondbrain/modules/people/model"
)

// Provider names
const (
	ProviderICloud    = "icloud"
	ProviderGoogle    = "google"
	ProviderNextcloud = "nextcloud"
)

var (
	// ErrNotAuthenticated is returned when an adapter is used before
	// Authenticate succeeded
	ErrNotAuthenticated = errors.New("provider not authenticated")

	// ErrAuthFailed marks a fatal authentication failure; the sync run
	// aborts instead of retrying
	ErrAuthFailed = errors.New("provider authentication failed")

	// ErrMissingCredentials is returned when required credential keys are
	// absent
	ErrMissingCredentials = errors.New("missing required credentials")
)

// ChangeSet is the per-sync delta a provider reports
type ChangeSet struct {
	Created   []*model.Person
	Updated   []*model.Person
	Deleted   []string
	SyncToken string
}

// ContactProvider is the adapter surface the sync service drives
type ContactProvider interface {
	Name() string
	Authenticate(ctx context.Context, credentials map[string]string) error
	PullContacts(ctx context.Context) ([]*model.Person, error)
	PushContact(ctx context.Context, person *model.Person) (string, error)
	DeleteContact(ctx context.Context, uid string) error
	ChangesSince(ctx context.Context, syncToken string) (*ChangeSet, error)
}

// Calendar describes one remote CalDAV calendar
type Calendar struct {
	URL   string
	Name  string
	Color string
	CTag  string
}

// CalendarProvider is the CalDAV adapter surface
type CalendarProvider interface {
	Authenticate(ctx context.Context, credentials map[string]string) error
	ListCalendars(ctx context.Context) ([]Calendar, error)
	PullEvents(ctx context.Context, calendar Calendar, start, end time.Time) ([]*eventmodel.CalendarEvent, error)
	PushEvent(ctx context.Context, calendarURL string, event *eventmodel.CalendarEvent) (string, error)
	DeleteEvent(ctx context.Context, calendarURL, uid string) error
}

// requireCredentials checks that every key is present and non-empty
func requireCredentials(credentials map[string]string, keys ...string) error {
	var missing []string
	for _, key := range keys {
		if credentials[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// --- DAV wire plumbing shared by the CardDAV/CalDAV adapters ---

const (
	authTimeout = 30 * time.Second
	bulkTimeout = 60 * time.Second
)

// davClient issues WebDAV requests with HTTP basic auth
type davClient struct {
	username string
	password string
	client   *http.Client
}

func newDAVClient(username, password string) *davClient {
	return &davClient{
		username: username,
		password: password,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// request sends one DAV request and returns status and body
func (d *davClient) request(ctx context.Context, method, url, depth, body string, timeout time.Duration) (int, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}

	req, err := http.NewRequestWithContext(reqCtx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.SetBasicAuth(d.username, d.password)
	if body != "" {
		req.Header.Set("Content-Type", "application/xml; charset=utf-8")
	}
	if depth != "" {
		req.Header.Set("Depth", depth)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}

// put uploads a resource body with its own content type
func (d *davClient) put(ctx context.Context, url, contentType, body string) (int, error) {
	reqCtx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPut, url, strings.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.SetBasicAuth(d.username, d.password)
	req.Header.Set("Content-Type", contentType)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

// --- multistatus XML shapes (namespace-agnostic by local name) ---

type multistatus struct {
	XMLName   xml.Name      `xml:"multistatus"`
	SyncToken string        `xml:"sync-token"`
	Responses []davResponse `xml:"response"`
}

type davResponse struct {
	Href      string     `xml:"href"`
	Status    string     `xml:"status"`
	Propstats []propstat `xml:"propstat"`
}

type propstat struct {
	Status string  `xml:"status"`
	Prop   davProp `xml:"prop"`
}

type davProp struct {
	Etag                 string       `xml:"getetag"`
	AddressData          string       `xml:"address-data"`
	CalendarData         string       `xml:"calendar-data"`
	DisplayName          string       `xml:"displayname"`
	CalendarColor        string       `xml:"calendar-color"`
	CTag                 string       `xml:"getctag"`
	SyncToken            string       `xml:"sync-token"`
	ResourceType         resourceType `xml:"resourcetype"`
	CurrentUserPrincipal davHref      `xml:"current-user-principal"`
	AddressbookHomeSet   davHref      `xml:"addressbook-home-set"`
	CalendarHomeSet      davHref      `xml:"calendar-home-set"`
}

type resourceType struct {
	Addressbook *struct{} `xml:"addressbook"`
	Calendar    *struct{} `xml:"calendar"`
}

type davHref struct {
	Href string `xml:"href"`
}

func parseMultistatus(data []byte) (*multistatus, error) {
	var ms multistatus
	if err := xml.Unmarshal(data, &ms); err != nil {
		return nil, fmt.Errorf("parse multistatus: %w", err)
	}
	return &ms, nil
}

// prop returns the first propstat's prop
func (r *davResponse) prop() davProp {
	if len(r.Propstats) > 0 {
		return r.Propstats[0].Prop
	}
	return davProp{}
}

// isNotFound reports whether the response marks a deleted resource in a
// sync-collection report
func (r *davResponse) isNotFound() bool {
	if strings.Contains(r.Status, "404") {
		return true
	}
	for _, ps := range r.Propstats {
		if strings.Contains(ps.Status, "404") {
			return true
		}
	}
	return false
}

var uidLineRe = regexp.MustCompile(`UID:(.+)`)

// vcardUID extracts the UID line of a raw vCard
func vcardUID(raw string) string {
	if m := uidLineRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// uidFromHref derives a UID from a resource path like .../abc.vcf
func uidFromHref(href, suffix string) string {
	parts := strings.Split(strings.TrimSuffix(href, suffix), "/")
	return parts[len(parts)-1]
}

// absoluteURL resolves an href against a base origin
func absoluteURL(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimSuffix(base, "/") + href
}
