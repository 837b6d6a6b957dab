package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/hweber/secondbrain/modules/people/model"
	"github.com/hweber/secondbrain/modules/sync/vcard"
)

const (
	addressbookQueryBody = `<?xml version="1.0" encoding="UTF-8"?>
<card:addressbook-query xmlns:d="DAV:" xmlns:card="urn:ietf:params:xml:ns:carddav">
  <d:prop>
    <d:getetag/>
    <card:address-data/>
  </d:prop>
</card:addressbook-query>`

	syncTokenPropfindBody = `<?xml version="1.0" encoding="UTF-8"?>
<d:propfind xmlns:d="DAV:">
  <d:prop>
    <d:sync-token/>
  </d:prop>
</d:propfind>`
)

// NextcloudProvider is the generic CardDAV adapter. The collection URL is
// computed from the server URL and username.
type NextcloudProvider struct {
	dav     *davClient
	baseURL string
}

// NewNextcloudProvider creates a generic CardDAV adapter
func NewNextcloudProvider() *NextcloudProvider {
	return &NextcloudProvider{}
}

// Name returns the provider name
func (p *NextcloudProvider) Name() string {
	return ProviderNextcloud
}

// Authenticate verifies basic-auth access to the computed collection URL
// with a depth-0 PROPFIND.
func (p *NextcloudProvider) Authenticate(ctx context.Context, credentials map[string]string) error {
	if err := requireCredentials(credentials, "server_url", "username", "password"); err != nil {
		return err
	}

	server := strings.TrimSuffix(credentials["server_url"], "/")
	username := credentials["username"]
	p.baseURL = fmt.Sprintf("%s/remote.php/dav/addressbooks/users/%s/contacts/", server, username)
	p.dav = newDAVClient(username, credentials["password"])

	status, _, err := p.dav.request(ctx, "PROPFIND", p.baseURL, "0", "", authTimeout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if status != http.StatusOK && status != http.StatusMultiStatus {
		return fmt.Errorf("%w: status %d", ErrAuthFailed, status)
	}
	return nil
}

// PullContacts fetches every card in the collection
func (p *NextcloudProvider) PullContacts(ctx context.Context) ([]*model.Person, error) {
	if p.dav == nil {
		return nil, ErrNotAuthenticated
	}

	status, body, err := p.dav.request(ctx, "REPORT", p.baseURL, "1", addressbookQueryBody, bulkTimeout)
	if err != nil {
		return nil, err
	}
	if status != http.StatusMultiStatus {
		return nil, fmt.Errorf("addressbook-query returned status %d", status)
	}

	return p.parseContacts(body)
}

func (p *NextcloudProvider) parseContacts(body []byte) ([]*model.Person, error) {
	ms, err := parseMultistatus(body)
	if err != nil {
		return nil, err
	}

	var contacts []*model.Person
	for _, response := range ms.Responses {
		prop := response.prop()
		if prop.AddressData == "" {
			continue
		}

		person, err := vcard.Parse(prop.AddressData)
		if err != nil {
			continue // skip invalid cards
		}
		if uid := vcardUID(prop.AddressData); uid != "" {
			person.NextcloudUID = &uid
		}
		if etag := strings.Trim(prop.Etag, `"`); etag != "" {
			person.SyncEtag = &etag
		}
		contacts = append(contacts, person)
	}
	return contacts, nil
}

// PushContact uploads one contact, generating a UID when missing
func (p *NextcloudProvider) PushContact(ctx context.Context, person *model.Person) (string, error) {
	if p.dav == nil {
		return "", ErrNotAuthenticated
	}

	uid := ""
	if person.NextcloudUID != nil {
		uid = *person.NextcloudUID
	}
	if uid == "" {
		uid = uuid.New().String()
		person.SetProviderUID(ProviderNextcloud, uid)
	}

	card := vcard.Serialize(person, ProviderNextcloud)
	status, err := p.dav.put(ctx, p.baseURL+uid+".vcf", "text/vcard; charset=utf-8", card)
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated && status != http.StatusNoContent {
		return "", fmt.Errorf("push contact returned status %d", status)
	}
	return uid, nil
}

// DeleteContact removes one card
func (p *NextcloudProvider) DeleteContact(ctx context.Context, uid string) error {
	if p.dav == nil {
		return ErrNotAuthenticated
	}

	status, _, err := p.dav.request(ctx, http.MethodDelete, p.baseURL+uid+".vcf", "", "", authTimeout)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNoContent && status != http.StatusNotFound {
		return fmt.Errorf("delete contact returned status %d", status)
	}
	return nil
}

// ChangesSince performs an incremental sync-collection report. An empty
// token falls back to a full pull plus the current collection token.
func (p *NextcloudProvider) ChangesSince(ctx context.Context, syncToken string) (*ChangeSet, error) {
	if p.dav == nil {
		return nil, ErrNotAuthenticated
	}

	if syncToken == "" {
		contacts, err := p.PullContacts(ctx)
		if err != nil {
			return nil, err
		}
		token, _ := p.currentSyncToken(ctx)
		return &ChangeSet{Created: contacts, SyncToken: token}, nil
	}

	body := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<d:sync-collection xmlns:d="DAV:" xmlns:card="urn:ietf:params:xml:ns:carddav">
  <d:sync-token>%s</d:sync-token>
  <d:sync-level>1</d:sync-level>
  <d:prop>
    <d:getetag/>
    <card:address-data/>
  </d:prop>
</d:sync-collection>`, syncToken)

	status, data, err := p.dav.request(ctx, "REPORT", p.baseURL, "", body, bulkTimeout)
	if err != nil {
		return nil, err
	}
	if status != http.StatusMultiStatus {
		return nil, fmt.Errorf("sync-collection returned status %d", status)
	}

	ms, err := parseMultistatus(data)
	if err != nil {
		return nil, err
	}

	changes := &ChangeSet{SyncToken: ms.SyncToken}
	for _, response := range ms.Responses {
		if response.isNotFound() {
			changes.Deleted = append(changes.Deleted, uidFromHref(response.Href, ".vcf"))
			continue
		}

		prop := response.prop()
		if prop.AddressData == "" {
			continue
		}
		person, err := vcard.Parse(prop.AddressData)
		if err != nil {
			continue
		}
		if uid := vcardUID(prop.AddressData); uid != "" {
			person.NextcloudUID = &uid
		}
		if etag := strings.Trim(prop.Etag, `"`); etag != "" {
			person.SyncEtag = &etag
		}
		// created vs updated is decided against the local store later
		changes.Created = append(changes.Created, person)
	}
	return changes, nil
}

// currentSyncToken reads the collection-level sync token
func (p *NextcloudProvider) currentSyncToken(ctx context.Context) (string, error) {
	status, data, err := p.dav.request(ctx, "PROPFIND", p.baseURL, "0", syncTokenPropfindBody, authTimeout)
	if err != nil {
		return "", err
	}
	if status != http.StatusMultiStatus {
		return "", fmt.Errorf("sync-token propfind returned status %d", status)
	}

	ms, err := parseMultistatus(data)
	if err != nil {
		return "", err
	}
	for _, response := range ms.Responses {
		if token := response.prop().SyncToken; token != "" {
			return token, nil
		}
	}
	return "", nil
}
