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

const icloudContactsURL = "https://contacts.icloud.com"

const (
	principalPropfindBody = `<?xml version="1.0" encoding="UTF-8"?>
<d:propfind xmlns:d="DAV:">
  <d:prop>
    <d:current-user-principal/>
  </d:prop>
</d:propfind>`

	addressbookHomePropfindBody = `<?xml version="1.0" encoding="UTF-8"?>
<d:propfind xmlns:d="DAV:" xmlns:card="urn:ietf:params:xml:ns:carddav">
  <d:prop>
    <card:addressbook-home-set/>
  </d:prop>
</d:propfind>`

	addressbookListPropfindBody = `<?xml version="1.0" encoding="UTF-8"?>
<d:propfind xmlns:d="DAV:">
  <d:prop>
    <d:resourcetype/>
    <d:displayname/>
  </d:prop>
</d:propfind>`
)

// ICloudProvider is the Apple-style CardDAV adapter. It authenticates
// with an Apple ID and an app-specific password, then discovers the
// addressbook home through current-user-principal.
type ICloudProvider struct {
	dav     *davClient
	homeURL string
	bookURL string
}

// NewICloudProvider creates an Apple-style CardDAV adapter
func NewICloudProvider() *ICloudProvider {
	return &ICloudProvider{}
}

// Name returns the provider name
func (p *ICloudProvider) Name() string {
	return ProviderICloud
}

// Authenticate verifies the app-specific password and discovers the
// addressbook home set. Hyphens and spaces in the password are stripped.
func (p *ICloudProvider) Authenticate(ctx context.Context, credentials map[string]string) error {
	if err := requireCredentials(credentials, "apple_id", "app_password"); err != nil {
		return err
	}

	appleID := strings.TrimSpace(credentials["apple_id"])
	password := strings.TrimSpace(credentials["app_password"])
	password = strings.ReplaceAll(password, "-", "")
	password = strings.ReplaceAll(password, " ", "")

	p.dav = newDAVClient(appleID, password)

	status, body, err := p.dav.request(ctx, "PROPFIND", icloudContactsURL, "0", principalPropfindBody, authTimeout)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if status == http.StatusUnauthorized {
		return fmt.Errorf("%w: 401 unauthorized", ErrAuthFailed)
	}
	if status != http.StatusOK && status != http.StatusMultiStatus {
		return fmt.Errorf("%w: status %d", ErrAuthFailed, status)
	}

	homeURL, err := p.discoverHome(ctx, body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	p.homeURL = homeURL
	return nil
}

// discoverHome walks current-user-principal to addressbook-home-set
func (p *ICloudProvider) discoverHome(ctx context.Context, principalBody []byte) (string, error) {
	ms, err := parseMultistatus(principalBody)
	if err != nil {
		return "", err
	}

	var principalURL string
	for _, response := range ms.Responses {
		if href := response.prop().CurrentUserPrincipal.Href; href != "" {
			principalURL = absoluteURL(icloudContactsURL, href)
			break
		}
	}
	if principalURL == "" {
		return "", fmt.Errorf("no current-user-principal in response")
	}

	status, body, err := p.dav.request(ctx, "PROPFIND", principalURL, "0", addressbookHomePropfindBody, authTimeout)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK && status != http.StatusMultiStatus {
		return "", fmt.Errorf("home-set propfind returned status %d", status)
	}

	homeMS, err := parseMultistatus(body)
	if err != nil {
		return "", err
	}
	for _, response := range homeMS.Responses {
		if href := response.prop().AddressbookHomeSet.Href; href != "" {
			return absoluteURL(icloudContactsURL, href), nil
		}
	}
	return "", fmt.Errorf("no addressbook-home-set in response")
}

// addressbook lists the home collection and returns the first resource
// typed as an addressbook
func (p *ICloudProvider) addressbook(ctx context.Context) (string, error) {
	if p.bookURL != "" {
		return p.bookURL, nil
	}

	status, body, err := p.dav.request(ctx, "PROPFIND", p.homeURL, "1", addressbookListPropfindBody, authTimeout)
	if err != nil {
		return "", err
	}
	if status != http.StatusMultiStatus {
		return "", fmt.Errorf("addressbook listing returned status %d", status)
	}

	ms, err := parseMultistatus(body)
	if err != nil {
		return "", err
	}
	for _, response := range ms.Responses {
		if response.prop().ResourceType.Addressbook != nil && response.Href != "" {
			p.bookURL = absoluteURL(icloudContactsURL, response.Href)
			return p.bookURL, nil
		}
	}
	return "", fmt.Errorf("no addressbook found")
}

// PullContacts fetches every card in the discovered addressbook
func (p *ICloudProvider) PullContacts(ctx context.Context) ([]*model.Person, error) {
	if p.dav == nil || p.homeURL == "" {
		return nil, ErrNotAuthenticated
	}

	bookURL, err := p.addressbook(ctx)
	if err != nil {
		return nil, err
	}

	status, body, err := p.dav.request(ctx, "REPORT", bookURL, "1", addressbookQueryBody, bulkTimeout)
	if err != nil {
		return nil, err
	}
	if status != http.StatusMultiStatus {
		return nil, fmt.Errorf("addressbook-query returned status %d", status)
	}

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
			continue
		}
		if uid := vcardUID(prop.AddressData); uid != "" {
			person.ICloudUID = &uid
		}
		if etag := strings.Trim(prop.Etag, `"`); etag != "" {
			person.SyncEtag = &etag
		}
		contacts = append(contacts, person)
	}
	return contacts, nil
}

// PushContact uploads one contact at {addressbook}{uid}.vcf
func (p *ICloudProvider) PushContact(ctx context.Context, person *model.Person) (string, error) {
	if p.dav == nil || p.homeURL == "" {
		return "", ErrNotAuthenticated
	}

	bookURL, err := p.addressbook(ctx)
	if err != nil {
		return "", err
	}

	uid := ""
	if person.ICloudUID != nil {
		uid = *person.ICloudUID
	}
	if uid == "" {
		uid = uuid.New().String()
		person.SetProviderUID(ProviderICloud, uid)
	}

	card := vcard.Serialize(person, ProviderICloud)
	status, err := p.dav.put(ctx, bookURL+uid+".vcf", "text/vcard; charset=utf-8", card)
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated && status != http.StatusNoContent {
		return "", fmt.Errorf("push contact returned status %d", status)
	}
	return uid, nil
}

// DeleteContact removes one card
func (p *ICloudProvider) DeleteContact(ctx context.Context, uid string) error {
	if p.dav == nil || p.homeURL == "" {
		return ErrNotAuthenticated
	}

	bookURL, err := p.addressbook(ctx)
	if err != nil {
		return err
	}

	status, _, err := p.dav.request(ctx, http.MethodDelete, bookURL+uid+".vcf", "", "", authTimeout)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusNoContent && status != http.StatusNotFound {
		return fmt.Errorf("delete contact returned status %d", status)
	}
	return nil
}

// ChangesSince always performs a full pull; the iCloud endpoint does not
// hand out collection sync tokens the way the generic adapter expects.
func (p *ICloudProvider) ChangesSince(ctx context.Context, syncToken string) (*ChangeSet, error) {
	contacts, err := p.PullContacts(ctx)
	if err != nil {
		return nil, err
	}
	return &ChangeSet{Created: contacts}, nil
}
