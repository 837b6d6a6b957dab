package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hweber/secondbrain/modules/people/model"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	people "google.golang.org/api/people/v1"
)

const (
	contactsScope      = "https://www.googleapis.com/auth/contacts"
	personFields       = "names,phoneNumbers,emailAddresses,addresses,birthdays,metadata"
	updatePersonFields = "names,phoneNumbers,emailAddresses,addresses,birthdays"
)

// GoogleProvider syncs contacts through the People API. OAuth tokens are
// refreshed automatically from the stored refresh token.
type GoogleProvider struct {
	service *people.Service
}

// NewGoogleProvider creates a People API adapter
func NewGoogleProvider() *GoogleProvider {
	return &GoogleProvider{}
}

// Name returns the provider name
func (p *GoogleProvider) Name() string {
	return ProviderGoogle
}

// Authenticate builds the People service from client_id, client_secret
// and refresh_token.
func (p *GoogleProvider) Authenticate(ctx context.Context, credentials map[string]string) error {
	if err := requireCredentials(credentials, "client_id", "client_secret", "refresh_token"); err != nil {
		return err
	}

	conf := &oauth2.Config{
		ClientID:     credentials["client_id"],
		ClientSecret: credentials["client_secret"],
		Endpoint:     google.Endpoint,
		Scopes:       []string{contactsScope},
	}
	tokenSource := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: credentials["refresh_token"]})

	// force one refresh so bad credentials fail here, not mid-sync
	if _, err := tokenSource.Token(); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	service, err := people.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	p.service = service
	return nil
}

// PullContacts walks every connection page
func (p *GoogleProvider) PullContacts(ctx context.Context) ([]*model.Person, error) {
	contacts, _, err := p.pull(ctx, "")
	return contacts, err
}

func (p *GoogleProvider) pull(ctx context.Context, syncToken string) ([]*model.Person, string, error) {
	if p.service == nil {
		return nil, "", ErrNotAuthenticated
	}

	var contacts []*model.Person
	var nextSyncToken string
	pageToken := ""

	for {
		call := p.service.People.Connections.List("people/me").
			Context(ctx).
			PageSize(100).
			PersonFields(personFields).
			RequestSyncToken(true)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		if syncToken != "" {
			call = call.SyncToken(syncToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, "", err
		}

		for _, person := range resp.Connections {
			if contact := personToContact(person); contact != nil {
				contacts = append(contacts, contact)
			}
		}

		if resp.NextSyncToken != "" {
			nextSyncToken = resp.NextSyncToken
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return contacts, nextSyncToken, nil
}

// PushContact creates or updates a contact. Updates fetch the current
// etag first, as the API requires.
func (p *GoogleProvider) PushContact(ctx context.Context, person *model.Person) (string, error) {
	if p.service == nil {
		return "", ErrNotAuthenticated
	}

	body := contactToPerson(person)

	if person.GoogleUID != nil && *person.GoogleUID != "" {
		resourceName := *person.GoogleUID

		existing, err := p.service.People.Get(resourceName).Context(ctx).PersonFields("metadata").Do()
		if err != nil {
			return "", err
		}
		body.Etag = existing.Etag

		updated, err := p.service.People.UpdateContact(resourceName, body).
			Context(ctx).
			UpdatePersonFields(updatePersonFields).
			Do()
		if err != nil {
			return "", err
		}
		return updated.ResourceName, nil
	}

	created, err := p.service.People.CreateContact(body).Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return created.ResourceName, nil
}

// DeleteContact removes a contact by resource name
func (p *GoogleProvider) DeleteContact(ctx context.Context, uid string) error {
	if p.service == nil {
		return ErrNotAuthenticated
	}

	_, err := p.service.People.DeleteContact(uid).Context(ctx).Do()
	if err != nil {
		if apiErr, ok := err.(*googleapi.Error); ok && apiErr.Code == http.StatusNotFound {
			return nil
		}
		return err
	}
	return nil
}

// ChangesSince uses the People API syncToken protocol. Deleted
// connections arrive with metadata.deleted set.
func (p *GoogleProvider) ChangesSince(ctx context.Context, syncToken string) (*ChangeSet, error) {
	if p.service == nil {
		return nil, ErrNotAuthenticated
	}

	if syncToken == "" {
		contacts, nextToken, err := p.pull(ctx, "")
		if err != nil {
			return nil, err
		}
		return &ChangeSet{Created: contacts, SyncToken: nextToken}, nil
	}

	changes := &ChangeSet{}
	pageToken := ""
	for {
		call := p.service.People.Connections.List("people/me").
			Context(ctx).
			PersonFields(personFields).
			SyncToken(syncToken).
			RequestSyncToken(true)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, err
		}

		for _, person := range resp.Connections {
			if person.Metadata != nil && person.Metadata.Deleted {
				changes.Deleted = append(changes.Deleted, person.ResourceName)
				continue
			}
			if contact := personToContact(person); contact != nil {
				changes.Created = append(changes.Created, contact)
			}
		}

		if resp.NextSyncToken != "" {
			changes.SyncToken = resp.NextSyncToken
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return changes, nil
}

// personToContact converts an API person into a local contact. People
// without a name are skipped.
func personToContact(person *people.Person) *model.Person {
	if len(person.Names) == 0 {
		return nil
	}
	name := person.Names[0]

	contact := &model.Person{
		FirstName:      name.GivenName,
		LastName:       name.FamilyName,
		ImportantDates: []model.ImportantDate{},
	}
	if name.MiddleName != "" {
		middle := name.MiddleName
		contact.MiddleName = &middle
	}
	uid := person.ResourceName
	contact.GoogleUID = &uid
	if person.Etag != "" {
		etag := person.Etag
		contact.SyncEtag = &etag
	}

	if len(person.PhoneNumbers) > 0 && person.PhoneNumbers[0].Value != "" {
		phone := person.PhoneNumbers[0].Value
		contact.Phone = &phone
	}
	if len(person.EmailAddresses) > 0 && person.EmailAddresses[0].Value != "" {
		email := person.EmailAddresses[0].Value
		contact.Email = &email
	}
	if len(person.Addresses) > 0 {
		addr := person.Addresses[0]
		if addr.StreetAddress != "" {
			street := addr.StreetAddress
			contact.Street = &street
		}
		if addr.City != "" {
			city := addr.City
			contact.City = &city
		}
		if addr.PostalCode != "" {
			zip := addr.PostalCode
			contact.Zip = &zip
		}
		if addr.Country != "" {
			country := addr.Country
			contact.Country = &country
		}
	}
	if len(person.Birthdays) > 0 && person.Birthdays[0].Date != nil {
		date := person.Birthdays[0].Date
		contact.ImportantDates = append(contact.ImportantDates, model.ImportantDate{
			Type: "birthday",
			Date: fmt.Sprintf("%04d-%02d-%02d", date.Year, date.Month, date.Day),
		})
	}

	if person.Metadata != nil && len(person.Metadata.Sources) > 0 {
		if updateTime := person.Metadata.Sources[0].UpdateTime; updateTime != "" {
			if t, err := time.Parse(time.RFC3339, updateTime); err == nil {
				contact.UpdatedAt = t
			}
		}
	}

	contact.Name = contact.FullName()
	return contact
}

// contactToPerson converts a local contact into the API shape
func contactToPerson(contact *model.Person) *people.Person {
	name := &people.Name{
		GivenName:  contact.FirstName,
		FamilyName: contact.LastName,
	}
	if contact.MiddleName != nil {
		name.MiddleName = *contact.MiddleName
	}

	person := &people.Person{Names: []*people.Name{name}}

	if contact.Phone != nil && *contact.Phone != "" {
		person.PhoneNumbers = []*people.PhoneNumber{{Value: *contact.Phone}}
	}
	if contact.Email != nil && *contact.Email != "" {
		person.EmailAddresses = []*people.EmailAddress{{Value: *contact.Email}}
	}

	if contact.Street != nil || contact.City != nil || contact.Zip != nil || contact.Country != nil {
		addr := &people.Address{}
		if contact.Street != nil {
			addr.StreetAddress = *contact.Street
			if contact.HouseNr != nil {
				addr.StreetAddress += " " + *contact.HouseNr
			}
		}
		if contact.City != nil {
			addr.City = *contact.City
		}
		if contact.Zip != nil {
			addr.PostalCode = *contact.Zip
		}
		if contact.Country != nil {
			addr.Country = *contact.Country
		}
		person.Addresses = []*people.Address{addr}
	}

	for _, date := range contact.ImportantDates {
		if date.Type != "birthday" {
			continue
		}
		var year, month, day int
		if _, err := fmt.Sscanf(date.Date, "%d-%d-%d", &year, &month, &day); err == nil {
			person.Birthdays = []*people.Birthday{{
				Date: &people.Date{Year: int64(year), Month: int64(month), Day: int64(day)},
			}}
		}
		break
	}

	return person
}
