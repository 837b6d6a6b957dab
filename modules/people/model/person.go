package model

import "time"

// Sync status values
const (
	SyncStatusSynced  = "synced"
	SyncStatusPending = "pending"
	SyncStatusDeleted = "deleted"
)

// ImportantDate is a typed date attached to a person (birthday, anniversary)
type ImportantDate struct {
	Type string `json:"type"`
	Date string `json:"date"`
}

// Person represents a contact
type Person struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	FirstName      string          `json:"first_name"`
	MiddleName     *string         `json:"middle_name,omitempty"`
	LastName       string          `json:"last_name"`
	Phone          *string         `json:"phone,omitempty"`
	Email          *string         `json:"email,omitempty"`
	Street         *string         `json:"street,omitempty"`
	HouseNr        *string         `json:"house_nr,omitempty"`
	Zip            *string         `json:"zip,omitempty"`
	City           *string         `json:"city,omitempty"`
	Country        *string         `json:"country,omitempty"`
	ImportantDates []ImportantDate `json:"important_dates"`
	LastContact    *time.Time      `json:"last_contact,omitempty"`
	Context        *string         `json:"context,omitempty"`
	ICloudUID      *string         `json:"icloud_uid,omitempty"`
	GoogleUID      *string         `json:"google_uid,omitempty"`
	NextcloudUID   *string         `json:"nextcloud_uid,omitempty"`
	SyncEtag       *string         `json:"sync_etag,omitempty"`
	SyncStatus     string          `json:"sync_status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      *time.Time      `json:"deleted_at,omitempty"`
}

// FullName returns the denormalised display name derived from the name parts
func (p *Person) FullName() string {
	name := p.FirstName
	if p.MiddleName != nil && *p.MiddleName != "" {
		if name != "" {
			name += " "
		}
		name += *p.MiddleName
	}
	if p.LastName != "" {
		if name != "" {
			name += " "
		}
		name += p.LastName
	}
	if name == "" {
		return p.Name
	}
	return name
}

// ProviderUID returns the UID stored for the given provider
func (p *Person) ProviderUID(provider string) *string {
	switch provider {
	case "icloud":
		return p.ICloudUID
	case "google":
		return p.GoogleUID
	case "nextcloud":
		return p.NextcloudUID
	}
	return nil
}

// SetProviderUID stores the UID for the given provider
func (p *Person) SetProviderUID(provider, uid string) {
	switch provider {
	case "icloud":
		p.ICloudUID = &uid
	case "google":
		p.GoogleUID = &uid
	case "nextcloud":
		p.NextcloudUID = &uid
	}
}
