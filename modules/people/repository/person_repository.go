package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hweber/secondbrain/modules/people/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const personColumns = `id, name, first_name, middle_name, last_name, phone, email,
		street, house_nr, zip, city, country, important_dates, last_contact, context,
		icloud_uid, google_uid, nextcloud_uid, sync_etag, sync_status,
		created_at, updated_at, deleted_at`

// uidColumns is the closed set of provider UID columns. Dynamic SQL only
// ever interpolates values from this map.
var uidColumns = map[string]string{
	"icloud":    "icloud_uid",
	"google":    "google_uid",
	"nextcloud": "nextcloud_uid",
}

// PersonRepository implements ports.PersonRepository
type PersonRepository struct {
	pool *pgxpool.Pool
}

// NewPersonRepository creates a new person repository
func NewPersonRepository(pool *pgxpool.Pool) *PersonRepository {
	return &PersonRepository{pool: pool}
}

func uidColumn(provider string) (string, error) {
	col, ok := uidColumns[provider]
	if !ok {
		return "", fmt.Errorf("%w: %s", model.ErrUnknownProvider, provider)
	}
	return col, nil
}

func scanPerson(row pgx.Row) (*model.Person, error) {
	p := &model.Person{}
	var dates []byte
	err := row.Scan(
		&p.ID, &p.Name, &p.FirstName, &p.MiddleName, &p.LastName, &p.Phone, &p.Email,
		&p.Street, &p.HouseNr, &p.Zip, &p.City, &p.Country, &dates, &p.LastContact, &p.Context,
		&p.ICloudUID, &p.GoogleUID, &p.NextcloudUID, &p.SyncEtag, &p.SyncStatus,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(dates) > 0 {
		if err := json.Unmarshal(dates, &p.ImportantDates); err != nil {
			return nil, fmt.Errorf("decode important_dates: %w", err)
		}
	}
	return p, nil
}

// Create inserts a new person
func (r *PersonRepository) Create(ctx context.Context, person *model.Person) error {
	if person.Name == "" {
		person.Name = person.FullName()
	}
	if person.Name == "" {
		return model.ErrPersonNameRequired
	}
	if person.SyncStatus == "" {
		person.SyncStatus = model.SyncStatusPending
	}
	if person.ImportantDates == nil {
		person.ImportantDates = []model.ImportantDate{}
	}

	dates, err := json.Marshal(person.ImportantDates)
	if err != nil {
		return fmt.Errorf("encode important_dates: %w", err)
	}

	now := time.Now().UTC()
	person.CreatedAt = now
	person.UpdatedAt = now

	query := `
		INSERT INTO people (name, first_name, middle_name, last_name, phone, email,
			street, house_nr, zip, city, country, important_dates, last_contact, context,
			icloud_uid, google_uid, nextcloud_uid, sync_etag, sync_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING id
	`

	return r.pool.QueryRow(ctx, query,
		person.Name, person.FirstName, person.MiddleName, person.LastName, person.Phone, person.Email,
		person.Street, person.HouseNr, person.Zip, person.City, person.Country, dates,
		person.LastContact, person.Context,
		person.ICloudUID, person.GoogleUID, person.NextcloudUID, person.SyncEtag, person.SyncStatus,
		person.CreatedAt, person.UpdatedAt,
	).Scan(&person.ID)
}

// GetByID retrieves a live person by ID
func (r *PersonRepository) GetByID(ctx context.Context, id int64) (*model.Person, error) {
	query := fmt.Sprintf(`SELECT %s FROM people WHERE id = $1 AND deleted_at IS NULL`, personColumns)

	person, err := scanPerson(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPersonNotFound
		}
		return nil, err
	}
	return person, nil
}

// FindByName retrieves a live person by case-insensitive display name
func (r *PersonRepository) FindByName(ctx context.Context, name string) (*model.Person, error) {
	query := fmt.Sprintf(`SELECT %s FROM people WHERE LOWER(name) = LOWER($1) AND deleted_at IS NULL LIMIT 1`, personColumns)

	person, err := scanPerson(r.pool.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPersonNotFound
		}
		return nil, err
	}
	return person, nil
}

// FindByProviderUID retrieves a live person carrying the given provider UID
func (r *PersonRepository) FindByProviderUID(ctx context.Context, provider, uid string) (*model.Person, error) {
	col, err := uidColumn(provider)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM people WHERE %s = $1 AND deleted_at IS NULL`, personColumns, col)

	person, err := scanPerson(r.pool.QueryRow(ctx, query, uid))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPersonNotFound
		}
		return nil, err
	}
	return person, nil
}

// ListPendingForProvider returns live people that still need a push to the
// given provider: pending sync status or no UID for that provider yet.
func (r *PersonRepository) ListPendingForProvider(ctx context.Context, provider string) ([]*model.Person, error) {
	col, err := uidColumn(provider)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM people
		WHERE deleted_at IS NULL AND (sync_status = 'pending' OR %s IS NULL)
		ORDER BY id
	`, personColumns, col)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var people []*model.Person
	for rows.Next() {
		person, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, person)
	}
	return people, rows.Err()
}

// UpdateFromSync overwrites a person's contact fields with merged remote
// data, marking the row synced.
func (r *PersonRepository) UpdateFromSync(ctx context.Context, person *model.Person) error {
	dates, err := json.Marshal(person.ImportantDates)
	if err != nil {
		return fmt.Errorf("encode important_dates: %w", err)
	}

	person.Name = person.FullName()
	person.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE people SET
			name = $2, first_name = $3, middle_name = $4, last_name = $5,
			phone = $6, email = $7,
			street = $8, house_nr = $9, zip = $10, city = $11, country = $12,
			important_dates = $13, last_contact = $14, context = $15,
			icloud_uid = $16, google_uid = $17, nextcloud_uid = $18,
			sync_etag = $19, sync_status = 'synced', updated_at = $20
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		person.ID, person.Name, person.FirstName, person.MiddleName, person.LastName,
		person.Phone, person.Email,
		person.Street, person.HouseNr, person.Zip, person.City, person.Country,
		dates, person.LastContact, person.Context,
		person.ICloudUID, person.GoogleUID, person.NextcloudUID,
		person.SyncEtag, person.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return model.ErrPersonNotFound
	}
	return nil
}

// MarkSynced stores the provider UID returned by a push and flips the row
// to synced.
func (r *PersonRepository) MarkSynced(ctx context.Context, id int64, provider, uid string) error {
	col, err := uidColumn(provider)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE people SET %s = $2, sync_status = 'synced', updated_at = NOW()
		WHERE id = $1
	`, col)

	result, err := r.pool.Exec(ctx, query, id, uid)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return model.ErrPersonNotFound
	}
	return nil
}

// SoftDeleteByProviderUID soft-deletes the live person carrying the given
// provider UID after a remote delete.
func (r *PersonRepository) SoftDeleteByProviderUID(ctx context.Context, provider, uid string) error {
	col, err := uidColumn(provider)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE people SET deleted_at = NOW(), sync_status = 'deleted', updated_at = NOW()
		WHERE %s = $1 AND deleted_at IS NULL
	`, col)

	_, err = r.pool.Exec(ctx, query, uid)
	return err
}
