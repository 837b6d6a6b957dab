package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrTableNotAllowed is returned for tables outside the closed set
	ErrTableNotAllowed = errors.New("table not allowed")

	// ErrColumnNotAllowed is returned for columns outside a table's closed set
	ErrColumnNotAllowed = errors.New("column not allowed")

	// ErrRecordNotFound is returned when a mutation hits no row
	ErrRecordNotFound = errors.New("record not found")

	// ErrNoData is returned for an insert without any allowed columns
	ErrNoData = errors.New("no data to insert")
)

// allowedColumns is the closed identifier whitelist for generic pipeline
// mutations. User data never reaches SQL as an identifier; only names from
// this map do.
var allowedColumns = map[string]map[string]bool{
	"tasks": {
		"title": true, "status": true, "priority": true, "due_date": true,
		"project_id": true, "person_id": true, "tags": true, "notes": true,
	},
	"projects": {
		"name": true, "status": true, "priority": true, "notes": true,
	},
	"ideas": {
		"name": true, "one_liner": true, "status": true, "priority": true, "tags": true, "notes": true,
	},
	"people": {
		"name": true, "first_name": true, "middle_name": true, "last_name": true,
		"phone": true, "email": true, "street": true, "house_nr": true, "zip": true,
		"city": true, "country": true, "context": true, "last_contact": true,
	},
	"calendar_events": {
		"title": true, "description": true, "location": true, "start_time": true,
		"end_time": true, "all_day": true, "recurrence": true, "person_id": true, "calendar_id": true,
	},
}

// nameColumns maps each table to its display-name column
var nameColumns = map[string]string{
	"tasks":           "title",
	"projects":        "name",
	"ideas":           "name",
	"people":          "name",
	"calendar_events": "title",
}

// jsonColumns are jsonb columns whose values need encoding
var jsonColumns = map[string]bool{"tags": true}

// softDeleteTables have a deleted_at column
var softDeleteTables = map[string]bool{
	"tasks": true, "projects": true, "ideas": true, "people": true,
}

// linkColumns are the only columns the linked-entity resolution may set
var linkColumns = map[string]bool{"person_id": true, "project_id": true}

// Store executes the pipeline's generic, identifier-whitelisted mutations
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a pipeline store
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// AllowedTable reports whether the pipeline may touch the table
func AllowedTable(table string) bool {
	_, ok := allowedColumns[table]
	return ok
}

func checkColumns(table string, data map[string]interface{}) ([]string, error) {
	columns, ok := allowedColumns[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotAllowed, table)
	}

	names := make([]string, 0, len(data))
	for column := range data {
		if !columns[column] {
			return nil, fmt.Errorf("%w: %s.%s", ErrColumnNotAllowed, table, column)
		}
		names = append(names, column)
	}
	sort.Strings(names)
	return names, nil
}

func encodeValue(column string, value interface{}) (interface{}, error) {
	if jsonColumns[column] {
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", column, err)
		}
		return encoded, nil
	}
	return value, nil
}

// InsertRecord inserts a row built from whitelisted columns and returns
// its id
func (s *Store) InsertRecord(ctx context.Context, table string, data map[string]interface{}) (int64, error) {
	columns, err := checkColumns(table, data)
	if err != nil {
		return 0, err
	}
	if len(columns) == 0 {
		return 0, ErrNoData
	}

	placeholders := make([]string, 0, len(columns))
	values := make([]interface{}, 0, len(columns))
	for i, column := range columns {
		value, err := encodeValue(column, data[column])
		if err != nil {
			return 0, err
		}
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		values = append(values, value)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s, created_at, updated_at) VALUES (%s, NOW(), NOW()) RETURNING id",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "),
	)

	var id int64
	if err := s.pool.QueryRow(ctx, query, values...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateRecord applies whitelisted column changes to one row
func (s *Store) UpdateRecord(ctx context.Context, table string, id int64, changes map[string]interface{}) error {
	columns, err := checkColumns(table, changes)
	if err != nil {
		return err
	}
	if len(columns) == 0 {
		return nil
	}

	assignments := make([]string, 0, len(columns))
	values := []interface{}{id}
	for i, column := range columns {
		value, err := encodeValue(column, changes[column])
		if err != nil {
			return err
		}
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, i+2))
		values = append(values, value)
	}

	query := fmt.Sprintf(
		"UPDATE %s SET %s, updated_at = NOW() WHERE id = $1",
		table, strings.Join(assignments, ", "),
	)

	result, err := s.pool.Exec(ctx, query, values...)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Complete sets a row's status to done
func (s *Store) Complete(ctx context.Context, table string, id int64) error {
	if !AllowedTable(table) {
		return fmt.Errorf("%w: %s", ErrTableNotAllowed, table)
	}

	query := fmt.Sprintf("UPDATE %s SET status = 'done', updated_at = NOW() WHERE id = $1", table)
	result, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Delete soft-deletes a row; tables without soft delete lose the row
func (s *Store) Delete(ctx context.Context, table string, id int64) error {
	if !AllowedTable(table) {
		return fmt.Errorf("%w: %s", ErrTableNotAllowed, table)
	}

	var query string
	if softDeleteTables[table] {
		query = fmt.Sprintf("UPDATE %s SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL", table)
	} else {
		query = fmt.Sprintf("DELETE FROM %s WHERE id = $1", table)
	}

	result, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// SetLink points a link column (person_id, project_id) of one row at a target
func (s *Store) SetLink(ctx context.Context, table string, id int64, column string, target int64) error {
	if !AllowedTable(table) {
		return fmt.Errorf("%w: %s", ErrTableNotAllowed, table)
	}
	if !linkColumns[column] || !allowedColumns[table][column] {
		return fmt.Errorf("%w: %s.%s", ErrColumnNotAllowed, table, column)
	}

	query := fmt.Sprintf("UPDATE %s SET %s = $2, updated_at = NOW() WHERE id = $1", table, column)
	_, err := s.pool.Exec(ctx, query, id, target)
	return err
}

// FindPersonIDByName returns the id of the live person with the given
// case-insensitive name, or 0
func (s *Store) FindPersonIDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM people WHERE LOWER(name) = LOWER($1) AND deleted_at IS NULL LIMIT 1`,
		name,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return id, err
}

// CreatePersonStub inserts a person known only by name
func (s *Store) CreatePersonStub(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO people (name, created_at, updated_at) VALUES ($1, NOW(), NOW()) RETURNING id`,
		name,
	).Scan(&id)
	return id, err
}

// FindProjectIDByPartialName returns the id of a live project matching the
// name fragment, or 0
func (s *Store) FindProjectIDByPartialName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM projects WHERE LOWER(name) LIKE LOWER($1) AND deleted_at IS NULL ORDER BY id LIMIT 1`,
		"%"+name+"%",
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return id, err
}
