package repository

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Query search types produced by the query classifier
const (
	SearchByName    = "name"
	SearchDateRange = "date_range"
	SearchFulltext  = "fulltext"
	SearchAll       = "all"
)

const queryRowLimit = 50

// dateColumns maps tables to the column a date_range search filters on
var dateColumns = map[string]string{
	"tasks":           "due_date",
	"calendar_events": "start_time",
}

// notesColumns maps tables to the column a fulltext search includes
var notesColumns = map[string]string{
	"tasks":           "notes",
	"projects":        "notes",
	"ideas":           "notes",
	"people":          "context",
	"calendar_events": "description",
}

// RunQuery builds and executes a read-only SELECT for the query pipeline.
// Table and columns come from the closed whitelists; the search value is
// always bound as a parameter.
func (s *Store) RunQuery(ctx context.Context, table, searchType, searchValue string) ([]map[string]interface{}, error) {
	if !AllowedTable(table) {
		return nil, fmt.Errorf("%w: %s", ErrTableNotAllowed, table)
	}

	nameCol := nameColumns[table]
	liveFilter := ""
	if softDeleteTables[table] {
		liveFilter = "deleted_at IS NULL AND "
	}

	var query string
	var args []interface{}

	switch searchType {
	case SearchByName:
		query = fmt.Sprintf(
			"SELECT * FROM %s WHERE %sLOWER(%s) LIKE LOWER($1) ORDER BY id LIMIT %d",
			table, liveFilter, nameCol, queryRowLimit,
		)
		args = append(args, "%"+searchValue+"%")

	case SearchDateRange:
		dateCol, ok := dateColumns[table]
		if !ok {
			return s.RunQuery(ctx, table, SearchAll, "")
		}
		from, to, err := parseDateRange(searchValue)
		if err != nil {
			return nil, err
		}
		query = fmt.Sprintf(
			"SELECT * FROM %s WHERE %s%s >= $1 AND %s < $2 ORDER BY %s LIMIT %d",
			table, liveFilter, dateCol, dateCol, dateCol, queryRowLimit,
		)
		args = append(args, from, to)

	case SearchFulltext:
		notesCol := notesColumns[table]
		query = fmt.Sprintf(
			"SELECT * FROM %s WHERE %s(LOWER(%s) LIKE LOWER($1) OR LOWER(COALESCE(%s, '')) LIKE LOWER($1)) ORDER BY id LIMIT %d",
			table, liveFilter, nameCol, notesCol, queryRowLimit,
		)
		args = append(args, "%"+searchValue+"%")

	case SearchAll:
		where := ""
		if liveFilter != "" {
			where = "WHERE " + strings.TrimSuffix(liveFilter, " AND ")
		}
		query = fmt.Sprintf("SELECT * FROM %s %s ORDER BY id LIMIT %d", table, where, queryRowLimit)

	default:
		return nil, fmt.Errorf("unknown search type: %s", searchType)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var results []map[string]interface{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(fields))
		for i, field := range fields {
			row[string(field.Name)] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// parseDateRange accepts "YYYY-MM-DD..YYYY-MM-DD" or a single day
func parseDateRange(value string) (time.Time, time.Time, error) {
	const layout = "2006-01-02"

	if parts := strings.SplitN(value, "..", 2); len(parts) == 2 {
		from, err := time.Parse(layout, strings.TrimSpace(parts[0]))
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid date range start: %w", err)
		}
		to, err := time.Parse(layout, strings.TrimSpace(parts[1]))
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid date range end: %w", err)
		}
		return from, to.AddDate(0, 0, 1), nil
	}

	day, err := time.Parse(layout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date: %w", err)
	}
	return day, day.AddDate(0, 0, 1), nil
}
