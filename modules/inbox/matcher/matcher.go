// Package matcher implements stopword-aware keyword extraction and the
// weighted fuzzy search across the entity tables.
package matcher

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Match is one weighted search hit
type Match struct {
	Table string                 `json:"table"`
	ID    int64                  `json:"id"`
	Data  map[string]interface{} `json:"data"`
	Score float64                `json:"match_score"`
}

// searchTarget binds a table to its name and notes columns. This closed
// set is the only source of interpolated identifiers.
type searchTarget struct {
	table    string
	nameCol  string
	notesCol string
}

var searchTargets = []searchTarget{
	{"projects", "name", "notes"},
	{"tasks", "title", "notes"},
	{"people", "name", "context"},
	{"ideas", "name", "notes"},
	{"calendar_events", "title", "description"},
}

// nonWordRe splits on anything that is not a word character, keeping
// German umlauts and ß intact
var nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// Matcher extracts keywords and runs the fuzzy search
type Matcher struct {
	pool       *pgxpool.Pool
	stopwords  map[string]struct{}
	minLength  int
	maxMatches int
}

// New creates a matcher. minLength and maxMatches fall back to 2 and 5.
func New(pool *pgxpool.Pool, stopwords []string, minLength, maxMatches int) *Matcher {
	if minLength <= 0 {
		minLength = 2
	}
	if maxMatches <= 0 {
		maxMatches = 5
	}
	set := make(map[string]struct{}, len(stopwords))
	for _, w := range stopwords {
		set[strings.ToLower(w)] = struct{}{}
	}
	return &Matcher{pool: pool, stopwords: set, minLength: minLength, maxMatches: maxMatches}
}

// Keywords tokenises the text, dropping stopwords and short tokens while
// keeping first-seen order.
func (m *Matcher) Keywords(text string) []string {
	words := nonWordRe.Split(strings.ToLower(text), -1)

	seen := make(map[string]struct{})
	var keywords []string
	for _, word := range words {
		if len([]rune(word)) < m.minLength {
			continue
		}
		if _, stop := m.stopwords[word]; stop {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
	}
	return keywords
}

// Search runs the weighted fuzzy search for the given keywords across all
// entity tables. Results are deduplicated by (table, id) keeping the best
// score, sorted descending and capped.
func (m *Matcher) Search(ctx context.Context, keywords []string) ([]Match, error) {
	best := make(map[string]Match)

	for _, target := range searchTargets {
		// calendar_events has no soft delete
		liveFilter := "deleted_at IS NULL AND "
		if target.table == "calendar_events" {
			liveFilter = ""
		}

		for _, keyword := range keywords {
			query := fmt.Sprintf(`
				SELECT id, %[2]s AS name,
					COALESCE(%[3]s, '') AS notes,
					CASE
						WHEN LOWER(%[2]s) = $1 THEN 1.0
						WHEN LOWER(%[2]s) LIKE $2 THEN 0.8
						WHEN LOWER(COALESCE(%[3]s, '')) LIKE $2 THEN 0.5
						ELSE 0.3
					END AS match_score
				FROM %[1]s
				WHERE %[4]s(LOWER(%[2]s) LIKE $2 OR LOWER(COALESCE(%[3]s, '')) LIKE $2)
				LIMIT 5
			`, target.table, target.nameCol, target.notesCol, liveFilter)

			pattern := "%" + keyword + "%"
			rows, err := m.pool.Query(ctx, query, keyword, pattern)
			if err != nil {
				return nil, fmt.Errorf("search %s: %w", target.table, err)
			}

			for rows.Next() {
				var id int64
				var name, notes string
				var score float64
				if err := rows.Scan(&id, &name, &notes, &score); err != nil {
					rows.Close()
					return nil, err
				}

				key := fmt.Sprintf("%s:%d", target.table, id)
				if existing, ok := best[key]; !ok || score > existing.Score {
					best[key] = Match{
						Table: target.table,
						ID:    id,
						Data:  map[string]interface{}{"name": name, "notes": notes},
						Score: score,
					}
				}
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return nil, err
			}
		}
	}

	matches := make([]Match, 0, len(best))
	for _, match := range best {
		matches = append(matches, match)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		if matches[i].Table != matches[j].Table {
			return matches[i].Table < matches[j].Table
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > m.maxMatches {
		matches = matches[:m.maxMatches]
	}
	return matches, nil
}
