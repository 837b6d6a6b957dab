// Package preprocess resolves natural-language cues (dates, times,
// priority, status) deterministically before any model sees the text.
package preprocess

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Priority values
const (
	PriorityHigh   = 1
	PriorityMedium = 2
	PriorityLow    = 3
)

// Categories understood by the status resolver
const (
	CategoryTasks    = "tasks"
	CategoryIdeas    = "ideas"
	CategoryProjects = "projects"
	CategoryPeople   = "people"
	CategoryEvents   = "calendar_events"
)

// Result of a full preprocessing pass
type Result struct {
	Text         string
	ResolvedDate string // YYYY-MM-DD, empty when no cue matched
	ResolvedTime string // HH:MM, empty when no cue matched
	Priority     int
	Status       string
	Hints        map[string]string
}

type datePattern struct {
	token string
	kind  string
	value int
}

// Static date cues, longest match first
var datePatterns = []datePattern{
	{"übermorgen", "relative", 2},
	{"heute", "relative", 0},
	{"morgen", "relative", 1},
	{"nächste woche", "relative", 7},
	{"in einer woche", "relative", 7},
	{"nächsten montag", "weekday", 0},
	{"nächsten dienstag", "weekday", 1},
	{"nächsten mittwoch", "weekday", 2},
	{"nächsten donnerstag", "weekday", 3},
	{"nächsten freitag", "weekday", 4},
	{"nächsten samstag", "weekday", 5},
	{"nächsten sonntag", "weekday", 6},
	{"ende der woche", "end_of_week", 0},
	{"ende des monats", "end_of_month", 0},
	{"montag", "weekday", 0},
	{"dienstag", "weekday", 1},
	{"mittwoch", "weekday", 2},
	{"donnerstag", "weekday", 3},
	{"freitag", "weekday", 4},
	{"samstag", "weekday", 5},
	{"sonntag", "weekday", 6},
}

var timeTokens = []struct {
	token string
	time  string
}{
	{"vormittags", "10:00"},
	{"vormittag", "10:00"},
	{"nachmittags", "15:00"},
	{"nachmittag", "15:00"},
	{"morgens", "08:00"},
	{"mittags", "12:00"},
	{"mittag", "12:00"},
	{"abends", "18:00"},
	{"abend", "18:00"},
	{"nachts", "22:00"},
	{"nacht", "22:00"},
	{"früh", "07:00"},
	{"spät", "20:00"},
}

var (
	offsetDaysRe   = regexp.MustCompile(`in (\d+) tagen?`)
	offsetWeeksRe  = regexp.MustCompile(`in (\d+) wochen?`)
	explicitDMYRe  = regexp.MustCompile(`(\d{1,2})\.(\d{1,2})\.(\d{4})`)
	explicitYMDRe  = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)
	explicitHHMMRe = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*(?:uhr)?`)
	explicitHHRe   = regexp.MustCompile(`(\d{1,2})\s*uhr`)
)

var defaultHighPriority = []string{"dringend", "asap", "sofort", "wichtig", "urgent", "kritisch", "eilig"}
var defaultLowPriority = []string{"irgendwann", "wenn zeit", "niedrig", "low", "unwichtig", "someday"}

var defaultStatusKeywords = map[string]map[string][]string{
	CategoryTasks: {
		"next":    {"als nächstes", "jetzt", "sofort anfangen", "next"},
		"waiting": {"warte auf", "wartend", "blocked", "blockiert"},
		"someday": {"irgendwann", "someday", "vielleicht", "maybe"},
		"done":    {"erledigt", "done", "fertig", "abgeschlossen"},
	},
	CategoryIdeas: {
		"done": {"umgesetzt", "erledigt", "done"},
	},
	CategoryProjects: {
		"on_hold":   {"pausiert", "on hold", "pause"},
		"completed": {"abgeschlossen", "fertig", "completed"},
		"cancelled": {"abgebrochen", "cancelled", "storniert"},
	},
}

var defaultStatus = map[string]string{
	CategoryTasks:    "inbox",
	CategoryIdeas:    "inbox",
	CategoryProjects: "active",
	CategoryPeople:   "",
	CategoryEvents:   "",
}

// statusOrder keeps resolution deterministic across the keyword map
var statusOrder = []string{"next", "waiting", "someday", "done", "on_hold", "completed", "cancelled"}

// Preprocessor resolves cues against a fixed reference time. Keyword lists
// default to the built-in German/English tables and can be replaced with
// DB-loaded language mappings.
type Preprocessor struct {
	reference      time.Time
	highPriority   []string
	lowPriority    []string
	statusKeywords map[string]map[string][]string
}

// New creates a preprocessor with the given reference time
func New(reference time.Time) *Preprocessor {
	return &Preprocessor{
		reference:      reference,
		highPriority:   defaultHighPriority,
		lowPriority:    defaultLowPriority,
		statusKeywords: defaultStatusKeywords,
	}
}

// WithPriorityKeywords replaces the priority keyword lists
func (p *Preprocessor) WithPriorityKeywords(high, low []string) *Preprocessor {
	if len(high) > 0 {
		p.highPriority = high
	}
	if len(low) > 0 {
		p.lowPriority = low
	}
	return p
}

// WithStatusKeywords replaces the status keyword table for one category
func (p *Preprocessor) WithStatusKeywords(category string, keywords map[string][]string) *Preprocessor {
	if len(keywords) > 0 {
		p.statusKeywords[category] = keywords
	}
	return p
}

// containsToken reports whether the token occurs in text on letter
// boundaries. Umlauts count as letters, so an ASCII word-boundary regex
// would misfire here.
func containsToken(text, token string) bool {
	for start := 0; ; {
		idx := strings.Index(text[start:], token)
		if idx < 0 {
			return false
		}
		idx += start

		beforeOK := idx == 0
		if !beforeOK {
			r := lastRune(text[:idx])
			beforeOK = !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}
		afterOK := idx+len(token) == len(text)
		if !afterOK {
			r := firstRune(text[idx+len(token):])
			afterOK = !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}
		if beforeOK && afterOK {
			return true
		}
		start = idx + len(token)
	}
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

func lastRune(s string) rune {
	var last rune
	for _, r := range s {
		last = r
	}
	return last
}

// ResolveDate resolves the first date cue in the text to YYYY-MM-DD. The
// second return value names the matched cue.
func (p *Preprocessor) ResolveDate(text string) (string, string) {
	lower := strings.ToLower(text)

	for _, pattern := range datePatterns {
		if !containsToken(lower, pattern.token) {
			continue
		}

		var resolved time.Time
		switch pattern.kind {
		case "relative":
			resolved = p.reference.AddDate(0, 0, pattern.value)
		case "weekday":
			// Go weekday: Sunday=0; we count Monday=0
			current := (int(p.reference.Weekday()) + 6) % 7
			ahead := pattern.value - current
			if ahead <= 0 {
				ahead += 7
			}
			resolved = p.reference.AddDate(0, 0, ahead)
		case "end_of_week":
			current := (int(p.reference.Weekday()) + 6) % 7
			ahead := 4 - current
			if ahead < 0 {
				ahead += 7
			}
			resolved = p.reference.AddDate(0, 0, ahead)
		case "end_of_month":
			firstOfNext := time.Date(p.reference.Year(), p.reference.Month(), 1, 0, 0, 0, 0, p.reference.Location()).AddDate(0, 1, 0)
			resolved = firstOfNext.AddDate(0, 0, -1)
		}
		return resolved.Format("2006-01-02"), pattern.token
	}

	if m := offsetDaysRe.FindStringSubmatch(lower); m != nil {
		days, _ := strconv.Atoi(m[1])
		return p.reference.AddDate(0, 0, days).Format("2006-01-02"), m[0]
	}
	if m := offsetWeeksRe.FindStringSubmatch(lower); m != nil {
		weeks, _ := strconv.Atoi(m[1])
		return p.reference.AddDate(0, 0, 7*weeks).Format("2006-01-02"), m[0]
	}

	if m := explicitDMYRe.FindStringSubmatch(text); m != nil {
		if date, ok := buildDate(m[3], m[2], m[1]); ok {
			return date, m[0]
		}
	}
	if m := explicitYMDRe.FindStringSubmatch(text); m != nil {
		if date, ok := buildDate(m[1], m[2], m[3]); ok {
			return date, m[0]
		}
	}

	return "", ""
}

func buildDate(year, month, day string) (string, bool) {
	y, _ := strconv.Atoi(year)
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return "", false
	}
	date := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// reject rolled-over dates like 31.02.
	if date.Day() != d || int(date.Month()) != m {
		return "", false
	}
	return date.Format("2006-01-02"), true
}

// ResolveTime resolves the first time cue in the text to HH:MM
func (p *Preprocessor) ResolveTime(text string) (string, string) {
	lower := strings.ToLower(text)

	// explicit times take precedence over named tokens
	if m := explicitHHMMRe.FindStringSubmatch(lower); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		if h <= 23 && min <= 59 {
			return fmt.Sprintf("%02d:%02d", h, min), m[0]
		}
	}
	if m := explicitHHRe.FindStringSubmatch(lower); m != nil {
		h, _ := strconv.Atoi(m[1])
		if h <= 23 {
			return fmt.Sprintf("%02d:00", h), m[0]
		}
	}

	for _, tok := range timeTokens {
		if containsToken(lower, tok.token) {
			return tok.time, tok.token
		}
	}

	return "", ""
}

// ResolvePriority maps priority keywords to 1/2/3; 2 is the default
func (p *Preprocessor) ResolvePriority(text string) int {
	lower := strings.ToLower(text)

	for _, kw := range p.highPriority {
		if strings.Contains(lower, kw) {
			return PriorityHigh
		}
	}
	for _, kw := range p.lowPriority {
		if strings.Contains(lower, kw) {
			return PriorityLow
		}
	}
	return PriorityMedium
}

// ResolveStatus maps status keywords to the category-scoped status
func (p *Preprocessor) ResolveStatus(text, category string) string {
	lower := strings.ToLower(text)

	if keywords, ok := p.statusKeywords[category]; ok {
		for _, status := range statusOrder {
			for _, kw := range keywords[status] {
				if strings.Contains(lower, kw) {
					return status
				}
			}
		}
	}

	return defaultStatus[category]
}

// Preprocess runs the full pass for a category
func (p *Preprocessor) Preprocess(text, category string) Result {
	hints := map[string]string{}

	date, dateCue := p.ResolveDate(text)
	if date != "" {
		hints["date"] = dateCue + " -> " + date
	}

	timeOfDay, timeCue := p.ResolveTime(text)
	if timeOfDay != "" {
		hints["time"] = timeCue + " -> " + timeOfDay
	}

	priority := p.ResolvePriority(text)
	if priority != PriorityMedium {
		hints["priority"] = strconv.Itoa(priority)
	}

	status := p.ResolveStatus(text, category)
	if status != "" && status != "inbox" && status != "active" {
		hints["status"] = status
	}

	return Result{
		Text:         text,
		ResolvedDate: date,
		ResolvedTime: timeOfDay,
		Priority:     priority,
		Status:       status,
		Hints:        hints,
	}
}

// PromptContext builds the template context the structure agent receives.
// Calendar events get a combined start time with a 12:00 default.
func (p *Preprocessor) PromptContext(text, category string) map[string]interface{} {
	result := p.Preprocess(text, category)

	var startTime interface{}
	if category == CategoryEvents && result.ResolvedDate != "" {
		timePart := result.ResolvedTime
		if timePart == "" {
			timePart = "12:00"
		}
		startTime = result.ResolvedDate + "T" + timePart + ":00"
	}

	var due interface{}
	if result.ResolvedDate != "" {
		due = result.ResolvedDate
	}
	var timeOfDay interface{}
	if result.ResolvedTime != "" {
		timeOfDay = result.ResolvedTime
	}

	return map[string]interface{}{
		"text":                text,
		"current_date":        p.reference.Format("2006-01-02"),
		"resolved_due_date":   due,
		"resolved_time":       timeOfDay,
		"resolved_start_time": startTime,
		"resolved_priority":   result.Priority,
		"resolved_status":     result.Status,
		"preprocessing_hints": hintsToMap(result.Hints),
	}
}

func hintsToMap(hints map[string]string) map[string]interface{} {
	out := make(map[string]interface{}, len(hints))
	for k, v := range hints {
		out[k] = v
	}
	return out
}
