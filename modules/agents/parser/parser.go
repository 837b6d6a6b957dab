// Package parser extracts structured data from free-form model output.
package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Detected output formats
const (
	FormatNone          = "none"
	FormatJSONDirect    = "json_direct"
	FormatJSONCodeblock = "json_codeblock"
	FormatJSONEmbedded  = "json_embedded"
	FormatJSONArray     = "json_array"
	FormatMarkdownList  = "markdown_list"
	FormatNumberedList  = "numbered_list"
	FormatCommaList     = "comma_separated"
	FormatLineList      = "line_separated"
	FormatKeyValue      = "key_value"
)

// Schema field type tags, mirroring JSON Schema primitive names
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
)

// FieldRule describes one schema field
type FieldRule struct {
	Type     string      `json:"type,omitempty"`
	Required bool        `json:"required,omitempty"`
	Default  interface{} `json:"default,omitempty"`
}

// Schema maps field names to rules
type Schema map[string]FieldRule

// Result is the outcome of a parse attempt
type Result struct {
	Success bool
	Data    interface{}
	Raw     string
	Format  string
	Errors  []string
}

// Object returns the parsed data as a map, or nil
func (r Result) Object() map[string]interface{} {
	if obj, ok := r.Data.(map[string]interface{}); ok {
		return obj
	}
	return nil
}

var (
	jsonFenceRe  = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	anyFenceRe   = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")
	mdListRe     = regexp.MustCompile(`(?m)^\s*[-*]\s+(.+)$`)
	numListRe    = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+(.+)$`)
	boldKeyRe    = regexp.MustCompile(`^\*\*(.+)\*\*$`)
	bulletKeyRe  = regexp.MustCompile(`^[-*]\s*`)
)

// ParseJSON extracts JSON from text. It tries, in order: the whole string,
// a ```json fenced block, any fenced block, the first balanced object, the
// first balanced array. A non-nil schema applies coercion and defaults.
func ParseJSON(text string, schema Schema) Result {
	data, format := extractJSON(text)

	if data == nil {
		return Result{
			Success: false,
			Raw:     text,
			Format:  FormatNone,
			Errors:  []string{"no JSON found"},
		}
	}

	var errs []string
	if schema != nil {
		if obj, ok := data.(map[string]interface{}); ok {
			data, errs = applySchema(obj, schema)
		} else {
			errs = append(errs, "data is not an object")
		}
	}

	return Result{
		Success: len(errs) == 0,
		Data:    data,
		Raw:     text,
		Format:  format,
		Errors:  errs,
	}
}

func extractJSON(text string) (interface{}, string) {
	trimmed := strings.TrimSpace(text)

	var data interface{}
	if err := json.Unmarshal([]byte(trimmed), &data); err == nil {
		return data, FormatJSONDirect
	}

	if strings.Contains(text, "```json") {
		if m := jsonFenceRe.FindStringSubmatch(text); m != nil {
			if err := json.Unmarshal([]byte(m[1]), &data); err == nil {
				return data, FormatJSONCodeblock
			}
		}
	}

	if strings.Contains(text, "```") {
		if m := anyFenceRe.FindStringSubmatch(text); m != nil {
			if err := json.Unmarshal([]byte(m[1]), &data); err == nil {
				return data, FormatJSONCodeblock
			}
		}
	}

	if block := balancedBlock(text, '{', '}'); block != "" {
		if err := json.Unmarshal([]byte(block), &data); err == nil {
			return data, FormatJSONEmbedded
		}
	}

	if block := balancedBlock(text, '[', ']'); block != "" {
		if err := json.Unmarshal([]byte(block), &data); err == nil {
			return data, FormatJSONArray
		}
	}

	return nil, FormatNone
}

func balancedBlock(text string, open, close byte) string {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

func applySchema(data map[string]interface{}, schema Schema) (map[string]interface{}, []string) {
	var errs []string
	result := make(map[string]interface{}, len(data))

	for field, rules := range schema {
		value, present := data[field]

		if !present || value == nil {
			if rules.Default != nil {
				result[field] = rules.Default
			} else if rules.Required {
				errs = append(errs, fmt.Sprintf("%s: required field missing", field))
			}
			continue
		}

		if rules.Type != "" {
			coerced, err := coerce(value, rules.Type)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", field, err))
				result[field] = value
				continue
			}
			value = coerced
		}
		result[field] = value
	}

	// carry extra fields through untouched
	for key, value := range data {
		if _, known := schema[key]; !known {
			result[key] = value
		}
	}

	return result, errs
}

func coerce(value interface{}, fieldType string) (interface{}, error) {
	switch fieldType {
	case TypeString:
		switch v := value.(type) {
		case string:
			return v, nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		case bool:
			return strconv.FormatBool(v), nil
		}
	case TypeInteger:
		switch v := value.(type) {
		case float64:
			return int(v), nil
		case int:
			return v, nil
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return int(f), nil
			}
		}
	case TypeNumber:
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f, nil
			}
		}
	case TypeBoolean:
		switch v := value.(type) {
		case bool:
			return v, nil
		case string:
			switch strings.ToLower(v) {
			case "true", "1", "yes", "ja":
				return true, nil
			case "false", "0", "no", "nein":
				return false, nil
			}
		case float64:
			return v != 0, nil
		}
	case TypeArray:
		switch v := value.(type) {
		case []interface{}:
			return v, nil
		case string:
			parts := strings.Split(v, ",")
			list := make([]interface{}, 0, len(parts))
			for _, p := range parts {
				list = append(list, strings.TrimSpace(p))
			}
			return list, nil
		}
	case TypeObject:
		if v, ok := value.(map[string]interface{}); ok {
			return v, nil
		}
	default:
		return value, nil
	}
	return value, fmt.Errorf("cannot convert to %s", fieldType)
}

// ParseList extracts a list from text. It recognises JSON arrays, markdown
// and numbered lists, comma-separated single lines and line-wise items.
func ParseList(text string) Result {
	trimmed := strings.TrimSpace(text)

	if strings.HasPrefix(trimmed, "[") {
		var items []interface{}
		if err := json.Unmarshal([]byte(trimmed), &items); err == nil {
			return listResult(items, text, FormatJSONArray)
		}
	}

	if matches := mdListRe.FindAllStringSubmatch(text, -1); len(matches) > 0 {
		return listResult(submatchItems(matches), text, FormatMarkdownList)
	}

	if matches := numListRe.FindAllStringSubmatch(text, -1); len(matches) > 0 {
		return listResult(submatchItems(matches), text, FormatNumberedList)
	}

	if strings.Contains(trimmed, ",") && !strings.Contains(trimmed, "\n") {
		var items []interface{}
		for _, part := range strings.Split(trimmed, ",") {
			if p := strings.TrimSpace(part); p != "" {
				items = append(items, p)
			}
		}
		if len(items) > 0 {
			return listResult(items, text, FormatCommaList)
		}
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) > 1 {
		var items []interface{}
		for _, line := range lines {
			if l := strings.TrimSpace(line); l != "" {
				items = append(items, l)
			}
		}
		if len(items) > 0 {
			return listResult(items, text, FormatLineList)
		}
	}

	return Result{Success: false, Raw: text, Format: FormatNone, Errors: []string{"no list found"}}
}

func submatchItems(matches [][]string) []interface{} {
	items := make([]interface{}, 0, len(matches))
	for _, m := range matches {
		items = append(items, strings.TrimSpace(m[1]))
	}
	return items
}

func listResult(items []interface{}, raw, format string) Result {
	return Result{Success: len(items) > 0, Data: items, Raw: raw, Format: format}
}

// ParseKeyValue extracts "Key: value" pairs with type inference
func ParseKeyValue(text, separator string) Result {
	if separator == "" {
		separator = ":"
	}

	data := make(map[string]interface{})
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, separator) {
			continue
		}

		idx := strings.Index(line, separator)
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+len(separator):])

		key = boldKeyRe.ReplaceAllString(key, "$1")
		key = bulletKeyRe.ReplaceAllString(key, "")

		if key != "" {
			data[key] = inferType(value)
		}
	}

	result := Result{Data: data, Raw: text, Format: FormatKeyValue, Success: len(data) > 0}
	if !result.Success {
		result.Errors = []string{"no key-value pairs found"}
	}
	return result
}

func inferType(value string) interface{} {
	value = strings.TrimSpace(value)

	switch strings.ToLower(value) {
	case "true", "yes", "ja":
		return true
	case "false", "no", "nein":
		return false
	case "null", "none", "":
		return nil
	}

	if !strings.Contains(value, ".") {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}

	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			return value[1 : len(value)-1]
		}
	}

	return value
}
