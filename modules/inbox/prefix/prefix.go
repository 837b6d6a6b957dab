// Package prefix routes raw input by its leading sigil: ? for queries,
// ! for edits, anything else is a create.
package prefix

import "strings"

// Type is the routing decision for one input
type Type string

const (
	TypeQuery  Type = "query"
	TypeEdit   Type = "edit"
	TypeCreate Type = "create"
)

// ParsedInput carries the decision, the stripped body and the original text
type ParsedInput struct {
	Type     Type
	Text     string
	Original string
}

// Parse inspects the first non-space character. A sigil anywhere else in
// the text does not count.
func Parse(text string) ParsedInput {
	original := text
	trimmed := strings.TrimSpace(text)

	if trimmed == "" {
		return ParsedInput{Type: TypeCreate, Text: "", Original: original}
	}

	switch trimmed[0] {
	case '?':
		return ParsedInput{Type: TypeQuery, Text: strings.TrimSpace(trimmed[1:]), Original: original}
	case '!':
		return ParsedInput{Type: TypeEdit, Text: strings.TrimSpace(trimmed[1:]), Original: original}
	default:
		return ParsedInput{Type: TypeCreate, Text: trimmed, Original: original}
	}
}
