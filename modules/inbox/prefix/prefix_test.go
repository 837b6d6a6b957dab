package prefix

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType Type
		wantText string
	}{
		{"query with german question", "? wie ist die Email von Tim", TypeQuery, "wie ist die Email von Tim"},
		{"query without space", "?offene tasks", TypeQuery, "offene tasks"},
		{"edit", "! Task 5 auf morgen verschieben", TypeEdit, "Task 5 auf morgen verschieben"},
		{"create plain", "Milch kaufen", TypeCreate, "Milch kaufen"},
		{"sigil not at start stays create", "Das ist wichtig!", TypeCreate, "Das ist wichtig!"},
		{"question mark at end stays create", "Meeting morgen?", TypeCreate, "Meeting morgen?"},
		{"leading whitespace ignored", "   ? wer ist Anna", TypeQuery, "wer ist Anna"},
		{"leading whitespace before edit", "\t! status ändern", TypeEdit, "status ändern"},
		{"empty input", "", TypeCreate, ""},
		{"whitespace only", "   ", TypeCreate, ""},
		{"bare sigil", "?", TypeQuery, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantText, got.Text)
			assert.Equal(t, tt.input, got.Original)
		})
	}
}
