package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeywords(t *testing.T) {
	stopwords := []string{"der", "die", "das", "und", "für", "an"}
	m := New(nil, stopwords, 2, 5)

	t.Run("lowercases and drops stopwords", func(t *testing.T) {
		keywords := m.Keywords("Die Rechnung für das Projekt")
		assert.Equal(t, []string{"rechnung", "projekt"}, keywords)
	})

	t.Run("keeps umlauts and sharp s", func(t *testing.T) {
		keywords := m.Keywords("Müller grüßt Straße")
		assert.Equal(t, []string{"müller", "grüßt", "straße"}, keywords)
	})

	t.Run("splits on punctuation", func(t *testing.T) {
		keywords := m.Keywords("Anruf: Schmidt, morgen!")
		assert.Equal(t, []string{"anruf", "schmidt", "morgen"}, keywords)
	})

	t.Run("drops short tokens", func(t *testing.T) {
		keywords := m.Keywords("a zu b Projekt")
		assert.Equal(t, []string{"zu", "projekt"}, keywords)
	})

	t.Run("deduplicates keeping order", func(t *testing.T) {
		keywords := m.Keywords("test Test TEST projekt test")
		assert.Equal(t, []string{"test", "projekt"}, keywords)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, m.Keywords(""))
		assert.Empty(t, m.Keywords("   !!! ..."))
	})
}

func TestKeywordsMinLength(t *testing.T) {
	m := New(nil, nil, 4, 5)
	keywords := m.Keywords("ab abc abcd abcde")
	assert.Equal(t, []string{"abcd", "abcde"}, keywords)
}
