package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// The identifier whitelist must reject anything outside the closed sets
// before a statement is ever built.

func TestAllowedTable(t *testing.T) {
	assert.True(t, AllowedTable("tasks"))
	assert.True(t, AllowedTable("projects"))
	assert.True(t, AllowedTable("people"))
	assert.True(t, AllowedTable("ideas"))
	assert.True(t, AllowedTable("calendar_events"))

	assert.False(t, AllowedTable("agent_configs"))
	assert.False(t, AllowedTable("api_keys"))
	assert.False(t, AllowedTable("system_settings"))
	assert.False(t, AllowedTable("tasks; DROP TABLE tasks"))
	assert.False(t, AllowedTable(""))
}

func TestInsertRecordRejectsUnknownTable(t *testing.T) {
	store := NewStore(nil)

	_, err := store.InsertRecord(context.Background(), "api_keys", map[string]interface{}{"provider": "x"})
	assert.ErrorIs(t, err, ErrTableNotAllowed)
}

func TestInsertRecordRejectsUnknownColumn(t *testing.T) {
	store := NewStore(nil)

	_, err := store.InsertRecord(context.Background(), "tasks", map[string]interface{}{
		"title":      "ok",
		"deleted_at": "now()",
	})
	assert.ErrorIs(t, err, ErrColumnNotAllowed)
}

func TestInsertRecordRejectsEmptyData(t *testing.T) {
	store := NewStore(nil)

	_, err := store.InsertRecord(context.Background(), "tasks", map[string]interface{}{})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestUpdateRecordRejectsUnknownColumn(t *testing.T) {
	store := NewStore(nil)

	err := store.UpdateRecord(context.Background(), "people", 1, map[string]interface{}{
		"icloud_uid": "sneaky",
	})
	assert.ErrorIs(t, err, ErrColumnNotAllowed)
}

func TestUpdateRecordNoChangesIsNoop(t *testing.T) {
	store := NewStore(nil)

	// no statement is issued, so a nil pool is fine
	err := store.UpdateRecord(context.Background(), "tasks", 1, map[string]interface{}{})
	assert.NoError(t, err)
}

func TestCompleteRejectsUnknownTable(t *testing.T) {
	store := NewStore(nil)

	err := store.Complete(context.Background(), "sync_config", 1)
	assert.ErrorIs(t, err, ErrTableNotAllowed)
}

func TestSetLinkRejectsNonLinkColumn(t *testing.T) {
	store := NewStore(nil)

	err := store.SetLink(context.Background(), "tasks", 1, "title", 2)
	assert.ErrorIs(t, err, ErrColumnNotAllowed)

	// projects has no person_id column
	err = store.SetLink(context.Background(), "projects", 1, "person_id", 2)
	assert.ErrorIs(t, err, ErrColumnNotAllowed)
}

func TestRunQueryRejectsUnknownTable(t *testing.T) {
	store := NewStore(nil)

	_, err := store.RunQuery(context.Background(), "human_requests", SearchAll, "")
	assert.ErrorIs(t, err, ErrTableNotAllowed)
}

func TestRunQueryRejectsUnknownSearchType(t *testing.T) {
	store := NewStore(nil)

	_, err := store.RunQuery(context.Background(), "tasks", "regex", "x")
	assert.Error(t, err)
}

func TestParseDateRange(t *testing.T) {
	t.Run("single day", func(t *testing.T) {
		from, to, err := parseDateRange("2026-01-12")
		assert.NoError(t, err)
		assert.Equal(t, "2026-01-12", from.Format("2006-01-02"))
		assert.Equal(t, "2026-01-13", to.Format("2006-01-02"))
	})

	t.Run("range is end-inclusive", func(t *testing.T) {
		from, to, err := parseDateRange("2026-01-12..2026-01-18")
		assert.NoError(t, err)
		assert.Equal(t, "2026-01-12", from.Format("2006-01-02"))
		assert.Equal(t, "2026-01-19", to.Format("2006-01-02"))
	})

	t.Run("invalid input", func(t *testing.T) {
		_, _, err := parseDateRange("nächste woche")
		assert.Error(t, err)
	})
}
