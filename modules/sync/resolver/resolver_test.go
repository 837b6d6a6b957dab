package resolver

import (
	"testing"
	"time"

	"github.com/hweber/secondbrain/modules/people/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func contact(lastName string, updatedAt time.Time) *model.Person {
	return &model.Person{
		ID:        7,
		FirstName: "Max",
		LastName:  lastName,
		UpdatedAt: updatedAt,
	}
}

func TestResolveOnlyLocal(t *testing.T) {
	local := contact("Mustermann", time.Now())

	result, err := Resolve(local, nil, "icloud")
	require.NoError(t, err)
	assert.Equal(t, WinnerLocal, result.Winner)
	assert.Equal(t, ActionPush, result.Action)
	assert.Same(t, local, result.Contact)
}

func TestResolveOnlyRemote(t *testing.T) {
	remote := contact("Mueller", time.Now())
	remote.ID = 0

	result, err := Resolve(nil, remote, "google")
	require.NoError(t, err)
	assert.Equal(t, WinnerRemote, result.Winner)
	assert.Equal(t, ActionPull, result.Action)
}

func TestResolveBothNil(t *testing.T) {
	_, err := Resolve(nil, nil, "nextcloud")
	assert.ErrorIs(t, err, ErrNothingToResolve)
}

func TestResolveIdentical(t *testing.T) {
	now := time.Now()
	local := contact("Mustermann", now)
	remote := contact("Mustermann", now.Add(-2*time.Hour))

	result, err := Resolve(local, remote, "icloud")
	require.NoError(t, err)
	assert.Equal(t, WinnerNone, result.Winner)
	assert.Equal(t, ActionNone, result.Action)
}

func TestResolveIdenticalTreatsNilAndEmptyAlike(t *testing.T) {
	now := time.Now()
	local := contact("Mustermann", now)
	local.Phone = strPtr("")
	remote := contact("Mustermann", now.Add(-time.Hour))
	remote.Phone = nil

	result, err := Resolve(local, remote, "icloud")
	require.NoError(t, err)
	assert.Equal(t, ActionNone, result.Action)
}

func TestResolveLocalNewer(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	local := contact("Mustermann", now)
	remote := contact("Mueller", now.Add(-time.Hour))

	result, err := Resolve(local, remote, "icloud")
	require.NoError(t, err)
	assert.Equal(t, WinnerLocal, result.Winner)
	assert.Equal(t, ActionPush, result.Action)
	assert.Equal(t, "Mustermann", result.Contact.LastName)
}

func TestResolveEqualTimestampLocalWins(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	local := contact("Mustermann", now)
	remote := contact("Mueller", now)

	result, err := Resolve(local, remote, "icloud")
	require.NoError(t, err)
	assert.Equal(t, WinnerLocal, result.Winner)
	assert.Equal(t, ActionPush, result.Action)
}

func TestResolveRemoteNewerMergesUIDs(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	local := contact("Mustermann", now.Add(-time.Hour))
	local.GoogleUID = strPtr("google-1")
	local.NextcloudUID = strPtr("nc-1")

	remote := contact("Mueller", now)
	remote.ID = 0
	remote.ICloudUID = strPtr("icloud-9")

	result, err := Resolve(local, remote, "icloud")
	require.NoError(t, err)
	assert.Equal(t, WinnerRemote, result.Winner)
	assert.Equal(t, ActionPull, result.Action)

	merged := result.Contact
	assert.Equal(t, "Mueller", merged.LastName)
	assert.Equal(t, int64(7), merged.ID, "local id is preserved")
	assert.Equal(t, "google-1", *merged.GoogleUID, "local provider UIDs are preserved")
	assert.Equal(t, "nc-1", *merged.NextcloudUID)
	assert.Equal(t, "icloud-9", *merged.ICloudUID, "remote provider UID is applied")
}

func TestResolveIsIdempotent(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	local := contact("Mustermann", now.Add(-time.Hour))
	remote := contact("Mueller", now)
	remote.ICloudUID = strPtr("icloud-9")

	first, err := Resolve(local, remote, "icloud")
	require.NoError(t, err)
	require.Equal(t, ActionPull, first.Action)

	// applying the merged contact and re-resolving against the same remote
	// must be a no-op
	applied := first.Contact
	applied.UpdatedAt = remote.UpdatedAt

	second, err := Resolve(applied, remote, "icloud")
	require.NoError(t, err)
	assert.Equal(t, ActionNone, second.Action)
}
