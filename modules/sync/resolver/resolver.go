// Package resolver decides sync conflicts with last-write-wins. On a
// timestamp tie the local row wins (single source of truth).
package resolver

import (
	"errors"
	"reflect"

	"github.com/hweber/secondbrain/modules/people/model"
)

// Winners
const (
	WinnerLocal  = "local"
	WinnerRemote = "remote"
	WinnerNone   = "none"
)

// Actions
const (
	ActionPush = "push"
	ActionPull = "pull"
	ActionNone = "none"
)

// ErrNothingToResolve is returned when both sides are absent
var ErrNothingToResolve = errors.New("both local and remote are nil")

// Result names the winner, the action to take and the contact to apply
type Result struct {
	Winner  string
	Action  string
	Contact *model.Person
	Reason  string
}

// providers whose UIDs are merged
var providers = []string{"icloud", "google", "nextcloud"}

// Resolve decides between a local and a remote version of one contact.
// The provider names which remote UID applies on a pull.
func Resolve(local, remote *model.Person, provider string) (*Result, error) {
	if local != nil && remote == nil {
		return &Result{Winner: WinnerLocal, Action: ActionPush, Contact: local,
			Reason: "contact only exists locally"}, nil
	}
	if local == nil && remote != nil {
		return &Result{Winner: WinnerRemote, Action: ActionPull, Contact: remote,
			Reason: "contact only exists remotely"}, nil
	}
	if local == nil && remote == nil {
		return nil, ErrNothingToResolve
	}

	if identical(local, remote) {
		return &Result{Winner: WinnerNone, Action: ActionNone, Contact: local,
			Reason: "contacts are identical"}, nil
	}

	if !local.UpdatedAt.Before(remote.UpdatedAt) {
		// local wins, including equal timestamps
		return &Result{Winner: WinnerLocal, Action: ActionPush, Contact: local,
			Reason: "local is newer or equal"}, nil
	}

	return &Result{Winner: WinnerRemote, Action: ActionPull, Contact: merge(local, remote, provider),
		Reason: "remote is newer"}, nil
}

// identical compares the fields the providers carry
func identical(a, b *model.Person) bool {
	return a.FirstName == b.FirstName &&
		strPtrEq(a.MiddleName, b.MiddleName) &&
		a.LastName == b.LastName &&
		strPtrEq(a.Phone, b.Phone) &&
		strPtrEq(a.Email, b.Email) &&
		strPtrEq(a.Street, b.Street) &&
		strPtrEq(a.HouseNr, b.HouseNr) &&
		strPtrEq(a.Zip, b.Zip) &&
		strPtrEq(a.City, b.City) &&
		strPtrEq(a.Country, b.Country) &&
		strPtrEq(a.Context, b.Context) &&
		reflect.DeepEqual(a.ImportantDates, b.ImportantDates)
}

func strPtrEq(a, b *string) bool {
	if a == nil || b == nil {
		return (a == nil || *a == "") && (b == nil || *b == "")
	}
	return *a == *b
}

// merge takes the remote fields but preserves the local id and every known
// provider UID; the syncing provider's UID comes from remote.
func merge(local, remote *model.Person, provider string) *model.Person {
	merged := *remote
	merged.ID = local.ID
	merged.CreatedAt = local.CreatedAt

	for _, p := range providers {
		if uid := local.ProviderUID(p); uid != nil && *uid != "" {
			merged.SetProviderUID(p, *uid)
		}
	}
	if uid := remote.ProviderUID(provider); uid != nil && *uid != "" {
		merged.SetProviderUID(provider, *uid)
	}

	return &merged
}
