package ports

import (
	"context"

	"github.com/hweber/secondbrain/modules/people/model"
)

// PersonRepository defines the interface for person data access
type PersonRepository interface {
	Create(ctx context.Context, person *model.Person) error
	GetByID(ctx context.Context, id int64) (*model.Person, error)
	FindByName(ctx context.Context, name string) (*model.Person, error)
	FindByProviderUID(ctx context.Context, provider, uid string) (*model.Person, error)
	ListPendingForProvider(ctx context.Context, provider string) ([]*model.Person, error)
	UpdateFromSync(ctx context.Context, person *model.Person) error
	MarkSynced(ctx context.Context, id int64, provider, uid string) error
	SoftDeleteByProviderUID(ctx context.Context, provider, uid string) error
}
