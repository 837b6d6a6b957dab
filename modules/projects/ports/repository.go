package ports

import (
	"context"
	"time"

	"github.com/hweber/secondbrain/modules/projects/model"
)

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	GetByID(ctx context.Context, id int64) (*model.Project, error)
	FindByPartialName(ctx context.Context, name string) (*model.Project, error)
	ListActive(ctx context.Context) ([]*model.Project, error)
	ListUpdatedSince(ctx context.Context, since time.Time) ([]*model.Project, error)
}
