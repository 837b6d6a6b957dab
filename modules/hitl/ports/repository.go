package ports

import (
	"context"
	"encoding/json"

	"github.com/hweber/secondbrain/modules/hitl/model"
)

// RequestRepository defines the interface for human request data access
type RequestRepository interface {
	Create(ctx context.Context, automation, requestType, question string, options []string, reqContext json.RawMessage) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.HumanRequest, error)
	ListPending(ctx context.Context, automation string) ([]*model.HumanRequest, error)
	Resolve(ctx context.Context, id int64, status, response string) error
	MarkTimeout(ctx context.Context, id int64) error
}
