package ports

import (
	"context"

	"github.com/hweber/secondbrain/modules/agents/model"
)

// AgentConfigRepository defines the interface for agent config data access
type AgentConfigRepository interface {
	GetByName(ctx context.Context, agentName string) (*model.AgentConfig, error)
	TrackCall(ctx context.Context, agentName string, success bool) error
	Upsert(ctx context.Context, config *model.AgentConfig) error
}
