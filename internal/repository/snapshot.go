package repository

import (
	"context"

	"github.com/spec-kit/escalation-engine/internal/domain"
)

// SnapshotRepository is the persistence contract the engine requires: load
// and save of plain serializable records. No schema or storage engine is
// prescribed; implementations are collaborators, not authorities. The engine
// keeps operating on its in-memory state when any of these calls fail.
type SnapshotRepository interface {
	LoadTickets(ctx context.Context) ([]domain.Ticket, error)
	SaveTickets(ctx context.Context, tickets []domain.Ticket) error
	LoadAgents(ctx context.Context) ([]domain.Agent, error)
	SaveAgents(ctx context.Context, agents []domain.Agent) error
	LoadRules(ctx context.Context) ([]domain.Rule, error)
	SaveRules(ctx context.Context, rules []domain.Rule) error
}
