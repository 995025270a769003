package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/escalation-engine/internal/domain"
)

const (
	redisTicketsKey = "escalation:tickets"
	redisAgentsKey  = "escalation:agents"
	redisRulesKey   = "escalation:rules"
)

type redisSnapshotRepository struct {
	client *redis.Client
}

// NewRedisSnapshotRepository persists engine records as JSON blobs under
// fixed keys.
func NewRedisSnapshotRepository(client *redis.Client) SnapshotRepository {
	return &redisSnapshotRepository{client: client}
}

func (r *redisSnapshotRepository) LoadTickets(ctx context.Context) ([]domain.Ticket, error) {
	return loadBlob[domain.Ticket](ctx, r.client, redisTicketsKey)
}

func (r *redisSnapshotRepository) SaveTickets(ctx context.Context, tickets []domain.Ticket) error {
	return saveBlob(ctx, r.client, redisTicketsKey, tickets)
}

func (r *redisSnapshotRepository) LoadAgents(ctx context.Context) ([]domain.Agent, error) {
	return loadBlob[domain.Agent](ctx, r.client, redisAgentsKey)
}

func (r *redisSnapshotRepository) SaveAgents(ctx context.Context, agents []domain.Agent) error {
	return saveBlob(ctx, r.client, redisAgentsKey, agents)
}

func (r *redisSnapshotRepository) LoadRules(ctx context.Context) ([]domain.Rule, error) {
	return loadBlob[domain.Rule](ctx, r.client, redisRulesKey)
}

func (r *redisSnapshotRepository) SaveRules(ctx context.Context, rules []domain.Rule) error {
	return saveBlob(ctx, r.client, redisRulesKey, rules)
}

func loadBlob[T any](ctx context.Context, client *redis.Client, key string) ([]T, error) {
	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var result []T
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func saveBlob[T any](ctx context.Context, client *redis.Client, key string, records []T) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, raw, 0).Err()
}
