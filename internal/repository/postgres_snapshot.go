package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/escalation-engine/internal/domain"
)

type postgresSnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSnapshotRepository persists engine records as jsonb rows.
func NewPostgresSnapshotRepository(pool *pgxpool.Pool) SnapshotRepository {
	return &postgresSnapshotRepository{pool: pool}
}

func (r *postgresSnapshotRepository) LoadTickets(ctx context.Context) ([]domain.Ticket, error) {
	return loadRecords[domain.Ticket](ctx, r.pool, "ticket_snapshots")
}

func (r *postgresSnapshotRepository) SaveTickets(ctx context.Context, tickets []domain.Ticket) error {
	return saveRecords(ctx, r.pool, "ticket_snapshots", tickets, func(t domain.Ticket) string { return t.ID })
}

func (r *postgresSnapshotRepository) LoadAgents(ctx context.Context) ([]domain.Agent, error) {
	return loadRecords[domain.Agent](ctx, r.pool, "agent_snapshots")
}

func (r *postgresSnapshotRepository) SaveAgents(ctx context.Context, agents []domain.Agent) error {
	return saveRecords(ctx, r.pool, "agent_snapshots", agents, func(a domain.Agent) string { return a.ID })
}

func (r *postgresSnapshotRepository) LoadRules(ctx context.Context) ([]domain.Rule, error) {
	return loadRecords[domain.Rule](ctx, r.pool, "rule_snapshots")
}

func (r *postgresSnapshotRepository) SaveRules(ctx context.Context, rules []domain.Rule) error {
	return saveRecords(ctx, r.pool, "rule_snapshots", rules, func(rule domain.Rule) string { return rule.ID })
}

func loadRecords[T any](ctx context.Context, pool *pgxpool.Pool, table string) ([]T, error) {
	query := fmt.Sprintf(`SELECT data FROM %s ORDER BY updated_at`, table)
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []T
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var record T
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, rows.Err()
}

func saveRecords[T any](ctx context.Context, pool *pgxpool.Pool, table string, records []T, id func(T) string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	query := fmt.Sprintf(`INSERT INTO %s (id, data, updated_at) VALUES ($1, $2, NOW())`, table)
	for _, record := range records {
		raw, err := json.Marshal(record)
		if err != nil {
			return err
		}
		batch.Queue(query, id(record), raw)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
