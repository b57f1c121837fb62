package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FranksOps/linkscout/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS discovery_runs (
	id TEXT PRIMARY KEY,
	topic TEXT NOT NULL,
	level TEXT NOT NULL,
	candidates INTEGER NOT NULL,
	reranked BOOLEAN NOT NULL,
	detail JSONB NOT NULL,
	duration_ms BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS discovery_runs_topic_idx ON discovery_runs (topic, level);
`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("context: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("context: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, record *storage.RunRecord) error {
	detailJSON, err := json.Marshal(record.Detail())
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}

	query := `
	INSERT INTO discovery_runs (
		id, topic, level, candidates, reranked, detail, duration_ms, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = b.pool.Exec(ctx, query,
		record.ID,
		record.Topic,
		record.Level,
		record.Candidates,
		record.Reranked,
		detailJSON,
		record.Duration.Milliseconds(),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}

	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.RunRecord, error) {
	query := `SELECT id, topic, level, candidates, reranked, detail, duration_ms, created_at FROM discovery_runs WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.Topic != "" {
		query += fmt.Sprintf(` AND topic = $%d`, paramCount)
		args = append(args, filter.Topic)
		paramCount++
	}
	if filter.Level != "" {
		query += fmt.Sprintf(` AND level = $%d`, paramCount)
		args = append(args, filter.Level)
		paramCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	defer rows.Close()

	var records []*storage.RunRecord
	for rows.Next() {
		var r storage.RunRecord
		var detailJSON []byte
		var durationMs int64

		err := rows.Scan(
			&r.ID, &r.Topic, &r.Level, &r.Candidates, &r.Reranked,
			&detailJSON, &durationMs, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("context: %w", err)
		}

		var detail storage.RunDetail
		if err := json.Unmarshal(detailJSON, &detail); err != nil {
			return nil, fmt.Errorf("context: %w", err)
		}
		r.SetDetail(detail)
		r.Duration = time.Duration(durationMs) * time.Millisecond

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	return records, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
