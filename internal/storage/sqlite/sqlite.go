package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FranksOps/linkscout/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS discovery_runs (
	id TEXT PRIMARY KEY,
	topic TEXT NOT NULL,
	level TEXT NOT NULL,
	candidates INTEGER NOT NULL,
	reranked BOOLEAN NOT NULL,
	detail TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS discovery_runs_topic_idx ON discovery_runs (topic, level);
`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("context: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, record *storage.RunRecord) error {
	detailJSON, err := json.Marshal(record.Detail())
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}

	query := `
	INSERT INTO discovery_runs (
		id, topic, level, candidates, reranked, detail, duration_ms, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = b.db.ExecContext(ctx, query,
		record.ID,
		record.Topic,
		record.Level,
		record.Candidates,
		record.Reranked,
		string(detailJSON),
		record.Duration.Milliseconds(),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}

	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.RunRecord, error) {
	query := `SELECT id, topic, level, candidates, reranked, detail, duration_ms, created_at FROM discovery_runs WHERE 1=1`
	args := []any{}

	if filter.Topic != "" {
		query += ` AND topic = ?`
		args = append(args, filter.Topic)
	}
	if filter.Level != "" {
		query += ` AND level = ?`
		args = append(args, filter.Level)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += ` LIMIT -1`
		}
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	defer rows.Close()

	var records []*storage.RunRecord
	for rows.Next() {
		var r storage.RunRecord
		var detailJSON string
		var durationMs int64

		err := rows.Scan(
			&r.ID, &r.Topic, &r.Level, &r.Candidates, &r.Reranked,
			&detailJSON, &durationMs, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("context: %w", err)
		}

		var detail storage.RunDetail
		if err := json.Unmarshal([]byte(detailJSON), &detail); err != nil {
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

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
