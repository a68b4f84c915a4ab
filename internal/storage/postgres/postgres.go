package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/FranksOps/quill/internal/storage"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS outcomes (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	slug TEXT NOT NULL,
	title TEXT NOT NULL,
	status TEXT NOT NULL,
	stage TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	original_length INTEGER NOT NULL,
	enhanced_length INTEGER NOT NULL,
	citations JSONB NOT NULL,
	reference_count INTEGER NOT NULL,
	tokens INTEGER NOT NULL,
	model TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS outcomes_slug_idx ON outcomes (slug, created_at DESC);
`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, o *storage.Outcome) error {
	insert, err := storage.InsertQuery(sq.Dollar, o)
	if err != nil {
		return err
	}
	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("postgres build insert: %w", err)
	}

	if _, err := b.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres save %s: %w", o.ID, err)
	}
	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Outcome, error) {
	query, args, err := storage.SelectQuery(sq.Dollar, filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres build select: %w", err)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres query: %w", err)
	}
	defer rows.Close()

	results := []*storage.Outcome{}
	for rows.Next() {
		var (
			o          storage.Outcome
			status     string
			citations  []byte
			durationMs int64
		)
		err := rows.Scan(
			&o.ID, &o.RunID, &o.Slug, &o.Title, &status, &o.Stage, &o.Error,
			&o.OriginalLength, &o.EnhancedLength, &citations, &o.References,
			&o.Tokens, &o.Model, &durationMs, &o.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres scan: %w", err)
		}

		o.Status = storage.Status(status)
		o.Duration = time.Duration(durationMs) * time.Millisecond
		if o.Citations, err = storage.DecodeCitations(citations); err != nil {
			return nil, fmt.Errorf("postgres %s: %w", o.ID, err)
		}

		results = append(results, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres rows: %w", err)
	}

	return results, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
