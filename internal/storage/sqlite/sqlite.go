package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/FranksOps/quill/internal/storage"
	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS outcomes (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	slug TEXT NOT NULL,
	title TEXT NOT NULL,
	status TEXT NOT NULL,
	stage TEXT,
	error TEXT,
	original_length INTEGER NOT NULL,
	enhanced_length INTEGER NOT NULL,
	citations TEXT NOT NULL,
	reference_count INTEGER NOT NULL,
	tokens INTEGER NOT NULL,
	model TEXT,
	duration_ms INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS outcomes_slug_idx ON outcomes (slug, created_at);
`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// A single connection keeps in-memory databases coherent.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, o *storage.Outcome) error {
	insert, err := storage.InsertQuery(sq.Question, o)
	if err != nil {
		return err
	}
	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("sqlite build insert: %w", err)
	}

	if _, err := b.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite save %s: %w", o.ID, err)
	}
	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Outcome, error) {
	query, args, err := storage.SelectQuery(sq.Question, filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite build select: %w", err)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query: %w", err)
	}
	defer rows.Close()

	results := []*storage.Outcome{}
	for rows.Next() {
		var (
			o          storage.Outcome
			status     string
			stage      sql.NullString
			errText    sql.NullString
			model      sql.NullString
			citations  string
			durationMs int64
		)
		err := rows.Scan(
			&o.ID, &o.RunID, &o.Slug, &o.Title, &status, &stage, &errText,
			&o.OriginalLength, &o.EnhancedLength, &citations, &o.References,
			&o.Tokens, &model, &durationMs, &o.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite scan: %w", err)
		}

		o.Status = storage.Status(status)
		o.Stage = stage.String
		o.Error = errText.String
		o.Model = model.String
		o.Duration = time.Duration(durationMs) * time.Millisecond
		if o.Citations, err = storage.DecodeCitations([]byte(citations)); err != nil {
			return nil, fmt.Errorf("sqlite %s: %w", o.ID, err)
		}

		results = append(results, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite rows: %w", err)
	}

	return results, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
