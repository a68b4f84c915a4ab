package storage

import (
	"encoding/json"
	"fmt"
	"math"

	sq "github.com/Masterminds/squirrel"
)

// Table is the ledger table shared by the SQL backends.
const Table = "outcomes"

// Columns lists the ledger columns in scan order.
var Columns = []string{
	"id", "run_id", "slug", "title", "status", "stage", "error",
	"original_length", "enhanced_length", "citations", "reference_count",
	"tokens", "model", "duration_ms", "created_at",
}

// InsertQuery builds the insert for o. Citations are stored as a JSON array.
func InsertQuery(ph sq.PlaceholderFormat, o *Outcome) (sq.InsertBuilder, error) {
	citations := o.Citations
	if citations == nil {
		citations = []string{}
	}
	encoded, err := json.Marshal(citations)
	if err != nil {
		return sq.InsertBuilder{}, fmt.Errorf("encode citations: %w", err)
	}

	return sq.Insert(Table).
		Columns(Columns...).
		Values(
			o.ID, o.RunID, o.Slug, o.Title, string(o.Status), o.Stage, o.Error,
			o.OriginalLength, o.EnhancedLength, string(encoded), o.References,
			o.Tokens, o.Model, o.Duration.Milliseconds(), o.CreatedAt.UTC(),
		).
		PlaceholderFormat(ph), nil
}

// DecodeCitations parses a stored citations column.
func DecodeCitations(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var c []string
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode citations: %w", err)
	}
	return c, nil
}

// SelectQuery builds the newest-first select for f.
func SelectQuery(ph sq.PlaceholderFormat, f Filter) sq.SelectBuilder {
	q := sq.Select(Columns...).From(Table).OrderBy("created_at DESC").PlaceholderFormat(ph)

	if f.RunID != "" {
		q = q.Where(sq.Eq{"run_id": f.RunID})
	}
	if f.Slug != "" {
		q = q.Where(sq.Eq{"slug": f.Slug})
	}
	if f.Status != "" {
		q = q.Where(sq.Eq{"status": string(f.Status)})
	}
	if f.Since != nil {
		q = q.Where(sq.GtOrEq{"created_at": f.Since.UTC()})
	}
	switch {
	case f.Limit > 0:
		q = q.Limit(uint64(f.Limit))
	case f.Offset > 0:
		// SQLite rejects OFFSET without LIMIT.
		q = q.Limit(math.MaxInt64)
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}
	return q
}

// Page applies f's offset and limit to an already-filtered newest-first slice.
func Page(outcomes []*Outcome, f Filter) []*Outcome {
	if f.Offset > 0 {
		if f.Offset >= len(outcomes) {
			return []*Outcome{}
		}
		outcomes = outcomes[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(outcomes) {
		outcomes = outcomes[:f.Limit]
	}
	return outcomes
}
