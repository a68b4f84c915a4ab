// Package storage records the per-article outcomes of pipeline runs so that
// earlier runs can be inspected after the process exits.
package storage

import (
	"context"
	"time"
)

// Status is the terminal state of one article within a run.
type Status string

const (
	StatusEnhanced Status = "enhanced"
	StatusFailed   Status = "failed"
	StatusSkipped  Status = "skipped"
)

// Stages of the per-article loop, recorded as the last stage an article reached.
const (
	StageSearch  = "search"
	StageExtract = "extract"
	StageEnhance = "enhance"
	StagePersist = "persist"
)

// Outcome is the result of processing one article in one run. The length and
// citation fields are populated only for enhanced articles.
type Outcome struct {
	ID             string        `json:"id"`
	RunID          string        `json:"run_id"`
	Slug           string        `json:"slug"`
	Title          string        `json:"title"`
	Status         Status        `json:"status"`
	Stage          string        `json:"stage,omitempty"`
	Error          string        `json:"error,omitempty"`
	OriginalLength int           `json:"original_length"`
	EnhancedLength int           `json:"enhanced_length"`
	Citations      []string      `json:"citations,omitempty"`
	References     int           `json:"references"`
	Tokens         int           `json:"tokens"`
	Model          string        `json:"model,omitempty"`
	Duration       time.Duration `json:"duration"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Filter narrows a Query. Zero values match everything.
type Filter struct {
	RunID  string
	Slug   string
	Status Status
	Since  *time.Time
	Limit  int
	Offset int
}

// Match reports whether o passes every non-zero field of f.
func (f Filter) Match(o *Outcome) bool {
	if f.RunID != "" && o.RunID != f.RunID {
		return false
	}
	if f.Slug != "" && o.Slug != f.Slug {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.Since != nil && o.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Backend defines the interface for storing and querying outcomes. Query
// returns newest first.
type Backend interface {
	Save(ctx context.Context, outcome *Outcome) error
	Query(ctx context.Context, filter Filter) ([]*Outcome, error)
	Close() error
}
