// Package pipeline runs the enhancement pipeline: it pulls pending articles
// from the store and takes each one through search, extraction, rewriting and
// persistence, isolating failures per article.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/FranksOps/quill/internal/articles"
	"github.com/FranksOps/quill/internal/citation"
	"github.com/FranksOps/quill/internal/enhance"
	"github.com/FranksOps/quill/internal/extract"
	"github.com/FranksOps/quill/internal/llm"
	"github.com/FranksOps/quill/internal/metrics"
	"github.com/FranksOps/quill/internal/report"
	"github.com/FranksOps/quill/internal/serp"
	"github.com/FranksOps/quill/internal/storage"
	"github.com/google/uuid"
)

const (
	DefaultLimit          = 5
	DefaultReferenceCount = 2
)

var (
	ErrNoSearchResults  = errors.New("no search results")
	ErrExtractionFailed = errors.New("extraction failed")
)

// Extractor turns reference URLs into content, dropping failures.
type Extractor interface {
	ExtractAll(ctx context.Context, urls []string) []*extract.Content
}

// Enhancer rewrites one article from its references.
type Enhancer interface {
	Enhance(ctx context.Context, original enhance.Original, refs []*extract.Content) (*enhance.Result, error)
}

// Deps are the collaborators of a Pipeline. History is optional.
type Deps struct {
	Store     articles.Store
	Search    serp.Provider
	Extractor Extractor
	Enhancer  Enhancer
	History   storage.Backend
	Logger    *slog.Logger
}

// Config tunes a Pipeline.
type Config struct {
	// ReferenceCount is how many search results are requested per article.
	ReferenceCount int
	// AppendCitations, when set to a citation format, appends a reference
	// block to the stored content. Empty stores the model output as is.
	AppendCitations string
}

// Options control a single Run.
type Options struct {
	// Limit caps how many candidates are processed; zero means DefaultLimit.
	Limit int
	// All includes articles that already have an enhanced version.
	All bool
}

// Pipeline orchestrates one enhancement run at a time.
type Pipeline struct {
	deps    Deps
	refs    int
	appendF string
	logger  *slog.Logger
	now     func() time.Time
}

// New builds a Pipeline. Store, Search, Extractor and Enhancer are required.
func New(deps Deps, cfg Config) (*Pipeline, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("pipeline: article store is required")
	case deps.Search == nil:
		return nil, errors.New("pipeline: search provider is required")
	case deps.Extractor == nil:
		return nil, errors.New("pipeline: extractor is required")
	case deps.Enhancer == nil:
		return nil, errors.New("pipeline: enhancer is required")
	}
	if cfg.ReferenceCount <= 0 {
		cfg.ReferenceCount = DefaultReferenceCount
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		deps:    deps,
		refs:    cfg.ReferenceCount,
		appendF: cfg.AppendCitations,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Run processes up to opts.Limit candidates sequentially and returns the run
// summary. Only a failure to fetch candidates is returned as an error; every
// per-article problem becomes an outcome in the summary.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*report.Summary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	summary := report.NewSummary(uuid.NewString(), p.now())
	logger := p.logger.With("run", summary.RunID)

	listOpts := articles.ListOptions{PerPage: limit}
	if !opts.All {
		pending := false
		listOpts.IsEnhanced = &pending
	}

	logger.Info("fetching candidate articles", "limit", limit, "all", opts.All)
	candidates, err := p.deps.Store.List(ctx, listOpts)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	found := len(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	summary.Total = len(candidates)
	logger.Info("candidates fetched", "count", found, "processing", summary.Total)

	for i := range candidates {
		a := &candidates[i]
		logger.Info("processing article", "index", i+1, "total", summary.Total, "slug", a.Slug, "title", a.Title)

		o := p.process(ctx, summary.RunID, a, opts)
		summary.Add(o)
		p.record(ctx, logger, o)
	}

	summary.Finish(p.now())
	logger.Info("pipeline finished",
		"total", summary.Total,
		"enhanced", summary.Enhanced,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"duration", summary.Duration)
	return summary, nil
}

// process takes one article through every stage and never returns an error;
// the outcome carries the status and the reason.
func (p *Pipeline) process(ctx context.Context, runID string, a *articles.Article, opts Options) *storage.Outcome {
	start := p.now()
	o := &storage.Outcome{
		ID:             uuid.NewString(),
		RunID:          runID,
		Slug:           a.Slug,
		Title:          a.Title,
		OriginalLength: utf8.RuneCountInString(a.Content),
	}
	finish := func(status storage.Status, err error) *storage.Outcome {
		o.Status = status
		if err != nil {
			o.Error = err.Error()
		}
		o.CreatedAt = p.now()
		o.Duration = o.CreatedAt.Sub(start)
		return o
	}

	switch {
	case ctx.Err() != nil:
		return finish(storage.StatusSkipped, fmt.Errorf("run cancelled: %w", ctx.Err()))
	case !opts.All && bool(a.IsEnhanced):
		return finish(storage.StatusSkipped, errors.New("already enhanced"))
	case strings.TrimSpace(a.Content) == "":
		return finish(storage.StatusSkipped, errors.New("no original content"))
	}

	o.Stage = storage.StageSearch
	stageStart := time.Now()
	found := p.deps.Search.SearchArticles(ctx, a.Title, p.refs)
	metrics.ObserveStage(storage.StageSearch, stageStart)
	if len(found.URLs) == 0 {
		err := ErrNoSearchResults
		if found.Err != nil {
			err = fmt.Errorf("%w: %v", ErrNoSearchResults, found.Err)
		}
		p.logger.Warn("article failed", "slug", a.Slug, "stage", o.Stage, "err", err)
		return finish(storage.StatusFailed, err)
	}
	p.logger.Info("references found", "slug", a.Slug, "count", len(found.URLs), "urls", found.URLs)

	o.Stage = storage.StageExtract
	stageStart = time.Now()
	refs := p.deps.Extractor.ExtractAll(ctx, found.URLs)
	metrics.ObserveStage(storage.StageExtract, stageStart)
	if len(refs) == 0 {
		p.logger.Warn("article failed", "slug", a.Slug, "stage", o.Stage, "err", ErrExtractionFailed)
		return finish(storage.StatusFailed, ErrExtractionFailed)
	}
	o.References = len(refs)

	o.Stage = storage.StageEnhance
	stageStart = time.Now()
	result, err := p.deps.Enhancer.Enhance(ctx, enhance.Original{Title: a.Title, Content: a.Content}, refs)
	metrics.ObserveStage(storage.StageEnhance, stageStart)
	if err != nil {
		p.logger.Error("article failed", "slug", a.Slug, "stage", o.Stage, "rejected", llm.IsRejection(err), "err", err)
		return finish(storage.StatusFailed, err)
	}
	o.Model = result.Model
	o.Tokens = result.Usage.TotalTokens

	content := result.Content
	if p.appendF != "" {
		content = citation.Append(content, result.Citations, p.appendF)
	}

	o.Stage = storage.StagePersist
	stageStart = time.Now()
	_, err = p.deps.Store.UpdateEnhancement(ctx, a.Slug, articles.Enhancement{
		EnhancedContent: content,
		Citations:       result.Citations,
	})
	metrics.ObserveStage(storage.StagePersist, stageStart)
	if err != nil {
		p.logger.Error("article failed", "slug", a.Slug, "stage", o.Stage, "err", err)
		return finish(storage.StatusFailed, err)
	}

	o.EnhancedLength = utf8.RuneCountInString(content)
	o.Citations = result.Citations
	p.logger.Info("article enhanced",
		"slug", a.Slug,
		"citations", len(o.Citations),
		"original_length", o.OriginalLength,
		"enhanced_length", o.EnhancedLength)
	return finish(storage.StatusEnhanced, nil)
}

// record counts the outcome and appends it to the history ledger. Ledger
// failures are logged and never change the outcome.
func (p *Pipeline) record(ctx context.Context, logger *slog.Logger, o *storage.Outcome) {
	metrics.ArticlesProcessed.WithLabelValues(string(o.Status)).Inc()

	if p.deps.History == nil {
		return
	}
	if err := p.deps.History.Save(context.WithoutCancel(ctx), o); err != nil {
		logger.Warn("history save failed", "slug", o.Slug, "err", err)
	}
}
