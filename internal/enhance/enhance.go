package enhance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/quill/internal/extract"
	"github.com/FranksOps/quill/internal/llm"
	"github.com/FranksOps/quill/pkg/ratelimit"
)

const (
	DefaultMaxTokens   = 4000
	DefaultTemperature = 0.7
)

// ErrNoReferences is returned when Enhance is called without reference material.
var ErrNoReferences = errors.New("enhance: no reference content")

// Original is the article being rewritten.
type Original struct {
	Title   string
	Content string
}

// Result is a successful rewrite. Citations are the reference URLs in the
// order the references were supplied.
type Result struct {
	Content    string    `json:"enhanced_content"`
	Citations  []string  `json:"citations"`
	EnhancedAt time.Time `json:"enhanced_at"`
	Model      string    `json:"model"`
	Usage      llm.Usage `json:"usage"`
}

// Job is one unit of work for EnhanceMultiple.
type Job struct {
	Original   Original
	References []*extract.Content
}

// BatchResult is the outcome of one Job.
type BatchResult struct {
	Index  int
	Job    Job
	Result *Result
	Err    error
}

// Config configures an Enhancer.
type Config struct {
	MaxTokens int
	// Temperature defaults to DefaultTemperature when nil; zero is honored.
	Temperature *float32
	// Limiter paces consecutive generation calls; nil disables pacing.
	Limiter *ratelimit.Limiter
	Logger  *slog.Logger
}

// Enhancer rewrites articles with a generative model using reference pages as context.
type Enhancer struct {
	gen         llm.Generator
	maxTokens   int
	temperature float32
	limiter     *ratelimit.Limiter
	logger      *slog.Logger
	now         func() time.Time
}

// New builds an Enhancer over gen.
func New(gen llm.Generator, cfg Config) *Enhancer {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	temperature := float32(DefaultTemperature)
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Enhancer{
		gen:         gen,
		maxTokens:   cfg.MaxTokens,
		temperature: temperature,
		limiter:     cfg.Limiter,
		logger:      cfg.Logger,
		now:         time.Now,
	}
}

// Enhance rewrites original informed by refs. Model failures are returned
// unchanged in kind so callers can tell rejections from transport errors.
func (e *Enhancer) Enhance(ctx context.Context, original Original, refs []*extract.Content) (*Result, error) {
	if len(refs) == 0 {
		return nil, ErrNoReferences
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	prompt := BuildPrompt(original.Title, original.Content, BuildContext(refs))

	e.logger.Info("enhancing article", "title", original.Title, "model", e.gen.Model(), "references", len(refs))

	resp, err := e.gen.Generate(ctx, llm.Request{
		Prompt:      prompt,
		MaxTokens:   e.maxTokens,
		Temperature: &e.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("enhance %q: %w", original.Title, err)
	}

	citations := make([]string, len(refs))
	for i, ref := range refs {
		citations[i] = ref.URL
	}

	e.logger.Info("enhancement generated", "title", original.Title, "chars", len(resp.Text), "tokens", resp.Usage.TotalTokens)

	return &Result{
		Content:    resp.Text,
		Citations:  citations,
		EnhancedAt: e.now().UTC(),
		Model:      resp.Model,
		Usage:      resp.Usage,
	}, nil
}

// EnhanceMultiple runs jobs sequentially. Every job yields a BatchResult;
// failures do not stop the batch.
func (e *Enhancer) EnhanceMultiple(ctx context.Context, jobs []Job) []BatchResult {
	results := make([]BatchResult, 0, len(jobs))
	for i, job := range jobs {
		br := BatchResult{Index: i, Job: job}
		br.Result, br.Err = e.Enhance(ctx, job.Original, job.References)
		if br.Err != nil {
			e.logger.Error("enhancement failed", "title", job.Original.Title, "err", br.Err)
		}
		results = append(results, br)
	}
	return results
}
