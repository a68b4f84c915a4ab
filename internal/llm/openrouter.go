package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/FranksOps/quill/internal/metrics"
	"github.com/FranksOps/quill/pkg/httpclient"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "google/gemini-2.0-flash-exp:free"
	DefaultReferer = "https://github.com/FranksOps/quill"
	DefaultTitle   = "Quill Article Enhancer"
)

// Config configures an OpenRouter client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	// Referer and Title identify the application to OpenRouter.
	Referer string
	Title   string
	// Timeout bounds each generation call; zero leaves it unbounded.
	Timeout time.Duration
	Logger  *slog.Logger
}

// OpenRouter talks to any OpenAI-compatible chat completions endpoint,
// OpenRouter by default.
type OpenRouter struct {
	client *openai.Client
	http   *httpclient.Client
	model  string
	logger *slog.Logger
}

var _ Generator = (*OpenRouter)(nil)

// doer adapts httpclient.Client to the go-openai transport interface.
type doer struct {
	client *httpclient.Client
}

func (d doer) Do(req *http.Request) (*http.Response, error) {
	return d.client.Do(req.Context(), req)
}

// NewOpenRouter builds a client. An empty API key is an error.
func NewOpenRouter(cfg Config) (*OpenRouter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Referer == "" {
		cfg.Referer = DefaultReferer
	}
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = httpclient.NoTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	hc, err := httpclient.New(httpclient.Config{
		Timeout: cfg.Timeout,
		Header: http.Header{
			"HTTP-Referer": {cfg.Referer},
			"X-Title":      {cfg.Title},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("llm: http client: %w", err)
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	oc.HTTPClient = doer{client: hc}

	return &OpenRouter{
		client: openai.NewClientWithConfig(oc),
		http:   hc,
		model:  cfg.Model,
		logger: cfg.Logger,
	}, nil
}

// Model returns the configured model identifier.
func (o *OpenRouter) Model() string {
	return o.model
}

// Generate sends req as a single user message and returns the first choice.
func (o *OpenRouter) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: wireTemperature(req.Temperature),
	})
	if err != nil {
		return nil, classify(err)
	}

	if len(resp.Choices) == 0 {
		return nil, ErrNoCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, fmt.Errorf("%w: empty message content", ErrNoCompletion)
	}

	model := resp.Model
	if model == "" {
		model = o.model
	}
	metrics.LLMTokens.WithLabelValues(model).Add(float64(resp.Usage.TotalTokens))
	o.logger.Debug("generation complete",
		"model", model,
		"chars", len(text),
		"tokens", resp.Usage.TotalTokens,
		"duration", time.Since(start))

	return &Response{
		Text:  text,
		Model: model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// Ping performs a tiny generation to prove credentials and model work.
func (o *OpenRouter) Ping(ctx context.Context) (*Response, error) {
	return o.Generate(ctx, Request{Prompt: `Say "Hello, I am working!"`, MaxTokens: 50})
}

// wireTemperature maps an explicit zero to the smallest positive float so
// the request's omitempty tag does not drop it.
func wireTemperature(t *float32) float32 {
	switch {
	case t == nil:
		return 0
	case *t == 0:
		return math.SmallestNonzeroFloat32
	}
	return *t
}

func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && rejected(apiErr.HTTPStatusCode) {
		return &RejectionError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && rejected(reqErr.HTTPStatusCode) {
		msg := reqErr.Error()
		if reqErr.Err != nil {
			msg = reqErr.Err.Error()
		}
		return &RejectionError{StatusCode: reqErr.HTTPStatusCode, Message: msg}
	}
	return fmt.Errorf("llm: generation failed: %w", err)
}
