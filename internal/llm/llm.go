package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMissingAPIKey = errors.New("llm: api key is required")
	ErrNoCompletion  = errors.New("llm: no completion returned")
)

// Request is a single-turn generation request.
type Request struct {
	Prompt string
	// MaxTokens caps the completion; zero leaves it to the provider.
	MaxTokens int
	// Temperature is left to the provider when nil.
	Temperature *float32
}

// Usage is the token accounting reported by the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response carries the first completion and its accounting.
type Response struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Usage Usage  `json:"usage"`
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Model() string
}

// RejectionError reports that the provider refused the request outright:
// bad credentials, exhausted credit or quota, or rate limiting.
type RejectionError struct {
	StatusCode int
	Message    string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("llm: upstream rejected request (%d %s): %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// IsRejection reports whether err is a provider rejection.
func IsRejection(err error) bool {
	var rej *RejectionError
	return errors.As(err, &rej)
}

func rejected(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusPaymentRequired, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	}
	return false
}
