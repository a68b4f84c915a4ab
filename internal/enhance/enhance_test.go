package enhance

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/quill/internal/extract"
	"github.com/FranksOps/quill/internal/llm"
	"github.com/FranksOps/quill/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	requests []llm.Request
	reply    func(req llm.Request) (*llm.Response, error)
}

func (f *fakeGenerator) Model() string { return "fake/model" }

func (f *fakeGenerator) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.requests = append(f.requests, req)
	if f.reply != nil {
		return f.reply(req)
	}
	return &llm.Response{Text: "Rewritten body.", Model: "fake/model", Usage: llm.Usage{TotalTokens: 42}}, nil
}

func refs() []*extract.Content {
	return []*extract.Content{
		{URL: "https://a.dev/one", Title: "Ref One", Body: strings.Repeat("a", 2500)},
		{URL: "https://b.dev/two", Title: "Ref Two", Body: "short body"},
	}
}

func TestBuildContext(t *testing.T) {
	ctx := BuildContext(refs())

	assert.Contains(t, ctx, "--- Top Ranking Article 1 ---\nTitle: Ref One\nContent: "+strings.Repeat("a", 2000)+"...\nURL: https://a.dev/one\n")
	assert.NotContains(t, ctx, strings.Repeat("a", 2001))
	assert.Contains(t, ctx, "--- Top Ranking Article 2 ---\nTitle: Ref Two\nContent: short body...\nURL: https://b.dev/two\n")
	assert.Less(t, strings.Index(ctx, "Ref One"), strings.Index(ctx, "Ref Two"))
}

func TestBuildContext_TruncatesByCharacter(t *testing.T) {
	body := strings.Repeat("é", 2100)
	ctx := BuildContext([]*extract.Content{{URL: "u", Title: "t", Body: body}})
	assert.Contains(t, ctx, "Content: "+strings.Repeat("é", 2000)+"...\n")
}

func TestTargetLength(t *testing.T) {
	assert.Equal(t, 1000, TargetLength("short"))
	assert.Equal(t, 1000, TargetLength(strings.Repeat("x", 666)))
	assert.Equal(t, 1500, TargetLength(strings.Repeat("x", 1000)))
	assert.Equal(t, 3001, TargetLength(strings.Repeat("x", 2001)))
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("My Title", "Full original content.", "CONTEXT BLOCK")

	assert.Contains(t, p, "Title: My Title\nContent: Full original content.")
	assert.Contains(t, p, "CONTEXT BLOCK")
	assert.Contains(t, p, "Do NOT plagiarize")
	assert.Contains(t, p, "Aim for approximately 1000 characters")
	assert.Contains(t, p, "Provide ONLY the enhanced article content")
}

func TestEnhance(t *testing.T) {
	gen := &fakeGenerator{}
	e := New(gen, Config{})

	res, err := e.Enhance(context.Background(), Original{Title: "Go Tips", Content: "Use gofmt."}, refs())
	require.NoError(t, err)

	assert.Equal(t, "Rewritten body.", res.Content)
	assert.Equal(t, []string{"https://a.dev/one", "https://b.dev/two"}, res.Citations)
	assert.Equal(t, 42, res.Usage.TotalTokens)
	assert.Equal(t, "fake/model", res.Model)
	assert.False(t, res.EnhancedAt.IsZero())

	require.Len(t, gen.requests, 1)
	req := gen.requests[0]
	assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, DefaultTemperature, *req.Temperature, 0.0001)
	assert.Contains(t, req.Prompt, "Title: Go Tips\nContent: Use gofmt.")
	assert.Contains(t, req.Prompt, "URL: https://b.dev/two")
}

func TestEnhance_ZeroTemperatureIsKept(t *testing.T) {
	gen := &fakeGenerator{}
	zero := float32(0)
	e := New(gen, Config{Temperature: &zero})

	_, err := e.Enhance(context.Background(), Original{Title: "Go Tips", Content: "Use gofmt."}, refs())
	require.NoError(t, err)

	require.Len(t, gen.requests, 1)
	require.NotNil(t, gen.requests[0].Temperature)
	assert.Zero(t, *gen.requests[0].Temperature)
}

func TestEnhance_NoReferences(t *testing.T) {
	gen := &fakeGenerator{}
	_, err := New(gen, Config{}).Enhance(context.Background(), Original{Title: "x"}, nil)

	assert.ErrorIs(t, err, ErrNoReferences)
	assert.Empty(t, gen.requests)
}

func TestEnhance_PropagatesModelError(t *testing.T) {
	gen := &fakeGenerator{reply: func(llm.Request) (*llm.Response, error) {
		return nil, &llm.RejectionError{StatusCode: 429, Message: "rate limited"}
	}}

	_, err := New(gen, Config{}).Enhance(context.Background(), Original{Title: "x"}, refs())

	require.Error(t, err)
	assert.True(t, llm.IsRejection(err))
}

func TestEnhanceMultiple_CollectsFailures(t *testing.T) {
	gen := &fakeGenerator{reply: func(req llm.Request) (*llm.Response, error) {
		if strings.Contains(req.Prompt, "Title: Bad") {
			return nil, errors.New("connection reset")
		}
		return &llm.Response{Text: "ok"}, nil
	}}
	e := New(gen, Config{})

	jobs := []Job{
		{Original: Original{Title: "Good"}, References: refs()},
		{Original: Original{Title: "Bad"}, References: refs()},
		{Original: Original{Title: "Also Good"}, References: refs()},
	}
	results := e.EnhanceMultiple(context.Background(), jobs)

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.ErrorContains(t, results[1].Err, "connection reset")
	assert.Equal(t, 1, results[1].Index)
	assert.Equal(t, "ok", results[2].Result.Content)
	assert.Len(t, gen.requests, 3)
}

func TestEnhance_WaitsOnLimiter(t *testing.T) {
	gen := &fakeGenerator{}
	e := New(gen, Config{Limiter: ratelimit.NewLimiter(time.Hour, 0)})

	_, err := e.Enhance(context.Background(), Original{Title: "first"}, refs())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = e.Enhance(ctx, Original{Title: "second"}, refs())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, gen.requests, 1)
}
