package pipeline

import (
	"context"
	"fmt"

	"github.com/FranksOps/quill/internal/articles"
	"github.com/FranksOps/quill/internal/llm"
	"github.com/FranksOps/quill/internal/serp"
	"golang.org/x/sync/errgroup"
)

// Pinger proves a generative model is reachable.
type Pinger interface {
	Ping(ctx context.Context) (*llm.Response, error)
}

// Check is the result of one connectivity check.
type Check struct {
	Name   string
	Detail string
	Err    error
}

// Passed reports whether the check succeeded.
func (c Check) Passed() bool { return c.Err == nil }

// CheckComponents checks the article store, the search provider and the
// model concurrently and returns one Check per component in that order. A
// search that finds nothing still passes; only the store and the model can
// fail.
func CheckComponents(ctx context.Context, store articles.Store, search serp.Provider, model Pinger) []Check {
	checks := []Check{{Name: "Article API"}, {Name: "Search"}, {Name: "LLM"}}

	var g errgroup.Group
	g.Go(func() error {
		list, err := store.List(ctx, articles.ListOptions{PerPage: 1})
		if err != nil {
			checks[0].Err = err
			return nil
		}
		checks[0].Detail = fmt.Sprintf("%d article(s) listed", len(list))
		return nil
	})
	g.Go(func() error {
		res := search.Search(ctx, "test query", 1)
		checks[1].Detail = fmt.Sprintf("%d result(s)", len(res.URLs))
		if res.Err != nil {
			checks[1].Detail += fmt.Sprintf(" (%v)", res.Err)
		}
		return nil
	})
	g.Go(func() error {
		resp, err := model.Ping(ctx)
		if err != nil {
			checks[2].Err = err
			return nil
		}
		checks[2].Detail = fmt.Sprintf("%s replied %q", resp.Model, resp.Text)
		return nil
	})
	_ = g.Wait()

	return checks
}
