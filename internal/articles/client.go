package articles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/FranksOps/quill/pkg/httpclient"
)

const DefaultBaseURL = "http://localhost:8000/api"

// envelope is the store's response wrapper. Only an explicit
// "success": false marks a failure.
type envelope[T any] struct {
	Success *bool  `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data"`
	Meta    *Meta  `json:"meta,omitempty"`
}

// Meta is the pagination block of a list response.
type Meta struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Client talks to the article store's REST API.
type Client struct {
	base   string
	http   *httpclient.Client
	logger *slog.Logger
}

// NewClient builds a Client. An empty BaseURL uses DefaultBaseURL.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("articles: base url: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	hc, err := httpclient.New(httpclient.Config{Timeout: cfg.Timeout})
	if err != nil {
		return nil, err
	}
	return &Client{base: cfg.BaseURL, http: hc, logger: cfg.Logger}, nil
}

// List returns one page of articles.
func (c *Client) List(ctx context.Context, opts ListOptions) ([]Article, error) {
	q := url.Values{}
	if opts.IsEnhanced != nil {
		if *opts.IsEnhanced {
			q.Set("is_enhanced", "1")
		} else {
			q.Set("is_enhanced", "0")
		}
	}
	if opts.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(opts.PerPage))
	}

	endpoint, err := c.endpoint("articles")
	if err != nil {
		return nil, err
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var env envelope[[]Article]
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &env); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	c.logger.Debug("listed articles", "count", len(env.Data))
	return env.Data, nil
}

// Get fetches a single article by slug.
func (c *Client) Get(ctx context.Context, slug string) (*Article, error) {
	endpoint, err := c.endpoint("articles", slug)
	if err != nil {
		return nil, err
	}

	var env envelope[Article]
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &env); err != nil {
		return nil, fmt.Errorf("get article %s: %w", slug, err)
	}
	return &env.Data, nil
}

// UpdateEnhancement stores e for slug and returns the updated article. The
// enhancement flag is always sent as true.
func (c *Client) UpdateEnhancement(ctx context.Context, slug string, e Enhancement) (*Article, error) {
	endpoint, err := c.endpoint("articles", slug)
	if err != nil {
		return nil, err
	}
	e.IsEnhanced = true
	if e.Citations == nil {
		e.Citations = []string{}
	}

	var env envelope[Article]
	if err := c.do(ctx, http.MethodPut, endpoint, e, &env); err != nil {
		return nil, fmt.Errorf("update article %s: %w", slug, err)
	}
	return &env.Data, nil
}

func (c *Client) endpoint(elem ...string) (string, error) {
	u, err := url.JoinPath(c.base, elem...)
	if err != nil {
		return "", fmt.Errorf("articles: build url: %w", err)
	}
	return u, nil
}

type unsuccessful interface {
	failed() (bool, string)
}

func (e *envelope[T]) failed() (bool, string) {
	return e.Success != nil && !*e.Success, e.Message
}

func (c *Client) do(ctx context.Context, method, endpoint string, in any, out unsuccessful) error {
	err := c.http.DoJSON(ctx, method, endpoint, in, out)
	var se *httpclient.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if failed, msg := out.failed(); failed {
		if msg == "" {
			msg = "request unsuccessful"
		}
		return fmt.Errorf("articles: %s", msg)
	}
	return nil
}
