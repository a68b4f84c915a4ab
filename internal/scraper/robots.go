package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsAuditor fetches, caches and evaluates robots.txt per host.
// Hosts whose robots.txt is missing or unreadable are treated as open.
type RobotsAuditor struct {
	fetcher *Fetcher
	agent   string
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string]*robotstxt.RobotsData
}

// NewRobotsAuditor evaluates rules for the given agent token (e.g. "quill").
func NewRobotsAuditor(fetcher *Fetcher, agent string, logger *slog.Logger) *RobotsAuditor {
	if logger == nil {
		logger = slog.Default()
	}
	if agent == "" {
		agent = "*"
	}
	return &RobotsAuditor{
		fetcher: fetcher,
		agent:   agent,
		logger:  logger,
		cache:   make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether targetURL may be fetched under its host's robots.txt.
func (r *RobotsAuditor) Allowed(ctx context.Context, targetURL string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("invalid url: %w", err)
	}
	if u.Host == "" {
		return false, fmt.Errorf("invalid url: missing host in %q", targetURL)
	}

	data := r.rules(ctx, u.Scheme+"://"+u.Host)
	if data == nil {
		return true, nil
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.FindGroup(r.agent).Test(path), nil
}

func (r *RobotsAuditor) rules(ctx context.Context, origin string) *robotstxt.RobotsData {
	r.mu.Lock()
	defer r.mu.Unlock()

	if data, ok := r.cache[origin]; ok {
		return data
	}

	data, err := r.load(ctx, origin)
	if err != nil {
		r.logger.Debug("robots.txt unavailable, defaulting to allow", "host", origin, "err", err)
	}
	r.cache[origin] = data
	return data
}

func (r *RobotsAuditor) load(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	page := r.fetcher.Fetch(ctx, origin+"/robots.txt")
	if page.Error != "" {
		return nil, fmt.Errorf("fetch error: %s", page.Error)
	}
	if page.StatusCode >= 400 {
		return nil, nil
	}

	parsed, err := robotstxt.FromBytes(page.Body)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return parsed, nil
}
