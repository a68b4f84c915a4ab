package serp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/FranksOps/quill/internal/metrics"
	"github.com/FranksOps/quill/internal/scraper"
	"github.com/PuerkitoBio/goquery"
)

const (
	DefaultSearchURL = "https://www.google.com/search"
	articleSuffix    = " blog article"
	minRawResults    = 10
)

// resultSelectors are tried in order; the last one is a catch-all for
// markup changes on the results page.
var resultSelectors = []string{
	`div.g a[href^="http"]`,
	`div.yuRUbf a[href^="http"]`,
	`a[href^="http"]`,
}

// PageFetcher is the slice of scraper.Fetcher the search provider needs.
type PageFetcher interface {
	Fetch(ctx context.Context, targetURL string) *scraper.Page
}

// GoogleConfig configures a Google provider.
type GoogleConfig struct {
	// BaseURL of the results page; defaults to DefaultSearchURL.
	BaseURL string
	// Exclusions override DefaultExclusions when non-nil.
	Exclusions []string
	Logger     *slog.Logger
}

// Google scrapes the public results page of the search engine.
type Google struct {
	fetcher PageFetcher
	baseURL string
	filter  Filter
	logger  *slog.Logger
}

var _ Provider = (*Google)(nil)

// NewGoogle builds a provider that fetches result pages through fetcher.
func NewGoogle(fetcher PageFetcher, cfg GoogleConfig) *Google {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultSearchURL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Google{
		fetcher: fetcher,
		baseURL: cfg.BaseURL,
		filter:  NewFilter(cfg.Exclusions),
		logger:  cfg.Logger,
	}
}

// SearchArticles searches for title with a suffix favoring blog posts and articles.
func (g *Google) SearchArticles(ctx context.Context, title string, max int) Result {
	return g.Search(ctx, title+articleSuffix, max)
}

// Search fetches one results page for query and returns up to max
// acceptable reference URLs in page order.
func (g *Google) Search(ctx context.Context, query string, max int) Result {
	res := Result{Query: query, URLs: []string{}}
	if max <= 0 {
		return res
	}

	searchURL, err := g.searchURL(query, max)
	if err != nil {
		res.Err = err
		return res
	}

	g.logger.Debug("searching", "query", query, "max", max)

	page := g.fetcher.Fetch(ctx, searchURL)
	if err := page.Err(); err != nil {
		res.Err = fmt.Errorf("search %q: %w", query, err)
		g.logger.Warn("search failed", "query", query, "err", res.Err)
		metrics.SearchResults.Observe(0)
		return res
	}

	res.URLs, err = g.parse(page.Body, max)
	if err != nil {
		res.Err = fmt.Errorf("parse results for %q: %w", query, err)
		g.logger.Warn("search failed", "query", query, "err", res.Err)
	}
	metrics.SearchResults.Observe(float64(len(res.URLs)))
	g.logger.Info("search complete", "query", query, "count", len(res.URLs))
	return res
}

func (g *Google) searchURL(query string, max int) (string, error) {
	u, err := url.Parse(g.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid search url %q: %w", g.baseURL, err)
	}
	raw := max * 5
	if raw < minRawResults {
		raw = minRawResults
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("num", strconv.Itoa(raw))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (g *Google) parse(body []byte, max int) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return []string{}, err
	}

	c := newCollector(g.filter, max)
	for _, sel := range resultSelectors {
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, _ := s.Attr("href")
			c.Offer(href)
			return !c.Full()
		})
		if c.Full() {
			break
		}
	}
	return c.URLs(), nil
}
