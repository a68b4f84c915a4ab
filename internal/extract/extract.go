package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/FranksOps/quill/internal/metrics"
	"github.com/FranksOps/quill/internal/scraper"
	"github.com/FranksOps/quill/pkg/ratelimit"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// Untitled is the title of pages that expose none.
const Untitled = "Untitled"

var (
	ErrNoContent  = errors.New("no readable content")
	ErrDisallowed = errors.New("disallowed by robots.txt")
)

// Content is the readable material pulled from one reference page.
type Content struct {
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Body          string    `json:"content"`
	Author        string    `json:"author,omitempty"`
	PublishedDate string    `json:"published_date,omitempty"`
	ExtractedAt   time.Time `json:"extracted_at"`
}

// Result pairs a URL with its extraction outcome.
type Result struct {
	URL     string
	Content *Content
	Err     error
}

// PageFetcher is the slice of scraper.Fetcher the extractor needs.
type PageFetcher interface {
	Fetch(ctx context.Context, targetURL string) *scraper.Page
}

// RobotsChecker gates fetches on robots.txt.
type RobotsChecker interface {
	Allowed(ctx context.Context, targetURL string) (bool, error)
}

// Config configures an Extractor.
type Config struct {
	// Limiter paces consecutive extractions in a batch; nil disables pacing.
	Limiter *ratelimit.Limiter
	// Robots, when set, skips pages the host disallows.
	Robots RobotsChecker
	// DisableReadability turns off the readability fallback for author and date.
	DisableReadability bool
	Logger             *slog.Logger
}

// Extractor fetches reference pages and distills title, body, author and date.
type Extractor struct {
	fetcher     PageFetcher
	limiter     *ratelimit.Limiter
	robots      RobotsChecker
	readability bool
	logger      *slog.Logger
	now         func() time.Time
}

// New builds an Extractor over fetcher.
func New(fetcher PageFetcher, cfg Config) *Extractor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Extractor{
		fetcher:     fetcher,
		limiter:     cfg.Limiter,
		robots:      cfg.Robots,
		readability: !cfg.DisableReadability,
		logger:      cfg.Logger,
		now:         time.Now,
	}
}

// Extract fetches pageURL and returns its readable content. Any failure,
// from transport to an empty page, is returned as an error.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (*Content, error) {
	start := time.Now()
	defer metrics.ObserveStage("extract_page", start)

	if e.robots != nil {
		allowed, err := e.robots.Allowed(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", pageURL, err)
		}
		if !allowed {
			return nil, fmt.Errorf("extract %s: %w", pageURL, ErrDisallowed)
		}
	}

	page := e.fetcher.Fetch(ctx, pageURL)
	if err := page.Err(); err != nil {
		return nil, fmt.Errorf("extract %s: %w", pageURL, err)
	}

	content, err := e.Parse(pageURL, page.Body)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", pageURL, err)
	}

	e.logger.Debug("extracted", "url", pageURL, "title", content.Title, "chars", utf8.RuneCountInString(content.Body))
	return content, nil
}

// Parse distills already-fetched HTML. Metadata is read before non-content
// regions are stripped so bylines inside headers still count.
func (e *Extractor) Parse(pageURL string, html []byte) (*Content, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	c := &Content{
		URL:           pageURL,
		Title:         firstMatch(doc, titleChain),
		Author:        firstMatch(doc, authorChain),
		PublishedDate: firstMatch(doc, publishedChain),
		ExtractedAt:   e.now().UTC(),
	}
	if c.Title == "" {
		c.Title = Untitled
	}
	if e.readability && (c.Author == "" || c.PublishedDate == "") {
		e.fillFromReadability(c, html)
	}

	doc.Find(nonContent).Remove()
	c.Body = mainText(doc)
	if c.Body == "" {
		return nil, ErrNoContent
	}
	return c, nil
}

func mainText(doc *goquery.Document) string {
	for _, sel := range bodyContainers {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if utf8.RuneCountInString(text) > minBodyRunes {
			return Normalize(text)
		}
	}
	return Normalize(doc.Find("body").Text())
}

func (e *Extractor) fillFromReadability(c *Content, html []byte) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return
	}
	parser := readability.NewParser()
	article, err := parser.Parse(bytes.NewReader(html), u)
	if err != nil {
		e.logger.Debug("readability fallback failed", "url", c.URL, "err", err)
		return
	}
	if c.Author == "" {
		c.Author = strings.TrimSpace(article.Byline)
	}
	if c.PublishedDate == "" && article.PublishedTime != nil {
		c.PublishedDate = article.PublishedTime.Format(time.RFC3339)
	}
}

// ExtractEach extracts every URL sequentially, waiting on the limiter
// between attempts, and reports one Result per input in order.
func (e *Extractor) ExtractEach(ctx context.Context, urls []string) []Result {
	results := make([]Result, 0, len(urls))
	for _, u := range urls {
		if err := e.limiter.Wait(ctx); err != nil {
			results = append(results, Result{URL: u, Err: err})
			continue
		}
		content, err := e.Extract(ctx, u)
		if err != nil {
			e.logger.Warn("extraction failed", "url", u, "err", err)
		}
		results = append(results, Result{URL: u, Content: content, Err: err})
	}
	return results
}

// ExtractAll extracts every URL and keeps only the successes, in input order.
func (e *Extractor) ExtractAll(ctx context.Context, urls []string) []*Content {
	var out []*Content
	for _, r := range e.ExtractEach(ctx, urls) {
		if r.Err == nil {
			out = append(out, r.Content)
		}
	}
	return out
}
