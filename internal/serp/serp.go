package serp

import (
	"context"
	"strings"
)

// Result is the outcome of one search. URLs is never longer than the
// requested maximum; when it is empty Err may explain why. Search failures
// are reported here instead of as Go errors so callers treat "nothing
// found" and "search broke" the same way.
type Result struct {
	Query string   `json:"query"`
	URLs  []string `json:"urls"`
	Err   error    `json:"-"`
}

// Provider abstracts a search engine that returns candidate reference URLs.
type Provider interface {
	// Search runs query as given.
	Search(ctx context.Context, query string, max int) Result
	// SearchArticles biases query toward long-form written content.
	SearchArticles(ctx context.Context, title string, max int) Result
}

// DefaultExclusions are substrings that disqualify a result URL: social
// networks, marketplaces, encyclopedias and the engine's own pages.
var DefaultExclusions = []string{
	"google.com",
	"youtube.com",
	"facebook.com",
	"twitter.com",
	"instagram.com",
	"linkedin.com",
	"reddit.com",
	"pinterest.com",
	"amazon.com",
	"ebay.com",
	"wikipedia.org",
	"/search?",
	"/url?",
	"accounts.google",
	"support.google",
	"policies.google",
	"maps.google",
	"news.google",
	"shopping.google",
}

// Filter decides which raw result links are acceptable references.
type Filter struct {
	exclusions []string
}

// NewFilter builds a filter over the given exclusion substrings, matched
// case-insensitively. A nil slice selects DefaultExclusions.
func NewFilter(exclusions []string) Filter {
	if exclusions == nil {
		exclusions = DefaultExclusions
	}
	lowered := make([]string, 0, len(exclusions))
	for _, e := range exclusions {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			lowered = append(lowered, e)
		}
	}
	return Filter{exclusions: lowered}
}

// Accept reports whether raw is an http(s) URL free of excluded substrings.
func (f Filter) Accept(raw string) bool {
	if raw == "" {
		return false
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return false
	}
	lower := strings.ToLower(raw)
	for _, e := range f.exclusions {
		if strings.Contains(lower, e) {
			return false
		}
	}
	return true
}

// Collector accumulates accepted URLs in discovery order, dropping exact
// duplicates, until max is reached.
type Collector struct {
	filter Filter
	max    int
	seen   map[string]struct{}
	urls   []string
}

func newCollector(f Filter, max int) *Collector {
	return &Collector{filter: f, max: max, seen: make(map[string]struct{})}
}

// Offer considers one candidate and reports whether it was kept.
func (c *Collector) Offer(raw string) bool {
	if c.Full() || !c.filter.Accept(raw) {
		return false
	}
	if _, dup := c.seen[raw]; dup {
		return false
	}
	c.seen[raw] = struct{}{}
	c.urls = append(c.urls, raw)
	return true
}

// Full reports whether max URLs have been collected.
func (c *Collector) Full() bool {
	return len(c.urls) >= c.max
}

// URLs returns the collected list.
func (c *Collector) URLs() []string {
	out := make([]string, len(c.urls))
	copy(out, c.urls)
	return out
}
