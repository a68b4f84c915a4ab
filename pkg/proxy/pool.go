package proxy

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

var (
	ErrNilProxy     = errors.New("proxy: url cannot be nil")
	ErrUnknownProxy = errors.New("proxy: not found in pool")
)

// Endpoint is a single proxy with health tracking.
type Endpoint struct {
	URL           *url.URL
	Failures      int
	Successes     int
	LastUsed      time.Time
	DisabledUntil time.Time
}

func (e *Endpoint) disabled(now time.Time) bool {
	return !e.DisabledUntil.IsZero() && now.Before(e.DisabledUntil)
}

// Config defines settings for the Pool.
type Config struct {
	// MaxFailures before disabling a proxy temporarily.
	MaxFailures int
	// Cooldown is how long a proxy remains disabled after hitting MaxFailures.
	Cooldown time.Duration
}

// Pool rotates through proxies, skipping those cooling down after repeated failures.
type Pool struct {
	mu          sync.Mutex
	endpoints   []*Endpoint
	next        int
	maxFailures int
	cooldown    time.Duration
}

// NewPool creates a new proxy pool. Zero config values get defaults.
func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Pool{
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Cooldown,
	}
}

// LoadFile reads proxies from a file, one URL per line.
// Blank lines and lines starting with '#' are ignored.
func (p *Pool) LoadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("proxy: open list: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var urls []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("proxy: read list: %w", err)
	}

	return p.Add(urls...)
}

// Add parses raw URL strings and adds them to the pool. A missing scheme defaults to http.
func (p *Pool) Add(rawURLs ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, raw := range rawURLs {
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("proxy: parse %q: %w", raw, err)
		}
		p.endpoints = append(p.endpoints, &Endpoint{URL: u})
	}
	return nil
}

// Len reports how many proxies the pool holds, healthy or not.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.endpoints)
}

// Next returns the next healthy proxy URL, or nil when the pool is empty
// or every proxy is cooling down.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for range p.endpoints {
		ep := p.endpoints[p.next]
		p.next = (p.next + 1) % len(p.endpoints)

		if !ep.DisabledUntil.IsZero() && !ep.disabled(now) {
			// cooldown over; start fresh
			ep.DisabledUntil = time.Time{}
			ep.Failures = 0
		}
		if ep.disabled(now) {
			continue
		}
		ep.LastUsed = now
		return ep.URL
	}
	return nil
}

// MarkSuccess records a successful request through proxyURL.
func (p *Pool) MarkSuccess(proxyURL *url.URL) error {
	return p.mark(proxyURL, func(ep *Endpoint) {
		ep.Successes++
		if ep.Failures > 0 {
			ep.Failures--
		}
	})
}

// MarkFailure records a failure through proxyURL. Reaching MaxFailures
// disables the proxy for the cooldown period.
func (p *Pool) MarkFailure(proxyURL *url.URL) error {
	return p.mark(proxyURL, func(ep *Endpoint) {
		ep.Failures++
		if ep.Failures >= p.maxFailures {
			ep.DisabledUntil = time.Now().Add(p.cooldown)
		}
	})
}

func (p *Pool) mark(proxyURL *url.URL, update func(*Endpoint)) error {
	if proxyURL == nil {
		return ErrNilProxy
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	target := proxyURL.String()
	for _, ep := range p.endpoints {
		if ep.URL.String() == target {
			update(ep)
			return nil
		}
	}
	return ErrUnknownProxy
}
