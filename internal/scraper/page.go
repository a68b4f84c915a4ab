package scraper

import (
	"errors"
	"fmt"
	"time"
)

// Page is the outcome of a single fetch. A fetch never returns a Go error;
// transport problems land in Error and blocked responses in DetectionSrc.
type Page struct {
	ID           string
	URL          string
	FinalURL     string
	StatusCode   int
	Header       map[string][]string
	Body         []byte
	Duration     time.Duration
	DetectedBot  bool
	DetectionSrc string // e.g. "Cloudflare", "Akamai", "PerimeterX", "DataDome", "Google"
	CreatedAt    time.Time
	Error        string // non-empty if the fetch failed before a usable response
}

// ErrBlocked marks a response recognized as a bot challenge.
var ErrBlocked = errors.New("blocked by bot protection")

// Err condenses the page into a single error: transport failure, bot
// challenge or non-2xx status. A nil result means the body is usable.
func (p *Page) Err() error {
	switch {
	case p == nil:
		return errors.New("no page")
	case p.Error != "":
		return errors.New(p.Error)
	case p.DetectedBot:
		return fmt.Errorf("%w: %s", ErrBlocked, p.DetectionSrc)
	case p.StatusCode < 200 || p.StatusCode > 299:
		return fmt.Errorf("unexpected status %d", p.StatusCode)
	}
	return nil
}
