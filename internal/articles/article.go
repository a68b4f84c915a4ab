// Package articles models the blog articles held by the external article
// store and provides a client for its JSON API.
package articles

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrNotFound is returned when the store has no article for a slug.
var ErrNotFound = errors.New("articles: not found")

// Article is the pipeline's transient copy of a stored article. EnhancedContent
// and Citations are set exactly when IsEnhanced is true.
type Article struct {
	ID              int64           `json:"id"`
	Title           string          `json:"title"`
	Slug            string          `json:"slug"`
	URL             string          `json:"url"`
	Excerpt         string          `json:"excerpt,omitempty"`
	Content         string          `json:"content"`
	EnhancedContent string          `json:"enhanced_content,omitempty"`
	Author          string          `json:"author,omitempty"`
	ImageURL        string          `json:"image_url,omitempty"`
	PublishedAt     *time.Time      `json:"published_at,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	Citations       []string        `json:"citations,omitempty"`
	IsEnhanced      Flag            `json:"is_enhanced"`
	CreatedAt       *time.Time      `json:"created_at,omitempty"`
	UpdatedAt       *time.Time      `json:"updated_at,omitempty"`
}

// Enhancement is the update sent back to the store after a rewrite.
type Enhancement struct {
	EnhancedContent string   `json:"enhanced_content"`
	Citations       []string `json:"citations"`
	IsEnhanced      bool     `json:"is_enhanced"`
}

// ListOptions filters a List call. A nil IsEnhanced lists every article.
type ListOptions struct {
	IsEnhanced *bool
	PerPage    int
}

// Store is the subset of the article store the pipeline depends on.
type Store interface {
	List(ctx context.Context, opts ListOptions) ([]Article, error)
	Get(ctx context.Context, slug string) (*Article, error)
	UpdateEnhancement(ctx context.Context, slug string, e Enhancement) (*Article, error)
}

// Flag is a boolean that also decodes the 0/1 forms some backends emit.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	switch string(data) {
	case "null", "":
		*f = false
		return nil
	}
	v, err := strconv.ParseBool(string(data))
	if err != nil {
		return fmt.Errorf("articles: invalid boolean %q", data)
	}
	*f = Flag(v)
	return nil
}
