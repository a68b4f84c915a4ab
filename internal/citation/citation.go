// Package citation renders lists of reference URLs as appendices to article
// text. Everything here is pure: no I/O, and the same input always renders the
// same bytes.
package citation

import (
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"
)

// Supported formats. Unknown names fall back to Markdown.
const (
	Markdown = "markdown"
	HTML     = "html"
	Plain    = "plain"
	JSON     = "json"
)

// Entry is the structured form of one citation.
type Entry struct {
	ID     int    `json:"id"`
	URL    string `json:"url"`
	Domain string `json:"domain"`
	Title  string `json:"title"`
}

var extension = regexp.MustCompile(`\.[^/.]+$`)

// FormatMarkdown renders a numbered "References" section with domain-labelled links.
func FormatMarkdown(urls []string) string {
	if len(urls) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n## References\n\n")
	for i, u := range urls {
		fmt.Fprintf(&b, "%d. [%s](%s)\n", i+1, Domain(u), u)
	}
	return b.String()
}

// FormatHTML renders an ordered list inside a citations div.
func FormatHTML(urls []string) string {
	if len(urls) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n<div class=\"citations\">\n<h3>References</h3>\n<ol>\n")
	for _, u := range urls {
		fmt.Fprintf(&b, "  <li><a href=\"%s\" target=\"_blank\" rel=\"noopener\">%s</a></li>\n",
			html.EscapeString(u), html.EscapeString(Domain(u)))
	}
	b.WriteString("</ol>\n</div>\n")
	return b.String()
}

// FormatPlain renders bracket-numbered raw URLs.
func FormatPlain(urls []string) string {
	if len(urls) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nReferences:\n")
	for i, u := range urls {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, u)
	}
	return b.String()
}

// Format renders urls in the named format.
func Format(urls []string, format string) string {
	switch strings.ToLower(format) {
	case HTML:
		return FormatHTML(urls)
	case Plain:
		return FormatPlain(urls)
	case JSON:
		return FormatJSON(urls)
	default:
		return FormatMarkdown(urls)
	}
}

// FormatJSON renders Entries as an indented JSON array followed by a newline.
func FormatJSON(urls []string) string {
	b, err := json.MarshalIndent(Entries(urls), "", "  ")
	if err != nil {
		return "[]\n"
	}
	return string(b) + "\n"
}

// Append returns content followed by the citation appendix. Content is
// returned untouched when there is nothing to cite.
func Append(content string, urls []string, format string) string {
	if len(urls) == 0 {
		return content
	}
	return content + Format(urls, format)
}

// Entries converts urls into structured citations numbered from 1.
func Entries(urls []string) []Entry {
	entries := make([]Entry, 0, len(urls))
	for i, u := range urls {
		entries = append(entries, Entry{
			ID:     i + 1,
			URL:    u,
			Domain: Domain(u),
			Title:  Title(u),
		})
	}
	return entries
}

// Domain is the lowercased host of raw without a leading "www.". Strings that
// are not absolute URLs are returned as given.
func Domain(raw string) string {
	u, ok := parse(raw)
	if !ok {
		return raw
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// Title guesses a readable title from the last path segment of raw, e.g.
// "/blog/go-concurrency_tips.html" becomes "Go Concurrency Tips". URLs without
// a path yield their Domain.
func Title(raw string) string {
	u, ok := parse(raw)
	if !ok {
		return raw
	}

	var last string
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			last = seg
		}
	}
	if last == "" {
		return Domain(raw)
	}

	last = strings.NewReplacer("-", " ", "_", " ").Replace(last)
	last = extension.ReplaceAllString(last, "")

	words := strings.Split(last, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}

func parse(raw string) (*url.URL, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, false
	}
	return u, true
}
