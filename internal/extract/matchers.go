package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// matcher returns a candidate value from doc, or "" when it finds nothing.
type matcher func(doc *goquery.Document) string

// firstMatch walks an ordered chain and returns the first non-empty candidate.
func firstMatch(doc *goquery.Document, chain []matcher) string {
	for _, m := range chain {
		if v := m(doc); v != "" {
			return v
		}
	}
	return ""
}

func metaContent(selector string) matcher {
	return func(doc *goquery.Document) string {
		v, _ := doc.Find(selector).First().Attr("content")
		return strings.TrimSpace(v)
	}
}

func elementText(selector string) matcher {
	return func(doc *goquery.Document) string {
		return strings.TrimSpace(doc.Find(selector).First().Text())
	}
}

// datetimeOrText prefers the datetime attribute of the first match.
func datetimeOrText(selector string) matcher {
	return func(doc *goquery.Document) string {
		sel := doc.Find(selector).First()
		if v, ok := sel.Attr("datetime"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(sel.Text())
	}
}

var titleChain = []matcher{
	metaContent(`meta[property="og:title"]`),
	metaContent(`meta[name="twitter:title"]`),
	elementText("h1"),
	elementText("title"),
}

var authorChain = []matcher{
	metaContent(`meta[name="author"]`),
	metaContent(`meta[property="article:author"]`),
	elementText(".author"),
	elementText(".by-author"),
	elementText(`[rel="author"]`),
	elementText(".post-author"),
}

var publishedChain = []matcher{
	metaContent(`meta[property="article:published_time"]`),
	metaContent(`meta[name="publish_date"]`),
	datetimeOrText("time[datetime]"),
	elementText(".published-date"),
	elementText(".post-date"),
}

// nonContent is removed before the body is located.
const nonContent = "script, style, nav, header, footer, aside, .advertisement, .ads, .sidebar, .comments"

// bodyContainers are candidate main-content regions, most specific first.
var bodyContainers = []string{
	"article",
	"main",
	`[role="main"]`,
	".post-content",
	".article-content",
	".entry-content",
	".content",
	"#content",
	".post-body",
	".article-body",
}

// minBodyRunes is the length a container's text must exceed to be taken as the body.
const minBodyRunes = 200

var whitespaceRun = regexp.MustCompile(`[\s\v\p{Z}]+`)

// Normalize collapses every whitespace run to a single space and trims the ends.
func Normalize(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}
