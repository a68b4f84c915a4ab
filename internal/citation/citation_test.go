package citation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refs = []string{
	"https://www.example.com/blog/go-concurrency_tips.html",
	"https://dev.to/someone/understanding-context",
}

func TestFormatMarkdown(t *testing.T) {
	want := "\n\n## References\n\n" +
		"1. [example.com](https://www.example.com/blog/go-concurrency_tips.html)\n" +
		"2. [dev.to](https://dev.to/someone/understanding-context)\n"
	assert.Equal(t, want, FormatMarkdown(refs))
}

func TestFormatHTML(t *testing.T) {
	want := "\n<div class=\"citations\">\n<h3>References</h3>\n<ol>\n" +
		"  <li><a href=\"https://www.example.com/blog/go-concurrency_tips.html\" target=\"_blank\" rel=\"noopener\">example.com</a></li>\n" +
		"  <li><a href=\"https://dev.to/someone/understanding-context\" target=\"_blank\" rel=\"noopener\">dev.to</a></li>\n" +
		"</ol>\n</div>\n"
	assert.Equal(t, want, FormatHTML(refs))
}

func TestFormatHTML_EscapesAttributes(t *testing.T) {
	out := FormatHTML([]string{`https://a.com/x?q="><script>`})
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&#34;&gt;&lt;script&gt;")
}

func TestFormatPlain(t *testing.T) {
	want := "\n\nReferences:\n" +
		"[1] https://www.example.com/blog/go-concurrency_tips.html\n" +
		"[2] https://dev.to/someone/understanding-context\n"
	assert.Equal(t, want, FormatPlain(refs))
}

func TestFormat_Empty(t *testing.T) {
	for _, f := range []string{Markdown, HTML, Plain} {
		assert.Empty(t, Format(nil, f), f)
	}
}

func TestFormatJSON(t *testing.T) {
	out := Format(refs, "JSON")

	var entries []Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	assert.Equal(t, Entries(refs), entries)
	assert.Equal(t, "[]\n", FormatJSON(nil))
}

func TestFormat_Idempotent(t *testing.T) {
	for _, f := range []string{Markdown, HTML, Plain, "unknown"} {
		assert.Equal(t, Format(refs, f), Format(refs, f), f)
	}
}

func TestAppend(t *testing.T) {
	tests := []struct {
		name   string
		format string
		want   string
	}{
		{"default is markdown", "", "Body" + FormatMarkdown(refs)},
		{"markdown", "markdown", "Body" + FormatMarkdown(refs)},
		{"html case-insensitive", "HTML", "Body" + FormatHTML(refs)},
		{"plain", "plain", "Body" + FormatPlain(refs)},
		{"unknown falls back", "rst", "Body" + FormatMarkdown(refs)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Append("Body", refs, tt.format))
		})
	}
}

func TestAppend_NoCitations(t *testing.T) {
	assert.Equal(t, "Body", Append("Body", nil, Markdown))
	assert.Equal(t, "Body", Append("Body", []string{}, HTML))
}

func TestDomain(t *testing.T) {
	tests := map[string]string{
		"https://www.Example.com/path":   "example.com",
		"http://blog.golang.org:8080/x":  "blog.golang.org",
		"https://wwwx.com/":              "wwwx.com",
		"not a url":                      "not a url",
		"/relative/path":                 "/relative/path",
		"https://sub.www.example.com/a/": "sub.www.example.com",
	}
	for in, want := range tests {
		assert.Equal(t, want, Domain(in), in)
	}
}

func TestTitle(t *testing.T) {
	tests := map[string]string{
		"https://www.example.com/blog/go-concurrency_tips.html": "Go Concurrency Tips",
		"https://dev.to/someone/understanding-context/":         "Understanding Context",
		"https://example.com/":                                  "example.com",
		"https://www.example.com":                               "example.com",
		"https://example.com/v1.2/release-notes.v2.md":          "Release Notes.v2",
		"https://example.com/über-cool":                         "Über Cool",
		"garbage":                                               "garbage",
	}
	for in, want := range tests {
		assert.Equal(t, want, Title(in), in)
	}
}

func TestEntries(t *testing.T) {
	entries := Entries(refs)
	require.Len(t, entries, 2)
	assert.Equal(t, Entry{
		ID:     1,
		URL:    refs[0],
		Domain: "example.com",
		Title:  "Go Concurrency Tips",
	}, entries[0])
	assert.Equal(t, 2, entries[1].ID)

	raw, err := json.Marshal(entries[1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":2,"url":"https://dev.to/someone/understanding-context","domain":"dev.to","title":"Understanding Context"}`, string(raw))
}

func TestEntries_Empty(t *testing.T) {
	assert.Empty(t, Entries(nil))
	assert.NotNil(t, Entries(nil))
}
