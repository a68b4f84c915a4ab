package serp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Accept(t *testing.T) {
	f := NewFilter(nil)

	cases := []struct {
		url  string
		want bool
	}{
		{"https://blog.example.com/post", true},
		{"http://example.org/a", true},
		{"ftp://example.org/file", false},
		{"/relative/link", false},
		{"", false},
		{"https://www.YouTube.com/watch?v=1", false},
		{"https://en.wikipedia.org/wiki/Go", false},
		{"https://www.google.com/url?q=https://x.dev", false},
		{"https://example.com/search?q=x", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, f.Accept(tc.url), tc.url)
	}
}

func TestFilter_CustomExclusions(t *testing.T) {
	f := NewFilter([]string{" Medium.com ", ""})

	assert.False(t, f.Accept("https://medium.com/@me/post"))
	assert.True(t, f.Accept("https://www.youtube.com/watch"), "custom list replaces defaults")
}

func TestCollector_DedupAndCap(t *testing.T) {
	c := newCollector(NewFilter(nil), 2)

	assert.True(t, c.Offer("https://a.dev/1"))
	assert.False(t, c.Offer("https://a.dev/1"), "exact duplicate")
	assert.False(t, c.Offer("https://facebook.com/x"))
	assert.True(t, c.Offer("https://a.dev/1?ref=x"), "different string is not a duplicate")
	assert.True(t, c.Full())
	assert.False(t, c.Offer("https://b.dev/2"))

	assert.Equal(t, []string{"https://a.dev/1", "https://a.dev/1?ref=x"}, c.URLs())
}
