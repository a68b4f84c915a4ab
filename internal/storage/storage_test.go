package storage

import (
	"strings"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
)

func TestFilter_Match(t *testing.T) {
	now := time.Now()
	o := &Outcome{RunID: "r1", Slug: "a", Status: StatusFailed, CreatedAt: now}

	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"empty", Filter{}, true},
		{"run", Filter{RunID: "r1"}, true},
		{"other run", Filter{RunID: "r2"}, false},
		{"slug", Filter{Slug: "a"}, true},
		{"other slug", Filter{Slug: "b"}, false},
		{"status", Filter{Status: StatusFailed}, true},
		{"other status", Filter{Status: StatusEnhanced}, false},
		{"since past", Filter{Since: &past}, true},
		{"since future", Filter{Since: &future}, false},
	}
	for _, tt := range tests {
		if got := tt.filter.Match(o); got != tt.want {
			t.Errorf("%s: Match = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestPage(t *testing.T) {
	all := []*Outcome{{ID: "1"}, {ID: "2"}, {ID: "3"}}

	if got := Page(all, Filter{Limit: 2}); len(got) != 2 || got[0].ID != "1" {
		t.Errorf("limit: got %v", got)
	}
	if got := Page(all, Filter{Offset: 1}); len(got) != 2 || got[0].ID != "2" {
		t.Errorf("offset: got %v", got)
	}
	if got := Page(all, Filter{Offset: 5}); len(got) != 0 {
		t.Errorf("offset past end: got %v", got)
	}
}

func TestSelectQuery(t *testing.T) {
	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	query, args, err := SelectQuery(sq.Dollar, Filter{Slug: "a", Status: StatusFailed, Since: &since, Limit: 10}).ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}

	for _, want := range []string{"FROM outcomes", "slug = $1", "status = $2", "created_at >= $3", "ORDER BY created_at DESC", "LIMIT 10"} {
		if !strings.Contains(query, want) {
			t.Errorf("query %q missing %q", query, want)
		}
	}
	if len(args) != 3 {
		t.Errorf("expected 3 args, got %d", len(args))
	}
}

func TestSelectQuery_OffsetOnly(t *testing.T) {
	query, _, err := SelectQuery(sq.Question, Filter{Offset: 4}).ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	if !strings.Contains(query, "LIMIT ") || !strings.Contains(query, "OFFSET 4") {
		t.Errorf("offset without limit must still emit LIMIT: %q", query)
	}
}
