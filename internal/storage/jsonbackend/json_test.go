package jsonbackend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/FranksOps/quill/internal/storage"
)

func TestJSONBackend(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "history.jsonl")

	b, err := New(filePath)
	if err != nil {
		t.Fatalf("Failed to create JSON backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	now := time.Now().Truncate(time.Millisecond).UTC()

	res1 := &storage.Outcome{
		ID:             "json1",
		RunID:          "run-a",
		Slug:           "first",
		Title:          "First",
		Status:         storage.StatusEnhanced,
		Stage:          storage.StagePersist,
		OriginalLength: 500,
		EnhancedLength: 1200,
		Citations:      []string{"https://a.dev/1", "https://b.dev/2"},
		References:     2,
		Duration:       3 * time.Second,
		CreatedAt:      now.Add(-2 * time.Hour),
	}
	res2 := &storage.Outcome{
		ID:        "json2",
		RunID:     "run-a",
		Slug:      "second",
		Title:     "Second",
		Status:    storage.StatusFailed,
		Stage:     storage.StageSearch,
		Error:     "no search results",
		CreatedAt: now.Add(-1 * time.Hour),
	}

	if err := b.Save(ctx, res1); err != nil {
		t.Fatalf("Failed to save result 1: %v", err)
	}
	if err := b.Save(ctx, res2); err != nil {
		t.Fatalf("Failed to save result 2: %v", err)
	}

	results, err := b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("Failed to query all results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].ID != "json2" || results[1].ID != "json1" {
		t.Errorf("Expected newest first, got %s, %s", results[0].ID, results[1].ID)
	}
	if got := results[1]; len(got.Citations) != 2 || got.Duration != 3*time.Second || !got.CreatedAt.Equal(res1.CreatedAt) {
		t.Errorf("Round trip mismatch: %+v", got)
	}

	failed, err := b.Query(ctx, storage.Filter{Status: storage.StatusFailed})
	if err != nil {
		t.Fatalf("Failed to query failed: %v", err)
	}
	if len(failed) != 1 || failed[0].Error != "no search results" {
		t.Errorf("Expected the failed outcome, got %+v", failed)
	}

	since := now.Add(-90 * time.Minute)
	recent, err := b.Query(ctx, storage.Filter{Since: &since})
	if err != nil {
		t.Fatalf("Failed to query since: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != "json2" {
		t.Errorf("Expected only json2, got %d results", len(recent))
	}

	paged, err := b.Query(ctx, storage.Filter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("Failed to query paged: %v", err)
	}
	if len(paged) != 1 || paged[0].ID != "json1" {
		t.Errorf("Expected json1 on page 2, got %+v", paged)
	}

	// Saving after a query must still append.
	res3 := &storage.Outcome{ID: "json3", Slug: "third", Status: storage.StatusSkipped, CreatedAt: now}
	if err := b.Save(ctx, res3); err != nil {
		t.Fatalf("Failed to save result 3: %v", err)
	}
	results, _ = b.Query(ctx, storage.Filter{})
	if len(results) != 3 || results[0].ID != "json3" {
		t.Errorf("Expected json3 first among 3, got %d", len(results))
	}
}

func TestJSONBackend_Reopen(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "history.jsonl")
	ctx := context.Background()

	b, err := New(filePath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := b.Save(ctx, &storage.Outcome{ID: "x", Slug: "s", Status: storage.StatusEnhanced, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	b.Close()

	b, err = New(filePath)
	if err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	defer b.Close()

	results, err := b.Query(ctx, storage.Filter{Slug: "s"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("Expected persisted outcome after reopen, got %d", len(results))
	}
}
