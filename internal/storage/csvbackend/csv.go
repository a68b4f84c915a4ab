package csvbackend

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/FranksOps/quill/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// headers defines the CSV column order
var headers = []string{
	"id",
	"run_id",
	"slug",
	"title",
	"status",
	"stage",
	"error",
	"original_length",
	"enhanced_length",
	"citations",
	"reference_count",
	"tokens",
	"model",
	"duration_ms",
	"created_at",
}

// citationSep joins citation URLs within one cell. URLs cannot contain a space.
const citationSep = " "

// New creates a new CSV-backed storage.Backend appending to filePath.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("csv open: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("csv stat: %w", err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(headers); err != nil {
			f.Close()
			return nil, fmt.Errorf("csv header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("csv header: %w", err)
		}
	}

	return &csvBackend{file: f}, nil
}

func (b *csvBackend) Save(ctx context.Context, o *storage.Outcome) error {
	record := []string{
		o.ID,
		o.RunID,
		o.Slug,
		o.Title,
		string(o.Status),
		o.Stage,
		o.Error,
		strconv.Itoa(o.OriginalLength),
		strconv.Itoa(o.EnhancedLength),
		strings.Join(o.Citations, citationSep),
		strconv.Itoa(o.References),
		strconv.Itoa(o.Tokens),
		o.Model,
		strconv.FormatInt(o.Duration.Milliseconds(), 10),
		o.CreatedAt.UTC().Format(time.RFC3339Nano),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("csv seek: %w", err)
	}

	w := csv.NewWriter(b.file)
	if err := w.Write(record); err != nil {
		return fmt.Errorf("csv write: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csv flush: %w", err)
	}
	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Outcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("csv seek: %w", err)
	}
	defer func() {
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)
	r.FieldsPerRecord = -1

	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return []*storage.Outcome{}, nil
		}
		return nil, fmt.Errorf("csv header: %w", err)
	}

	matched := []*storage.Outcome{}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv read: %w", err)
		}
		if len(record) != len(headers) {
			continue // skip malformed rows
		}

		o := parseRecord(record)
		if filter.Match(o) {
			matched = append(matched, o)
		}
	}

	slices.Reverse(matched)
	return storage.Page(matched, filter), nil
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}

func parseRecord(record []string) *storage.Outcome {
	originalLength, _ := strconv.Atoi(record[7])
	enhancedLength, _ := strconv.Atoi(record[8])
	references, _ := strconv.Atoi(record[10])
	tokens, _ := strconv.Atoi(record[11])
	durationMs, _ := strconv.ParseInt(record[13], 10, 64)
	createdAt, _ := time.Parse(time.RFC3339Nano, record[14])

	var citations []string
	if record[9] != "" {
		citations = strings.Split(record[9], citationSep)
	}

	return &storage.Outcome{
		ID:             record[0],
		RunID:          record[1],
		Slug:           record[2],
		Title:          record[3],
		Status:         storage.Status(record[4]),
		Stage:          record[5],
		Error:          record[6],
		OriginalLength: originalLength,
		EnhancedLength: enhancedLength,
		Citations:      citations,
		References:     references,
		Tokens:         tokens,
		Model:          record[12],
		Duration:       time.Duration(durationMs) * time.Millisecond,
		CreatedAt:      createdAt,
	}
}
