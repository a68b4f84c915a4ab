package jsonbackend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/FranksOps/quill/internal/storage"
)

// ensure jsonBackend implements storage.Backend
var _ storage.Backend = (*jsonBackend)(nil)

type jsonBackend struct {
	mu   sync.Mutex
	file *os.File
}

// New creates a new NDJSON-backed storage.Backend appending to filePath.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("jsonl open: %w", err)
	}
	return &jsonBackend{file: f}, nil
}

func (b *jsonBackend) Save(ctx context.Context, o *storage.Outcome) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("jsonl encode %s: %w", o.ID, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("jsonl write: %w", err)
	}
	return nil
}

// Query scans the whole file; outcomes are appended in time order so the
// newest-first ordering is a reversal.
func (b *jsonBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Outcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("jsonl seek: %w", err)
	}
	defer func() {
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	scanner := bufio.NewScanner(b.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	matched := []*storage.Outcome{}
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var o storage.Outcome
		if err := json.Unmarshal(line, &o); err != nil {
			return nil, fmt.Errorf("jsonl decode: %w", err)
		}
		if filter.Match(&o) {
			matched = append(matched, &o)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("jsonl scan: %w", err)
	}

	slices.Reverse(matched)
	return storage.Page(matched, filter), nil
}

func (b *jsonBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
