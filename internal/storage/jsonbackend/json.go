package jsonbackend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/FranksOps/linkscout/internal/storage"
)

// ensure jsonBackend implements storage.Backend
var _ storage.Backend = (*jsonBackend)(nil)

// maxLine bounds a single NDJSON record; run records carry every candidate
// and can exceed bufio's default token size.
const maxLine = 4 << 20

type jsonBackend struct {
	mu   sync.Mutex
	file *os.File
}

// New creates a new NDJSON-backed storage.Backend. One run record per line.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	return &jsonBackend{
		file: f,
	}, nil
}

func (b *jsonBackend) Save(ctx context.Context, record *storage.RunRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("context: %w", err)
	}

	return nil
}

func (b *jsonBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.RunRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	defer func() {
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	scanner := bufio.NewScanner(b.file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)

	var matched []*storage.RunRecord
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var r storage.RunRecord
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("context: %w", err)
		}

		if filter.Topic != "" && r.Topic != filter.Topic {
			continue
		}
		if filter.Level != "" && r.Level != filter.Level {
			continue
		}
		if filter.Since != nil && r.CreatedAt.Before(*filter.Since) {
			continue
		}

		matched = append(matched, &r)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	// Newest first; equal timestamps keep reverse file order.
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []*storage.RunRecord{}, nil
		}
		matched = matched[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	return matched, nil
}

func (b *jsonBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
