package csvbackend

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/FranksOps/linkscout/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// headers defines the CSV column order. links is for people reading the
// sheet; detail_json is what Query restores from.
var headers = []string{
	"id",
	"topic",
	"level",
	"candidates",
	"reranked",
	"links",
	"detail_json",
	"duration_ms",
	"created_at",
}

// New creates a new CSV-backed storage.Backend, one run per row.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	// Check if file is empty to write headers
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("context: %w", err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(headers); err != nil {
			f.Close()
			return nil, fmt.Errorf("context: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("context: %w", err)
		}
	}

	return &csvBackend{
		file: f,
	}, nil
}

func (b *csvBackend) Save(ctx context.Context, record *storage.RunRecord) error {
	detailJSON, err := json.Marshal(record.Detail())
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}

	links := make([]string, 0, len(record.Links))
	for _, l := range record.Links {
		links = append(links, l.URL)
	}

	row := []string{
		record.ID,
		record.Topic,
		record.Level,
		strconv.Itoa(record.Candidates),
		strconv.FormatBool(record.Reranked),
		strings.Join(links, "\n"),
		string(detailJSON),
		strconv.FormatInt(record.Duration.Milliseconds(), 10),
		record.CreatedAt.Format(time.RFC3339Nano),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("context: %w", err)
	}

	w := csv.NewWriter(b.file)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("context: %w", err)
	}

	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.RunRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)

	// Read headers
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return []*storage.RunRecord{}, nil
		}
		return nil, fmt.Errorf("context: %w", err)
	}

	var matched []*storage.RunRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("context: %w", err)
		}

		if len(row) != len(headers) {
			continue // skip malformed rows
		}

		candidates, _ := strconv.Atoi(row[3])
		reranked, _ := strconv.ParseBool(row[4])
		durationMs, _ := strconv.ParseInt(row[7], 10, 64)
		createdAt, _ := time.Parse(time.RFC3339Nano, row[8])

		rec := &storage.RunRecord{
			ID:         row[0],
			Topic:      row[1],
			Level:      row[2],
			Candidates: candidates,
			Reranked:   reranked,
			Duration:   time.Duration(durationMs) * time.Millisecond,
			CreatedAt:  createdAt,
		}
		var detail storage.RunDetail
		if err := json.Unmarshal([]byte(row[6]), &detail); err == nil {
			rec.SetDetail(detail)
		}

		if filter.Topic != "" && rec.Topic != filter.Topic {
			continue
		}
		if filter.Level != "" && rec.Level != filter.Level {
			continue
		}
		if filter.Since != nil && rec.CreatedAt.Before(*filter.Since) {
			continue
		}

		matched = append(matched, rec)
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

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
