package history

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/doeshing/shellgate/internal/domain"
)

// FileStore appends history records to a jsonl file. It is the fallback
// when the SQLite database cannot be opened.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by the jsonl file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Append writes one record as a json line.
func (f *FileStore) Append(_ context.Context, record domain.HistoryRecord) error {
	record = normalize(record)
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	defer file.Close()
	_, err = file.Write(append(data, '\n'))
	return err
}

// Records loads matching entries newest first. Unparseable lines are skipped.
func (f *FileStore) Records(_ context.Context, query domain.HistoryQuery) ([]domain.HistoryRecord, error) {
	f.mu.Lock()
	all, err := f.readAll()
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var records []domain.HistoryRecord
	for i := len(all) - 1; i >= 0; i-- {
		rec := all[i]
		if query.UserID != "" && rec.UserID != query.UserID {
			continue
		}
		if query.Search != "" && !strings.Contains(rec.Command, query.Search) && !strings.Contains(rec.TargetName, query.Search) {
			continue
		}
		records = append(records, rec)
		if query.Limit > 0 && len(records) >= query.Limit {
			break
		}
	}
	return records, nil
}

// Clear removes the history file.
func (f *FileStore) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Prune rewrites the file without entries older than retentionDays.
func (f *FileStore) Prune(_ context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.readAll()
	if err != nil {
		return 0, err
	}
	limit := cutoff(retentionDays)
	var (
		buf     bytes.Buffer
		removed int64
	)
	for _, rec := range all {
		if rec.Timestamp.Before(limit) {
			removed++
			continue
		}
		data, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	if removed == 0 {
		return 0, nil
	}
	if err := os.WriteFile(f.path, buf.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("rewrite history: %w", err)
	}
	return removed, nil
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// Close is a no-op; the file is opened per write.
func (f *FileStore) Close() error {
	return nil
}

func (f *FileStore) readAll() ([]domain.HistoryRecord, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var records []domain.HistoryRecord
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec domain.HistoryRecord
		if err := json.Unmarshal(line, &rec); err == nil {
			records = append(records, rec)
		}
	}
	return records, scanner.Err()
}
