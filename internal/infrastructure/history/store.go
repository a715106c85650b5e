// Package history stores executed commands in SQLite with a jsonl fallback.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/doeshing/shellgate/internal/domain"
	"github.com/doeshing/shellgate/internal/ports"
)

// Store is a HistoryRepository that also knows its location and can be closed.
type Store interface {
	ports.HistoryRepository
	Path() string
	Close() error
}

// Open returns the SQLite store at path, or a jsonl store next to it when the
// database cannot be opened.
func Open(path string, logger ports.Logger) Store {
	store, err := NewSQLiteStore(path)
	if err == nil {
		return store
	}
	fallback := strings.TrimSuffix(path, filepath.Ext(path)) + ".jsonl"
	if logger != nil {
		logger.Warn("sqlite history unavailable, using jsonl", map[string]interface{}{
			"path":     path,
			"fallback": fallback,
			"error":    err.Error(),
		})
	}
	return NewFileStore(fallback)
}

// ExportJSON writes every record, oldest first, to w as json lines.
func ExportJSON(ctx context.Context, repo ports.HistoryRepository, w io.Writer) (int, error) {
	records, err := repo.Records(ctx, domain.HistoryQuery{})
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(w)
	for i := len(records) - 1; i >= 0; i-- {
		if err := enc.Encode(records[i]); err != nil {
			return 0, fmt.Errorf("export history: %w", err)
		}
	}
	return len(records), nil
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*FileStore)(nil)
)
