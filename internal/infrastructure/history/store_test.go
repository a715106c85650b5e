package history

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/shellgate/internal/domain"
	"github.com/doeshing/shellgate/internal/pkg/logger"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	sqlite, err := NewSQLiteStore(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"sqlite": sqlite,
		"jsonl":  NewFileStore(filepath.Join(dir, "history.jsonl")),
	}
}

func record(user, command, target string, at time.Time) domain.HistoryRecord {
	return domain.HistoryRecord{
		Timestamp:  at,
		UserID:     user,
		Command:    command,
		TargetName: target,
		Success:    true,
		Stdout:     "ok",
		RiskLevel:  domain.RiskLow,
		Duration:   1500 * time.Millisecond,
	}
}

func TestAppendAndRecords(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Append(ctx, record("alice", "uptime", "", now.Add(-2*time.Minute))))
			require.NoError(t, store.Append(ctx, record("bob", "df -h", "web1", now.Add(-time.Minute))))
			require.NoError(t, store.Append(ctx, record("alice", "free -m", "web1", now)))

			all, err := store.Records(ctx, domain.HistoryQuery{})
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "free -m", all[0].Command, "newest first")
			assert.NotEmpty(t, all[0].ID)
			assert.Equal(t, 1500*time.Millisecond, all[0].Duration)

			alice, err := store.Records(ctx, domain.HistoryQuery{UserID: "alice"})
			require.NoError(t, err)
			assert.Len(t, alice, 2)

			search, err := store.Records(ctx, domain.HistoryQuery{Search: "web1"})
			require.NoError(t, err)
			assert.Len(t, search, 2)

			limited, err := store.Records(ctx, domain.HistoryQuery{Limit: 1})
			require.NoError(t, err)
			assert.Len(t, limited, 1)

			local, err := store.Records(ctx, domain.HistoryQuery{Search: "uptime"})
			require.NoError(t, err)
			require.Len(t, local, 1)
			assert.Empty(t, local[0].TargetName, "local commands have no target")
		})
	}
}

func TestSearchMatchesWildcardsLiterally(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Append(ctx, record("ops", "df -h", "", now.Add(-2*time.Minute))))
			require.NoError(t, store.Append(ctx, record("ops", "grep 100% app.log", "", now.Add(-time.Minute))))
			require.NoError(t, store.Append(ctx, record("ops", "cat my_file", "", now)))

			percent, err := store.Records(ctx, domain.HistoryQuery{Search: "%"})
			require.NoError(t, err)
			require.Len(t, percent, 1)
			assert.Equal(t, "grep 100% app.log", percent[0].Command)

			underscore, err := store.Records(ctx, domain.HistoryQuery{Search: "_"})
			require.NoError(t, err)
			require.Len(t, underscore, 1)
			assert.Equal(t, "cat my_file", underscore[0].Command)

			backslash, err := store.Records(ctx, domain.HistoryQuery{Search: `\`})
			require.NoError(t, err)
			assert.Empty(t, backslash)
		})
	}
}

func TestPruneAndClear(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Append(ctx, record("alice", "old", "", now.AddDate(0, 0, -100))))
			require.NoError(t, store.Append(ctx, record("alice", "new", "", now)))

			removed, err := store.Prune(ctx, 90)
			require.NoError(t, err)
			assert.EqualValues(t, 1, removed)

			left, err := store.Records(ctx, domain.HistoryQuery{})
			require.NoError(t, err)
			require.Len(t, left, 1)
			assert.Equal(t, "new", left[0].Command)

			removed, err = store.Prune(ctx, 0)
			require.NoError(t, err)
			assert.Zero(t, removed, "zero retention keeps everything")

			require.NoError(t, store.Clear(ctx))
			left, err = store.Records(ctx, domain.HistoryQuery{})
			require.NoError(t, err)
			assert.Empty(t, left)
		})
	}
}

func TestExportJSONOldestFirst(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	store := NewFileStore(filepath.Join(t.TempDir(), "history.jsonl"))
	require.NoError(t, store.Append(ctx, record("alice", "first", "", now.Add(-time.Minute))))
	require.NoError(t, store.Append(ctx, record("alice", "second", "", now)))

	var buf bytes.Buffer
	n, err := ExportJSON(ctx, store, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var first domain.HistoryRecord
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "first", first.Command)
}

func TestFileStoreSkipsCorruptLines(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.jsonl")
	store := NewFileStore(path)
	require.NoError(t, store.Append(ctx, record("alice", "uptime", "", time.Now())))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	records, err := store.Records(ctx, domain.HistoryQuery{})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestOpenFallsBackToJSONL(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// A regular file in place of the parent directory makes the database unopenable.
	store := Open(filepath.Join(blocker, "history.db"), logger.Nop())
	_, ok := store.(*FileStore)
	assert.True(t, ok, "expected jsonl fallback, got %T", store)
	assert.True(t, strings.HasSuffix(store.Path(), "history.jsonl"))
}
