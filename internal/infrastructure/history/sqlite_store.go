package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/doeshing/shellgate/internal/domain"
)

// timestampLayout is fixed-width so timestamps compare lexicographically.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

const schema = `CREATE TABLE IF NOT EXISTS commands (
	id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	user_id TEXT NOT NULL,
	command TEXT NOT NULL,
	target TEXT,
	success INTEGER NOT NULL,
	stdout TEXT,
	stderr TEXT,
	exit_code INTEGER,
	retries INTEGER,
	failure TEXT,
	risk_level TEXT,
	duration_ms INTEGER
);
CREATE INDEX IF NOT EXISTS commands_user_ts ON commands (user_id, timestamp);`

// SQLiteStore persists history in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	// One writer at a time; concurrent users serialize here.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history db: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Append inserts a new record, assigning an ID when missing.
func (s *SQLiteStore) Append(ctx context.Context, record domain.HistoryRecord) error {
	record = normalize(record)
	_, err := s.db.ExecContext(ctx, `INSERT INTO commands
		(id, timestamp, user_id, command, target, success, stdout, stderr, exit_code, retries, failure, risk_level, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Timestamp.UTC().Format(timestampLayout),
		record.UserID,
		record.Command,
		sql.NullString{String: record.TargetName, Valid: record.TargetName != ""},
		boolToInt(record.Success),
		record.Stdout,
		record.Stderr,
		record.ExitCode,
		record.Retries,
		string(record.Failure),
		string(record.RiskLevel),
		record.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// likeEscaper makes user text match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// Records returns entries newest first, filtered by user and a substring of
// the command or target.
func (s *SQLiteStore) Records(ctx context.Context, query domain.HistoryQuery) ([]domain.HistoryRecord, error) {
	var (
		b     strings.Builder
		conds []string
		args  []interface{}
	)
	b.WriteString(`SELECT id, timestamp, user_id, command, target, success, stdout, stderr,
		exit_code, retries, failure, risk_level, duration_ms FROM commands`)
	if query.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, query.UserID)
	}
	if query.Search != "" {
		conds = append(conds, `(command LIKE ? ESCAPE '\' OR target LIKE ? ESCAPE '\')`)
		like := "%" + likeEscaper.Replace(query.Search) + "%"
		args = append(args, like, like)
	}
	if len(conds) > 0 {
		b.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY timestamp DESC")
	if query.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, query.Limit)
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []domain.HistoryRecord
	for rows.Next() {
		var (
			rec        domain.HistoryRecord
			ts         string
			target     sql.NullString
			success    int
			failure    string
			risk       string
			durationMS int64
		)
		if err := rows.Scan(&rec.ID, &ts, &rec.UserID, &rec.Command, &target, &success,
			&rec.Stdout, &rec.Stderr, &rec.ExitCode, &rec.Retries, &failure, &risk, &durationMS); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if t, err := time.Parse(timestampLayout, ts); err == nil {
			rec.Timestamp = t
		}
		rec.TargetName = target.String
		rec.Success = success == 1
		rec.Failure = domain.FailureKind(failure)
		rec.RiskLevel = domain.ParseRiskLevel(risk)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Clear deletes all history entries.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM commands"); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// Prune removes entries older than retentionDays and reports how many went.
func (s *SQLiteStore) Prune(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM commands WHERE timestamp < ?", cutoff(retentionDays).Format(timestampLayout))
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

// Path returns the database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func normalize(record domain.HistoryRecord) domain.HistoryRecord {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}
	return record
}

func cutoff(retentionDays int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -retentionDays)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
