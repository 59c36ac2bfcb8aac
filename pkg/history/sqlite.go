package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"taskdown-hq/loom/pkg/rules/engine"
)

// SQLiteRecorder persists rule run history to a SQLite database. It is the
// durable implementation of the engine's RunRecorder: every rule run within
// a dispatch lands as one row, so "why did this rule fire yesterday" is
// answerable after a restart.
//
// The database runs in WAL mode with a single writer connection, which is
// plenty for rule-run volume.
type SQLiteRecorder struct {
	db        *sql.DB
	closeOnce sync.Once

	insertStmt *sql.Stmt
	listStmt   *sql.Stmt
	pruneStmt  *sql.Stmt
}

// SQLiteRecorderConfig configures the recorder.
type SQLiteRecorderConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds.
	BusyTimeout time.Duration
}

// NewSQLiteRecorder opens (or creates) the history database.
func NewSQLiteRecorder(cfg SQLiteRecorderConfig) (*SQLiteRecorder, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	r := &SQLiteRecorder{db: db}

	if err := r.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	if err := r.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare history statements: %w", err)
	}

	return r, nil
}

func (r *SQLiteRecorder) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS automation_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		dispatch_id TEXT NOT NULL,
		rule_id TEXT NOT NULL,
		trigger_type TEXT NOT NULL,
		status TEXT NOT NULL,
		message TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_rule ON automation_runs(rule_id);
	CREATE INDEX IF NOT EXISTS idx_runs_created ON automation_runs(created_at);
	`

	_, err := r.db.Exec(schema)
	return err
}

func (r *SQLiteRecorder) prepareStatements() error {
	var err error

	r.insertStmt, err = r.db.Prepare(`
		INSERT INTO automation_runs (dispatch_id, rule_id, trigger_type, status, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	r.listStmt, err = r.db.Prepare(`
		SELECT dispatch_id, rule_id, trigger_type, status, message, created_at
		FROM automation_runs
		WHERE rule_id = ? OR ? = ''
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	r.pruneStmt, err = r.db.Prepare(`
		DELETE FROM automation_runs WHERE created_at < ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare prune statement: %w", err)
	}

	return nil
}

// Record inserts one rule run row.
func (r *SQLiteRecorder) Record(ctx context.Context, record engine.RunRecord) error {
	if record.RuleID == "" {
		return fmt.Errorf("rule id cannot be empty")
	}

	when := record.Time
	if when.IsZero() {
		when = time.Now()
	}

	_, err := r.insertStmt.ExecContext(ctx,
		record.DispatchID,
		record.RuleID,
		string(record.Trigger),
		string(record.Status),
		record.Message,
		when.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first. With an empty ruleID it
// lists across all rules.
func (r *SQLiteRecorder) List(ctx context.Context, ruleID string, limit int) ([]engine.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.listStmt.QueryContext(ctx, ruleID, ruleID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []engine.RunRecord
	for rows.Next() {
		var (
			record    engine.RunRecord
			trigger   string
			status    string
			createdAt int64
		)
		if err := rows.Scan(&record.DispatchID, &record.RuleID, &trigger, &status, &record.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		record.Trigger = engine.TriggerType(trigger)
		record.Status = engine.RunStatus(status)
		record.Time = time.UnixMilli(createdAt)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating run rows: %w", err)
	}

	return records, nil
}

// Prune deletes runs older than the given cutoff and returns how many rows
// were removed.
func (r *SQLiteRecorder) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	result, err := r.pruneStmt.ExecContext(ctx, olderThan.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(deleted), nil
}

// Close releases the database. Close is idempotent.
func (r *SQLiteRecorder) Close() error {
	var closeErr error
	r.closeOnce.Do(func() {
		if r.insertStmt != nil {
			r.insertStmt.Close()
		}
		if r.listStmt != nil {
			r.listStmt.Close()
		}
		if r.pruneStmt != nil {
			r.pruneStmt.Close()
		}
		if r.db != nil {
			_, _ = r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = r.db.Close()
		}
	})
	return closeErr
}

var _ engine.RunRecorder = (*SQLiteRecorder)(nil)
