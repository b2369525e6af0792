package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps counters in a SQLite database so every process on the
// host that opens the same file shares one budget per key.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open rate limit db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS rate_limits (
			key TEXT PRIMARY KEY,
			count INTEGER NOT NULL,
			reset_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_rate_limits_reset_at ON rate_limits(reset_at);
	`)
	return err
}

// Incr starts a new window when the stored one has expired and bumps the
// count otherwise, in a single upsert.
func (s *SQLiteStore) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	now := s.now().UnixMilli()
	reset := now + window.Milliseconds()

	var count, resetAt int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO rate_limits (key, count, reset_at) VALUES (?, 1, ?)
		ON CONFLICT(key) DO UPDATE SET
			count = CASE WHEN rate_limits.reset_at > ? THEN rate_limits.count + 1 ELSE 1 END,
			reset_at = CASE WHEN rate_limits.reset_at > ? THEN rate_limits.reset_at ELSE excluded.reset_at END
		RETURNING count, reset_at`,
		key, reset, now, now,
	).Scan(&count, &resetAt)
	if err != nil {
		return 0, time.Time{}, err
	}
	return count, time.UnixMilli(resetAt), nil
}

// Cleanup deletes expired windows and returns how many were removed.
func (s *SQLiteStore) Cleanup(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rate_limits WHERE reset_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("cleanup rate limits: %w", err)
	}
	return res.RowsAffected()
}

// StartCleanupScheduler runs Cleanup every interval. Returns a stop function.
func (s *SQLiteStore) StartCleanupScheduler(interval time.Duration, onError func(error)) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				if _, err := s.Cleanup(context.Background()); err != nil && onError != nil {
					onError(err)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() { close(done) }
}
