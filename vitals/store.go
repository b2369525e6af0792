package vitals

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists metrics in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the metrics database at path.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open metrics db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS web_vitals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			value REAL NOT NULL,
			rating TEXT NOT NULL,
			metric_id TEXT NOT NULL,
			delta REAL NOT NULL,
			navigation_type TEXT NOT NULL,
			url TEXT NOT NULL,
			browser TEXT NOT NULL,
			os TEXT NOT NULL,
			device TEXT NOT NULL,
			recorded_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_web_vitals_recorded_at ON web_vitals(recorded_at);
		CREATE INDEX IF NOT EXISTS idx_web_vitals_name ON web_vitals(name);
	`)
	return err
}

// Record stores m.
func (s *Store) Record(ctx context.Context, m Metric) error {
	ts, err := time.Parse(time.RFC3339Nano, m.Timestamp)
	if err != nil {
		ts = time.Now()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO web_vitals (name, value, rating, metric_id, delta, navigation_type, url, browser, os, device, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Name, m.Value, m.Rating, m.ID, m.Delta, m.NavigationType, m.URL, m.Browser, m.OS, m.Device, ts.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save metric: %w", err)
	}
	return nil
}

// Summary aggregates one metric name over a period.
type Summary struct {
	Name    string         `json:"name"`
	Count   int            `json:"count"`
	Avg     float64        `json:"avg"`
	P75     float64        `json:"p75"`
	Ratings map[string]int `json:"ratings"`
}

// Summarize aggregates metrics recorded at or after since, sorted by name.
func (s *Store) Summarize(ctx context.Context, since time.Time) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, value, rating FROM web_vitals
		WHERE recorded_at >= ?
		ORDER BY name, value`, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	values := map[string][]float64{}
	ratings := map[string]map[string]int{}
	for rows.Next() {
		var (
			name, rating string
			value        float64
		)
		if err := rows.Scan(&name, &value, &rating); err != nil {
			return nil, err
		}
		values[name] = append(values[name], value)
		if ratings[name] == nil {
			ratings[name] = map[string]int{}
		}
		ratings[name][rating]++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(values))
	for name, vs := range values {
		var sum float64
		for _, v := range vs {
			sum += v
		}
		out = append(out, Summary{
			Name:    name,
			Count:   len(vs),
			Avg:     round2(sum / float64(len(vs))),
			P75:     round2(percentile(vs, 0.75)),
			Ratings: ratings[name],
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// percentile uses the nearest-rank method on sorted values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	return sorted[rank]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Cleanup deletes metrics older than retention.
func (s *Store) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UnixMilli()
	res, err := s.db.ExecContext(ctx, `DELETE FROM web_vitals WHERE recorded_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup metrics: %w", err)
	}
	return res.RowsAffected()
}

// StartCleanupScheduler runs periodic cleanup of old data. Returns a stop function.
func (s *Store) StartCleanupScheduler(retention, interval time.Duration, onError func(error)) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				if _, err := s.Cleanup(context.Background(), retention); err != nil && onError != nil {
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
