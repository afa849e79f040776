// Run history persistence
package history

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/guitrading/tearsheet/pkg/metrics"
)

// Store persists one row per generated tearsheet to a SQLite database, so
// successive backtests of the same strategy can be compared over time.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Run is one recorded tearsheet generation.
type Run struct {
	ID          int64
	GeneratedAt time.Time
	Source      string
	TotalReturn float64
	SharpeRatio float64
	MaxDrawdown float64
	WinRate     float64
}

// Open opens (or creates) the history database and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			generated_at INTEGER NOT NULL,
			source       TEXT NOT NULL,
			total_return REAL,
			sharpe_ratio REAL,
			max_drawdown REAL,
			win_rate     REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(generated_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record stores the headline metrics of a generated tearsheet.
func (s *Store) Record(source string, report *metrics.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO runs (generated_at, source, total_return, sharpe_ratio, max_drawdown, win_rate)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		time.Now().Unix(), source,
		report.TotalReturn, report.SharpeRatio, report.MaxDrawdown, report.WinRate,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id, generated_at, source, total_return, sharpe_ratio, max_drawdown, win_rate
		 FROM runs ORDER BY generated_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var ts int64
		if err := rows.Scan(&r.ID, &ts, &r.Source, &r.TotalReturn, &r.SharpeRatio, &r.MaxDrawdown, &r.WinRate); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.GeneratedAt = time.Unix(ts, 0).UTC()
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
