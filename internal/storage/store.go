package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps SQLite-backed persistence for dispatched dedup keys and the
// notification log. The in-memory seen-set remains the hot path; the store
// exists so a restart does not re-announce sales still inside the polling
// window.
type Store struct {
	db *sql.DB
}

// Open initializes a SQLite database and runs minimal schema setup.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := configure(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialized")
	}
	return s.db.PingContext(ctx)
}

func configure(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("set pragma %q: %w", p, err)
		}
	}
	return nil
}

func migrate(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	schema := `
CREATE TABLE IF NOT EXISTS dedupe (
  key         TEXT PRIMARY KEY,
  created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS notifications (
  dedup_key       TEXT PRIMARY KEY,
  tx_hash         TEXT NOT NULL,
  buyer           TEXT,
  category        TEXT NOT NULL,
  token_count     INTEGER NOT NULL,
  total_price_wei TEXT,
  created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// MarkDispatched durably records a processed dedup key.
func (s *Store) MarkDispatched(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("key required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO dedupe (key) VALUES (?)
ON CONFLICT(key) DO NOTHING;
`, key)
	if err != nil {
		return fmt.Errorf("mark dispatched: %w", err)
	}
	return nil
}

// LoadDedupKeys returns every recorded dedup key, for seen-set replay at startup.
func (s *Store) LoadDedupKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM dedupe;`)
	if err != nil {
		return nil, fmt.Errorf("load dedup keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan dedup key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// CountDedupKeys reports how many keys have been dispatched so far.
func (s *Store) CountDedupKeys(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dedupe;`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count dedup keys: %w", err)
	}
	return n, nil
}

// Notification is one published sale record.
type Notification struct {
	DedupKey      string
	TxHash        string
	Buyer         string
	Category      string
	TokenCount    int
	TotalPriceWei string
	CreatedAt     time.Time
}

// InsertNotification stores a published notification; primary key enforces
// at-most-once per dedup key.
func (s *Store) InsertNotification(ctx context.Context, n Notification) error {
	if n.DedupKey == "" || n.TxHash == "" {
		return errors.New("dedup_key and tx_hash required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO notifications (dedup_key, tx_hash, buyer, category, token_count, total_price_wei, created_at)
VALUES (?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))
ON CONFLICT(dedup_key) DO NOTHING;
`, n.DedupKey, n.TxHash, n.Buyer, n.Category, n.TokenCount, n.TotalPriceWei, nullTime(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns notifications newest first; limit <= 0 means all.
func (s *Store) ListNotifications(ctx context.Context, limit int) ([]Notification, error) {
	q := `
SELECT dedup_key, tx_hash, buyer, category, token_count, total_price_wei, created_at
FROM notifications ORDER BY created_at DESC, dedup_key DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	q += `;`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.DedupKey, &n.TxHash, &n.Buyer, &n.Category, &n.TokenCount, &n.TotalPriceWei, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
