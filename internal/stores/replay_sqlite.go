package stores

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const createRedemptionsTable = `CREATE TABLE IF NOT EXISTS redemptions (
	identity    TEXT PRIMARY KEY,
	redeemed_at INTEGER NOT NULL
)`

// SQLiteReplaySet persists redeemed identities in a SQLite table.
// INSERT OR IGNORE plus RowsAffected is the atomic check-and-add.
type SQLiteReplaySet struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// OpenSQLiteReplaySet opens the database at path in WAL mode with full sync
// and creates the redemptions table when missing.
func OpenSQLiteReplaySet(path string) (*SQLiteReplaySet, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", ErrReplayUnavailable)
	}

	dsn := filepath.Clean(path) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite db: %v", ErrReplayUnavailable, err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: ping sqlite db: %v", ErrReplayUnavailable, err)
	}
	if _, err := sqlDB.Exec(createRedemptionsTable); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: create table: %v", ErrReplayUnavailable, err)
	}

	return &SQLiteReplaySet{sqlDB: sqlDB, now: time.Now}, nil
}

func (s *SQLiteReplaySet) Contains(ctx context.Context, identity string) (bool, error) {
	if s == nil || s.sqlDB == nil {
		return false, ErrReplayClosed
	}

	var one int
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT 1 FROM redemptions WHERE identity = ?`,
		normalizeIdentity(identity),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, s.wrap(err)
	}
	return true, nil
}

func (s *SQLiteReplaySet) Add(ctx context.Context, identity string) (bool, error) {
	if s == nil || s.sqlDB == nil {
		return false, ErrReplayClosed
	}

	normalized := normalizeIdentity(identity)
	if normalized == "" {
		return false, fmt.Errorf("%w: empty identity", ErrReplayUnavailable)
	}

	res, err := s.sqlDB.ExecContext(context.WithoutCancel(ctx),
		`INSERT OR IGNORE INTO redemptions (identity, redeemed_at) VALUES (?, ?)`,
		normalized,
		s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return false, s.wrap(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, s.wrap(err)
	}
	return n == 1, nil
}

func (s *SQLiteReplaySet) Clear(ctx context.Context) error {
	if s == nil || s.sqlDB == nil {
		return ErrReplayClosed
	}

	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM redemptions`); err != nil {
		return s.wrap(err)
	}
	return nil
}

func (s *SQLiteReplaySet) Len(ctx context.Context) (int, error) {
	if s == nil || s.sqlDB == nil {
		return 0, ErrReplayClosed
	}

	var n int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM redemptions`).Scan(&n); err != nil {
		return 0, s.wrap(err)
	}
	return n, nil
}

func (s *SQLiteReplaySet) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SQLiteReplaySet) wrap(err error) error {
	if strings.Contains(err.Error(), "database is closed") {
		return ErrReplayClosed
	}
	return fmt.Errorf("%w: %v", ErrReplayUnavailable, err)
}
