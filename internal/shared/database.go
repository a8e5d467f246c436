package shared

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// busyTimeoutMs is how long a connection waits for the write lock before failing with SQLITE_BUSY.
const busyTimeoutMs = 10000

// dataSourceName appends the driver options to path. Transactions take the write lock
// when they begin, so concurrent writers queue on the busy timeout instead of failing
// mid-transaction.
func dataSourceName(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_busy_timeout=%d&_txlock=immediate", path, sep, busyTimeoutMs)
}

// NewDatabase opens a connection to a SQLite database at the specified path.
// The path can be ":memory:" for an in-memory database.
//
// Connection failures are reported as [ErrStoreUnavailable].
func NewDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dataSourceName(path))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", ErrStoreUnavailable, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %v", ErrStoreUnavailable, err)
	}

	return db, nil
}

// ConfigureDatabase sets connection pool settings for the database.
//
// SQLite allows a single writer, and an in-memory database exists per connection,
// so values below one are raised to one.
func ConfigureDatabase(db *sql.DB, maxOpenConns, maxIdleConns int) {
	db.SetMaxOpenConns(max(maxOpenConns, 1))
	db.SetMaxIdleConns(max(maxIdleConns, 1))
}

// OpenDatabase opens, configures and migrates the local database described by cfg.
func OpenDatabase(ctx context.Context, cfg DatabaseConfig) (*sql.DB, error) {
	db, err := NewDatabase(cfg.Path)
	if err != nil {
		return nil, err
	}

	ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)

	if _, err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}
