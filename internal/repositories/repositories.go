// package repositories provides persistence layer implementations for the run history and the loaded collections.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/likedb/internal/shared"
)

// Store drivers
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// NextSequence atomically increments and returns the next sequence number for the given table.
//
// Sequence numbers provide human-readable ordering for entities (e.g., run #42).
func NextSequence(db *sql.DB, table string) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequenceTable := table + "_sequence"

	_, err = tx.Exec(fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable))
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	err = tx.QueryRow(fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}

	return sequence, nil
}

// OpenStore returns the document store selected by cfg.Driver.
//
// The SQLite store writes to db, which stays owned by the caller; the Mongo store opens its own connection.
func OpenStore(ctx context.Context, cfg shared.StoreConfig, db *sql.DB) (Store, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		if db == nil {
			return nil, fmt.Errorf("%w: sqlite store requires a database", shared.ErrStoreUnavailable)
		}
		return NewDocStore(db), nil
	case DriverMongo:
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q", shared.ErrInvalidConfig, cfg.Driver)
	}
}
