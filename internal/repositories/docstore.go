package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/likedb/internal/shared"
)

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)*$`)

// DocStore is a [Store] over the local SQLite database.
//
// Each collection is a table of (id, doc, updated_at) rows created by the embedded
// migrations. Secondary indexes are json_extract expression indexes on doc.
//
// SQLite has a single writer, so writes from all collections of a store are serialized.
type DocStore struct {
	db *sql.DB
	mu *sync.Mutex
}

// NewDocStore creates a DocStore over db. Closing the store does not close db.
func NewDocStore(db *sql.DB) *DocStore {
	return &DocStore{db: db, mu: &sync.Mutex{}}
}

// Collection returns the named collection. Operations on an unknown name fail with [shared.ErrUnknownCollection].
func (s *DocStore) Collection(name string) Collection {
	return &docCollection{db: s.db, mu: s.mu, name: name}
}

// Ping verifies the database is reachable.
func (s *DocStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
	}
	return nil
}

// Close is a no-op; the database belongs to the caller.
func (s *DocStore) Close() error {
	return nil
}

type docCollection struct {
	db   *sql.DB
	mu   *sync.Mutex
	name string
}

func (c *docCollection) Name() string { return c.name }

func (c *docCollection) check() error {
	if !IsCollection(c.name) {
		return fmt.Errorf("%w: %s", shared.ErrUnknownCollection, c.name)
	}
	return nil
}

// EnsureIndexes creates each index unless it already exists.
func (c *docCollection) EnsureIndexes(ctx context.Context, specs []IndexSpec) error {
	if err := c.check(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, spec := range specs {
		stmt, err := indexStatement(c.name, spec)
		if err != nil {
			return err
		}
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index %s: %w", spec.IndexName(c.name), err)
		}
	}
	return nil
}

// indexStatement renders spec as a CREATE INDEX IF NOT EXISTS statement.
func indexStatement(table string, spec IndexSpec) (string, error) {
	if len(spec.Keys) == 0 {
		return "", fmt.Errorf("%w: index on %s has no keys", shared.ErrInvalidInput, table)
	}

	cols := make([]string, 0, len(spec.Keys))
	for _, k := range spec.Keys {
		if !fieldPattern.MatchString(k.Field) {
			return "", fmt.Errorf("%w: invalid index field %q", shared.ErrInvalidInput, k.Field)
		}

		col := fmt.Sprintf("json_extract(doc, '$.%s')", k.Field)
		if k.Field == "_id" {
			col = "id"
		}
		if k.Desc {
			col += " DESC"
		} else {
			col += " ASC"
		}
		cols = append(cols, col)
	}

	unique := ""
	if spec.Unique {
		unique = "UNIQUE "
	}

	return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)",
		unique, spec.IndexName(table), table, strings.Join(cols, ", ")), nil
}

// BulkUpsert applies every write in one transaction.
//
// A failing item is recorded in the result and the remaining items still apply.
// Only failures to start or commit the transaction are returned as errors.
func (c *docCollection) BulkUpsert(ctx context.Context, writes []WriteModel) (*BatchResult, error) {
	if err := c.check(); err != nil {
		return nil, err
	}

	result := &BatchResult{}
	if len(writes) == 0 {
		return result, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to begin batch: %v", shared.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for i, w := range writes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		inserted, err := c.write(ctx, tx, w, now)
		if err != nil {
			result.Failures = append(result.Failures, ItemFailure{Collection: c.name, Index: i, Key: w.Key.String(), Err: err})
			continue
		}

		if inserted {
			result.Upserted++
		} else {
			result.Matched++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: failed to commit batch: %v", shared.ErrStoreUnavailable, err)
	}
	return result, nil
}

// write applies one item and reports whether a new row was inserted.
func (c *docCollection) write(ctx context.Context, tx *sql.Tx, w WriteModel, now time.Time) (bool, error) {
	id := w.Key.String()
	doc, err := shared.MarshalJSON(w.Doc, false)
	if err != nil {
		return false, fmt.Errorf("%w: failed to encode document: %v", shared.ErrInvalidInput, err)
	}

	switch w.Mode {
	case ModeReplace:
		var exists bool
		query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE id = ?)", c.name)
		if err := tx.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
			return false, err
		}

		stmt := fmt.Sprintf(`INSERT INTO %s (id, doc, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`, c.name)
		if _, err := tx.ExecContext(ctx, stmt, id, string(doc), now); err != nil {
			return false, err
		}
		return !exists, nil

	case ModeInsertIfAbsent:
		stmt := fmt.Sprintf("INSERT INTO %s (id, doc, updated_at) VALUES (?, ?, ?) ON CONFLICT DO NOTHING", c.name)
		res, err := tx.ExecContext(ctx, stmt, id, string(doc), now)
		if err != nil {
			return false, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return false, err
		}
		return n == 1, nil

	default:
		return false, fmt.Errorf("%w: unknown write mode %s", shared.ErrInvalidInput, w.Mode)
	}
}

// FindOne decodes the document stored under key into out.
func (c *docCollection) FindOne(ctx context.Context, key Key, out any) error {
	if err := c.check(); err != nil {
		return err
	}

	var doc string
	query := fmt.Sprintf("SELECT doc FROM %s WHERE id = ?", c.name)
	err := c.db.QueryRowContext(ctx, query, key.String()).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", shared.ErrDocumentNotFound, c.name, key)
	}
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", c.name, err)
	}

	if err := json.Unmarshal([]byte(doc), out); err != nil {
		return fmt.Errorf("failed to decode %s document: %w", c.name, err)
	}
	return nil
}

// Count returns the number of documents in the collection.
func (c *docCollection) Count(ctx context.Context) (int64, error) {
	if err := c.check(); err != nil {
		return 0, err
	}

	var n int64
	if err := c.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", c.name)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", c.name, err)
	}
	return n, nil
}
