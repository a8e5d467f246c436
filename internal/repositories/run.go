package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/likedb/internal/models"
	"github.com/desertthunder/likedb/internal/shared"
)

var _ models.Repository[*models.Run] = (*RunRepository)(nil)

// RunRepository implements models.Repository[*models.Run] for extract and load history.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `
	id, sequence, kind, status, snapshot_path, records_total,
	records_written, records_failed, error_message, started_at,
	completed_at, created_at, updated_at`

// Create inserts a new run with a generated ID and sequence
func (r *RunRepository) Create(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	run.SetID(shared.GenerateID())
	run.SetSequence(sequence)

	query := `INSERT INTO runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.Exec(query,
		run.ID(),
		run.Sequence(),
		run.Kind(),
		run.Status(),
		run.SnapshotPath(),
		run.RecordsTotal(),
		run.RecordsWritten(),
		run.RecordsFailed(),
		nullString(run.ErrorMessage()),
		run.StartedAt(),
		run.CompletedAt(),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID
func (r *RunRepository) Get(id string) (*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`

	run, err := scanRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: run %s", shared.ErrDocumentNotFound, id)
	}
	return run, err
}

// Update writes the run's status, totals and timestamps
func (r *RunRepository) Update(run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	run.SetUpdatedAt(now)

	query := `
		UPDATE runs
		SET status = ?, records_total = ?, records_written = ?, records_failed = ?,
			error_message = ?, started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		run.Status(),
		run.RecordsTotal(),
		run.RecordsWritten(),
		run.RecordsFailed(),
		nullString(run.ErrorMessage()),
		run.StartedAt(),
		run.CompletedAt(),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: run %s", shared.ErrDocumentNotFound, run.ID())
	}

	return nil
}

// Delete removes a run by ID
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: run %s", shared.ErrDocumentNotFound, id)
	}

	return nil
}

// List retrieves runs matching the given criteria, newest first.
//
// Supported criteria: "kind" and "status" (string), "limit" (int).
func (r *RunRepository) List(criteria map[string]any) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1 = 1`
	args := []any{}

	if kind, ok := criteria["kind"].(string); ok && kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans a single row into a [models.Run]
func scanRun(row scanner) (*models.Run, error) {
	var (
		id             string
		sequence       int
		kind           string
		status         string
		snapshotPath   string
		recordsTotal   int
		recordsWritten int
		recordsFailed  int
		errorMessage   sql.NullString
		startedAt      sql.NullTime
		completedAt    sql.NullTime
		createdAt      time.Time
		updatedAt      time.Time
	)

	err := row.Scan(
		&id, &sequence, &kind, &status, &snapshotPath, &recordsTotal,
		&recordsWritten, &recordsFailed, &errorMessage, &startedAt,
		&completedAt, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run := models.NewRun(kind, snapshotPath)
	run.SetID(id)
	run.SetSequence(sequence)
	run.SetStatus(status)
	run.SetRecords(recordsTotal, recordsWritten, recordsFailed)
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)
	run.SetStartedAt(nil)
	if errorMessage.Valid {
		run.SetErrorMessage(errorMessage.String)
	}
	if startedAt.Valid {
		run.SetStartedAt(&startedAt.Time)
	}
	if completedAt.Valid {
		run.SetCompletedAt(&completedAt.Time)
	}

	return run, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
