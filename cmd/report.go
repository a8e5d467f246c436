package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/likedb/internal/dataset"
	"github.com/desertthunder/likedb/internal/formatter"
	"github.com/desertthunder/likedb/internal/models"
	"github.com/desertthunder/likedb/internal/repositories"
	"github.com/desertthunder/likedb/internal/shared"
)

// Report renders the snapshot summary to stdout or a file.
func (r *Runner) Report(ctx context.Context, cmd *cli.Command) error {
	snapshot, err := dataset.ReadSnapshot(r.snapshotPath(cmd))
	if err != nil {
		return err
	}

	format := cmd.String("format")
	output := cmd.String("output")

	if output == "" {
		data, err := formatter.Render(snapshot, format)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	}

	if format == formatter.FormatCSV {
		result, err := formatter.WriteCSVExport(snapshot, output)
		if err != nil {
			return err
		}
		r.writePlain("%s\n", r.palette.OK("Genre stats written to "+result.GenresFile))
		r.writePlain("%s\n", r.palette.OK("Tracks written to "+result.TracksFile))
		return nil
	}

	path, err := formatter.WriteReport(snapshot, format, output)
	if err != nil {
		return err
	}
	r.writePlain("%s\n", r.palette.OK("Report written to "+path))
	return nil
}

// runView is the JSON shape of a [models.Run].
type runView struct {
	ID             string  `json:"id"`
	Sequence       int     `json:"sequence"`
	Kind           string  `json:"kind"`
	Status         string  `json:"status"`
	SnapshotPath   string  `json:"snapshot_path"`
	RecordsTotal   int     `json:"records_total"`
	RecordsWritten int     `json:"records_written"`
	RecordsFailed  int     `json:"records_failed"`
	Error          string  `json:"error,omitempty"`
	StartedAt      *string `json:"started_at"`
	CompletedAt    *string `json:"completed_at"`
	DurationMs     int64   `json:"duration_ms"`
}

func newRunView(run *models.Run) runView {
	stamp := func(t *time.Time) *string {
		if t == nil {
			return nil
		}
		s := shared.FormatTimestamp(*t)
		return &s
	}

	return runView{
		ID:             run.ID(),
		Sequence:       run.Sequence(),
		Kind:           run.Kind(),
		Status:         run.Status(),
		SnapshotPath:   run.SnapshotPath(),
		RecordsTotal:   run.RecordsTotal(),
		RecordsWritten: run.RecordsWritten(),
		RecordsFailed:  run.RecordsFailed(),
		Error:          run.ErrorMessage(),
		StartedAt:      stamp(run.StartedAt()),
		CompletedAt:    stamp(run.CompletedAt()),
		DurationMs:     run.Duration().Milliseconds(),
	}
}

// Runs lists run history, newest first.
func (r *Runner) Runs(ctx context.Context, cmd *cli.Command) error {
	kind := cmd.String("kind")
	if kind != "" && kind != models.RunKindExtract && kind != models.RunKindLoad {
		return fmt.Errorf("%w: kind must be %s or %s", shared.ErrInvalidArgument, models.RunKindExtract, models.RunKindLoad)
	}

	db, err := r.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := repositories.NewRunRepository(db).List(map[string]any{
		"kind":   kind,
		"status": cmd.String("status"),
		"limit":  int(cmd.Int("limit")),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		views := make([]runView, 0, len(runs))
		for _, run := range runs {
			views = append(views, newRunView(run))
		}
		return r.writeJSON(views, true)
	}

	return r.writePlain("%s", formatter.RunsToText(runs))
}
