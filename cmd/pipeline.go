package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/likedb/internal/dataset"
	"github.com/desertthunder/likedb/internal/formatter"
	"github.com/desertthunder/likedb/internal/loader"
	"github.com/desertthunder/likedb/internal/models"
	"github.com/desertthunder/likedb/internal/repositories"
	"github.com/desertthunder/likedb/internal/services"
	"github.com/desertthunder/likedb/internal/tasks"
)

// maxListed caps how many skipped records or failed items are printed.
const maxListed = 20

// Extract fetches liked tracks and writes the snapshot.
func (r *Runner) Extract(ctx context.Context, cmd *cli.Command) error {
	path := r.snapshotPath(cmd)

	source, err := r.newSource()
	if err != nil {
		return err
	}

	db, err := r.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := r.extract(ctx, source, db, path)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		data, err := formatter.SummaryToJSON(result.Snapshot)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	}

	r.writeExtractSummary(result)
	return nil
}

// Load writes the snapshot into the configured store.
//
// The snapshot is read before the database or the store is opened, so a missing or
// malformed snapshot never touches either.
func (r *Runner) Load(ctx context.Context, cmd *cli.Command) error {
	path := r.snapshotPath(cmd)

	snapshot, err := r.readSnapshot(path)
	if err != nil {
		return err
	}

	db, err := r.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	return r.load(ctx, cmd, db, path, snapshot)
}

// Run extracts then loads.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	path := r.snapshotPath(cmd)

	source, err := r.newSource()
	if err != nil {
		return err
	}

	db, err := r.openDatabase(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := r.extract(ctx, source, db, path)
	if err != nil {
		return err
	}
	r.writeExtractSummary(result)
	r.writePlain("\n")

	snapshot, err := r.readSnapshot(path)
	if err != nil {
		return err
	}
	return r.load(ctx, cmd, db, path, snapshot)
}

func (r *Runner) readSnapshot(path string) (*models.Snapshot, error) {
	r.logger.Debug("reading snapshot", "path", path)
	return dataset.ReadSnapshot(path)
}

func (r *Runner) extract(ctx context.Context, source services.Source, db *sql.DB, path string) (*tasks.ExtractResult, error) {
	r.logger.Info("starting extract", "source", source.Name(), "snapshot", path)

	engine := r.newEngine(source, nil, db, nil)
	progress, stop := r.watchProgress()
	result, err := engine.Extract(ctx, progress, path)
	stop()

	return result, err
}

func (r *Runner) load(ctx context.Context, cmd *cli.Command, db *sql.DB, path string, snapshot *models.Snapshot) error {
	cfg := r.cfg()
	if cmd.Bool("parallel") {
		cfg.Store.Parallel = true
	}

	store, err := repositories.OpenStore(ctx, cfg.Store, db)
	if err != nil {
		return err
	}
	defer store.Close()

	var metrics *loader.Metrics
	metricsFile := cmd.String("metrics-file")
	if metricsFile != "" {
		metrics = loader.NewMetrics()
	}

	r.logger.Info("starting load", "driver", cfg.Store.Driver, "snapshot", path)

	engine := r.newEngine(nil, store, db, metrics)
	progress, stop := r.watchProgress()
	result, err := engine.LoadSnapshot(ctx, progress, path, snapshot)
	stop()

	if metrics != nil {
		if writeErr := metrics.WriteTextfile(metricsFile); writeErr != nil {
			r.logger.Warn("failed to write metrics", "path", metricsFile, "err", writeErr)
		} else {
			r.logger.Debug("metrics written", "path", metricsFile)
		}
	}

	if err != nil {
		return err
	}

	r.writeLoadSummary(result.Report)
	return result.Report.Err()
}

func (r *Runner) writeExtractSummary(result *tasks.ExtractResult) {
	s := result.Snapshot.Summary

	r.writePlainHeader("Extract Complete")
	r.writePlain("%s\n", r.palette.OK("Snapshot saved to "+result.Path))
	r.writePlain("Likes: %d  Tracks: %d  Artists: %d  Genres: %d\n", s.NLikes, s.NTracks, s.NArtists, s.NGenres)
	if s.Period != nil {
		r.writePlain("Period: %s .. %s\n", s.Period[0], s.Period[1])
	}

	if len(result.Skipped) == 0 {
		return
	}

	r.writePlain("\n%s\n", r.palette.Warn(fmt.Sprintf("Skipped %d records:", len(result.Skipped))))
	for i, rec := range result.Skipped {
		if i == maxListed {
			r.writePlain("  ... and %d more\n", len(result.Skipped)-maxListed)
			break
		}
		r.writePlain("  - %s\n", rec)
	}
	r.logger.Debug("skipped records", "err", dataset.SkippedErrors(result.Skipped))
}

func (r *Runner) writeLoadSummary(report *loader.Report) {
	total, written, failed := report.Totals()

	r.writePlainHeader("Load Complete")
	for _, c := range report.Collections {
		line := fmt.Sprintf("%-13s %d items: %d upserted, %d matched", c.Name, c.Total, c.Upserted, c.Matched)
		if len(c.Failures) > 0 {
			line += fmt.Sprintf(", %d failed", len(c.Failures))
		}
		r.writePlain("%s\n", r.palette.Status(len(c.Failures) == 0, line))
	}
	r.writePlain("Written: %d/%d in %s\n", written, total, report.Duration)

	if failed == 0 {
		return
	}

	r.writePlain("\n%s\n", r.palette.Warn(fmt.Sprintf("Failed %d items:", failed)))
	for i, f := range report.Failures {
		if i == maxListed {
			r.writePlain("  ... and %d more\n", failed-maxListed)
			break
		}
		r.writePlain("  - %s\n", f.Error())
	}
}
