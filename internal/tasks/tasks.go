// package tasks implements the extract and load stages of the liked-tracks pipeline.
//
// The core abstraction is Engine, which drives a [services.Source] into a snapshot file
// and a snapshot file into a [repositories.Store].
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/likedb/internal/dataset"
	"github.com/desertthunder/likedb/internal/loader"
	"github.com/desertthunder/likedb/internal/models"
	"github.com/desertthunder/likedb/internal/repositories"
	"github.com/desertthunder/likedb/internal/services"
	"github.com/desertthunder/likedb/internal/shared"
)

// RunRecorder persists run history. [repositories.RunRepository] implements it.
type RunRecorder interface {
	Create(run *models.Run) error
	Update(run *models.Run) error
}

// ExtractResult contains all data from an extraction.
type ExtractResult struct {
	Snapshot *models.Snapshot
	Skipped  []dataset.SkippedRecord // Records left out of the snapshot
	Path     string                  // Where the snapshot was written
	Run      *models.Run             // Recorded run, nil without a recorder
}

// LoadResult contains all data from a load.
type LoadResult struct {
	Snapshot *models.Snapshot
	Report   *loader.Report
	Run      *models.Run
}

// Options configures an [Engine].
type Options struct {
	TopN   int // Ranking length, [dataset.DefaultTopN] when zero
	Loader loader.Options
	Runs   RunRecorder
	Logger *log.Logger
}

// Engine runs the pipeline stages.
//
// Either dependency may be nil when only the other stage is used.
type Engine struct {
	source services.Source
	store  repositories.Store
	opts   Options
	logger *log.Logger
}

// NewEngine creates a new Engine with the provided source and store.
func NewEngine(source services.Source, store repositories.Store, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if opts.Loader.Logger == nil {
		opts.Loader.Logger = logger
	}
	return &Engine{source: source, store: store, opts: opts, logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// startRun records a running run. Recorder failures are logged, never fatal.
func (e *Engine) startRun(kind, path string) *models.Run {
	if e.opts.Runs == nil {
		return nil
	}
	run := models.NewRun(kind, path)
	if err := e.opts.Runs.Create(run); err != nil {
		e.logger.Warn("failed to record run", "kind", kind, "err", err)
		return nil
	}
	return run
}

func (e *Engine) finishRun(run *models.Run, err error) {
	if run == nil {
		return
	}
	run.Finish(err)
	if updateErr := e.opts.Runs.Update(run); updateErr != nil {
		e.logger.Warn("failed to update run", "id", run.ID(), "err", updateErr)
	}
}

// Extract fetches the account's likes and track details, aggregates them and writes
// the snapshot to path.
//
// Records without identity or with an unusable timestamp are skipped and returned in
// the result. Source and write failures are fatal.
func (e *Engine) Extract(ctx context.Context, progress chan<- ProgressUpdate, path string) (result *ExtractResult, err error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: source not initialized", shared.ErrServiceUnavailable)
	}
	if path == "" {
		return nil, fmt.Errorf("%w: snapshot path", shared.ErrMissingArgument)
	}

	run := e.startRun(models.RunKindExtract, path)
	defer func() { e.finishRun(run, err) }()

	logger := shared.WithLogger(e.logger, "source", e.source.Name())

	e.sendProgress(progress, fetchLikesUpdate(e.source.Name()))
	likes, err := e.source.LikedTracks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch liked tracks: %w", err)
	}
	logger.Info("fetched likes", "count", len(likes))

	agg := dataset.NewAggregator(e.opts.TopN)
	for _, like := range likes {
		if err := agg.AddLike(like); err != nil {
			logger.Debug("skipped like", "err", err)
		}
	}

	ids := agg.TrackIDs()
	e.sendProgress(progress, fetchTracksUpdate(len(ids)))
	var details []models.RawTrack
	if len(ids) > 0 {
		details, err = e.source.Tracks(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch track details: %w", err)
		}
	}
	logger.Info("fetched track details", "requested", len(ids), "received", len(details))

	for i, raw := range details {
		e.sendProgress(progress, normalizeUpdate(i+1, len(details)))
		if err := agg.AddTrack(raw); err != nil {
			logger.Debug("skipped track", "err", err)
		}
	}

	snapshot := agg.Snapshot()
	skipped := agg.Skipped()

	e.sendProgress(progress, writeSnapshotUpdate(path))
	if err := dataset.WriteSnapshot(path, snapshot); err != nil {
		return nil, err
	}

	if run != nil {
		run.SetRecords(len(likes)+len(details), len(snapshot.Likes)+len(snapshot.Tracks), len(skipped))
	}

	logger.Info("snapshot written",
		"path", path,
		"likes", snapshot.Summary.NLikes,
		"tracks", snapshot.Summary.NTracks,
		"skipped", len(skipped),
	)

	return &ExtractResult{Snapshot: snapshot, Skipped: skipped, Path: path, Run: run}, nil
}

// Load reads the snapshot at path and writes it into the store.
//
// Snapshot errors are returned before the store is touched. Item failures do not fail
// the load; they are in the report, and [loader.Report.Err] describes them.
func (e *Engine) Load(ctx context.Context, progress chan<- ProgressUpdate, path string) (result *LoadResult, err error) {
	if e.store == nil {
		return nil, fmt.Errorf("%w: store not initialized", shared.ErrStoreUnavailable)
	}

	run := e.startRun(models.RunKindLoad, path)
	defer func() { e.finishLoad(run, result, err) }()

	e.sendProgress(progress, readSnapshotUpdate(path))
	snapshot, err := dataset.ReadSnapshot(path)
	if err != nil {
		return nil, err
	}

	return e.load(ctx, progress, run, snapshot)
}

// LoadSnapshot writes an already read snapshot into the store. path is only recorded
// in the run history.
func (e *Engine) LoadSnapshot(ctx context.Context, progress chan<- ProgressUpdate, path string, snapshot *models.Snapshot) (result *LoadResult, err error) {
	if e.store == nil {
		return nil, fmt.Errorf("%w: store not initialized", shared.ErrStoreUnavailable)
	}
	if snapshot == nil {
		return nil, fmt.Errorf("%w: nil snapshot", shared.ErrMissingArgument)
	}

	run := e.startRun(models.RunKindLoad, path)
	defer func() { e.finishLoad(run, result, err) }()

	return e.load(ctx, progress, run, snapshot)
}

func (e *Engine) finishLoad(run *models.Run, result *LoadResult, err error) {
	if err == nil && result != nil {
		e.finishRun(run, result.Report.Err())
		return
	}
	e.finishRun(run, err)
}

func (e *Engine) load(ctx context.Context, progress chan<- ProgressUpdate, run *models.Run, snapshot *models.Snapshot) (*LoadResult, error) {
	opts := e.opts.Loader
	var step atomic.Int32
	onCollection := opts.OnCollection
	opts.OnCollection = func(c loader.CollectionResult) {
		n := int(step.Add(1))
		e.sendProgress(progress, loadCollectionUpdate(n, len(repositories.Collections), c))
		if onCollection != nil {
			onCollection(c)
		}
	}

	e.sendProgress(progress, ensureIndexesUpdate())
	report, err := loader.New(e.store, opts).Load(ctx, snapshot)

	if run != nil && report != nil {
		total, written, failed := report.Totals()
		run.SetRecords(total, written, failed)
	}

	if report == nil {
		return nil, err
	}
	return &LoadResult{Snapshot: snapshot, Report: report, Run: run}, err
}
