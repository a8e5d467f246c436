package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/likedb/internal/models"
	"github.com/desertthunder/likedb/internal/repositories"
	"github.com/desertthunder/likedb/internal/shared"
)

// Options configures a [Loader].
type Options struct {
	// Parallel loads the collections concurrently instead of one after another.
	Parallel bool
	Logger   *log.Logger
	// Clock stamps updatedAt; defaults to time.Now.
	Clock   func() time.Time
	Metrics *Metrics
	// OnCollection is called after each collection batch completes,
	// concurrently when Parallel is set.
	OnCollection func(result CollectionResult)
}

// CollectionResult is the outcome of one collection's batch.
type CollectionResult struct {
	Name  string
	Total int
	repositories.BatchResult
}

// Report is the outcome of a load.
type Report struct {
	Collections []CollectionResult
	Failures    []repositories.ItemFailure
	LoadedAt    string
	Duration    time.Duration
}

// Result returns the result for the named collection, or nil.
func (r *Report) Result(name string) *CollectionResult {
	for i := range r.Collections {
		if r.Collections[i].Name == name {
			return &r.Collections[i]
		}
	}
	return nil
}

// Totals sums the items, successful writes and failures of every collection.
func (r *Report) Totals() (total, written, failed int) {
	for _, c := range r.Collections {
		total += c.Total
		written += c.Written()
		failed += len(c.Failures)
	}
	return total, written, failed
}

// Err returns an error wrapping [shared.ErrPartialBatchFailure] when any item failed.
func (r *Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	total, _, failed := r.Totals()
	return fmt.Errorf("%w: %d of %d items failed", shared.ErrPartialBatchFailure, failed, total)
}

// Loader writes snapshots into a [repositories.Store].
type Loader struct {
	store  repositories.Store
	opts   Options
	logger *log.Logger
}

// New creates a Loader over store.
func New(store repositories.Store, opts Options) *Loader {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Loader{store: store, opts: opts, logger: logger}
}

// EnsureIndexes creates the secondary indexes of every collection. Existing indexes are left as they are.
func (l *Loader) EnsureIndexes(ctx context.Context) error {
	for _, name := range repositories.Collections {
		specs, ok := Indexes[name]
		if !ok {
			continue
		}
		if err := l.store.Collection(name).EnsureIndexes(ctx, specs); err != nil {
			return fmt.Errorf("failed to ensure indexes on %s: %w", name, err)
		}
		l.logger.Debug("indexes ensured", "collection", name, "count", len(specs))
	}
	return nil
}

type batch struct {
	name   string
	writes []repositories.WriteModel
}

// Load makes the store reflect s.
//
// Indexes are ensured before any upsert. Each collection is written as one batch; items
// the store rejects are collected in the report and the load continues. A store error
// that is not item-level aborts the load and is returned with the partial report.
func (l *Loader) Load(ctx context.Context, s *models.Snapshot) (*Report, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil snapshot", shared.ErrInvalidInput)
	}

	started := l.opts.Clock()
	now := started.UTC().Format(time.RFC3339Nano)

	if err := l.EnsureIndexes(ctx); err != nil {
		return nil, err
	}

	batches := []batch{
		{repositories.CollectionTracks, trackWrites(s.Tracks, now)},
		{repositories.CollectionArtists, artistWrites(s.Tracks, now)},
		{repositories.CollectionAlbums, albumWrites(s.Tracks, now)},
		{repositories.CollectionLikes, likeWrites(s.Likes)},
		{repositories.CollectionGenresStats, genreStatWrites(s.GenresStats)},
		{repositories.CollectionMeta, summaryWrites(s, now)},
	}

	results := make([]*CollectionResult, len(batches))
	errs := make([]error, len(batches))

	if l.opts.Parallel {
		var wg sync.WaitGroup
		for i, b := range batches {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], errs[i] = l.upsert(ctx, b)
			}()
		}
		wg.Wait()
	} else {
		for i, b := range batches {
			results[i], errs[i] = l.upsert(ctx, b)
			if errs[i] != nil {
				break
			}
		}
	}

	report := &Report{LoadedAt: now}
	for _, r := range results {
		if r == nil {
			continue
		}
		report.Collections = append(report.Collections, *r)
		report.Failures = append(report.Failures, r.Failures...)
	}
	report.Duration = l.opts.Clock().Sub(started)

	if err := errors.Join(errs...); err != nil {
		return report, err
	}

	if len(report.Failures) == 0 {
		l.opts.Metrics.succeeded(l.opts.Clock())
	}
	return report, nil
}

func (l *Loader) upsert(ctx context.Context, b batch) (*CollectionResult, error) {
	start := time.Now()

	res, err := l.store.Collection(b.name).BulkUpsert(ctx, b.writes)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", b.name, err)
	}

	result := &CollectionResult{Name: b.name, Total: len(b.writes), BatchResult: *res}
	l.opts.Metrics.observe(b.name, res, time.Since(start))

	logger := shared.WithLogger(l.logger, "collection", b.name)
	logger.Info("loaded collection", "upserted", res.Upserted, "matched", res.Matched, "failed", len(res.Failures))
	for _, f := range res.Failures {
		logger.Warn("item failed", "index", f.Index, "key", f.Key, "err", f.Err)
	}

	if l.opts.OnCollection != nil {
		l.opts.OnCollection(*result)
	}
	return result, nil
}
