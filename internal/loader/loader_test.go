package loader

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/desertthunder/likedb/internal/dataset"
	"github.com/desertthunder/likedb/internal/models"
	"github.com/desertthunder/likedb/internal/repositories"
	"github.com/desertthunder/likedb/internal/shared"
	tu "github.com/desertthunder/likedb/internal/testing"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func setupStore(t *testing.T) (*sql.DB, *repositories.DocStore) {
	t.Helper()

	db, err := shared.OpenDatabase(context.Background(), shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db, repositories.NewDocStore(db)
}

func newLoader(store repositories.Store, opts Options) *Loader {
	var buf bytes.Buffer
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(&buf)
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return fixedNow }
	}
	return New(store, opts)
}

func sampleSnapshot(t *testing.T) *models.Snapshot {
	t.Helper()
	agg := dataset.NewAggregator(0)
	for _, l := range tu.SampleLikes() {
		if err := agg.AddLike(l); err != nil {
			t.Fatalf("AddLike() error = %v", err)
		}
	}
	for _, tr := range tu.SampleTracks() {
		if err := agg.AddTrack(tr); err != nil {
			t.Fatalf("AddTrack() error = %v", err)
		}
	}
	return agg.Snapshot()
}

// dump returns every row of every collection keyed by collection and id.
func dump(t *testing.T, db *sql.DB) map[string]string {
	t.Helper()
	out := make(map[string]string)
	for _, name := range repositories.Collections {
		rows, err := db.Query(fmt.Sprintf("SELECT id, doc FROM %s", name))
		if err != nil {
			t.Fatalf("failed to query %s: %v", name, err)
		}
		for rows.Next() {
			var id, doc string
			if err := rows.Scan(&id, &doc); err != nil {
				t.Fatalf("failed to scan %s: %v", name, err)
			}
			out[name+"/"+id] = doc
		}
		rows.Close()
	}
	return out
}

func count(t *testing.T, store repositories.Store, name string) int64 {
	t.Helper()
	n, err := store.Collection(name).Count(context.Background())
	if err != nil {
		t.Fatalf("Count(%s) error = %v", name, err)
	}
	return n
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("collections", func(t *testing.T) {
		_, store := setupStore(t)
		report, err := newLoader(store, Options{}).Load(ctx, sampleSnapshot(t))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if report.Err() != nil {
			t.Fatalf("unexpected failures %v", report.Failures)
		}

		want := map[string]int64{
			repositories.CollectionTracks:      2,
			repositories.CollectionArtists:     2,
			repositories.CollectionAlbums:      2,
			repositories.CollectionLikes:       3,
			repositories.CollectionGenresStats: 3,
			repositories.CollectionMeta:        1,
		}
		for name, n := range want {
			if got := count(t, store, name); got != n {
				t.Errorf("%s count = %d, want %d", name, got, n)
			}
		}

		total, written, failed := report.Totals()
		if total != 13 || written != 13 || failed != 0 {
			t.Errorf("Totals() = %d/%d/%d", total, written, failed)
		}
		if report.LoadedAt != "2024-03-01T12:00:00Z" {
			t.Errorf("LoadedAt = %s", report.LoadedAt)
		}
	})

	t.Run("documents", func(t *testing.T) {
		_, store := setupStore(t)
		if _, err := newLoader(store, Options{}).Load(ctx, sampleSnapshot(t)); err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		var track TrackDocument
		if err := store.Collection(repositories.CollectionTracks).FindOne(ctx, repositories.IDKey(int64(101)), &track); err != nil {
			t.Fatalf("FindOne(track) error = %v", err)
		}
		if *track.PrimaryGenre != "rock" || !track.Explicit || track.UpdatedAt != "2024-03-01T12:00:00Z" {
			t.Errorf("unexpected track %+v", track)
		}

		var album AlbumDocument
		if err := store.Collection(repositories.CollectionAlbums).FindOne(ctx, repositories.IDKey(int64(11)), &album); err != nil {
			t.Fatalf("FindOne(album) error = %v", err)
		}
		if album.Genre == nil || *album.Genre != "pop" {
			t.Errorf("album 11 should carry the last-seen genre, got %+v", album)
		}

		var stat GenreStatDocument
		if err := store.Collection(repositories.CollectionGenresStats).FindOne(ctx, repositories.IDKey("indie"), &stat); err != nil {
			t.Fatalf("FindOne(genre) error = %v", err)
		}
		if stat.Cnt != 2 {
			t.Errorf("indie count = %d, want 2", stat.Cnt)
		}

		var summary SummaryDocument
		if err := store.Collection(repositories.CollectionMeta).FindOne(ctx, repositories.IDKey(SummaryID), &summary); err != nil {
			t.Fatalf("FindOne(summary) error = %v", err)
		}
		if summary.Summary.NLikes != 3 || len(summary.Summary.Period) != 2 {
			t.Errorf("unexpected summary %+v", summary.Summary)
		}
		if len(summary.TopArtists) != 2 || summary.TopArtists[0][0] != "Band" {
			t.Errorf("unexpected top artists %v", summary.TopArtists)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		db, store := setupStore(t)
		loader := newLoader(store, Options{})
		snapshot := sampleSnapshot(t)

		if _, err := loader.Load(ctx, snapshot); err != nil {
			t.Fatalf("first Load() error = %v", err)
		}
		before := dump(t, db)

		report, err := loader.Load(ctx, snapshot)
		if err != nil {
			t.Fatalf("second Load() error = %v", err)
		}
		after := dump(t, db)

		if len(before) != len(after) {
			t.Fatalf("document count changed from %d to %d", len(before), len(after))
		}
		for k, v := range before {
			if after[k] != v {
				t.Errorf("%s changed:\n%s\n%s", k, v, after[k])
			}
		}

		for _, c := range report.Collections {
			if c.Upserted != 0 || c.Matched != c.Total {
				t.Errorf("%s: second load should only match, got %+v", c.Name, c.BatchResult)
			}
		}
	})

	t.Run("new like adds one", func(t *testing.T) {
		_, store := setupStore(t)
		loader := newLoader(store, Options{})
		snapshot := sampleSnapshot(t)

		if _, err := loader.Load(ctx, snapshot); err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		next := *snapshot
		next.Likes = append(append([]models.Like{}, snapshot.Likes...), models.Like{TrackID: 102, LikedAt: "2024-02-02T00:00:00+00:00"})

		report, err := loader.Load(ctx, &next)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got := count(t, store, repositories.CollectionLikes); got != 4 {
			t.Errorf("likes count = %d, want 4", got)
		}
		if likes := report.Result(repositories.CollectionLikes); likes.Upserted != 1 || likes.Matched != 3 {
			t.Errorf("unexpected likes result %+v", likes.BatchResult)
		}
	})

	t.Run("identical like adds zero", func(t *testing.T) {
		_, store := setupStore(t)
		loader := newLoader(store, Options{})
		snapshot := sampleSnapshot(t)

		if _, err := loader.Load(ctx, snapshot); err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		dup := *snapshot
		dup.Likes = []models.Like{snapshot.Likes[0], snapshot.Likes[0]}

		report, err := loader.Load(ctx, &dup)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if err := report.Err(); err != nil {
			t.Errorf("an already present like should not be a failure: %v", err)
		}
		if got := count(t, store, repositories.CollectionLikes); got != 3 {
			t.Errorf("likes count = %d, want 3", got)
		}
	})

	t.Run("partial batch failure", func(t *testing.T) {
		_, store := setupStore(t)
		snapshot := sampleSnapshot(t)
		snapshot.GenresStats["broken"] = -1

		report, err := newLoader(store, Options{}).Load(ctx, snapshot)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if !errors.Is(report.Err(), shared.ErrPartialBatchFailure) {
			t.Fatalf("expected ErrPartialBatchFailure, got %v", report.Err())
		}
		if len(report.Failures) != 1 || report.Failures[0].Key != "broken" {
			t.Errorf("unexpected failures %v", report.Failures)
		}
		if got := count(t, store, repositories.CollectionGenresStats); got != 3 {
			t.Errorf("remaining genre stats should load, count = %d", got)
		}
		if got := count(t, store, repositories.CollectionMeta); got != 1 {
			t.Errorf("later collections should still load, meta count = %d", got)
		}
	})

	t.Run("primary genre fallback", func(t *testing.T) {
		_, store := setupStore(t)
		snapshot := &models.Snapshot{
			Tracks:      []models.Track{{ID: 5, Genres: []string{"ambient", "techno"}}},
			GenresStats: map[string]int{},
		}

		if _, err := newLoader(store, Options{}).Load(ctx, snapshot); err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		var track TrackDocument
		if err := store.Collection(repositories.CollectionTracks).FindOne(ctx, repositories.IDKey(int64(5)), &track); err != nil {
			t.Fatalf("FindOne() error = %v", err)
		}
		if track.PrimaryGenre == nil || *track.PrimaryGenre != "ambient" {
			t.Errorf("PrimaryGenre = %v, want ambient", track.PrimaryGenre)
		}
		if track.Artists == nil || track.Albums == nil {
			t.Error("reference lists should be empty, not null")
		}
	})

	t.Run("artists re-derived last wins", func(t *testing.T) {
		_, store := setupStore(t)
		snapshot := &models.Snapshot{
			Tracks: []models.Track{
				{ID: 1, Artists: []models.ArtistRef{{ID: 9, Name: tu.Str("Old")}}},
				{ID: 2, Artists: []models.ArtistRef{{ID: 9, Name: tu.Str("New")}}},
			},
		}

		if _, err := newLoader(store, Options{}).Load(ctx, snapshot); err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		var artist ArtistDocument
		if err := store.Collection(repositories.CollectionArtists).FindOne(ctx, repositories.IDKey(int64(9)), &artist); err != nil {
			t.Fatalf("FindOne() error = %v", err)
		}
		if *artist.Name != "New" {
			t.Errorf("artist name = %s, want New", *artist.Name)
		}
		if got := count(t, store, repositories.CollectionArtists); got != 1 {
			t.Errorf("artists count = %d, want 1", got)
		}
	})

	t.Run("empty snapshot", func(t *testing.T) {
		_, store := setupStore(t)
		report, err := newLoader(store, Options{}).Load(ctx, dataset.NewAggregator(0).Snapshot())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got := count(t, store, repositories.CollectionMeta); got != 1 {
			t.Errorf("summary should be written even without likes, count = %d", got)
		}
		var summary SummaryDocument
		_ = store.Collection(repositories.CollectionMeta).FindOne(ctx, repositories.IDKey(SummaryID), &summary)
		if summary.Summary.Period != nil {
			t.Errorf("period should be null, got %v", summary.Summary.Period)
		}
		if report.Err() != nil {
			t.Errorf("unexpected failures %v", report.Failures)
		}
	})

	t.Run("nil snapshot", func(t *testing.T) {
		_, store := setupStore(t)
		if _, err := newLoader(store, Options{}).Load(ctx, nil); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestLoadParallel(t *testing.T) {
	ctx := context.Background()
	db, store := setupStore(t)

	var mu sync.Mutex
	var seen []string
	loader := newLoader(store, Options{
		Parallel: true,
		OnCollection: func(r CollectionResult) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, r.Name)
		},
	})

	report, err := loader.Load(ctx, sampleSnapshot(t))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(seen) != len(repositories.Collections) {
		t.Errorf("OnCollection called %d times, want %d", len(seen), len(repositories.Collections))
	}
	for i, c := range report.Collections {
		if c.Name != repositories.Collections[i] {
			t.Errorf("report order should follow collection order, got %s at %d", c.Name, i)
		}
	}

	sequential, seqStore := setupStore(t)
	if _, err := newLoader(seqStore, Options{}).Load(ctx, sampleSnapshot(t)); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if a, b := dump(t, db), dump(t, sequential); len(a) != len(b) {
		t.Errorf("parallel load wrote %d documents, sequential %d", len(a), len(b))
	}
}

func TestLoadParallelFileDatabase(t *testing.T) {
	ctx := context.Background()
	cfg := shared.DatabaseConfig{Path: filepath.Join(t.TempDir(), "likedb.db"), MaxOpenConns: 8, MaxIdleConns: 8}

	db, err := shared.OpenDatabase(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	t.Run("one store", func(t *testing.T) {
		loader := newLoader(repositories.NewDocStore(db), Options{Parallel: true})
		for i := range 20 {
			report, err := loader.Load(ctx, sampleSnapshot(t))
			if err != nil {
				t.Fatalf("load %d: Load() error = %v", i, err)
			}
			if err := report.Err(); err != nil {
				t.Fatalf("load %d: Report.Err() = %v", i, err)
			}
		}
	})

	t.Run("concurrent stores", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make(chan error, 4)
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				report, err := newLoader(repositories.NewDocStore(db), Options{Parallel: true}).Load(ctx, sampleSnapshot(t))
				if err == nil {
					err = report.Err()
				}
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)

		for err := range errs {
			if err != nil {
				t.Errorf("Load() error = %v", err)
			}
		}
	})
}

func TestEnsureIndexes(t *testing.T) {
	ctx := context.Background()
	db, store := setupStore(t)
	loader := newLoader(store, Options{})

	for i := 0; i < 2; i++ {
		if err := loader.EnsureIndexes(ctx); err != nil {
			t.Fatalf("EnsureIndexes() run %d error = %v", i+1, err)
		}
	}

	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND tbl_name != 'runs' AND name LIKE 'idx\\_%' ESCAPE '\\'").Scan(&n); err != nil {
		t.Fatalf("failed to count indexes: %v", err)
	}

	want := 0
	for _, specs := range Indexes {
		want += len(specs)
	}
	if n != want {
		t.Errorf("index count = %d, want %d", n, want)
	}
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	_, store := setupStore(t)
	metrics := NewMetrics()

	if _, err := newLoader(store, Options{Metrics: metrics}).Load(ctx, sampleSnapshot(t)); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.DocumentsTotal.WithLabelValues(repositories.CollectionLikes, OutcomeUpserted)); got != 3 {
		t.Errorf("likes upserted = %v, want 3", got)
	}
	if got := testutil.ToFloat64(metrics.LastSuccess); got != float64(fixedNow.Unix()) {
		t.Errorf("last success = %v, want %v", got, fixedNow.Unix())
	}

	path := filepath.Join(t.TempDir(), "likedb.prom")
	if err := metrics.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	content := tu.MustReadFile(t, path)
	for _, want := range []string{"likedb_load_documents_total", `outcome="matched"`, "likedb_load_last_success_timestamp_seconds"} {
		if !strings.Contains(content, want) {
			t.Errorf("textfile missing %s", want)
		}
	}
}

type unavailableStore struct{ repositories.Store }

func (s unavailableStore) Collection(name string) repositories.Collection {
	return unavailableCollection{name: name}
}

type unavailableCollection struct {
	repositories.Collection
	name string
}

func (c unavailableCollection) EnsureIndexes(context.Context, []repositories.IndexSpec) error {
	return nil
}

func (c unavailableCollection) BulkUpsert(context.Context, []repositories.WriteModel) (*repositories.BatchResult, error) {
	return nil, fmt.Errorf("%w: connection refused", shared.ErrStoreUnavailable)
}

func TestLoadStoreUnavailable(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		t.Run(fmt.Sprintf("parallel=%v", parallel), func(t *testing.T) {
			report, err := newLoader(unavailableStore{}, Options{Parallel: parallel}).Load(context.Background(), sampleSnapshot(t))
			if !errors.Is(err, shared.ErrStoreUnavailable) {
				t.Errorf("expected ErrStoreUnavailable, got %v", err)
			}
			if report == nil || len(report.Collections) != 0 {
				t.Errorf("no collection should be reported as loaded, got %+v", report)
			}
		})
	}
}
