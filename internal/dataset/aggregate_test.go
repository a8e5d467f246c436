package dataset

import (
	"errors"
	"slices"
	"testing"

	"github.com/desertthunder/likedb/internal/models"
	"github.com/desertthunder/likedb/internal/shared"
	tu "github.com/desertthunder/likedb/internal/testing"
)

func newSampleAggregator(t *testing.T) *Aggregator {
	t.Helper()
	agg := NewAggregator(0)
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
	return agg
}

func TestAggregator(t *testing.T) {
	t.Run("TrackIDs", func(t *testing.T) {
		agg := newSampleAggregator(t)
		if got := agg.TrackIDs(); !slices.Equal(got, []int64{101, 102}) {
			t.Errorf("TrackIDs() = %v, want [101 102]", got)
		}
	})

	t.Run("shared entities survive once", func(t *testing.T) {
		agg := newSampleAggregator(t)

		artists := agg.Artists()
		if len(artists) != 2 || artists[0].ID != 1 || artists[1].ID != 2 {
			t.Fatalf("unexpected artists %+v", artists)
		}

		albums := agg.Albums()
		if len(albums) != 2 {
			t.Fatalf("expected 2 albums, got %d", len(albums))
		}
		if albums[0].ID != 11 || albums[0].Genre == nil || *albums[0].Genre != "pop" {
			t.Errorf("album 11 should carry the last-seen genre pop, got %+v", albums[0])
		}
	})

	t.Run("Snapshot", func(t *testing.T) {
		s := newSampleAggregator(t).Snapshot()

		if len(s.Likes) != 3 || len(s.Tracks) != 2 {
			t.Fatalf("expected 3 likes and 2 tracks, got %d and %d", len(s.Likes), len(s.Tracks))
		}

		wantStats := map[string]int{"indie": 2, "pop": 1, "rock": 1}
		for g, n := range wantStats {
			if s.GenresStats[g] != n {
				t.Errorf("GenresStats[%s] = %d, want %d", g, s.GenresStats[g], n)
			}
		}
		if len(s.GenresStats) != len(wantStats) {
			t.Errorf("unexpected genres %v", s.GenresStats)
		}

		want := models.Summary{NLikes: 3, NTracks: 2, NArtists: 2, NGenres: 3}
		got := s.Summary
		if got.NLikes != want.NLikes || got.NTracks != want.NTracks || got.NArtists != want.NArtists || got.NGenres != want.NGenres {
			t.Errorf("Summary = %+v, want %+v", got, want)
		}

		if got.Period == nil {
			t.Fatal("Period should be set")
		}
		if *got.Period != (models.Period{"2023-05-01T10:00:00+00:00", "2024-01-02T00:00:00+00:00"}) {
			t.Errorf("Period = %v", *got.Period)
		}

		wantArtists := []models.Ranking{{Label: "Band", Count: 2}, {Label: "Guest", Count: 1}}
		if !slices.Equal(s.TopArtists, wantArtists) {
			t.Errorf("TopArtists = %v, want %v", s.TopArtists, wantArtists)
		}

		wantGenres := []models.Ranking{{Label: "indie", Count: 2}, {Label: "pop", Count: 1}, {Label: "rock", Count: 1}}
		if !slices.Equal(s.TopGenres, wantGenres) {
			t.Errorf("TopGenres = %v, want %v", s.TopGenres, wantGenres)
		}

		for _, tr := range s.Tracks {
			if !slices.IsSorted(tr.Genres) || slices.Contains(tr.Genres, "") {
				t.Errorf("track %d has unsorted or empty genres %v", tr.ID, tr.Genres)
			}
		}
	})

	t.Run("zero likes", func(t *testing.T) {
		s := NewAggregator(5).Snapshot()
		if s.Summary.Period != nil {
			t.Errorf("Period should be nil without likes, got %v", *s.Summary.Period)
		}
		if s.Likes == nil || s.Tracks == nil || s.TopArtists == nil || s.TopGenres == nil {
			t.Error("empty snapshot collections should not be nil")
		}
	})

	t.Run("duplicate track last wins", func(t *testing.T) {
		agg := NewAggregator(0)
		first := models.RawTrack{ID: models.NewRawID(7), Title: tu.Str("old"), Albums: []models.RawAlbum{{ID: models.NewRawID(1), Genre: tu.Str("jazz")}}}
		second := models.RawTrack{ID: models.NewRawID(7), Title: tu.Str("new"), Albums: []models.RawAlbum{{ID: models.NewRawID(1), Genre: tu.Str("soul")}}}

		_ = agg.AddTrack(first)
		_ = agg.AddTrack(second)

		s := agg.Snapshot()
		if len(s.Tracks) != 1 || *s.Tracks[0].Title != "new" {
			t.Fatalf("expected the later track to replace the earlier one, got %+v", s.Tracks)
		}
		if _, ok := s.GenresStats["jazz"]; ok {
			t.Error("genres of a replaced track should not be counted")
		}
		if s.GenresStats["soul"] != 1 {
			t.Errorf("GenresStats = %v", s.GenresStats)
		}
	})

	t.Run("likes kept as received", func(t *testing.T) {
		agg := NewAggregator(0)
		like := models.RawLike{ID: models.NewRawID(1), Timestamp: "2023-01-01T00:00:00+00:00"}
		_ = agg.AddLike(like)
		_ = agg.AddLike(like)

		s := agg.Snapshot()
		if s.Summary.NLikes != 2 || len(agg.TrackIDs()) != 1 {
			t.Errorf("duplicates should be kept, got %d likes and ids %v", s.Summary.NLikes, agg.TrackIDs())
		}
	})

	t.Run("skipped records", func(t *testing.T) {
		agg := NewAggregator(0)

		if err := agg.AddLike(models.RawLike{Timestamp: "2023-01-01T00:00:00Z"}); !errors.Is(err, shared.ErrMissingIdentity) {
			t.Errorf("expected ErrMissingIdentity, got %v", err)
		}
		if err := agg.AddLike(models.RawLike{ID: models.NewRawID(3), Timestamp: "not a time"}); !errors.Is(err, shared.ErrInvalidTimestamp) {
			t.Errorf("expected ErrInvalidTimestamp, got %v", err)
		}
		if err := agg.AddTrack(models.RawTrack{Title: tu.Str("no id")}); !errors.Is(err, shared.ErrMissingIdentity) {
			t.Errorf("expected ErrMissingIdentity, got %v", err)
		}
		_ = agg.AddTrack(models.RawTrack{ID: models.NewRawID(4), Artists: []models.RawArtist{{Name: tu.Str("x")}}})

		skipped := agg.Skipped()
		if len(skipped) != 4 {
			t.Fatalf("expected 4 skipped records, got %d: %v", len(skipped), skipped)
		}

		kinds := []string{skipped[0].Kind, skipped[1].Kind, skipped[2].Kind, skipped[3].Kind}
		if !slices.Equal(kinds, []string{KindLike, KindLike, KindTrack, KindArtist}) {
			t.Errorf("unexpected kinds %v", kinds)
		}
		if skipped[1].Position != 1 {
			t.Errorf("second like should be at position 1, got %d", skipped[1].Position)
		}

		s := agg.Snapshot()
		if s.Summary.NLikes != 0 || s.Summary.NTracks != 1 {
			t.Errorf("skipped records should not enter the dataset: %+v", s.Summary)
		}
		if !errors.Is(SkippedErrors(skipped), shared.ErrInvalidTimestamp) {
			t.Error("SkippedErrors should join every record error")
		}
		if SkippedErrors(nil) != nil {
			t.Error("SkippedErrors(nil) should be nil")
		}
	})

	t.Run("ranking tie-break and cut", func(t *testing.T) {
		agg := NewAggregator(2)
		artists := []models.RawArtist{
			{ID: models.NewRawID(30), Name: tu.Str("Zed")},
			{ID: models.NewRawID(20), Name: tu.Str("Amy")},
			{ID: models.NewRawID(10), Name: tu.Str("Amy")},
		}
		_ = agg.AddTrack(models.RawTrack{ID: models.NewRawID(1), Artists: artists})

		s := agg.Snapshot()
		want := []models.Ranking{{Label: "Amy", Count: 1}, {Label: "Amy", Count: 1}}
		if !slices.Equal(s.TopArtists, want) {
			t.Errorf("TopArtists = %v, want %v", s.TopArtists, want)
		}
	})

	t.Run("artist label falls back to id", func(t *testing.T) {
		agg := NewAggregator(0)
		_ = agg.AddTrack(models.RawTrack{ID: models.NewRawID(1), Artists: []models.RawArtist{{ID: models.NewRawID(77)}}})

		s := agg.Snapshot()
		if len(s.TopArtists) != 1 || s.TopArtists[0].Label != "77" {
			t.Errorf("TopArtists = %v", s.TopArtists)
		}
	})

	t.Run("artist counted once per track", func(t *testing.T) {
		agg := NewAggregator(0)
		dup := []models.RawArtist{{ID: models.NewRawID(5), Name: tu.Str("Solo")}, {ID: models.NewRawID(5), Name: tu.Str("Solo")}}
		_ = agg.AddTrack(models.RawTrack{ID: models.NewRawID(1), Artists: dup})

		s := agg.Snapshot()
		if s.TopArtists[0].Count != 1 {
			t.Errorf("expected one occurrence per (track, artist) pair, got %d", s.TopArtists[0].Count)
		}
	})
}
