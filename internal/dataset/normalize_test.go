package dataset

import (
	"errors"
	"slices"
	"testing"

	"github.com/desertthunder/likedb/internal/models"
	"github.com/desertthunder/likedb/internal/shared"
	tu "github.com/desertthunder/likedb/internal/testing"
)

func TestNormalize(t *testing.T) {
	t.Run("genre and year scenario", func(t *testing.T) {
		raw := models.RawTrack{
			ID: models.NewRawID(1),
			Albums: []models.RawAlbum{
				{ID: models.NewRawID(10), Genre: nil, Year: tu.Int(2019)},
				{ID: models.NewRawID(11), Genre: tu.Str("Rock"), Year: tu.Int(2020)},
			},
			Artists: []models.RawArtist{{ID: models.NewRawID(5), Genres: []string{"indie"}}},
		}

		n, err := Normalize(raw)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}

		if !slices.Equal(n.Track.Genres, []string{"indie", "rock"}) {
			t.Errorf("Genres = %v, want [indie rock]", n.Track.Genres)
		}
		if n.Track.PrimaryGenre == nil || *n.Track.PrimaryGenre != "rock" {
			t.Errorf("PrimaryGenre = %v, want rock", n.Track.PrimaryGenre)
		}
		if n.Track.ReleaseYear == nil || *n.Track.ReleaseYear != 2019 {
			t.Errorf("ReleaseYear = %v, want 2019", n.Track.ReleaseYear)
		}
		if n.Albums[0].Genre != nil {
			t.Errorf("album without genre should keep a nil genre, got %q", *n.Albums[0].Genre)
		}
		if *n.Albums[1].Genre != "rock" {
			t.Errorf("album genre should be normalized, got %q", *n.Albums[1].Genre)
		}
	})

	t.Run("primary genre precedence", func(t *testing.T) {
		tc := []struct {
			name    string
			albums  []models.RawAlbum
			artists []models.RawArtist
			want    *string
		}{
			{
				name:    "first album genre",
				albums:  []models.RawAlbum{{ID: models.NewRawID(1), Genre: tu.Str("Jazz")}, {ID: models.NewRawID(2), Genre: tu.Str("Blues")}},
				artists: []models.RawArtist{{ID: models.NewRawID(3), Genres: []string{"acid"}}},
				want:    tu.Str("jazz"),
			},
			{
				name:    "smallest genre without album genre",
				albums:  []models.RawAlbum{{ID: models.NewRawID(1)}},
				artists: []models.RawArtist{{ID: models.NewRawID(3), Genres: []string{"techno", "ambient"}}},
				want:    tu.Str("ambient"),
			},
			{
				name:    "absent without any genre",
				albums:  []models.RawAlbum{{ID: models.NewRawID(1), Genre: tu.Str("  ")}},
				artists: []models.RawArtist{{ID: models.NewRawID(3)}},
				want:    nil,
			},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				n, err := Normalize(models.RawTrack{ID: models.NewRawID(9), Albums: tt.albums, Artists: tt.artists})
				if err != nil {
					t.Fatalf("Normalize() error = %v", err)
				}
				got := n.Track.PrimaryGenre
				if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
					t.Errorf("PrimaryGenre = %v, want %v", got, tt.want)
				}
			})
		}
	})

	t.Run("explicit", func(t *testing.T) {
		tc := []struct {
			name string
			raw  models.RawTrack
			want bool
		}{
			{"content warning", models.RawTrack{ID: models.NewRawID(1), ContentWarning: "explicit"}, true},
			{"explicit flag", models.RawTrack{ID: models.NewRawID(1), Explicit: true}, true},
			{"other warning", models.RawTrack{ID: models.NewRawID(1), ContentWarning: "mild"}, false},
			{"neither", models.RawTrack{ID: models.NewRawID(1)}, false},
		}
		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				n, err := Normalize(tt.raw)
				if err != nil {
					t.Fatalf("Normalize() error = %v", err)
				}
				if n.Track.Explicit != tt.want {
					t.Errorf("Explicit = %v, want %v", n.Track.Explicit, tt.want)
				}
			})
		}
	})

	t.Run("sparse track", func(t *testing.T) {
		n, err := Normalize(models.RawTrack{ID: models.NewRawID(3)})
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		tr := n.Track
		if tr.Title != nil || tr.DurationMs != nil || tr.ReleaseYear != nil || tr.PrimaryGenre != nil {
			t.Errorf("missing fields should stay absent: %+v", tr)
		}
		if tr.Genres == nil || tr.Artists == nil || tr.Albums == nil {
			t.Error("collections should be empty, not nil")
		}
	})

	t.Run("missing identity", func(t *testing.T) {
		_, err := Normalize(models.RawTrack{Title: tu.Str("orphan")})
		if !errors.Is(err, shared.ErrMissingIdentity) {
			t.Errorf("expected ErrMissingIdentity, got %v", err)
		}
	})

	t.Run("sub-records without id", func(t *testing.T) {
		raw := models.RawTrack{
			ID:      models.NewRawID(4),
			Artists: []models.RawArtist{{Name: tu.Str("Nameless"), Genres: []string{"folk"}}, {ID: models.NewRawID(8)}},
			Albums:  []models.RawAlbum{{Genre: tu.Str("Country"), Year: tu.Int(1999)}},
		}

		n, err := Normalize(raw)
		if err != nil {
			t.Fatalf("Normalize() error = %v", err)
		}
		if !slices.Equal(n.Track.Genres, []string{"country", "folk"}) {
			t.Errorf("genres of sub-records without id should still count, got %v", n.Track.Genres)
		}
		if *n.Track.PrimaryGenre != "country" || *n.Track.ReleaseYear != 1999 {
			t.Errorf("unexpected primary %v / year %v", *n.Track.PrimaryGenre, *n.Track.ReleaseYear)
		}
		if len(n.Track.Artists) != 1 || len(n.Track.Albums) != 0 {
			t.Errorf("only identified sub-records should be referenced, got %d artists %d albums", len(n.Track.Artists), len(n.Track.Albums))
		}
		if len(n.Skipped) != 2 {
			t.Fatalf("expected 2 skipped sub-records, got %d", len(n.Skipped))
		}
		for _, s := range n.Skipped {
			if s.TrackID != 4 || !errors.Is(s.Err, shared.ErrMissingIdentity) {
				t.Errorf("unexpected skipped record %s", s)
			}
		}
	})
}
