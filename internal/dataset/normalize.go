package dataset

import (
	"fmt"

	"github.com/desertthunder/likedb/internal/genres"
	"github.com/desertthunder/likedb/internal/models"
	"github.com/desertthunder/likedb/internal/shared"
)

// Record kinds reported in [SkippedRecord].
const (
	KindTrack  = "track"
	KindLike   = "like"
	KindArtist = "artist"
	KindAlbum  = "album"
)

// SkippedRecord describes an input record that was left out of the dataset.
type SkippedRecord struct {
	Kind     string // track, like, artist or album
	Position int    // index in the input stream, or in the parent track's list for sub-records
	TrackID  int64  // owning track, zero when unknown
	Err      error
}

func (s SkippedRecord) String() string {
	if s.TrackID != 0 {
		return fmt.Sprintf("%s #%d (track %d): %v", s.Kind, s.Position, s.TrackID, s.Err)
	}
	return fmt.Sprintf("%s #%d: %v", s.Kind, s.Position, s.Err)
}

// Normalized is the result of normalizing one raw track.
type Normalized struct {
	Track   models.Track
	Artists []models.Artist
	Albums  []models.Album
	Skipped []SkippedRecord // artist and album sub-records without an id
}

// Normalize converts one raw track into a [models.Track] plus the artist and
// album entities it references.
//
// Sub-records without an id still contribute their genres to the track but
// produce no reference; they are returned in Normalized.Skipped.
func Normalize(raw models.RawTrack) (*Normalized, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}

	trackID := raw.ID.Value
	n := &Normalized{
		Artists: make([]models.Artist, 0, len(raw.Artists)),
		Albums:  make([]models.Album, 0, len(raw.Albums)),
	}

	albumGenres := make([]string, 0, len(raw.Albums))
	var releaseYear *int

	for i, al := range raw.Albums {
		genre := genres.NormalizePtr(al.Genre)
		albumGenres = append(albumGenres, genre)

		if releaseYear == nil && al.Year != nil && *al.Year != 0 {
			year := *al.Year
			releaseYear = &year
		}

		if !al.ID.Valid {
			n.Skipped = append(n.Skipped, SkippedRecord{
				Kind: KindAlbum, Position: i, TrackID: trackID,
				Err: fmt.Errorf("%w: album without id", shared.ErrMissingIdentity),
			})
			continue
		}

		album := models.Album{
			ID:          al.ID.Value,
			Title:       al.Title,
			ReleaseDate: al.ReleaseDate,
			Year:        al.Year,
		}
		if genre != "" {
			album.Genre = &genre
		}
		n.Albums = append(n.Albums, album)
	}

	artistGenres := make([][]string, 0, len(raw.Artists))
	for i, ar := range raw.Artists {
		artistGenres = append(artistGenres, ar.Genres)

		if !ar.ID.Valid {
			n.Skipped = append(n.Skipped, SkippedRecord{
				Kind: KindArtist, Position: i, TrackID: trackID,
				Err: fmt.Errorf("%w: artist without id", shared.ErrMissingIdentity),
			})
			continue
		}
		n.Artists = append(n.Artists, models.Artist{ID: ar.ID.Value, Name: ar.Name})
	}

	resolved := genres.Resolve(albumGenres, artistGenres)

	n.Track = models.Track{
		ID:           trackID,
		Title:        raw.Title,
		DurationMs:   raw.DurationMs,
		Explicit:     raw.IsExplicit(),
		PrimaryGenre: resolved.Primary,
		ReleaseYear:  releaseYear,
		Genres:       resolved.Genres,
		Artists:      n.Artists,
		Albums:       n.Albums,
	}

	return n, nil
}
