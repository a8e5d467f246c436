package loader

import (
	"slices"

	"github.com/desertthunder/likedb/internal/models"
	"github.com/desertthunder/likedb/internal/repositories"
)

// SummaryID is the _id of the summary record in the meta collection.
const SummaryID = "summary"

// ArtistRefDocument is an artist reference embedded in a track document.
type ArtistRefDocument struct {
	ID   int64   `json:"id" bson:"id"`
	Name *string `json:"name" bson:"name"`
}

// AlbumRefDocument is an album reference embedded in a track document.
type AlbumRefDocument struct {
	ID          int64   `json:"id" bson:"id"`
	Title       *string `json:"title" bson:"title"`
	Genre       *string `json:"genre" bson:"genre"`
	ReleaseDate *string `json:"release_date" bson:"release_date"`
	Year        *int    `json:"year" bson:"year"`
}

// TrackDocument is a document in the tracks collection.
type TrackDocument struct {
	ID           int64               `json:"_id" bson:"_id"`
	Title        *string             `json:"title" bson:"title"`
	DurationMs   *int64              `json:"duration_ms" bson:"duration_ms"`
	Explicit     bool                `json:"explicit" bson:"explicit"`
	PrimaryGenre *string             `json:"primary_genre" bson:"primary_genre"`
	ReleaseYear  *int                `json:"release_year" bson:"release_year"`
	Genres       []string            `json:"genres" bson:"genres"`
	Artists      []ArtistRefDocument `json:"artists" bson:"artists"`
	Albums       []AlbumRefDocument  `json:"albums" bson:"albums"`
	UpdatedAt    string              `json:"updatedAt" bson:"updatedAt"`
}

// ArtistDocument is a document in the artists collection.
type ArtistDocument struct {
	ID        int64   `json:"_id" bson:"_id"`
	Name      *string `json:"name" bson:"name"`
	UpdatedAt string  `json:"updatedAt" bson:"updatedAt"`
}

// AlbumDocument is a document in the albums collection.
type AlbumDocument struct {
	ID          int64   `json:"_id" bson:"_id"`
	Title       *string `json:"title" bson:"title"`
	Genre       *string `json:"genre" bson:"genre"`
	ReleaseDate *string `json:"release_date" bson:"release_date"`
	Year        *int    `json:"year" bson:"year"`
	UpdatedAt   string  `json:"updatedAt" bson:"updatedAt"`
}

// LikeDocument is a document in the likes collection.
type LikeDocument struct {
	TrackID int64  `json:"track_id" bson:"track_id"`
	LikedAt string `json:"liked_at" bson:"liked_at"`
}

// GenreStatDocument is a document in the genres_stats collection.
type GenreStatDocument struct {
	ID  string `json:"_id" bson:"_id"`
	Cnt int    `json:"cnt" bson:"cnt"`
}

// SummaryFields holds the counters and period of the summary record.
type SummaryFields struct {
	NLikes   int      `json:"n_likes" bson:"n_likes"`
	NTracks  int      `json:"n_tracks" bson:"n_tracks"`
	NArtists int      `json:"n_artists" bson:"n_artists"`
	NGenres  int      `json:"n_genres" bson:"n_genres"`
	Period   []string `json:"period" bson:"period"`
}

// SummaryDocument is the single summary record in the meta collection.
type SummaryDocument struct {
	ID         string        `json:"_id" bson:"_id"`
	Summary    SummaryFields `json:"summary" bson:"summary"`
	TopArtists [][]any       `json:"top_artists_by_likes" bson:"top_artists_by_likes"`
	TopGenres  [][]any       `json:"top_genres_by_likes" bson:"top_genres_by_likes"`
	UpdatedAt  string        `json:"updatedAt" bson:"updatedAt"`
}

func artistRef(a models.ArtistRef) ArtistRefDocument {
	return ArtistRefDocument{ID: a.ID, Name: a.Name}
}

func albumRef(a models.AlbumRef) AlbumRefDocument {
	return AlbumRefDocument{ID: a.ID, Title: a.Title, Genre: a.Genre, ReleaseDate: a.ReleaseDate, Year: a.Year}
}

// trackWrites replaces each track by id. A track without a primary genre takes its first genre.
func trackWrites(tracks []models.Track, now string) []repositories.WriteModel {
	writes := make([]repositories.WriteModel, 0, len(tracks))
	for _, t := range tracks {
		primary := t.PrimaryGenre
		if (primary == nil || *primary == "") && len(t.Genres) > 0 {
			primary = &t.Genres[0]
		}

		doc := TrackDocument{
			ID:           t.ID,
			Title:        t.Title,
			DurationMs:   t.DurationMs,
			Explicit:     t.Explicit,
			PrimaryGenre: primary,
			ReleaseYear:  t.ReleaseYear,
			Genres:       nonNil(t.Genres),
			Artists:      mapSlice(t.Artists, artistRef),
			Albums:       mapSlice(t.Albums, albumRef),
			UpdatedAt:    now,
		}
		writes = append(writes, repositories.WriteModel{Key: repositories.IDKey(t.ID), Doc: doc, Mode: repositories.ModeReplace})
	}
	return writes
}

// artistWrites re-derives artists from the embedded track references, last occurrence wins.
func artistWrites(tracks []models.Track, now string) []repositories.WriteModel {
	var order []int64
	seen := make(map[int64]ArtistDocument)
	for _, t := range tracks {
		for _, a := range t.Artists {
			if _, ok := seen[a.ID]; !ok {
				order = append(order, a.ID)
			}
			seen[a.ID] = ArtistDocument{ID: a.ID, Name: a.Name, UpdatedAt: now}
		}
	}

	writes := make([]repositories.WriteModel, 0, len(order))
	for _, id := range order {
		writes = append(writes, repositories.WriteModel{Key: repositories.IDKey(id), Doc: seen[id], Mode: repositories.ModeReplace})
	}
	return writes
}

// albumWrites re-derives albums from the embedded track references, last occurrence wins.
func albumWrites(tracks []models.Track, now string) []repositories.WriteModel {
	var order []int64
	seen := make(map[int64]AlbumDocument)
	for _, t := range tracks {
		for _, a := range t.Albums {
			if _, ok := seen[a.ID]; !ok {
				order = append(order, a.ID)
			}
			seen[a.ID] = AlbumDocument{
				ID:          a.ID,
				Title:       a.Title,
				Genre:       a.Genre,
				ReleaseDate: a.ReleaseDate,
				Year:        a.Year,
				UpdatedAt:   now,
			}
		}
	}

	writes := make([]repositories.WriteModel, 0, len(order))
	for _, id := range order {
		writes = append(writes, repositories.WriteModel{Key: repositories.IDKey(id), Doc: seen[id], Mode: repositories.ModeReplace})
	}
	return writes
}

// likeWrites inserts each like unless (track_id, liked_at) is already stored.
func likeWrites(likes []models.Like) []repositories.WriteModel {
	writes := make([]repositories.WriteModel, 0, len(likes))
	for _, l := range likes {
		key := repositories.CompositeKey(
			repositories.KeyField{Name: "track_id", Value: l.TrackID},
			repositories.KeyField{Name: "liked_at", Value: l.LikedAt},
		)
		doc := LikeDocument{TrackID: l.TrackID, LikedAt: l.LikedAt}
		writes = append(writes, repositories.WriteModel{Key: key, Doc: doc, Mode: repositories.ModeInsertIfAbsent})
	}
	return writes
}

// genreStatWrites replaces each genre count, ordered by genre.
func genreStatWrites(stats map[string]int) []repositories.WriteModel {
	genres := make([]string, 0, len(stats))
	for g := range stats {
		genres = append(genres, g)
	}
	slices.Sort(genres)

	writes := make([]repositories.WriteModel, 0, len(genres))
	for _, g := range genres {
		doc := GenreStatDocument{ID: g, Cnt: stats[g]}
		writes = append(writes, repositories.WriteModel{Key: repositories.IDKey(g), Doc: doc, Mode: repositories.ModeReplace})
	}
	return writes
}

// summaryWrites replaces the summary record.
func summaryWrites(s *models.Snapshot, now string) []repositories.WriteModel {
	fields := SummaryFields{
		NLikes:   s.Summary.NLikes,
		NTracks:  s.Summary.NTracks,
		NArtists: s.Summary.NArtists,
		NGenres:  s.Summary.NGenres,
	}
	if p := s.Summary.Period; p != nil {
		fields.Period = []string{p[0], p[1]}
	}

	doc := SummaryDocument{
		ID:         SummaryID,
		Summary:    fields,
		TopArtists: rankingPairs(s.TopArtists),
		TopGenres:  rankingPairs(s.TopGenres),
		UpdatedAt:  now,
	}
	return []repositories.WriteModel{{Key: repositories.IDKey(SummaryID), Doc: doc, Mode: repositories.ModeReplace}}
}

func rankingPairs(rs []models.Ranking) [][]any {
	out := make([][]any, 0, len(rs))
	for _, r := range rs {
		out = append(out, []any{r.Label, r.Count})
	}
	return out
}

func mapSlice[T, U any](in []T, f func(T) U) []U {
	out := make([]U, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
