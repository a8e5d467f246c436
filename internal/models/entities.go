package models

// ArtistRef is the lightweight artist reference embedded in a [Track].
type ArtistRef struct {
	ID   int64   `json:"id"`
	Name *string `json:"name"`
}

// AlbumRef is the album reference embedded in a [Track].
type AlbumRef struct {
	ID          int64   `json:"id"`
	Title       *string `json:"title"`
	Genre       *string `json:"genre"`
	ReleaseDate *string `json:"release_date"`
	Year        *int    `json:"year"`
}

// Artist is a deduplicated artist entity. Raw per-artist genres are not kept.
type Artist = ArtistRef

// Album is a deduplicated album entity.
type Album = AlbumRef

// Track is a normalized track.
//
// Genres is the sorted, duplicate-free union of album and artist genres and is never nil.
type Track struct {
	ID           int64       `json:"id"`
	Title        *string     `json:"title"`
	DurationMs   *int64      `json:"duration_ms"`
	Explicit     bool        `json:"explicit"`
	PrimaryGenre *string     `json:"primary_genre"`
	ReleaseYear  *int        `json:"release_year"`
	Genres       []string    `json:"genres"`
	Artists      []ArtistRef `json:"artists"`
	Albums       []AlbumRef  `json:"albums"`
}

// Like is one liked-track event. The pair (TrackID, LikedAt) is unique in the store.
type Like struct {
	TrackID int64  `json:"track_id"`
	LikedAt string `json:"liked_at"` // ISO-8601 with explicit offset
}
