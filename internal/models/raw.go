package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/likedb/internal/shared"
)

// ExplicitMarker is the content-warning value that flags a track as explicit.
const ExplicitMarker = "explicit"

// RawID is an identity as sent by the music service: a JSON number, a numeric string,
// or a composite "trackId:albumId" string of which only the leading part is used.
//
// Values that cannot be read as a positive integer leave Valid false, so the record
// is routed to the missing-identity path instead of failing the whole payload.
type RawID struct {
	Value int64
	Valid bool
}

// NewRawID returns a valid id.
func NewRawID(v int64) RawID {
	return RawID{Value: v, Valid: v > 0}
}

// UnmarshalJSON implements [json.Unmarshaler].
func (id *RawID) UnmarshalJSON(data []byte) error {
	*id = RawID{}
	data = bytes.TrimSpace(data)

	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var s string
	switch data[0] {
	case '"':
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s, _, _ = strings.Cut(strings.TrimSpace(s), ":")
	case '{', '[':
		return fmt.Errorf("%w: id must be a number or string, got %s", shared.ErrInvalidInput, data)
	default:
		s = string(data)
	}

	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int64(f)) {
			return nil
		}
		v = int64(f)
	}

	*id = NewRawID(v)
	return nil
}

// MarshalJSON implements [json.Marshaler]; invalid ids encode as null.
func (id RawID) MarshalJSON() ([]byte, error) {
	if !id.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(id.Value, 10)), nil
}

// RawLike is a liked-track event from the likes endpoint.
type RawLike struct {
	ID        RawID  `json:"id"`
	AlbumID   RawID  `json:"albumId"`
	Timestamp string `json:"timestamp"`
}

// Like validates the event and converts it to a [Like].
func (l RawLike) Like() (Like, error) {
	if !l.ID.Valid {
		return Like{}, fmt.Errorf("%w: like without track id", shared.ErrMissingIdentity)
	}
	if _, err := shared.ParseTimestamp(l.Timestamp); err != nil {
		return Like{}, fmt.Errorf("%w: like for track %d has timestamp %q", shared.ErrInvalidTimestamp, l.ID.Value, l.Timestamp)
	}
	return Like{TrackID: l.ID.Value, LikedAt: l.Timestamp}, nil
}

// RawArtist is an artist sub-record of a [RawTrack].
type RawArtist struct {
	ID     RawID    `json:"id"`
	Name   *string  `json:"name"`
	Genres []string `json:"genres"`
}

// RawAlbum is an album sub-record of a [RawTrack].
type RawAlbum struct {
	ID          RawID   `json:"id"`
	Title       *string `json:"title"`
	Genre       *string `json:"genre"`
	ReleaseDate *string `json:"releaseDate"`
	Year        *int    `json:"year"`
}

// RawTrack is a track-detail record from the tracks endpoint.
type RawTrack struct {
	ID             RawID       `json:"id"`
	Title          *string     `json:"title"`
	DurationMs     *int64      `json:"durationMs"`
	ContentWarning string      `json:"contentWarning"`
	Explicit       bool        `json:"explicit"`
	Artists        []RawArtist `json:"artists"`
	Albums         []RawAlbum  `json:"albums"`
}

// Validate checks the fields required before normalization.
func (t RawTrack) Validate() error {
	if !t.ID.Valid {
		return fmt.Errorf("%w: track without id", shared.ErrMissingIdentity)
	}
	return nil
}

// IsExplicit reports whether the track carries the explicit content warning or flag.
func (t RawTrack) IsExplicit() bool {
	return t.ContentWarning == ExplicitMarker || t.Explicit
}
