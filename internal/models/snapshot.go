package models

import (
	"encoding/json"
	"fmt"
)

// Snapshot is the aggregated dataset written by extraction and read by load.
type Snapshot struct {
	Likes       []Like         `json:"likes"`
	Tracks      []Track        `json:"tracks"`
	GenresStats map[string]int `json:"genres_stats"`
	Summary     Summary        `json:"summary"`
	TopArtists  []Ranking      `json:"top_artists_by_likes"`
	TopGenres   []Ranking      `json:"top_genres_by_likes"`
}

// Summary holds the dataset-wide counts and the liked-at period.
type Summary struct {
	NLikes   int     `json:"n_likes"`
	NTracks  int     `json:"n_tracks"`
	NArtists int     `json:"n_artists"`
	NGenres  int     `json:"n_genres"`
	Period   *Period `json:"period"` // nil when there are no likes
}

// Period is the [earliest, latest] liked-at pair.
type Period [2]string

// Ranking is one entry of a top-N list, encoded as a [label, count] pair.
type Ranking struct {
	Label string
	Count int
}

// MarshalJSON implements [json.Marshaler].
func (r Ranking) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.Label, r.Count})
}

// UnmarshalJSON implements [json.Unmarshaler].
func (r *Ranking) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("ranking must be a [label, count] pair, got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &r.Label); err != nil {
		return fmt.Errorf("ranking label: %w", err)
	}
	if err := json.Unmarshal(pair[1], &r.Count); err != nil {
		return fmt.Errorf("ranking count: %w", err)
	}
	return nil
}
