package dataset

import (
	"cmp"
	"errors"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/desertthunder/likedb/internal/models"
	"github.com/desertthunder/likedb/internal/shared"
)

// DefaultTopN is the length of the top artist and genre rankings.
const DefaultTopN = 20

// Aggregator folds the likes and tracks of one extraction into a [models.Snapshot].
//
// Tracks, artists and albums are keyed by id with the last occurrence winning.
// Likes are kept exactly as received; uniqueness is enforced by the store.
type Aggregator struct {
	topN int

	likes    []models.Like
	likedIDs []int64
	liked    map[int64]struct{}
	nLikes   int

	tracks     []models.Track
	trackIndex map[int64]int
	nTracks    int

	artists map[int64]models.Artist
	albums  map[int64]models.Album

	skipped []SkippedRecord
}

// NewAggregator creates an empty [Aggregator]. A non-positive topN selects [DefaultTopN].
func NewAggregator(topN int) *Aggregator {
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Aggregator{
		topN:       topN,
		likes:      []models.Like{},
		liked:      make(map[int64]struct{}),
		tracks:     []models.Track{},
		trackIndex: make(map[int64]int),
		artists:    make(map[int64]models.Artist),
		albums:     make(map[int64]models.Album),
	}
}

// AddLike validates and records one like event. An invalid event is recorded
// as skipped and its error returned; the aggregator stays usable.
func (a *Aggregator) AddLike(raw models.RawLike) error {
	pos := a.nLikes
	a.nLikes++

	like, err := raw.Like()
	if err != nil {
		a.skipped = append(a.skipped, SkippedRecord{Kind: KindLike, Position: pos, TrackID: raw.ID.Value, Err: err})
		return err
	}

	a.likes = append(a.likes, like)
	if _, ok := a.liked[like.TrackID]; !ok {
		a.liked[like.TrackID] = struct{}{}
		a.likedIDs = append(a.likedIDs, like.TrackID)
	}
	return nil
}

// AddTrack normalizes one raw track and folds it into the dataset. A track
// without an id is recorded as skipped and its error returned.
func (a *Aggregator) AddTrack(raw models.RawTrack) error {
	pos := a.nTracks
	a.nTracks++

	n, err := Normalize(raw)
	if err != nil {
		a.skipped = append(a.skipped, SkippedRecord{Kind: KindTrack, Position: pos, Err: err})
		return err
	}
	a.skipped = append(a.skipped, n.Skipped...)

	for _, ar := range n.Artists {
		a.artists[ar.ID] = ar
	}
	for _, al := range n.Albums {
		a.albums[al.ID] = al
	}

	if i, ok := a.trackIndex[n.Track.ID]; ok {
		a.tracks[i] = n.Track
		return nil
	}
	a.trackIndex[n.Track.ID] = len(a.tracks)
	a.tracks = append(a.tracks, n.Track)
	return nil
}

// TrackIDs returns the distinct liked track ids in first-seen order.
func (a *Aggregator) TrackIDs() []int64 {
	return slices.Clone(a.likedIDs)
}

// Artists returns the deduplicated artists ordered by id.
func (a *Aggregator) Artists() []models.Artist {
	return sortedByID(a.artists, func(ar models.Artist) int64 { return ar.ID })
}

// Albums returns the deduplicated albums ordered by id.
func (a *Aggregator) Albums() []models.Album {
	return sortedByID(a.albums, func(al models.Album) int64 { return al.ID })
}

// Skipped returns every record left out so far.
func (a *Aggregator) Skipped() []SkippedRecord {
	return slices.Clone(a.skipped)
}

// Snapshot computes statistics over the deduplicated tracks and returns the dataset.
func (a *Aggregator) Snapshot() *models.Snapshot {
	stats := make(map[string]int)
	artistCounts := make(map[int64]int)
	labels := make(map[int64]string)

	for _, t := range a.tracks {
		for _, g := range t.Genres {
			stats[g]++
		}

		counted := make(map[int64]bool, len(t.Artists))
		for _, ref := range t.Artists {
			if counted[ref.ID] {
				continue
			}
			counted[ref.ID] = true
			artistCounts[ref.ID]++
			labels[ref.ID] = a.artistLabel(ref)
		}
	}

	topArtists := make([]ranked, 0, len(artistCounts))
	for id, n := range artistCounts {
		topArtists = append(topArtists, ranked{Ranking: models.Ranking{Label: labels[id], Count: n}, id: id})
	}

	topGenres := make([]ranked, 0, len(stats))
	for g, n := range stats {
		topGenres = append(topGenres, ranked{Ranking: models.Ranking{Label: g, Count: n}})
	}

	return &models.Snapshot{
		Likes:       slices.Clone(a.likes),
		Tracks:      slices.Clone(a.tracks),
		GenresStats: stats,
		Summary: models.Summary{
			NLikes:   len(a.likes),
			NTracks:  len(a.tracks),
			NArtists: len(artistCounts),
			NGenres:  len(stats),
			Period:   likesPeriod(a.likes),
		},
		TopArtists: top(topArtists, a.topN),
		TopGenres:  top(topGenres, a.topN),
	}
}

// artistLabel returns the last-seen name of an artist, or its decimal id.
func (a *Aggregator) artistLabel(ref models.ArtistRef) string {
	if ar, ok := a.artists[ref.ID]; ok && ar.Name != nil && *ar.Name != "" {
		return *ar.Name
	}
	if ref.Name != nil && *ref.Name != "" {
		return *ref.Name
	}
	return strconv.FormatInt(ref.ID, 10)
}

type ranked struct {
	models.Ranking
	id int64
}

// top orders by count descending, then label, then id, and keeps the first n.
func top(items []ranked, n int) []models.Ranking {
	slices.SortFunc(items, func(x, y ranked) int {
		if c := cmp.Compare(y.Count, x.Count); c != 0 {
			return c
		}
		if c := cmp.Compare(x.Label, y.Label); c != 0 {
			return c
		}
		return cmp.Compare(x.id, y.id)
	})

	out := make([]models.Ranking, 0, min(n, len(items)))
	for _, it := range items[:min(n, len(items))] {
		out = append(out, it.Ranking)
	}
	return out
}

// likesPeriod returns the earliest and latest liked-at, or nil without likes.
func likesPeriod(likes []models.Like) *models.Period {
	var first, last time.Time
	found := false

	for _, l := range likes {
		t, err := shared.ParseTimestamp(l.LikedAt)
		if err != nil {
			continue
		}
		if !found || t.Before(first) {
			first = t
		}
		if !found || t.After(last) {
			last = t
		}
		found = true
	}

	if !found {
		return nil
	}
	return &models.Period{shared.FormatTimestamp(first), shared.FormatTimestamp(last)}
}

func sortedByID[T any](m map[int64]T, id func(T) int64) []T {
	out := slices.Collect(maps.Values(m))
	slices.SortFunc(out, func(x, y T) int { return cmp.Compare(id(x), id(y)) })
	return out
}

// SkippedErrors joins the errors of the given skipped records, or returns nil.
func SkippedErrors(skipped []SkippedRecord) error {
	errs := make([]error, 0, len(skipped))
	for _, s := range skipped {
		errs = append(errs, s.Err)
	}
	return errors.Join(errs...)
}
