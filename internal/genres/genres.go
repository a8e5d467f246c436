// package genres maps raw album and artist genre strings to a track's
// normalized genre set and primary genre.
package genres

import (
	"slices"
	"strings"
)

// Resolution is the resolved genre information for a single track.
type Resolution struct {
	Genres  []string // sorted, duplicate-free, never nil
	Primary *string  // absent when no genre information is available
}

// Normalize trims whitespace and lower-cases s. An empty result means "no genre".
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizePtr normalizes an optional raw value, returning "" for nil.
func NormalizePtr(s *string) string {
	if s == nil {
		return ""
	}
	return Normalize(*s)
}

// Resolve builds the genre set for one track from its albums' genres (in album order)
// and each attached artist's genre list.
//
// The primary genre is the first non-empty album genre; otherwise the smallest
// element of the genre set; otherwise absent.
func Resolve(albumGenres []string, artistGenres [][]string) Resolution {
	seen := make(map[string]struct{})
	var primary *string

	add := func(raw string) string {
		g := Normalize(raw)
		if g != "" {
			seen[g] = struct{}{}
		}
		return g
	}

	for _, raw := range albumGenres {
		if g := add(raw); g != "" && primary == nil {
			primary = &g
		}
	}

	for _, list := range artistGenres {
		for _, raw := range list {
			add(raw)
		}
	}

	set := make([]string, 0, len(seen))
	for g := range seen {
		set = append(set, g)
	}
	slices.Sort(set)

	if primary == nil && len(set) > 0 {
		first := set[0]
		primary = &first
	}

	return Resolution{Genres: set, Primary: primary}
}
