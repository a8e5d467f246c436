package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/desertthunder/likedb/internal/models"
	"github.com/desertthunder/likedb/internal/shared"
)

// requiredKeys are the top-level keys every snapshot document carries.
var requiredKeys = []string{"likes", "tracks", "genres_stats", "summary"}

// EncodeSnapshot renders s as indented JSON with non-ASCII text left unescaped.
func EncodeSnapshot(s *models.Snapshot) ([]byte, error) {
	data, err := shared.MarshalJSON(fill(s), true)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeSnapshot parses and validates a snapshot document.
//
// Unparseable JSON, a missing required key, or a track without an id is reported as [shared.ErrSnapshotMalformed].
func DecodeSnapshot(data []byte) (*models.Snapshot, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrSnapshotMalformed, err)
	}

	for _, key := range requiredKeys {
		if _, ok := keys[key]; !ok {
			return nil, fmt.Errorf("%w: missing key %q", shared.ErrSnapshotMalformed, key)
		}
	}

	var s models.Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrSnapshotMalformed, err)
	}

	for i, t := range s.Tracks {
		if t.ID <= 0 {
			return nil, fmt.Errorf("%w: track #%d has no id", shared.ErrSnapshotMalformed, i)
		}
	}

	return fill(&s), nil
}

// WriteSnapshot writes s to path, creating parent directories.
//
// The document is written to a temporary file in the same directory and renamed into place.
func WriteSnapshot(path string, s *models.Snapshot) error {
	data, err := EncodeSnapshot(s)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("failed to set snapshot permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	return nil
}

// ReadSnapshot reads and validates the snapshot at path.
//
// A missing file is reported as [shared.ErrSnapshotNotFound], distinct from [shared.ErrSnapshotMalformed].
func ReadSnapshot(path string) (*models.Snapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSnapshotNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	s, err := DecodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// fill replaces nil collections with empty ones so they encode as [] and {}.
func fill(s *models.Snapshot) *models.Snapshot {
	if s.Likes == nil {
		s.Likes = []models.Like{}
	}
	if s.Tracks == nil {
		s.Tracks = []models.Track{}
	}
	if s.GenresStats == nil {
		s.GenresStats = map[string]int{}
	}
	if s.TopArtists == nil {
		s.TopArtists = []models.Ranking{}
	}
	if s.TopGenres == nil {
		s.TopGenres = []models.Ranking{}
	}
	for i := range s.Tracks {
		t := &s.Tracks[i]
		if t.Genres == nil {
			t.Genres = []string{}
		}
		if t.Artists == nil {
			t.Artists = []models.ArtistRef{}
		}
		if t.Albums == nil {
			t.Albums = []models.AlbumRef{}
		}
	}
	return s
}
