// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/likedb/internal/models"
)

// MockSource is a test double for services.Source
type MockSource struct {
	Likes     []models.RawLike
	Details   []models.RawTrack
	LikesErr  error
	TracksErr error

	RequestedIDs []int64
}

func (m *MockSource) LikedTracks(ctx context.Context) ([]models.RawLike, error) {
	if m.LikesErr != nil {
		return nil, m.LikesErr
	}
	return m.Likes, nil
}

func (m *MockSource) Tracks(ctx context.Context, ids []int64) ([]models.RawTrack, error) {
	m.RequestedIDs = append(m.RequestedIDs, ids...)
	if m.TracksErr != nil {
		return nil, m.TracksErr
	}
	return m.Details, nil
}

func (m *MockSource) Name() string { return "mock" }

// Str returns a pointer to s
func Str(s string) *string { return &s }

// Int returns a pointer to i
func Int(i int) *int { return &i }

// Int64 returns a pointer to i
func Int64(i int64) *int64 { return &i }

// SampleLikes returns three likes over two tracks, one liked twice.
func SampleLikes() []models.RawLike {
	return []models.RawLike{
		{ID: models.NewRawID(101), AlbumID: models.NewRawID(11), Timestamp: "2023-05-01T10:00:00+00:00"},
		{ID: models.NewRawID(102), AlbumID: models.NewRawID(12), Timestamp: "2023-06-15T08:30:00+03:00"},
		{ID: models.NewRawID(101), AlbumID: models.NewRawID(11), Timestamp: "2024-01-02T00:00:00Z"},
	}
}

// SampleTracks returns details for the tracks in [SampleLikes].
// Artist 1 and album 11 are shared by both tracks.
func SampleTracks() []models.RawTrack {
	return []models.RawTrack{
		{
			ID:             models.NewRawID(101),
			Title:          Str("Первый трек"),
			DurationMs:     Int64(215000),
			ContentWarning: "explicit",
			Artists: []models.RawArtist{
				{ID: models.NewRawID(1), Name: Str("Band"), Genres: []string{"indie"}},
			},
			Albums: []models.RawAlbum{
				{ID: models.NewRawID(11), Title: Str("LP"), Year: Int(2019)},
				{ID: models.NewRawID(12), Title: Str("Single"), Genre: Str("Rock"), Year: Int(2020)},
			},
		},
		{
			ID:         models.NewRawID(102),
			Title:      Str("Second"),
			DurationMs: Int64(180000),
			Artists: []models.RawArtist{
				{ID: models.NewRawID(1), Name: Str("Band"), Genres: []string{"Indie"}},
				{ID: models.NewRawID(2), Name: Str("Guest"), Genres: []string{"pop"}},
			},
			Albums: []models.RawAlbum{
				{ID: models.NewRawID(11), Title: Str("LP"), Genre: Str(" Pop "), Year: Int(2019)},
			},
		},
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
