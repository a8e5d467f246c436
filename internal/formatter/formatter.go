// package formatter renders snapshots and run history as text, Markdown, JSON and CSV
package formatter

import (
	"bytes"
	"cmp"
	"encoding/csv"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/likedb/internal/models"
	"github.com/desertthunder/likedb/internal/shared"
)

// Report formats
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
	FormatCSV      = "csv"
)

// Formats lists the accepted report formats.
var Formats = []string{FormatText, FormatMarkdown, FormatJSON, FormatCSV}

// GenreCount is one row of the genre statistics.
type GenreCount struct {
	Genre string `json:"genre"`
	Count int    `json:"count"`
}

// SortedGenreStats returns stats ordered by count descending, then genre.
func SortedGenreStats(stats map[string]int) []GenreCount {
	rows := make([]GenreCount, 0, len(stats))
	for _, g := range slices.Sorted(maps.Keys(stats)) {
		rows = append(rows, GenreCount{Genre: g, Count: stats[g]})
	}
	slices.SortStableFunc(rows, func(a, b GenreCount) int { return cmp.Compare(b.Count, a.Count) })
	return rows
}

// FormatDuration renders milliseconds as m:ss, or "-" when unknown.
func FormatDuration(ms *int64) string {
	if ms == nil {
		return "-"
	}
	d := time.Duration(*ms) * time.Millisecond
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func period(s models.Summary) string {
	if s.Period == nil {
		return "-"
	}
	return fmt.Sprintf("%s .. %s", s.Period[0], s.Period[1])
}

func deref[T any](p *T, fallback string) string {
	if p == nil {
		return fallback
	}
	return fmt.Sprint(*p)
}

func artistNames(refs []models.ArtistRef) string {
	names := make([]string, 0, len(refs))
	for _, a := range refs {
		names = append(names, deref(a.Name, strconv.FormatInt(a.ID, 10)))
	}
	return strings.Join(names, ", ")
}

// SummaryToText renders the summary and rankings as plain text.
func SummaryToText(s *models.Snapshot) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Likes: %d\n", s.Summary.NLikes))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n", s.Summary.NTracks))
	buf.WriteString(fmt.Sprintf("Artists: %d\n", s.Summary.NArtists))
	buf.WriteString(fmt.Sprintf("Genres: %d\n", s.Summary.NGenres))
	buf.WriteString(fmt.Sprintf("Period: %s\n", period(s.Summary)))

	if len(s.TopArtists) > 0 {
		buf.WriteString("\nTop artists:\n")
		for i, r := range s.TopArtists {
			buf.WriteString(fmt.Sprintf("%d. %s (%d)\n", i+1, r.Label, r.Count))
		}
	}

	if len(s.TopGenres) > 0 {
		buf.WriteString("\nTop genres:\n")
		for i, r := range s.TopGenres {
			buf.WriteString(fmt.Sprintf("%d. %s (%d)\n", i+1, r.Label, r.Count))
		}
	}

	return buf.Bytes()
}

// SummaryToMarkdown renders the summary, rankings and tracks as Markdown.
func SummaryToMarkdown(s *models.Snapshot) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Liked tracks\n\n")
	buf.WriteString(fmt.Sprintf("**Likes**: %d\n", s.Summary.NLikes))
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n", s.Summary.NTracks))
	buf.WriteString(fmt.Sprintf("**Artists**: %d\n", s.Summary.NArtists))
	buf.WriteString(fmt.Sprintf("**Genres**: %d\n", s.Summary.NGenres))
	buf.WriteString(fmt.Sprintf("**Period**: %s\n\n", period(s.Summary)))

	writeRanking := func(title string, rs []models.Ranking) {
		if len(rs) == 0 {
			return
		}
		buf.WriteString(fmt.Sprintf("## %s\n\n", title))
		buf.WriteString("| # | Name | Likes |\n|---|---|---|\n")
		for i, r := range rs {
			buf.WriteString(fmt.Sprintf("| %d | %s | %d |\n", i+1, r.Label, r.Count))
		}
		buf.WriteString("\n")
	}
	writeRanking("Top artists", s.TopArtists)
	writeRanking("Top genres", s.TopGenres)

	if len(s.Tracks) > 0 {
		buf.WriteString("## Tracks\n\n")
		for i, t := range s.Tracks {
			genre := ""
			if t.PrimaryGenre != nil {
				genre = fmt.Sprintf(" _%s_", *t.PrimaryGenre)
			}
			buf.WriteString(fmt.Sprintf("%d. %s - %s [%s]%s\n",
				i+1, artistNames(t.Artists), deref(t.Title, "Untitled"), FormatDuration(t.DurationMs), genre))
		}
	}

	return buf.Bytes()
}

// summaryReport is the JSON report; the tracks and likes stay in the snapshot.
type summaryReport struct {
	Summary     models.Summary   `json:"summary"`
	TopArtists  []models.Ranking `json:"top_artists_by_likes"`
	TopGenres   []models.Ranking `json:"top_genres_by_likes"`
	GenresStats []GenreCount     `json:"genres_stats"`
}

// SummaryToJSON renders the summary, rankings and sorted genre statistics as indented JSON.
func SummaryToJSON(s *models.Snapshot) ([]byte, error) {
	report := summaryReport{
		Summary:     s.Summary,
		TopArtists:  nonNil(s.TopArtists),
		TopGenres:   nonNil(s.TopGenres),
		GenresStats: SortedGenreStats(s.GenresStats),
	}
	return shared.MarshalJSON(report, true)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// GenreStatsToCSV converts genre statistics to CSV with columns: Genre, Count
func GenreStatsToCSV(stats map[string]int) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Genre", "Count"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, row := range SortedGenreStats(stats) {
		if err := writer.Write([]string{row.Genre, strconv.Itoa(row.Count)}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// TracksToCSV converts tracks to CSV with columns: ID, Title, Artists, Primary Genre, Genres, Release Year, Duration, Explicit
func TracksToCSV(tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artists", "Primary Genre", "Genres", "Release Year", "Duration", "Explicit"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, t := range tracks {
		record := []string{
			strconv.FormatInt(t.ID, 10),
			deref(t.Title, ""),
			artistNames(t.Artists),
			deref(t.PrimaryGenre, ""),
			strings.Join(t.Genres, ";"),
			deref(t.ReleaseYear, ""),
			FormatDuration(t.DurationMs),
			strconv.FormatBool(t.Explicit),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// Render renders s in the named format. CSV renders the genre statistics.
func Render(s *models.Snapshot, format string) ([]byte, error) {
	switch format {
	case FormatText, "":
		return SummaryToText(s), nil
	case FormatMarkdown, "md":
		return SummaryToMarkdown(s), nil
	case FormatJSON:
		return SummaryToJSON(s)
	case FormatCSV:
		return GenreStatsToCSV(s.GenresStats)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (expected one of %s)",
			shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
	}
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	GenresFile string
	TracksFile string
}

// WriteCSVExport writes {base}_genres.csv and {base}_tracks.csv.
func WriteCSVExport(s *models.Snapshot, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		return nil, fmt.Errorf("%w: output path", shared.ErrMissingArgument)
	}
	if err := os.MkdirAll(filepath.Dir(baseFilepath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	genresData, err := GenreStatsToCSV(s.GenresStats)
	if err != nil {
		return nil, fmt.Errorf("failed to generate genre CSV: %w", err)
	}

	genresFile := baseFilepath + "_genres.csv"
	if err := os.WriteFile(genresFile, genresData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	tracksData, err := TracksToCSV(s.Tracks)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tracks CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, tracksData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	return &CSVExportResult{GenresFile: genresFile, TracksFile: tracksFile}, nil
}

// WriteReport renders s in format and writes it to path.
func WriteReport(s *models.Snapshot, format, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: output path", shared.ErrMissingArgument)
	}

	data, err := Render(s, format)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return path, nil
}

// RunsToText renders run history, newest first as given, one line per run.
func RunsToText(runs []*models.Run) []byte {
	var buf bytes.Buffer

	if len(runs) == 0 {
		buf.WriteString("No runs recorded.\n")
		return buf.Bytes()
	}

	for _, r := range runs {
		started := "-"
		if r.StartedAt() != nil {
			started = shared.FormatTimestamp(*r.StartedAt())
		}
		buf.WriteString(fmt.Sprintf("#%d %s %-7s %-9s %s written=%d/%d failed=%d",
			r.Sequence(), shortID(r.ID()), r.Kind(), r.Status(), started,
			r.RecordsWritten(), r.RecordsTotal(), r.RecordsFailed()))
		if d := r.Duration(); d > 0 {
			buf.WriteString(fmt.Sprintf(" took=%s", d.Round(time.Millisecond)))
		}
		if msg := r.ErrorMessage(); msg != "" {
			buf.WriteString(fmt.Sprintf(" error=%q", msg))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
