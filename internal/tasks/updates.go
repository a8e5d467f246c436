package tasks

import (
	"fmt"

	"github.com/desertthunder/likedb/internal/loader"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchLikes Phase = iota
	FetchTracks
	Normalize
	WriteSnapshot
	ReadSnapshot
	EnsureIndexes
	LoadCollection
)

func (p Phase) String() string {
	switch p {
	case FetchLikes:
		return "fetch_likes"
	case FetchTracks:
		return "fetch_tracks"
	case Normalize:
		return "normalize"
	case WriteSnapshot:
		return "write_snapshot"
	case ReadSnapshot:
		return "read_snapshot"
	case EnsureIndexes:
		return "ensure_indexes"
	case LoadCollection:
		return "load_collection"
	default:
		return ""
	}
}

func fetchLikesUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLikes,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching liked tracks from %s...", name),
	}
}

func fetchTracksUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching details for %d tracks...", count),
	}
}

func normalizeUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Normalize,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Normalizing tracks...", step, total),
	}
}

func writeSnapshotUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteSnapshot,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Writing snapshot to %s...", path),
	}
}

func readSnapshotUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReadSnapshot,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Reading snapshot from %s...", path),
	}
}

func ensureIndexesUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   EnsureIndexes,
		Step:    1,
		Total:   1,
		Message: "Ensuring indexes...",
	}
}

func loadCollectionUpdate(step, total int, res loader.CollectionResult) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✓ %s (%d upserted, %d matched)", step, total, res.Name, res.Upserted, res.Matched)
	if len(res.Failures) > 0 {
		msg = fmt.Sprintf("[%d/%d] ✗ %s (%d upserted, %d matched, %d failed)",
			step, total, res.Name, res.Upserted, res.Matched, len(res.Failures))
	}
	return ProgressUpdate{
		Phase:   LoadCollection,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    res,
	}
}
