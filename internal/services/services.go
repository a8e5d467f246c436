// package services defines interface Source for reading a liked-track history from a music service
//
// Yandex Music
package services

import (
	"context"

	"github.com/desertthunder/likedb/internal/models"
)

// Source is a music service account whose liked tracks can be extracted.
type Source interface {
	// LikedTracks returns every like event of the account, in service order.
	LikedTracks(ctx context.Context) ([]models.RawLike, error)

	// Tracks returns the details of the given track ids. Ids the service
	// does not know are omitted from the result.
	Tracks(ctx context.Context, ids []int64) ([]models.RawTrack, error)

	// Name returns the name of the service (e.g., "Yandex Music")
	Name() string
}
