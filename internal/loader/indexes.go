package loader

import "github.com/desertthunder/likedb/internal/repositories"

// Indexes are the secondary indexes ensured before loading, by collection.
var Indexes = map[string][]repositories.IndexSpec{
	repositories.CollectionTracks: {
		{Keys: []repositories.IndexKey{{Field: "primary_genre"}}},
		{Keys: []repositories.IndexKey{{Field: "release_year", Desc: true}}},
	},
	repositories.CollectionArtists: {
		{Keys: []repositories.IndexKey{{Field: "name"}}},
	},
	repositories.CollectionAlbums: {
		{Keys: []repositories.IndexKey{{Field: "genre"}}},
		{Keys: []repositories.IndexKey{{Field: "year", Desc: true}}},
	},
	repositories.CollectionLikes: {
		{Keys: []repositories.IndexKey{{Field: "track_id"}, {Field: "liked_at"}}, Unique: true},
		{Keys: []repositories.IndexKey{{Field: "liked_at", Desc: true}}},
	},
}
