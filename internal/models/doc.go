// Package models defines the entities of the liked-tracks dataset and the persistence interfaces of the run history.
//
// The package contains three categories of types:
//
// 1. Raw records: typed mappings of the music service's dynamic API payloads
//   - [RawLike] : One liked-track event as returned by the likes endpoint
//   - [RawTrack] : Track detail with nested [RawArtist] and [RawAlbum] sub-records
//   - [RawID] : Identity that may arrive as a number, a string or "trackId:albumId"
//
// 2. Canonical entities and the interchange document
//   - [Track], [Artist], [Album], [Like] : Normalized entities
//   - [Snapshot] : The dataset handed from extraction to load, with its [Summary] and [Ranking] lists
//
// 3. Persistent entities: Database-backed models with full lifecycle management
//   - [Run] : One extract or load invocation, tracked in the local database
//
// Persistent entities implement the Model interface providing ID generation, timestamps and validation.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
