// Package loader writes a [models.Snapshot] into a document store.
//
// Every load is idempotent: tracks, artists, albums, genre statistics and the
// summary are replaced by key, and likes are inserted only when absent, so
// loading the same snapshot twice leaves every collection unchanged. Items
// rejected by the store are collected in the [Report] instead of stopping the
// load.
package loader
