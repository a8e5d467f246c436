package repositories

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Collection names
const (
	CollectionTracks      = "tracks"
	CollectionArtists     = "artists"
	CollectionAlbums      = "albums"
	CollectionLikes       = "likes"
	CollectionGenresStats = "genres_stats"
	CollectionMeta        = "meta"
)

// Collections lists every collection the loader writes, in load order.
var Collections = []string{
	CollectionTracks,
	CollectionArtists,
	CollectionAlbums,
	CollectionLikes,
	CollectionGenresStats,
	CollectionMeta,
}

// IsCollection reports whether name is a known collection.
func IsCollection(name string) bool {
	return slices.Contains(Collections, name)
}

// Store is a document store holding the loaded collections.
type Store interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close() error
}

// Collection is a named set of documents addressed by [Key].
type Collection interface {
	Name() string
	EnsureIndexes(ctx context.Context, specs []IndexSpec) error
	BulkUpsert(ctx context.Context, writes []WriteModel) (*BatchResult, error)
	FindOne(ctx context.Context, key Key, out any) error
	Count(ctx context.Context) (int64, error)
}

// KeyField is one field of a document identity.
type KeyField struct {
	Name  string
	Value any
}

// Key identifies a document by one or more fields.
type Key struct {
	Fields []KeyField
}

// IDKey returns a key on the document's _id.
func IDKey(v any) Key {
	return Key{Fields: []KeyField{{Name: "_id", Value: v}}}
}

// CompositeKey returns a key over the given fields.
func CompositeKey(fields ...KeyField) Key {
	return Key{Fields: fields}
}

// String joins the key's values with "|".
func (k Key) String() string {
	parts := make([]string, len(k.Fields))
	for i, f := range k.Fields {
		parts[i] = fmt.Sprint(f.Value)
	}
	return strings.Join(parts, "|")
}

// WriteMode selects how a [WriteModel] treats an existing document.
type WriteMode int

const (
	// ModeReplace inserts the document or fully replaces an existing one.
	ModeReplace WriteMode = iota
	// ModeInsertIfAbsent inserts the document and never modifies an existing one.
	ModeInsertIfAbsent
)

func (m WriteMode) String() string {
	switch m {
	case ModeReplace:
		return "replace"
	case ModeInsertIfAbsent:
		return "insert-if-absent"
	default:
		return fmt.Sprintf("WriteMode(%d)", int(m))
	}
}

// WriteModel is one keyed upsert in a batch.
type WriteModel struct {
	Key  Key
	Doc  any
	Mode WriteMode
}

// IndexKey is one field of an index, ascending unless Desc is set.
type IndexKey struct {
	Field string
	Desc  bool
}

// IndexSpec describes a secondary index.
type IndexSpec struct {
	Name   string
	Keys   []IndexKey
	Unique bool
}

// IndexName returns Name, or a name derived from the collection and keys.
func (s IndexSpec) IndexName(collection string) string {
	if s.Name != "" {
		return s.Name
	}
	parts := []string{"idx", collection}
	for _, k := range s.Keys {
		dir := "asc"
		if k.Desc {
			dir = "desc"
		}
		parts = append(parts, strings.ReplaceAll(k.Field, ".", "_"), dir)
	}
	return strings.Join(parts, "_")
}

// ItemFailure is one write that failed inside a batch.
type ItemFailure struct {
	Collection string
	Index      int // position in the batch
	Key        string
	Err        error
}

func (f ItemFailure) Error() string {
	return fmt.Sprintf("%s[%d] %s: %v", f.Collection, f.Index, f.Key, f.Err)
}

func (f ItemFailure) Unwrap() error { return f.Err }

// BatchResult counts the outcome of a batch.
//
// Matched counts documents that already existed: replaced documents for [ModeReplace],
// already-present documents for [ModeInsertIfAbsent].
type BatchResult struct {
	Upserted int
	Matched  int
	Failures []ItemFailure
}

// Written returns the number of items that did not fail.
func (r *BatchResult) Written() int {
	return r.Upserted + r.Matched
}
