// Package repositories implements persistence for the run history and the loaded document collections.
//
// Key Implementations:
//   - [DocStore] : The default [Store], one SQLite table per collection with JSON documents and expression indexes
//   - [MongoStore] : A [Store] on MongoDB using unordered bulk writes
//   - [RunRepository] : Extract and load history with status tracking
//
// A [Collection] applies batches of [WriteModel] values. [ModeReplace] fully replaces a keyed document,
// [ModeInsertIfAbsent] never touches an existing one. Item failures are returned in the [BatchResult]
// rather than aborting the batch.
//
// Sequence numbers provide stable, human-readable ordering (e.g., run #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
