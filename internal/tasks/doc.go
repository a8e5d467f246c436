// Package tasks runs the liked-tracks pipeline with real-time progress reporting.
//
// # Core Operations
//
//  1. [Engine.Extract] : Source account → snapshot file
//     - Fetches like events from the [services.Source]
//     - Fetches details for each distinct liked track
//     - Normalizes and aggregates them with [dataset.Aggregator]
//     - Writes the snapshot atomically and returns the skipped records
//
//  2. [Engine.Load] : Snapshot file → document store
//     - Reads and validates the snapshot before touching the store
//     - Writes every collection with [loader.Loader]
//     - Returns the load report, including per-item failures
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Run History
//
// When [Options.Runs] is set, each operation is recorded as a [models.Run] with its record
// counts and final status. Recorder errors are logged and never fail the pipeline.
package tasks
