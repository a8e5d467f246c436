// Package dataset turns raw liked-track records into the canonical dataset and
// reads and writes it as a snapshot document.
//
// [Normalize] maps one raw track to a [models.Track] and the artist and album
// entities it references. The [Aggregator] folds every like and track of an
// extraction into identity-keyed collections and computes genre counts, the
// temporal summary and top-N rankings. [WriteSnapshot] and [ReadSnapshot]
// move the resulting [models.Snapshot] between extraction and load.
//
// Records that cannot be used (a track or like without an id, a like with an
// unreadable timestamp) are kept as [SkippedRecord] values instead of
// aborting the run.
package dataset
