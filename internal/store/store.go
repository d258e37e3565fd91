// Package store abstracts the relational store the pipeline persists to.
// The storage engine itself is out of scope for this module (see
// SPEC_FULL.md §6): Store names only the write-shape and guarantees a
// concrete backend must provide. MemStore is a reference implementation
// used by tests and by standalone runs with no external database
// configured.
package store

import (
	"context"

	"midi-ingest/internal/model"
)

// Store is the persistence boundary every pipeline stage writes through.
// Implementations must enforce the unique-hash constraint on FileRecord.ContentHash
// and apply each batch method transactionally: either every record in the
// batch is durably written, or none are.
type Store interface {
	// LookupHashes resolves which of the given content hashes are already
	// known, returning file IDs keyed by hash. Callers chunk large hash
	// sets themselves (see DBQueryChunkSize) rather than requiring the
	// implementation to.
	LookupHashes(ctx context.Context, hashes []string) (map[string]int64, error)

	// InsertFiles durably inserts a batch of new FileRecords and returns
	// them with IDs assigned. Records whose ContentHash collides with an
	// existing row are omitted from the result, not treated as an error.
	InsertFiles(ctx context.Context, records []model.FileRecord) ([]model.FileRecord, error)

	// UpdateFile persists an in-place update to an existing FileRecord
	// (used by Sanitize and Rename after renaming the file on disk).
	UpdateFile(ctx context.Context, record model.FileRecord) error

	// InsertSplitChildren persists single-track children produced by the
	// Split stage for a multi-track parent, along with their parent/child
	// relation rows, in one transaction.
	InsertSplitChildren(ctx context.Context, parent model.FileRecord, children []model.FileRecord, relations []model.SplitRelation) ([]model.FileRecord, error)

	// SaveAnalysis persists one file's MusicalMetadata, Tags, and
	// TrackInstruments and marks the file analyzed, in one transaction.
	SaveAnalysis(ctx context.Context, meta model.MusicalMetadata, tags []model.Tag, instruments []model.TrackInstrument) error

	// SaveAnalysisBatch persists several files' analysis results in one
	// transaction, matching the Analyze stage's flush-threshold batching.
	SaveAnalysisBatch(ctx context.Context, metas []model.MusicalMetadata, tags [][]model.Tag, instruments [][]model.TrackInstrument) error

	// GetMetadata returns a file's previously saved MusicalMetadata, used
	// by the Rename stage to build an informative filename. ok is false if
	// the file has not been analyzed yet.
	GetMetadata(ctx context.Context, fileID int64) (meta model.MusicalMetadata, ok bool, err error)

	// Close releases any resources held by the store.
	Close() error
}
