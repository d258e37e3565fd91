// Package model defines the data types that flow through the ingestion
// pipeline and are persisted by the store.
package model

import "time"

// Stage identifies a pipeline stage a FileRecord currently occupies.
type Stage int

const (
	StageImport Stage = iota
	StageSanitize
	StageSplit
	StageAnalyze
	StageRename
	StageExport
)

func (s Stage) String() string {
	switch s {
	case StageImport:
		return "import"
	case StageSanitize:
		return "sanitize"
	case StageSplit:
		return "split"
	case StageAnalyze:
		return "analyze"
	case StageRename:
		return "rename"
	case StageExport:
		return "export"
	default:
		return "unknown"
	}
}

// FileRecord is the unit of work passed between pipeline stages and the row
// persisted for every imported file. ParentID is nil for a file that was not
// produced by splitting a multi-track source.
type FileRecord struct {
	ID            int64
	FilePath      string
	FileName      string
	ParentFolder  string
	ContentHash   string
	SizeBytes     int64
	IsMultiTrack  bool
	Analyzed      bool
	ParentID      *int64
	DiscoveredAt  time.Time
	SourceArchive string
}

// MusicalMetadata is the analysis result attached to a single FileRecord.
type MusicalMetadata struct {
	FileID                    int64
	Format                    int
	TrackCount                int
	TicksPerQuarterNote       int
	DurationSeconds           float64
	BPM                       float64
	BPMConfidence             float64
	KeySignature              string
	KeyConfidence             float64
	NoteCount                 int
	IsMonophonic              bool
	IsPercussive              bool
	DensityClass              string
	LayeringClass             string
	TempoClass                string
	ArticulationJSON          string
	ControllerHistogramJSON   string
	StructureJSON             string
	TempoChangesJSON          string
	KeyChangesJSON            string
	TimeSignatureChangesJSON  string
}

// Tag is a single auto-generated or user-assigned label on a file.
type Tag struct {
	FileID int64
	Name   string
}

// TrackInstrument records the GM program assigned to one track of a file.
type TrackInstrument struct {
	FileID        int64
	TrackIndex    int
	Channel       int
	ProgramNumber int
	InstrumentName string
	GMFamily      string
	IsDrumTrack   bool
	NoteCount     int
}

// SplitRelation links a multi-track parent file to the single-track children
// produced by the Split stage.
type SplitRelation struct {
	ParentID   int64
	ChildID    int64
	TrackIndex int
}

// Progress is emitted on the progress channel by the Import and Analyze
// stages. It is fire-and-forget: a full channel drops the update rather than
// blocking the stage that produced it.
type Progress struct {
	Stage      Stage
	FileID     int64
	FilePath   string
	Processed  uint64
	Total      uint64
	RatePerSec float64 // files processed per second so far
	ETASeconds float64 // estimated seconds remaining, 0 when Total is unknown
	Err        error
	At         time.Time
}

// ChangeEventKind classifies a ChangeEvent.
type ChangeEventKind string

const (
	ChangeEventImported ChangeEventKind = "imported"
	ChangeEventAnalyzed ChangeEventKind = "analyzed"
	ChangeEventExported ChangeEventKind = "exported"
)

// ChangeEvent is published by the Export stage for each exported file; no
// other stage publishes one, so the Imported and Analyzed kinds are defined
// but never sent. It is the
// only outward notification the core emits; indexing and search are
// downstream consumers of this stream, never performed here.
type ChangeEvent struct {
	FileID     int64
	Kind       ChangeEventKind
	OccurredAt time.Time
}
