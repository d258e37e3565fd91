package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"midi-ingest/internal/analysis"
	"midi-ingest/internal/metrics"
	"midi-ingest/internal/midi"
	"midi-ingest/internal/model"
	"midi-ingest/internal/pipelineerr"
	"midi-ingest/internal/store"
)

// AnalyzeBatchFlushThreshold is the number of analyzed files buffered
// before a transactional flush to the store, matching the reference
// import/analysis batching constant.
const AnalyzeBatchFlushThreshold = 100

// Analyzer runs the full musical-analysis pipeline over one file and
// batches the resulting MusicalMetadata/Tag/TrackInstrument rows for
// transactional persistence, flushing every AnalyzeBatchFlushThreshold
// files rather than once per file.
type Analyzer struct {
	store    store.Store
	progress chan<- model.Progress

	mu          sync.Mutex
	pendingMeta []model.MusicalMetadata
	pendingTags [][]model.Tag
	pendingInst [][]model.TrackInstrument
	pendingRec  []model.FileRecord

	processed uint64
	total     uint64
	start     time.Time
}

// NewAnalyzer constructs an Analyzer. progress may be nil to disable
// progress emission.
func NewAnalyzer(st store.Store, progress chan<- model.Progress) *Analyzer {
	return &Analyzer{store: st, progress: progress, start: time.Now()}
}

// SetTotal records how many files the Analyze stage expects to see this
// run, so progress events can report an ETA. It's set once the Import
// stage's file count is known.
func (a *Analyzer) SetTotal(total uint64) {
	atomic.StoreUint64(&a.total, total)
}

// Func returns the StageFunc the Analyze pool invokes per file.
func (a *Analyzer) Func() StageFunc {
	return func(rec model.FileRecord) ([]model.FileRecord, error) {
		raw, err := os.ReadFile(rec.FilePath)
		if err != nil {
			a.emitProgress(rec, err)
			return nil, pipelineerr.IO("analyze", "read", "failed to read file").Wrap(err).WithFile(rec.ID)
		}

		f, err := midi.Parse(raw)
		if err != nil {
			a.emitProgress(rec, err)
			return nil, pipelineerr.Parse("analyze", "parse", "failed to parse midi file").Wrap(err).WithFile(rec.ID)
		}

		meta, tags, instruments := a.analyze(rec.ID, f)
		result, err := a.enqueue(rec, meta, tags, instruments)
		atomic.AddUint64(&a.processed, 1)
		a.emitProgress(rec, err)
		if err != nil {
			return nil, pipelineerr.Database("analyze", "flush", "failed to flush analysis batch").Wrap(err).WithFile(rec.ID)
		}
		return result, nil
	}
}

func (a *Analyzer) analyze(fileID int64, f *midi.File) (model.MusicalMetadata, []model.Tag, []model.TrackInstrument) {
	bpm := analysis.DetectBPM(f)
	key := analysis.DetectKey(f)
	notes := analysis.ComputeNoteStats(f)
	instruments := analysis.TrackInstruments(fileID, f)
	tagNames := analysis.GenerateTags(f)
	controllers := analysis.ComputeControllerHistogram(f)
	articulation := analysis.ComputeArticulation(f)
	structureLabel := analysis.DetectStructure(f)

	controllerJSON, _ := json.Marshal(controllers)
	articulationJSON, _ := json.Marshal(articulation)
	tempoChangesJSON, _ := json.Marshal(analysis.TempoChanges(f))

	var durationTicks uint64
	for _, track := range f.Tracks {
		if n := len(track.Events); n > 0 && track.Events[n-1].Tick > durationTicks {
			durationTicks = track.Events[n-1].Tick
		}
	}
	durationSeconds := 0.0
	if bpm.BPM > 0 && f.TicksPerQuarterNote > 0 {
		durationSeconds = float64(durationTicks) / float64(f.TicksPerQuarterNote) / bpm.BPM * 60.0
	}

	meta := model.MusicalMetadata{
		FileID:                   fileID,
		Format:                   f.Format,
		TrackCount:               len(f.Tracks),
		TicksPerQuarterNote:      f.TicksPerQuarterNote,
		DurationSeconds:          durationSeconds,
		BPM:                      bpm.BPM,
		BPMConfidence:            bpm.Confidence,
		KeySignature:             key.Name,
		KeyConfidence:            key.Correlation,
		NoteCount:                notes.NoteCount,
		IsMonophonic:             notes.IsMonophonic,
		IsPercussive:             notes.IsPercussive,
		DensityClass:             analysis.DensityClass(notes.NoteCount),
		LayeringClass:            analysis.LayeringClass(len(f.Tracks)),
		TempoClass:               analysis.TempoClass(bpm.BPM),
		ArticulationJSON:         string(articulationJSON),
		ControllerHistogramJSON:  string(controllerJSON),
		StructureJSON:            string(structureLabel),
		TempoChangesJSON:         string(tempoChangesJSON),
	}

	tags := make([]model.Tag, 0, len(tagNames))
	for _, name := range tagNames {
		tags = append(tags, model.Tag{FileID: fileID, Name: name})
	}

	return meta, tags, instruments
}

// enqueue buffers one file's analysis result and flushes the batch once it
// reaches AnalyzeBatchFlushThreshold, returning the records that should
// continue to the next stage (empty until their containing batch flushes
// successfully, since persistence must precede forwarding the record).
func (a *Analyzer) enqueue(rec model.FileRecord, meta model.MusicalMetadata, tags []model.Tag, instruments []model.TrackInstrument) ([]model.FileRecord, error) {
	a.mu.Lock()
	a.pendingMeta = append(a.pendingMeta, meta)
	a.pendingTags = append(a.pendingTags, tags)
	a.pendingInst = append(a.pendingInst, instruments)
	a.pendingRec = append(a.pendingRec, rec)

	if len(a.pendingMeta) < AnalyzeBatchFlushThreshold {
		a.mu.Unlock()
		return nil, nil
	}

	metas, tagBatches, instBatches, recs := a.pendingMeta, a.pendingTags, a.pendingInst, a.pendingRec
	a.pendingMeta, a.pendingTags, a.pendingInst, a.pendingRec = nil, nil, nil, nil
	a.mu.Unlock()

	return a.flush(metas, tagBatches, instBatches, recs)
}

// Flush forces any buffered analysis results to be persisted immediately,
// used by the orchestrator during drain so the last partial batch is never
// silently dropped.
func (a *Analyzer) Flush() ([]model.FileRecord, error) {
	a.mu.Lock()
	metas, tagBatches, instBatches, recs := a.pendingMeta, a.pendingTags, a.pendingInst, a.pendingRec
	a.pendingMeta, a.pendingTags, a.pendingInst, a.pendingRec = nil, nil, nil, nil
	a.mu.Unlock()

	if len(metas) == 0 {
		return nil, nil
	}
	return a.flush(metas, tagBatches, instBatches, recs)
}

func (a *Analyzer) flush(metas []model.MusicalMetadata, tagBatches [][]model.Tag, instBatches [][]model.TrackInstrument, recs []model.FileRecord) ([]model.FileRecord, error) {
	timer := prometheus.NewTimer(metrics.StageBatchDuration.WithLabelValues("analyze"))
	defer timer.ObserveDuration()

	if err := a.store.SaveAnalysisBatch(context.Background(), metas, tagBatches, instBatches); err != nil {
		return nil, err
	}
	for i := range recs {
		recs[i].Analyzed = true
	}
	return recs, nil
}

func (a *Analyzer) emitProgress(rec model.FileRecord, err error) {
	if a.progress == nil {
		return
	}
	processed := atomic.LoadUint64(&a.processed)
	total := atomic.LoadUint64(&a.total)
	rate, eta := progressRateETA(processed, total, a.start)

	select {
	case a.progress <- model.Progress{
		Stage:      model.StageAnalyze,
		FileID:     rec.ID,
		FilePath:   rec.FilePath,
		Processed:  processed,
		Total:      total,
		RatePerSec: rate,
		ETASeconds: eta,
		Err:        err,
		At:         time.Now(),
	}:
	default:
		// progress channel is fire-and-forget: a full channel drops the
		// update rather than stalling the analyze worker.
	}
}
