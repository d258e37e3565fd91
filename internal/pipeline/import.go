package pipeline

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"midi-ingest/internal/cleanup"
	"midi-ingest/internal/concurrency"
	"midi-ingest/internal/dedup"
	"midi-ingest/internal/metrics"
	"midi-ingest/internal/midi"
	"midi-ingest/internal/model"
	"midi-ingest/internal/pipelineerr"
	"midi-ingest/internal/queue"
	"midi-ingest/internal/store"
)

// Tuning constants ported verbatim from the reference import command.
const (
	HashConcurrency  = 64
	BatchInsertSize  = 1000
	DBQueryChunkSize = 10000
)

// unsupportedArchiveGlobs lists archive extensions Import recognizes but
// cannot extract, so it can log ErrUnsupportedFormat instead of treating
// them as plain unreadable files.
var unsupportedArchiveGlobs = []string{"*.rar", "*.7z", "*.tar", "*.tar.gz", "*.tgz"}

// ErrUnsupportedFormat is the error logged for a recognized-but-unsupported
// archive format; the archive is skipped and the walk continues.
var ErrUnsupportedFormat = fmt.Errorf("import: unsupported archive format")

// Summary reports the outcome of one ImportDirectory call.
type Summary struct {
	TotalFiles int
	Imported   int
	Skipped    int
	Errors     int
	Duration   time.Duration
	Rate       float64 // files per second
}

// Importer discovers MIDI files (and MIDI files inside ZIP archives) under
// a source root, content-hashes them, deduplicates against the store, and
// pushes newly inserted FileRecords onto the Import->Sanitize queue.
type Importer struct {
	Store    store.Store
	Out      *queue.Queue
	Dedup    *dedup.Manager
	TempBase string
	Progress chan<- model.Progress
	Logger   *logrus.Logger
	Running  *int32

	// OnDiscovered, if set, is called once discovery finishes and the total
	// candidate count is known, so downstream stages (Analyze) can report
	// an ETA against the same total Import uses.
	OnDiscovered func(total uint64)

	processed uint64
	total     uint64
	start     time.Time
	sizer     *concurrency.Sizer
}

// candidate is a discovered file awaiting hashing, paired with the
// temporary archive scope that must be cleaned up once it's no longer
// needed (nil for files discovered directly on the source filesystem).
type candidate struct {
	path         string
	parentFolder string
	sourceArchive string
	scope        *cleanup.ScopedDir
}

// ImportDirectory walks root, extracting ZIP archives into scoped temp
// directories, hashes every candidate with HashConcurrency parallel
// workers, deduplicates in DBQueryChunkSize-sized lookups, and inserts in
// BatchInsertSize batches.
func (im *Importer) ImportDirectory(ctx context.Context, root string) (Summary, error) {
	start := time.Now()
	im.start = start

	candidates, err := im.discover(root)
	if err != nil {
		return Summary{}, err
	}
	atomic.StoreUint64(&im.total, uint64(len(candidates)))
	if im.OnDiscovered != nil {
		im.OnDiscovered(uint64(len(candidates)))
	}
	defer func() {
		for _, c := range candidates {
			if c.scope != nil {
				c.scope.Remove()
			}
		}
	}()

	hashed := im.hashAll(candidates)

	summary := Summary{TotalFiles: len(candidates)}
	batch := make([]model.FileRecord, 0, BatchInsertSize)

	// flush inserts the pending batch, retrying once on failure. A batch
	// that fails twice is marked failed in full and the import continues
	// with the next batch rather than aborting the whole run.
	flush := func() {
		if len(batch) == 0 {
			return
		}
		inserted, err := im.insertBatch(ctx, batch)
		if err != nil {
			if im.Logger != nil {
				im.Logger.WithError(err).Warn("import: batch insert failed, retrying once")
			}
			inserted, err = im.insertBatch(ctx, batch)
		}
		if err != nil {
			summary.Errors += len(batch)
			if im.Logger != nil {
				im.Logger.WithError(err).WithField("batch_size", len(batch)).Error("import: batch insert failed twice, marking batch failed")
			}
			for _, rec := range batch {
				im.emitProgress(rec, err)
			}
			batch = batch[:0]
			return
		}
		summary.Imported += len(inserted)
		summary.Skipped += len(batch) - len(inserted)
		batch = batch[:0]
	}

	for _, h := range hashed {
		if h.err != nil {
			summary.Errors++
			im.emitProgress(model.FileRecord{FilePath: h.candidate.path}, h.err)
			continue
		}
		if im.Dedup != nil && im.Dedup.Seen(h.hash) {
			summary.Skipped++
			metrics.FilesDuplicateTotal.Inc()
			continue
		}

		batch = append(batch, model.FileRecord{
			FilePath:      h.candidate.path,
			FileName:      filepath.Base(h.candidate.path),
			ParentFolder:  h.candidate.parentFolder,
			ContentHash:   h.hash,
			SizeBytes:     h.size,
			SourceArchive: h.candidate.sourceArchive,
			DiscoveredAt:  time.Now(),
		})
		if len(batch) >= BatchInsertSize {
			flush()
		}
	}
	flush()

	summary.Duration = time.Since(start)
	if summary.Duration > 0 {
		summary.Rate = float64(summary.Imported) / summary.Duration.Seconds()
	}
	return summary, nil
}

func (im *Importer) insertBatch(ctx context.Context, batch []model.FileRecord) ([]model.FileRecord, error) {
	timer := prometheus.NewTimer(metrics.StageBatchDuration.WithLabelValues("import"))
	defer timer.ObserveDuration()

	hashes := make([]string, len(batch))
	for i, rec := range batch {
		hashes[i] = rec.ContentHash
	}

	existing := make(map[string]int64)
	for start := 0; start < len(hashes); start += DBQueryChunkSize {
		end := start + DBQueryChunkSize
		if end > len(hashes) {
			end = len(hashes)
		}
		found, err := im.Store.LookupHashes(ctx, hashes[start:end])
		if err != nil {
			return nil, pipelineerr.Database("import", "lookup_hashes", "failed to check for duplicates").Wrap(err)
		}
		for h, id := range found {
			existing[h] = id
		}
	}

	toInsert := batch[:0:0]
	for _, rec := range batch {
		if _, dup := existing[rec.ContentHash]; dup {
			continue
		}
		toInsert = append(toInsert, rec)
	}

	inserted, err := im.Store.InsertFiles(ctx, toInsert)
	if err != nil {
		return nil, pipelineerr.Database("import", "insert", "failed to insert file batch").Wrap(err)
	}

	for _, rec := range inserted {
		if im.Dedup != nil {
			im.Dedup.Record(rec.ContentHash)
		}
		atomic.AddUint64(&im.processed, 1)
		im.emitProgress(rec, nil)
		for !im.Out.Push(rec) {
			time.Sleep(time.Millisecond)
			if atomic.LoadInt32(im.Running) == 0 {
				break
			}
		}
	}
	return inserted, nil
}

type hashResult struct {
	candidate candidate
	hash      string
	size      int64
	err       error
}

// hashAll computes content hashes with up to HashConcurrency parallel
// workers, scaled down under CPU pressure by the Sizer so a large import
// doesn't starve the rest of the pipeline's stage pools.
func (im *Importer) hashAll(candidates []candidate) []hashResult {
	if im.sizer == nil {
		im.sizer = concurrency.NewSizer(4, HashConcurrency)
	}
	concurrencyBudget := im.sizer.Recommend()

	results := make([]hashResult, len(candidates))
	sem := make(chan struct{}, concurrencyBudget)
	var wg sync.WaitGroup

	for i, c := range candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, c candidate) {
			defer wg.Done()
			defer func() { <-sem }()

			info, err := os.Stat(c.path)
			if err != nil {
				results[i] = hashResult{candidate: c, err: err}
				return
			}
			hash, err := midi.ContentHash(c.path)
			if err != nil {
				results[i] = hashResult{candidate: c, err: err}
				return
			}
			results[i] = hashResult{candidate: c, hash: hash, size: info.Size()}
		}(i, c)
	}
	wg.Wait()
	return results
}

// discover walks root, recognizing .mid/.midi files directly and expanding
// .zip archives into scoped temp directories. It tolerates unreadable
// subdirectories, logging and continuing rather than aborting the whole
// walk, matching the reference discovery module's behavior.
func (im *Importer) discover(root string) ([]candidate, error) {
	var candidates []candidate

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if im.Logger != nil {
				im.Logger.WithFields(logrus.Fields{"path": path}).WithError(err).Warn("import: skipping unreadable path")
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		if isMIDIFile(path) {
			candidates = append(candidates, candidate{path: path, parentFolder: relParent(root, path)})
			return nil
		}

		if strings.EqualFold(filepath.Ext(path), ".zip") {
			extracted, err := im.extractZip(path)
			if err != nil {
				if im.Logger != nil {
					im.Logger.WithFields(logrus.Fields{"path": path}).WithError(err).Warn("import: failed to extract archive")
				}
				return nil
			}
			candidates = append(candidates, extracted...)
			return nil
		}

		if isUnsupportedArchive(path) {
			if im.Logger != nil {
				im.Logger.WithFields(logrus.Fields{"path": path}).WithError(ErrUnsupportedFormat).Warn("import: unsupported archive format")
			}
		}
		return nil
	})
	if err != nil {
		return nil, pipelineerr.IO("import", "walk", "failed to walk source directory").Wrap(err)
	}
	return candidates, nil
}

func (im *Importer) extractZip(archivePath string) ([]candidate, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	scope, err := cleanup.NewScopedDir(im.TempBase, filepath.Base(archivePath), im.Logger)
	if err != nil {
		return nil, err
	}

	var candidates []candidate
	for _, member := range r.File {
		if member.FileInfo().IsDir() || !isMIDIFile(member.Name) {
			continue
		}

		destPath, err := scope.Join(member.Name)
		if err != nil {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			continue
		}

		if err := extractZipMember(member, destPath); err != nil {
			continue
		}
		candidates = append(candidates, candidate{
			path:          destPath,
			parentFolder:  filepath.Base(archivePath),
			sourceArchive: archivePath,
			scope:         scope,
		})
	}
	if len(candidates) == 0 {
		// No candidate holds the scope, so nothing else will remove it.
		scope.Remove()
	}
	return candidates, nil
}

func extractZipMember(member *zip.File, destPath string) error {
	src, err := member.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

func isMIDIFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".mid" || ext == ".midi"
}

func isUnsupportedArchive(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	for _, glob := range unsupportedArchiveGlobs {
		if ok, _ := doublestar.Match(glob, base); ok {
			return true
		}
	}
	return false
}

func relParent(root, path string) string {
	rel, err := filepath.Rel(root, filepath.Dir(path))
	if err != nil || rel == "." {
		return ""
	}
	return rel
}

func (im *Importer) emitProgress(rec model.FileRecord, err error) {
	if im.Progress == nil {
		return
	}
	processed := atomic.LoadUint64(&im.processed)
	total := atomic.LoadUint64(&im.total)
	rate, eta := progressRateETA(processed, total, im.start)

	select {
	case im.Progress <- model.Progress{
		Stage:      model.StageImport,
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
	}
}

// progressRateETA computes the files-per-second rate and estimated seconds
// remaining from a processed/total count and the run's start time. It
// returns zero values until enough time has elapsed to avoid a division
// blowing up into a meaningless estimate.
func progressRateETA(processed, total uint64, start time.Time) (rate, eta float64) {
	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 || processed == 0 {
		return 0, 0
	}
	rate = float64(processed) / elapsed
	if total > processed && rate > 0 {
		eta = float64(total-processed) / rate
	}
	return rate, eta
}
