package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	oteltrace "go.opentelemetry.io/otel/trace"

	"midi-ingest/internal/config"
	"midi-ingest/internal/metrics"
	"midi-ingest/internal/model"
	"midi-ingest/internal/notifier"
	"midi-ingest/internal/queue"
	"midi-ingest/internal/store"
)

// Config controls which pools the Orchestrator constructs and how many
// workers each one runs.
type Config struct {
	Source          string
	QueueCapacity   int
	WorkersPerStage [6]int // Import, Sanitize, Split, Analyze, Rename, Export
	EnableRename    bool
	ExportTarget    config.ExportTargetConfig
	TempBase        string
	Tracer          oteltrace.Tracer // nil disables span instrumentation
}

// Orchestrator owns the queue fabric and every stage pool, and implements
// the drain condition that decides when an import run has finished: the
// upstream source is exhausted, every queue is empty, and every downstream
// pool has reported no progress for one full idle interval.
type Orchestrator struct {
	cfg     Config
	running int32

	fabric   *queue.Fabric
	importer *Importer
	analyzer *Analyzer

	sanitizePool *Pool
	splitPool    *Pool
	analyzePool  *Pool
	renamePool   *Pool
	exportPool   *Pool

	progress chan model.Progress
	logger   *logrus.Logger
}

// New builds an Orchestrator. st is the persistence backend; publisher may
// be notifier.NullPublisher{} when no downstream indexer is configured.
func New(cfg Config, st store.Store, publisher notifier.Publisher, logger *logrus.Logger) *Orchestrator {
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = queue.DefaultCapacity
	}
	for i, w := range cfg.WorkersPerStage {
		if w <= 0 {
			cfg.WorkersPerStage[i] = 4
		}
	}

	fabric := queue.NewFabric(cfg.QueueCapacity)
	progress := make(chan model.Progress, 1024)

	o := &Orchestrator{cfg: cfg, fabric: fabric, progress: progress, logger: logger}
	atomic.StoreInt32(&o.running, 1)

	o.analyzer = NewAnalyzer(st, progress)

	o.sanitizePool = NewPool("sanitize", fabric.ImportToSanitize, fabric.SanitizeToSplit, NewSanitizeFunc(st), cfg.WorkersPerStage[1], &o.running, logger)
	o.splitPool = NewPool("split", fabric.SanitizeToSplit, fabric.SplitToAnalyze, NewSplitFunc(st), cfg.WorkersPerStage[2], &o.running, logger)

	var analyzeOut *queue.Queue
	if cfg.EnableRename {
		analyzeOut = fabric.AnalyzeToRename
	}
	o.analyzePool = NewPool("analyze", fabric.SplitToAnalyze, analyzeOut, o.analyzer.Func(), cfg.WorkersPerStage[3], &o.running, logger)

	if cfg.EnableRename {
		var renameOut *queue.Queue
		if cfg.ExportTarget.Path != "" {
			renameOut = fabric.RenameToExport
		}
		o.renamePool = NewPool("rename", fabric.AnalyzeToRename, renameOut, NewRenameFunc(st), cfg.WorkersPerStage[4], &o.running, logger)
	}

	if cfg.ExportTarget.Path != "" {
		o.exportPool = NewPool("export", fabric.RenameToExport, nil, NewExportFunc(cfg.ExportTarget, publisher), cfg.WorkersPerStage[5], &o.running, logger)
	}

	o.importer = &Importer{
		Store:        st,
		Out:          fabric.ImportToSanitize,
		TempBase:     cfg.TempBase,
		Progress:     progress,
		Logger:       logger,
		Running:      &o.running,
		OnDiscovered: o.analyzer.SetTotal,
	}

	if cfg.Tracer != nil {
		for _, pool := range o.poolsUpstreamFirst() {
			pool.WithTracer(cfg.Tracer)
		}
	}

	return o
}

// Progress returns the channel Import and Analyze emit updates on.
func (o *Orchestrator) Progress() <-chan model.Progress { return o.progress }

// Run imports cfg.Source, starts every wired pool in topology order
// (downstream first, so nothing is ever popping from a queue before its
// consumer exists), waits for the drain condition, and shuts pools down in
// reverse order (Export before Import) so upstream producers never outlive
// their consumers.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	for _, pool := range o.poolsDownstreamFirst() {
		pool.Start()
	}

	summary, err := o.importer.ImportDirectory(ctx, o.cfg.Source)

	o.waitForDrain()

	if flushed, ferr := o.analyzer.Flush(); ferr == nil {
		for _, rec := range flushed {
			if o.cfg.EnableRename {
				for !o.fabric.AnalyzeToRename.Push(rec) {
					time.Sleep(time.Millisecond)
				}
			}
		}
		if o.cfg.EnableRename && len(flushed) > 0 {
			// Let Rename (and Export) process the flushed batch before
			// the running flag stops their workers.
			o.waitForDrain()
		}
	}

	atomic.StoreInt32(&o.running, 0)
	for _, pool := range o.poolsDownstreamFirst() {
		pool.Wait()
	}
	close(o.progress)

	return summary, err
}

// waitForDrain polls until every queue is empty and no pool has made
// progress for a full idleSleepInterval, matching the design note that the
// sole coordination signal between stages is backpressure, never an
// explicit "done" message.
func (o *Orchestrator) waitForDrain() {
	var lastProcessed uint64
	idleSince := time.Now()

	for {
		time.Sleep(idleSleepInterval)
		o.reportQueueDepths()

		total := o.totalProcessed()
		if total != lastProcessed {
			lastProcessed = total
			idleSince = time.Now()
			continue
		}

		if o.fabric.AllEmpty() && time.Since(idleSince) >= idleSleepInterval {
			return
		}
	}
}

// reportQueueDepths publishes each inter-stage queue's approximate depth as
// a gauge, sampled on the same cadence as the drain check.
func (o *Orchestrator) reportQueueDepths() {
	metrics.QueueDepth.WithLabelValues("import_to_sanitize").Set(float64(o.fabric.ImportToSanitize.Depth()))
	metrics.QueueDepth.WithLabelValues("sanitize_to_split").Set(float64(o.fabric.SanitizeToSplit.Depth()))
	metrics.QueueDepth.WithLabelValues("split_to_analyze").Set(float64(o.fabric.SplitToAnalyze.Depth()))
	metrics.QueueDepth.WithLabelValues("analyze_to_rename").Set(float64(o.fabric.AnalyzeToRename.Depth()))
	metrics.QueueDepth.WithLabelValues("rename_to_export").Set(float64(o.fabric.RenameToExport.Depth()))
}

func (o *Orchestrator) totalProcessed() uint64 {
	var total uint64
	for _, pool := range o.poolsUpstreamFirst() {
		total += atomic.LoadUint64(&pool.Processed)
	}
	return total
}

func (o *Orchestrator) poolsDownstreamFirst() []*Pool {
	pools := o.poolsUpstreamFirst()
	reversed := make([]*Pool, len(pools))
	for i, p := range pools {
		reversed[len(pools)-1-i] = p
	}
	return reversed
}

func (o *Orchestrator) poolsUpstreamFirst() []*Pool {
	var pools []*Pool
	pools = append(pools, o.sanitizePool, o.splitPool, o.analyzePool)
	if o.renamePool != nil {
		pools = append(pools, o.renamePool)
	}
	if o.exportPool != nil {
		pools = append(pools, o.exportPool)
	}
	return pools
}
