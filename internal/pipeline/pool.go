// Package pipeline implements the six stage worker pools (Import, Sanitize,
// Split, Analyze, Rename, Export) and the orchestrator that wires them to
// the queue fabric, grounded on the teacher's worker-pool-per-stage
// dispatcher but popping directly from a lock-free queue instead of a
// per-worker task channel.
package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"context"

	"code.hybscloud.com/iox"
	"github.com/sirupsen/logrus"
	oteltrace "go.opentelemetry.io/otel/trace"

	"midi-ingest/internal/metrics"
	"midi-ingest/internal/model"
	"midi-ingest/internal/pipelineerr"
	"midi-ingest/internal/queue"
)

// StageFunc processes one FileRecord popped from a stage's input queue. It
// returns zero or more output records to push downstream (Split can fan one
// parent into many children; a terminal stage returns none) and an error
// classified by pipelineerr.Kind.
type StageFunc func(rec model.FileRecord) ([]model.FileRecord, error)

// Pool runs Workers goroutines that pop from In, invoke Fn, and push results
// to Out (nil for a terminal stage). All pools in an Orchestrator share one
// *int32 Running flag: any pool can stop the whole pipeline on a Fatal
// error, and every pool observes the same flag when deciding whether to
// keep popping.
type Pool struct {
	Name    string
	In      *queue.Queue
	Out     *queue.Queue
	Fn      StageFunc
	Workers int
	Running *int32

	Processed uint64
	Errors    uint64
	Duplicates uint64

	logger *logrus.Logger
	tracer oteltrace.Tracer
	wg     sync.WaitGroup
}

// NewPool constructs a Pool. Running must be a pointer shared with every
// other pool in the same pipeline (and initialized to 1 before Start).
func NewPool(name string, in, out *queue.Queue, fn StageFunc, workers int, running *int32, logger *logrus.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{Name: name, In: in, Out: out, Fn: fn, Workers: workers, Running: running, logger: logger}
}

// WithTracer attaches a Tracer that wraps every Fn invocation in a span
// named after the stage. Returns the Pool for chaining.
func (p *Pool) WithTracer(tracer oteltrace.Tracer) *Pool {
	p.tracer = tracer
	return p
}

// Start launches Workers goroutines, each running an independent pop/
// process/push loop with its own backoff state.
func (p *Pool) Start() {
	metrics.ActiveWorkers.WithLabelValues(p.Name).Set(float64(p.Workers))
	for i := 0; i < p.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Wait blocks until every worker goroutine has returned. Workers return
// once Running flips to 0 and their input queue reports empty.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	popBackoff := iox.Backoff{}
	pushBackoff := iox.Backoff{}

	for {
		rec, ok := p.In.Pop()
		if !ok {
			if atomic.LoadInt32(p.Running) == 0 {
				return
			}
			popBackoff.Wait()
			continue
		}
		popBackoff.Reset()

		results, err := p.runFn(rec)
		if err != nil {
			p.handleError(rec, err)
			continue
		}
		atomic.AddUint64(&p.Processed, 1)
		metrics.FilesProcessedTotal.WithLabelValues(p.Name).Inc()

		if p.Out == nil {
			continue
		}
		for _, out := range results {
			for !p.Out.Push(out) {
				pushBackoff.Wait()
			}
			pushBackoff.Reset()
		}
	}
}

func (p *Pool) runFn(rec model.FileRecord) ([]model.FileRecord, error) {
	if p.tracer == nil {
		return p.Fn(rec)
	}
	_, span := p.tracer.Start(context.Background(), "pipeline."+p.Name)
	defer span.End()
	return p.Fn(rec)
}

func (p *Pool) handleError(rec model.FileRecord, err error) {
	pe, ok := pipelineerr.As(err)
	if !ok {
		atomic.AddUint64(&p.Errors, 1)
		metrics.FilesErrorTotal.WithLabelValues(p.Name, "unknown").Inc()
		p.logger.WithFields(logrus.Fields{"stage": p.Name, "file": rec.FilePath}).WithError(err).Error("stage error")
		return
	}

	switch pe.Kind {
	case pipelineerr.KindDuplicate:
		atomic.AddUint64(&p.Duplicates, 1)
		metrics.FilesDuplicateTotal.Inc()
	case pipelineerr.KindFatal:
		atomic.StoreInt32(p.Running, 0)
		metrics.FilesErrorTotal.WithLabelValues(p.Name, string(pe.Kind)).Inc()
		p.logger.WithFields(logrus.Fields{"stage": p.Name, "file": rec.FilePath}).WithError(err).Error("fatal error, stopping pipeline")
	default:
		atomic.AddUint64(&p.Errors, 1)
		metrics.FilesErrorTotal.WithLabelValues(p.Name, string(pe.Kind)).Inc()
		p.logger.WithFields(logrus.Fields{"stage": p.Name, "file": rec.FilePath, "kind": pe.Kind}).WithError(err).Warn("recoverable stage error")
	}
}

// idleSleepInterval is how long the orchestrator waits between drain-
// condition checks; a pool counts as idle only once it has reported no
// progress across one full interval.
const idleSleepInterval = 200 * time.Millisecond
