// Package queue wires the bounded lock-free MPMC queue fabric that connects
// pipeline stages. Five queues separate the six stage pools; none of them
// guarantee FIFO order across producers, only that nothing pushed is lost or
// duplicated.
package queue

import (
	"sync/atomic"

	"code.hybscloud.com/lfq"

	"midi-ingest/internal/model"
)

// DefaultCapacity is the per-queue bound applied when configuration does not
// override it. Capacity is rounded up to the next power of two by lfq.
const DefaultCapacity = 10_000

// Queue is the non-blocking push/pop contract every stage worker programs
// against. It never blocks: a full queue returns false from Push, an empty
// one returns false from Pop.
type Queue struct {
	q       *lfq.MPMC[model.FileRecord]
	pending int64 // approximate depth, for drain diagnostics only
}

// New builds a Queue with the given capacity (rounded up to a power of two
// by the underlying implementation, minimum 2).
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{q: lfq.NewMPMC[model.FileRecord](capacity)}
}

// Push attempts a non-blocking enqueue. It returns false when the queue is
// full; callers back off and retry rather than treating this as an error.
func (q *Queue) Push(rec model.FileRecord) bool {
	if q.q.Enqueue(&rec) != nil {
		return false
	}
	atomic.AddInt64(&q.pending, 1)
	return true
}

// Pop attempts a non-blocking dequeue. ok is false when the queue is
// currently empty.
func (q *Queue) Pop() (rec model.FileRecord, ok bool) {
	v, err := q.q.Dequeue()
	if err != nil {
		return model.FileRecord{}, false
	}
	atomic.AddInt64(&q.pending, -1)
	return *v, true
}

// Empty reports whether the queue appeared to hold no items at the moment of
// the call. lfq intentionally omits an exact Len (it would require
// expensive cross-core synchronization on every call); this is an
// approximate count maintained from Push/Pop call sites and is only ever
// used for the orchestrator's coarse drain heuristic, never for
// correctness decisions.
func (q *Queue) Empty() bool {
	return atomic.LoadInt64(&q.pending) <= 0
}

// Depth returns the same approximate pending count as Empty, for metrics
// gauges rather than drain decisions.
func (q *Queue) Depth() int64 {
	return atomic.LoadInt64(&q.pending)
}

// Drain signals that no further Push calls will be issued against this
// queue, so that Pop can fully drain remaining items without the
// livelock-prevention threshold blocking it artificially empty.
func (q *Queue) Drain() {
	if d, ok := any(q.q).(lfq.Drainer); ok {
		d.Drain()
	}
}

// Fabric holds the five inter-stage queues named by the pipeline topology:
//
//	Import -> Sanitize -> Split -> Analyze -> Rename -> Export
type Fabric struct {
	ImportToSanitize *Queue
	SanitizeToSplit  *Queue
	SplitToAnalyze   *Queue
	AnalyzeToRename  *Queue
	RenameToExport   *Queue
}

// NewFabric builds all five queues at the given capacity.
func NewFabric(capacity int) *Fabric {
	return &Fabric{
		ImportToSanitize: New(capacity),
		SanitizeToSplit:  New(capacity),
		SplitToAnalyze:   New(capacity),
		AnalyzeToRename:  New(capacity),
		RenameToExport:   New(capacity),
	}
}

// AllEmpty reports whether every queue in the fabric appeared empty at the
// moment of the call. Used by the orchestrator's drain condition alongside
// pool idleness, never as the sole signal.
func (f *Fabric) AllEmpty() bool {
	return f.ImportToSanitize.Empty() &&
		f.SanitizeToSplit.Empty() &&
		f.SplitToAnalyze.Empty() &&
		f.AnalyzeToRename.Empty() &&
		f.RenameToExport.Empty()
}
