// Package concurrency sizes worker counts to the host's available CPU
// headroom, the way the teacher's enhanced metrics collector samples CPU
// time to report load.
package concurrency

import (
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

// Sizer samples CPU utilization between calls and recommends a worker
// count bounded by [min, max]. A fresh Sizer recommends max until it has
// two samples to compare.
type Sizer struct {
	min, max int
	lastTimes cpu.TimesStat
	lastCheck time.Time
	haveSample bool
}

// NewSizer returns a Sizer that never recommends fewer than min or more
// than max workers.
func NewSizer(min, max int) *Sizer {
	if min <= 0 {
		min = 1
	}
	if max < min {
		max = min
	}
	return &Sizer{min: min, max: max}
}

// Recommend returns a worker count scaled inversely to current CPU usage:
// near-idle hosts get max, saturated hosts get min. Falls back to max if
// the host's CPU times are unavailable.
func (s *Sizer) Recommend() int {
	times, err := cpu.Times(false)
	if err != nil || len(times) == 0 {
		return s.max
	}

	now := time.Now()
	defer func() {
		s.lastTimes = times[0]
		s.lastCheck = now
		s.haveSample = true
	}()

	if !s.haveSample {
		return s.max
	}

	total := times[0].Total() - s.lastTimes.Total()
	idle := times[0].Idle - s.lastTimes.Idle
	if total <= 0 {
		return s.max
	}

	busy := (total - idle) / total
	if busy < 0 {
		busy = 0
	}
	if busy > 1 {
		busy = 1
	}

	span := s.max - s.min
	recommended := s.max - int(float64(span)*busy)
	if recommended < s.min {
		recommended = s.min
	}
	if recommended > s.max {
		recommended = s.max
	}
	return recommended
}
