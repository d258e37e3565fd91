package analysis

import "midi-ingest/internal/midi"

// microsecondsPerMinute converts a MIDI SetTempo meta event's microseconds-
// per-quarter-note payload into beats per minute.
const microsecondsPerMinute = 60_000_000.0

// BPMResult is the outcome of tempo detection for one file.
type BPMResult struct {
	BPM        float64
	Confidence float64
}

// TempoChange is one SetTempo meta event at its absolute tick.
type TempoChange struct {
	Tick uint64
	BPM  float64
}

// TempoChanges extracts every SetTempo meta event across all tracks, in
// tick order within each track (tracks are not globally merged here; the
// caller can merge-sort if cross-track ordering matters).
func TempoChanges(f *midi.File) []TempoChange {
	var changes []TempoChange
	for _, track := range f.Tracks {
		for _, ev := range track.Events {
			if ev.Kind != midi.EventMeta || ev.MetaType != midi.MetaSetTempo || len(ev.Data) < 3 {
				continue
			}
			microsPerQuarter := int(ev.Data[0])<<16 | int(ev.Data[1])<<8 | int(ev.Data[2])
			if microsPerQuarter <= 0 {
				continue
			}
			changes = append(changes, TempoChange{Tick: ev.Tick, BPM: microsecondsPerMinute / float64(microsPerQuarter)})
		}
	}
	return changes
}

// DetectBPM prefers the explicit tempo-event track; files with none fall
// back to an onset-interval estimate with lower confidence.
func DetectBPM(f *midi.File) BPMResult {
	changes := TempoChanges(f)
	if len(changes) > 0 {
		var sum float64
		for _, c := range changes {
			sum += c.BPM
		}
		return BPMResult{BPM: sum / float64(len(changes)), Confidence: 1.0}
	}

	bpm, ok := onsetBPM(f)
	if !ok {
		return BPMResult{}
	}
	return BPMResult{BPM: bpm, Confidence: 0.4}
}

// onsetBPM estimates tempo from the median interval between consecutive
// NoteOn onsets on the busiest track, assuming a quarter-note grid. This is
// a coarse fallback for files that omit tempo meta events entirely.
func onsetBPM(f *midi.File) (float64, bool) {
	var onsets []uint64
	for _, track := range f.Tracks {
		var trackOnsets []uint64
		for _, ev := range track.Events {
			if ev.Kind == midi.EventNoteOn {
				trackOnsets = append(trackOnsets, ev.Tick)
			}
		}
		if len(trackOnsets) > len(onsets) {
			onsets = trackOnsets
		}
	}
	if len(onsets) < 4 || f.TicksPerQuarterNote <= 0 {
		return 0, false
	}

	intervals := make([]uint64, 0, len(onsets)-1)
	for i := 1; i < len(onsets); i++ {
		if d := onsets[i] - onsets[i-1]; d > 0 {
			intervals = append(intervals, d)
		}
	}
	if len(intervals) == 0 {
		return 0, false
	}

	median := medianUint64(intervals)
	if median == 0 {
		return 0, false
	}
	quartersPerOnset := float64(median) / float64(f.TicksPerQuarterNote)
	if quartersPerOnset <= 0 {
		return 0, false
	}
	// Assume a moderate default of 120 BPM quarter-note duration as the
	// reference grid step, scaled by how many quarters the median interval
	// actually spans.
	return 120.0 / quartersPerOnset, true
}

func medianUint64(vals []uint64) uint64 {
	sorted := append([]uint64(nil), vals...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	return sorted[len(sorted)/2]
}
