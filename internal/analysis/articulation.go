package analysis

import "midi-ingest/internal/midi"

// ArticulationStats summarizes note-duration and note-overlap behavior,
// giving a rough sense of legato vs. staccato playing and how polyphonic
// the busiest track gets. Optional sideband persisted as JSON.
type ArticulationStats struct {
	MeanNoteDurationTicks float64
	MaxConcurrentNotes    int
	StaccatoRatio         float64 // fraction of notes shorter than 1/8 of the mean
}

// ComputeArticulation pairs each NoteOn with its matching NoteOff (first
// unmatched NoteOff on the same channel/pitch) to measure durations and
// polyphony depth.
func ComputeArticulation(f *midi.File) ArticulationStats {
	var durations []uint64
	maxConcurrent := 0

	for _, track := range f.Tracks {
		type voice struct {
			channel, pitch int
			startTick      uint64
		}
		var open []voice
		concurrent := 0

		for _, ev := range track.Events {
			switch ev.Kind {
			case midi.EventNoteOn:
				open = append(open, voice{ev.Channel, ev.Data1, ev.Tick})
				concurrent++
				if concurrent > maxConcurrent {
					maxConcurrent = concurrent
				}
			case midi.EventNoteOff:
				for i, v := range open {
					if v.channel == ev.Channel && v.pitch == ev.Data1 {
						durations = append(durations, ev.Tick-v.startTick)
						open = append(open[:i], open[i+1:]...)
						concurrent--
						break
					}
				}
			}
		}
	}

	if len(durations) == 0 {
		return ArticulationStats{}
	}

	var sum uint64
	for _, d := range durations {
		sum += d
	}
	mean := float64(sum) / float64(len(durations))

	staccato := 0
	for _, d := range durations {
		if float64(d) < mean/8 {
			staccato++
		}
	}

	return ArticulationStats{
		MeanNoteDurationTicks: mean,
		MaxConcurrentNotes:    maxConcurrent,
		StaccatoRatio:         float64(staccato) / float64(len(durations)),
	}
}
