package analysis

import (
	"encoding/json"
	"strconv"

	"midi-ingest/internal/midi"
)

// ControllerHistogram counts ControlChange messages by controller number,
// across all tracks. This is an optional sideband persisted as JSON on
// MusicalMetadata.
type ControllerHistogram map[int]int

// ComputeControllerHistogram tallies every ControlChange event's controller
// number (Data1) regardless of channel.
func ComputeControllerHistogram(f *midi.File) ControllerHistogram {
	hist := make(ControllerHistogram)
	for _, track := range f.Tracks {
		for _, ev := range track.Events {
			if ev.Kind == midi.EventControlChange {
				hist[ev.Data1]++
			}
		}
	}
	return hist
}

// MarshalJSON renders the histogram with string keys, since JSON object
// keys must be strings and controller numbers are compared as ints
// elsewhere.
func (h ControllerHistogram) MarshalJSON() ([]byte, error) {
	strKeyed := make(map[string]int, len(h))
	for k, v := range h {
		strKeyed[strconv.Itoa(k)] = v
	}
	return json.Marshal(strKeyed)
}
