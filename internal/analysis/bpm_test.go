package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"midi-ingest/internal/midi"
)

func setTempoEvent(tick uint64, bpm float64) midi.TimedEvent {
	microsPerQuarter := int(microsecondsPerMinute / bpm)
	return midi.TimedEvent{
		Tick: tick, Kind: midi.EventMeta, MetaType: midi.MetaSetTempo,
		Data: []byte{byte(microsPerQuarter >> 16), byte(microsPerQuarter >> 8), byte(microsPerQuarter)},
	}
}

func TestDetectBPMFromTempoEvents(t *testing.T) {
	f := &midi.File{TicksPerQuarterNote: 96, Tracks: []midi.Track{{Events: []midi.TimedEvent{
		setTempoEvent(0, 120),
	}}}}

	result := DetectBPM(f)
	assert.InDelta(t, 120.0, result.BPM, 0.5)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestDetectBPMAveragesMultipleTempoEvents(t *testing.T) {
	f := &midi.File{Tracks: []midi.Track{{Events: []midi.TimedEvent{
		setTempoEvent(0, 100),
		setTempoEvent(1000, 140),
	}}}}

	result := DetectBPM(f)
	assert.InDelta(t, 120.0, result.BPM, 1.0)
}

func TestDetectBPMFallsBackToOnsetEstimate(t *testing.T) {
	f := &midi.File{TicksPerQuarterNote: 96, Tracks: []midi.Track{{Events: []midi.TimedEvent{
		{Tick: 0, Kind: midi.EventNoteOn, Data1: 60, Data2: 90},
		{Tick: 96, Kind: midi.EventNoteOn, Data1: 62, Data2: 90},
		{Tick: 192, Kind: midi.EventNoteOn, Data1: 64, Data2: 90},
		{Tick: 288, Kind: midi.EventNoteOn, Data1: 65, Data2: 90},
	}}}}

	result := DetectBPM(f)
	require.Greater(t, result.BPM, 0.0)
	assert.Equal(t, 0.4, result.Confidence)
}

func TestDetectBPMEmptyFile(t *testing.T) {
	f := &midi.File{Tracks: []midi.Track{{}}}
	result := DetectBPM(f)
	assert.Equal(t, BPMResult{}, result)
}
