package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"midi-ingest/internal/midi"
)

func TestComputeArticulationEmptyFile(t *testing.T) {
	f := &midi.File{Tracks: []midi.Track{{}}}
	assert.Equal(t, ArticulationStats{}, ComputeArticulation(f))
}

func TestComputeArticulationDurationsAndPolyphony(t *testing.T) {
	f := &midi.File{Tracks: []midi.Track{
		{Events: []midi.TimedEvent{
			{Tick: 0, Kind: midi.EventNoteOn, Channel: 0, Data1: 60},
			{Tick: 10, Kind: midi.EventNoteOn, Channel: 0, Data1: 64},
			{Tick: 20, Kind: midi.EventNoteOff, Channel: 0, Data1: 60},
			{Tick: 30, Kind: midi.EventNoteOff, Channel: 0, Data1: 64},
		}},
	}}

	stats := ComputeArticulation(f)
	assert.Equal(t, 2, stats.MaxConcurrentNotes)
	assert.InDelta(t, 20.0, stats.MeanNoteDurationTicks, 0.01) // (20 + 20) / 2
}

func TestComputeArticulationStaccatoRatio(t *testing.T) {
	f := &midi.File{Tracks: []midi.Track{
		{Events: []midi.TimedEvent{
			{Tick: 0, Kind: midi.EventNoteOn, Channel: 0, Data1: 60},
			{Tick: 100, Kind: midi.EventNoteOff, Channel: 0, Data1: 60},
			{Tick: 100, Kind: midi.EventNoteOn, Channel: 0, Data1: 62},
			{Tick: 105, Kind: midi.EventNoteOff, Channel: 0, Data1: 62},
		}},
	}}

	stats := ComputeArticulation(f)
	// durations: 100, 5; mean 52.5, 1/8 of mean = 6.5625, so only the 5-tick note is staccato
	assert.InDelta(t, 0.5, stats.StaccatoRatio, 0.01)
}

func TestComputeArticulationUnmatchedNoteOffIgnored(t *testing.T) {
	f := &midi.File{Tracks: []midi.Track{
		{Events: []midi.TimedEvent{
			{Tick: 0, Kind: midi.EventNoteOff, Channel: 0, Data1: 60},
		}},
	}}
	assert.Equal(t, ArticulationStats{}, ComputeArticulation(f))
}
