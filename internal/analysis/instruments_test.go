package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"midi-ingest/internal/midi"
)

func TestTrackInstrumentsDrumAndMelodic(t *testing.T) {
	f := &midi.File{Tracks: []midi.Track{
		{Events: []midi.TimedEvent{
			{Kind: midi.EventProgramChange, Channel: 0, Data1: 33}, // bass
			{Kind: midi.EventNoteOn, Channel: 0, Data1: 40, Data2: 90},
			{Kind: midi.EventNoteOn, Channel: 9, Data1: 38, Data2: 100},
		}},
	}}

	instruments := TrackInstruments(7, f)
	assert.Len(t, instruments, 2)

	var sawDrums, sawBass bool
	for _, inst := range instruments {
		assert.Equal(t, int64(7), inst.FileID)
		if inst.IsDrumTrack {
			sawDrums = true
			assert.Equal(t, "percussion", inst.GMFamily)
		} else {
			sawBass = true
			assert.Equal(t, "bass", inst.GMFamily)
		}
	}
	assert.True(t, sawDrums)
	assert.True(t, sawBass)
}

func TestGMFamilyBoundaries(t *testing.T) {
	assert.Equal(t, "piano", gmFamily(0))
	assert.Equal(t, "piano", gmFamily(7))
	assert.Equal(t, "chromatic-percussion", gmFamily(8))
	assert.Equal(t, "sound-effects", gmFamily(127))
	assert.Equal(t, "unknown", gmFamily(200))
}
