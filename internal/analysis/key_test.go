package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"midi-ingest/internal/midi"
)

func notesTrack(pitchClasses []int, repeat int) midi.Track {
	var events []midi.TimedEvent
	tick := uint64(0)
	for r := 0; r < repeat; r++ {
		for _, pc := range pitchClasses {
			events = append(events, midi.TimedEvent{Tick: tick, Kind: midi.EventNoteOn, Channel: 0, Data1: 60 + pc, Data2: 90})
			tick += 10
		}
	}
	return midi.Track{Events: events}
}

func TestDetectKeyTooFewNotesIsUndetected(t *testing.T) {
	f := &midi.File{Tracks: []midi.Track{notesTrack([]int{0, 4, 7}, 1)}}
	result := DetectKey(f)
	assert.False(t, result.Detected)
}

func TestDetectKeyCMajorScale(t *testing.T) {
	// C major scale degrees, repeated enough times to clear the minimum
	// note count and give the profile correlation something to grab onto.
	cMajor := []int{0, 2, 4, 5, 7, 9, 11}
	f := &midi.File{Tracks: []midi.Track{notesTrack(cMajor, 4)}}

	result := DetectKey(f)
	assert.True(t, result.Detected)
	assert.Equal(t, "C Major", result.Name)
	assert.Greater(t, result.Correlation, keyDetectionMinCorrelation)
}

func TestDetectKeyIgnoresDrumChannel(t *testing.T) {
	drumTrack := notesTrack([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, 2)
	for i := range drumTrack.Events {
		drumTrack.Events[i].Channel = 9
	}
	f := &midi.File{Tracks: []midi.Track{drumTrack}}

	result := DetectKey(f)
	assert.False(t, result.Detected)
}
