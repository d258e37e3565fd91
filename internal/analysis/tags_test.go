package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"midi-ingest/internal/midi"
)

func TestDensityTagThresholds(t *testing.T) {
	assert.Equal(t, "sparse", densityTag(10))
	assert.Equal(t, "moderate", densityTag(600))
	assert.Equal(t, "dense", densityTag(1200))
}

func TestLayeringTagThresholds(t *testing.T) {
	assert.Equal(t, "single-track", layeringTag(1))
	assert.Equal(t, "layered", layeringTag(3))
	assert.Equal(t, "multi-track", layeringTag(12))
}

func TestTempoTagThresholds(t *testing.T) {
	assert.Equal(t, "fast", tempoTag(160))
	assert.Equal(t, "moderate-tempo", tempoTag(110))
	assert.Equal(t, "slow", tempoTag(70))
	assert.Equal(t, "slow", tempoTag(40))
}

func TestGenerateTagsDrumsAndFamily(t *testing.T) {
	f := &midi.File{Tracks: []midi.Track{
		{Events: []midi.TimedEvent{
			{Kind: midi.EventProgramChange, Channel: 0, Data1: 0}, // acoustic grand piano
			{Kind: midi.EventNoteOn, Channel: 9, Data1: 36, Data2: 100},
		}},
	}}

	tags := GenerateTags(f)
	assert.Contains(t, tags, "drums")
	assert.Contains(t, tags, "piano")
	assert.Contains(t, tags, "single-track")
}

func TestGenerateTagsGenreKeywordMatch(t *testing.T) {
	f := &midi.File{Tracks: []midi.Track{
		{Events: []midi.TimedEvent{
			{Kind: midi.EventMeta, MetaType: midi.MetaTrackName, Data: []byte("My Jazz Combo")},
		}},
	}}

	tags := GenerateTags(f)
	assert.Contains(t, tags, "jazz")
}
