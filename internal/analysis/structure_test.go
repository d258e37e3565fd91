package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"midi-ingest/internal/midi"
)

func TestDetectStructureSimple(t *testing.T) {
	f := &midi.File{Tracks: []midi.Track{{}}}
	assert.Equal(t, StructureSimple, DetectStructure(f))
}

func TestDetectStructureSong(t *testing.T) {
	f := &midi.File{Tracks: []midi.Track{{Events: []midi.TimedEvent{
		{Kind: midi.EventMeta, MetaType: midi.MetaMarker},
		{Kind: midi.EventMeta, MetaType: midi.MetaCuePoint},
		{Kind: midi.EventMeta, MetaType: midi.MetaMarker},
	}}}}
	assert.Equal(t, StructureSong, DetectStructure(f))
}

func TestDetectStructureThroughComposed(t *testing.T) {
	events := make([]midi.TimedEvent, 0, 9)
	for i := 0; i < 9; i++ {
		events = append(events, midi.TimedEvent{Kind: midi.EventMeta, MetaType: midi.MetaMarker})
	}
	f := &midi.File{Tracks: []midi.Track{{Events: events}}}
	assert.Equal(t, StructureThroughComposed, DetectStructure(f))
}

func TestDetectStructureComplexFallback(t *testing.T) {
	f := &midi.File{Tracks: []midi.Track{{}, {}, {}}}
	assert.Equal(t, StructureComplex, DetectStructure(f))
}
