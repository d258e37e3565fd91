package analysis

import "midi-ingest/internal/midi"

// StructureLabel classifies the overall form of a file from coarse signals
// available without full segmentation analysis: marker density and track
// layering. This is an optional sideband, not a claim of precise
// musicological structure detection.
type StructureLabel string

const (
	StructureSimple           StructureLabel = "simple"
	StructureSong             StructureLabel = "song"
	StructureComplex          StructureLabel = "complex"
	StructureThroughComposed  StructureLabel = "through-composed"
)

// DetectStructure counts Marker/CuePoint meta events as a proxy for
// authored section boundaries (intro/verse/chorus/etc.) and combines that
// with track count to pick a label.
func DetectStructure(f *midi.File) StructureLabel {
	markers := 0
	for _, track := range f.Tracks {
		for _, ev := range track.Events {
			if ev.Kind == midi.EventMeta && (ev.MetaType == midi.MetaMarker || ev.MetaType == midi.MetaCuePoint) {
				markers++
			}
		}
	}

	trackCount := len(f.Tracks)
	switch {
	case markers == 0 && trackCount <= 1:
		return StructureSimple
	case markers >= 2 && markers <= 8:
		return StructureSong
	case markers > 8:
		return StructureThroughComposed
	default:
		return StructureComplex
	}
}
