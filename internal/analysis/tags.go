package analysis

import (
	"strings"

	"midi-ingest/internal/midi"
)

// Density and tempo thresholds ported verbatim from the reference
// auto-tagger.
const (
	densityDenseThreshold    = 1000
	densityModerateThreshold = 500

	tempoFastThreshold     = 140.0
	tempoModerateThreshold = 100.0
	tempoSlowThreshold     = 60.0

	trackCountMultiThreshold  = 10
	trackCountLayerThreshold  = 1
)

var genreKeywords = map[string]string{
	"rock":        "rock",
	"jazz":        "jazz",
	"classical":   "classical",
	"electronic":  "electronic",
}

// GenerateTags derives a flat tag set from a parsed file: one tag per
// distinct instrument family seen, a drums tag if any percussion channel is
// used, genre tags matched against free-text meta events, a density tag, a
// layering tag, and a tempo tag.
func GenerateTags(f *midi.File) []string {
	seenFamilies := make(map[string]bool)
	seenGenres := make(map[string]bool)
	hasDrums := false
	noteCount := 0

	for _, track := range f.Tracks {
		for _, ev := range track.Events {
			switch ev.Kind {
			case midi.EventProgramChange:
				if ev.Channel != 9 {
					seenFamilies[gmFamily(ev.Data1)] = true
				}
			case midi.EventNoteOn:
				noteCount++
				if ev.Channel == 9 {
					hasDrums = true
				}
			case midi.EventMeta:
				if ev.MetaType == midi.MetaText || ev.MetaType == midi.MetaTrackName || ev.MetaType == midi.MetaLyric {
					text := strings.ToLower(string(ev.Data))
					for keyword, tag := range genreKeywords {
						if strings.Contains(text, keyword) {
							seenGenres[tag] = true
						}
					}
				}
			}
		}
	}

	var tags []string
	if hasDrums {
		tags = append(tags, "drums")
	}
	for family := range seenFamilies {
		tags = append(tags, family)
	}
	for genre := range seenGenres {
		tags = append(tags, genre)
	}

	tags = append(tags, densityTag(noteCount))
	tags = append(tags, layeringTag(len(f.Tracks)))

	if bpm := DetectBPM(f); bpm.BPM > 0 {
		tags = append(tags, tempoTag(bpm.BPM))
	}

	return tags
}

func densityTag(noteCount int) string {
	switch {
	case noteCount > densityDenseThreshold:
		return "dense"
	case noteCount > densityModerateThreshold:
		return "moderate"
	default:
		return "sparse"
	}
}

func layeringTag(trackCount int) string {
	switch {
	case trackCount > trackCountMultiThreshold:
		return "multi-track"
	case trackCount > trackCountLayerThreshold:
		return "layered"
	default:
		return "single-track"
	}
}

func tempoTag(bpm float64) string {
	switch {
	case bpm > tempoFastThreshold:
		return "fast"
	case bpm > tempoModerateThreshold:
		return "moderate-tempo"
	case bpm > tempoSlowThreshold:
		return "slow"
	default:
		return "slow"
	}
}

// DensityClass and LayeringClass/TempoClass expose the same classification
// used for MusicalMetadata's dedicated columns, independent of the flat Tag
// list GenerateTags produces.
func DensityClass(noteCount int) string   { return densityTag(noteCount) }
func LayeringClass(trackCount int) string { return layeringTag(trackCount) }
func TempoClass(bpm float64) string       { return tempoTag(bpm) }
