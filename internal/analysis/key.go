// Package analysis implements the musical analysis primitives the Analyze
// stage runs over a parsed midi.File: key detection, BPM detection, note
// statistics, GM instrument mapping, auto-tagging, and the optional
// controller/articulation/structure sidebands.
package analysis

import (
	"math"

	"midi-ingest/internal/midi"
)

// Pitch-class correlation profiles, ported verbatim from the reference
// implementation's key_profiles module.
var (
	KrumhanslMajorProfile = [12]float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	KrumhanslMinorProfile = [12]float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
	TemperleyMajorProfile = [12]float64{5.0, 2.0, 3.5, 2.0, 4.5, 4.0, 2.0, 4.5, 2.0, 3.5, 1.5, 4.0}
	TemperleyMinorProfile = [12]float64{5.0, 2.0, 3.5, 4.5, 2.0, 4.0, 2.0, 4.5, 3.5, 2.0, 1.5, 4.0}
	SimpleMajorProfile    = [12]float64{1.0, 0.0, 1.0, 0.0, 1.0, 1.0, 0.0, 1.0, 0.0, 1.0, 0.0, 1.0}
	SimpleMinorProfile    = [12]float64{1.0, 0.0, 1.0, 1.0, 0.0, 1.0, 0.0, 1.0, 1.0, 0.0, 1.0, 0.0}
)

var pitchClassNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// keyDetectionMinNotes is the minimum note count below which key detection
// is considered unreliable and is skipped rather than guessed.
const keyDetectionMinNotes = 10

// keyDetectionMinCorrelation is the minimum Pearson correlation against the
// best candidate profile for a key result to be reported at all.
const keyDetectionMinCorrelation = 0.5

// KeyResult is the outcome of key detection for one file.
type KeyResult struct {
	Name        string // e.g. "C Major", "F# Minor"
	Correlation float64
	Detected    bool
}

// DetectKey builds a 12-bin pitch-class histogram from every NoteOn event
// across all tracks and correlates it, rotated through all 12 roots,
// against the major and minor Krumhansl-Kessler profiles, returning the
// best match.
func DetectKey(f *midi.File) KeyResult {
	histogram := pitchClassHistogram(f)

	total := 0.0
	for _, v := range histogram {
		total += v
	}
	if total < keyDetectionMinNotes {
		return KeyResult{}
	}

	bestCorr := -1.0
	bestName := ""
	for root := 0; root < 12; root++ {
		majorCorr := correlate(rotate(histogram, root), KrumhanslMajorProfile)
		if majorCorr > bestCorr {
			bestCorr = majorCorr
			bestName = pitchClassNames[root] + " Major"
		}
		minorCorr := correlate(rotate(histogram, root), KrumhanslMinorProfile)
		if minorCorr > bestCorr {
			bestCorr = minorCorr
			bestName = pitchClassNames[root] + " Minor"
		}
	}

	if bestCorr < keyDetectionMinCorrelation {
		return KeyResult{}
	}
	return KeyResult{Name: bestName, Correlation: bestCorr, Detected: true}
}

func pitchClassHistogram(f *midi.File) [12]float64 {
	var hist [12]float64
	for _, track := range f.Tracks {
		for _, ev := range track.Events {
			if ev.Kind != midi.EventNoteOn || ev.Channel == 9 {
				continue // channel 9 is percussion: pitch is a drum voice, not a scale degree
			}
			hist[ev.Data1%12] += 1.0
		}
	}
	return hist
}

// rotate shifts the histogram so that pitch class `root` aligns with bin 0,
// i.e. tests `root` as the tonic against a profile defined in C.
func rotate(hist [12]float64, root int) [12]float64 {
	var out [12]float64
	for i := 0; i < 12; i++ {
		out[i] = hist[(i+root)%12]
	}
	return out
}

// correlate computes the Pearson correlation coefficient between a
// histogram and a reference profile.
func correlate(hist, profile [12]float64) float64 {
	var meanH, meanP float64
	for i := 0; i < 12; i++ {
		meanH += hist[i]
		meanP += profile[i]
	}
	meanH /= 12
	meanP /= 12

	var num, denomH, denomP float64
	for i := 0; i < 12; i++ {
		dh := hist[i] - meanH
		dp := profile[i] - meanP
		num += dh * dp
		denomH += dh * dh
		denomP += dp * dp
	}
	if denomH == 0 || denomP == 0 {
		return 0
	}
	return num / math.Sqrt(denomH*denomP)
}
