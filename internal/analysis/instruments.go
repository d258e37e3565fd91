package analysis

import (
	"midi-ingest/internal/midi"
	"midi-ingest/internal/model"
)

// gmFamily maps a General MIDI program number (0-127) to its instrument
// family band, per the GM1 Sound Set specification. Bands and names ported
// verbatim from the reference auto-tagger.
func gmFamily(program int) string {
	switch {
	case program >= 0 && program <= 7:
		return "piano"
	case program >= 8 && program <= 15:
		return "chromatic-percussion"
	case program >= 16 && program <= 23:
		return "organ"
	case program >= 24 && program <= 31:
		return "guitar"
	case program >= 32 && program <= 39:
		return "bass"
	case program >= 40 && program <= 47:
		return "strings"
	case program >= 48 && program <= 55:
		return "ensemble"
	case program >= 56 && program <= 63:
		return "brass"
	case program >= 64 && program <= 71:
		return "reed"
	case program >= 72 && program <= 79:
		return "pipe"
	case program >= 80 && program <= 87:
		return "synth-lead"
	case program >= 88 && program <= 95:
		return "synth-pad"
	case program >= 96 && program <= 103:
		return "synth-effects"
	case program >= 104 && program <= 111:
		return "ethnic"
	case program >= 112 && program <= 119:
		return "percussive"
	case program >= 120 && program <= 127:
		return "sound-effects"
	default:
		return "unknown"
	}
}

// TrackInstruments walks every track and assigns a TrackInstrument record
// per channel that emits a ProgramChange, plus a synthetic "drums" entry
// for any track that uses channel 9 (percussion) regardless of program.
func TrackInstruments(fileID int64, f *midi.File) []model.TrackInstrument {
	var result []model.TrackInstrument

	for trackIdx, track := range f.Tracks {
		programByChannel := make(map[int]int)
		noteCountByChannel := make(map[int]int)
		drumTrack := false

		for _, ev := range track.Events {
			switch ev.Kind {
			case midi.EventProgramChange:
				programByChannel[ev.Channel] = ev.Data1
			case midi.EventNoteOn:
				noteCountByChannel[ev.Channel]++
				if ev.Channel == 9 {
					drumTrack = true
				}
			}
		}

		if drumTrack {
			result = append(result, model.TrackInstrument{
				FileID:         fileID,
				TrackIndex:     trackIdx,
				Channel:        9,
				ProgramNumber:  -1,
				InstrumentName: "drums",
				GMFamily:       "percussion",
				IsDrumTrack:    true,
				NoteCount:      noteCountByChannel[9],
			})
		}

		for channel, program := range programByChannel {
			if channel == 9 {
				continue
			}
			family := gmFamily(program)
			result = append(result, model.TrackInstrument{
				FileID:         fileID,
				TrackIndex:     trackIdx,
				Channel:        channel,
				ProgramNumber:  program,
				InstrumentName: family,
				GMFamily:       family,
				IsDrumTrack:    false,
				NoteCount:      noteCountByChannel[channel],
			})
		}
	}
	return result
}
