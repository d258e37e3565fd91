package analysis

import "midi-ingest/internal/midi"

// NoteStats summarizes the note content of a file.
type NoteStats struct {
	NoteCount    int
	IsMonophonic bool
	IsPercussive bool
}

// ComputeNoteStats counts NoteOn events, classifies the file as
// monophonic when no track ever holds more than one sounding note at a
// time, and as percussive when a majority of notes are on the MIDI
// percussion channel (9).
func ComputeNoteStats(f *midi.File) NoteStats {
	var total, drumNotes int
	monophonic := true

	for _, track := range f.Tracks {
		sounding := 0
		for _, ev := range track.Events {
			switch ev.Kind {
			case midi.EventNoteOn:
				total++
				if ev.Channel == 9 {
					drumNotes++
				}
				sounding++
				if sounding > 1 {
					monophonic = false
				}
			case midi.EventNoteOff:
				if sounding > 0 {
					sounding--
				}
			}
		}
	}

	percussive := total > 0 && float64(drumNotes)/float64(total) > 0.5
	return NoteStats{NoteCount: total, IsMonophonic: monophonic && total > 0, IsPercussive: percussive}
}
