package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"midi-ingest/internal/midi"
	"midi-ingest/internal/model"
	"midi-ingest/internal/pipelineerr"
	"midi-ingest/internal/store"
)

// NewSplitFunc returns the Split stage's StageFunc. A file whose tracks
// carry note events in more than one track is a multi-track source: each
// note-bearing track is materialized as a standalone Format 0 child file
// (conductor-track meta events merged in so tempo/key/time-signature
// survive the split), persisted via Store.InsertSplitChildren, and pushed
// downstream in the parent's place. A single-track file passes through
// unchanged.
func NewSplitFunc(st store.Store) StageFunc {
	return func(rec model.FileRecord) ([]model.FileRecord, error) {
		raw, err := os.ReadFile(rec.FilePath)
		if err != nil {
			return nil, pipelineerr.IO("split", "read", "failed to read file").Wrap(err).WithFile(rec.ID)
		}

		f, err := midi.Parse(raw)
		if err != nil {
			return nil, pipelineerr.Parse("split", "parse", "failed to parse midi file").Wrap(err).WithFile(rec.ID)
		}

		noteBearing := noteBearingTrackIndexes(f)
		if len(noteBearing) == 0 {
			return nil, pipelineerr.Parse("split", "no_note_tracks", "file contains no note-bearing tracks, dropping").WithFile(rec.ID)
		}
		if len(noteBearing) == 1 {
			return []model.FileRecord{rec}, nil
		}

		conductorMeta := nonNoteMetaEvents(f, noteBearing)
		children := make([]model.FileRecord, 0, len(noteBearing))
		relations := make([]model.SplitRelation, 0, len(noteBearing))

		dir := filepath.Dir(rec.FilePath)
		baseName := trimExt(rec.FileName)

		for i, trackIdx := range noteBearing {
			trackEvents := append(append([]midi.TimedEvent{}, conductorMeta...), f.Tracks[trackIdx].Events...)
			sortByTick(trackEvents)

			data, err := midi.WriteSMF(0, f.TicksPerQuarterNote, []midi.Track{{Events: trackEvents}})
			if err != nil {
				return nil, pipelineerr.Parse("split", "encode", "failed to encode split track").Wrap(err).WithFile(rec.ID)
			}

			childName := fmt.Sprintf("%s_track%02d.mid", baseName, trackIdx)
			childPath := filepath.Join(dir, childName)
			if err := os.WriteFile(childPath, data, 0o644); err != nil {
				return nil, pipelineerr.IO("split", "write", "failed to write split track").Wrap(err).WithFile(rec.ID)
			}

			hash := midi.ContentHashBytes(data)
			children = append(children, model.FileRecord{
				FilePath:     childPath,
				FileName:     childName,
				ParentFolder: rec.ParentFolder,
				ContentHash:  hash,
				SizeBytes:    int64(len(data)),
				IsMultiTrack: false,
				ParentID:     &rec.ID,
			})
			relations = append(relations, model.SplitRelation{ParentID: rec.ID, TrackIndex: i})
		}

		rec.IsMultiTrack = true
		inserted, err := st.InsertSplitChildren(context.Background(), rec, children, relations)
		if err != nil {
			return nil, pipelineerr.Database("split", "insert", "failed to persist split children").Wrap(err).WithFile(rec.ID)
		}
		return inserted, nil
	}
}

func noteBearingTrackIndexes(f *midi.File) []int {
	var indexes []int
	for i, track := range f.Tracks {
		for _, ev := range track.Events {
			if ev.Kind == midi.EventNoteOn {
				indexes = append(indexes, i)
				break
			}
		}
	}
	return indexes
}

// nonNoteMetaEvents collects meta events from tracks that carry no notes
// (the conventional conductor track), so tempo/time-signature/key-signature
// information survives into each split child.
func nonNoteMetaEvents(f *midi.File, noteBearing []int) []midi.TimedEvent {
	isNoteBearing := make(map[int]bool, len(noteBearing))
	for _, idx := range noteBearing {
		isNoteBearing[idx] = true
	}

	var meta []midi.TimedEvent
	for i, track := range f.Tracks {
		if isNoteBearing[i] {
			continue
		}
		for _, ev := range track.Events {
			if ev.Kind == midi.EventMeta && ev.MetaType != midi.MetaEndOfTrack {
				meta = append(meta, ev)
			}
		}
	}
	return meta
}

func sortByTick(events []midi.TimedEvent) {
	for i := 1; i < len(events); i++ {
		for j := i; j > 0 && events[j-1].Tick > events[j].Tick; j-- {
			events[j-1], events[j] = events[j], events[j-1]
		}
	}
}

func trimExt(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)]
}
