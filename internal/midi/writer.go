package midi

import (
	"bytes"
	"encoding/binary"
)

// WriteSMF serializes a Format value, ticks-per-quarter-note division, and
// a set of tracks (each already sorted by Tick) back into Standard MIDI
// File bytes. It is used by the Split stage to materialize single-track
// children extracted from a multi-track source. An end-of-track meta event
// is appended to every track that doesn't already end with one.
func WriteSMF(format, ticksPerQuarterNote int, tracks []Track) ([]byte, error) {
	var out bytes.Buffer

	header := make([]byte, 6)
	binary.BigEndian.PutUint16(header[0:2], uint16(format))
	binary.BigEndian.PutUint16(header[2:4], uint16(len(tracks)))
	binary.BigEndian.PutUint16(header[4:6], uint16(ticksPerQuarterNote))
	writeChunk(&out, "MThd", header)

	for _, track := range tracks {
		body := encodeTrack(track)
		writeChunk(&out, "MTrk", body)
	}
	return out.Bytes(), nil
}

func writeChunk(out *bytes.Buffer, chunkType string, data []byte) {
	out.WriteString(chunkType)
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))
	out.Write(length[:])
	out.Write(data)
}

func encodeTrack(track Track) []byte {
	var body bytes.Buffer
	var lastTick uint64

	hasEndOfTrack := false
	for _, ev := range track.Events {
		delta := ev.Tick - lastTick
		lastTick = ev.Tick
		writeVLQ(&body, uint32(delta))
		encodeEvent(&body, ev)
		if ev.Kind == EventMeta && ev.MetaType == MetaEndOfTrack {
			hasEndOfTrack = true
		}
	}
	if !hasEndOfTrack {
		writeVLQ(&body, 0)
		body.WriteByte(0xFF)
		body.WriteByte(byte(MetaEndOfTrack))
		writeVLQ(&body, 0)
	}
	return body.Bytes()
}

func encodeEvent(body *bytes.Buffer, ev TimedEvent) {
	switch ev.Kind {
	case EventMeta:
		body.WriteByte(0xFF)
		body.WriteByte(byte(ev.MetaType))
		writeVLQ(body, uint32(len(ev.Data)))
		body.Write(ev.Data)
	case EventSysex:
		body.WriteByte(0xF0)
		writeVLQ(body, uint32(len(ev.Data)))
		body.Write(ev.Data)
	default:
		status := channelEventStatus(ev.Kind) | byte(ev.Channel&0x0F)
		body.WriteByte(status)
		body.WriteByte(byte(ev.Data1))
		if channelEventDataLen(ev.Kind) == 2 {
			body.WriteByte(byte(ev.Data2))
		}
	}
}

func channelEventStatus(kind EventKind) byte {
	switch kind {
	case EventNoteOff:
		return 0x80
	case EventNoteOn:
		return 0x90
	case EventPolyAftertouch:
		return 0xA0
	case EventControlChange:
		return 0xB0
	case EventProgramChange:
		return 0xC0
	case EventChannelAftertouch:
		return 0xD0
	case EventPitchBend:
		return 0xE0
	default:
		return 0x90
	}
}

func channelEventDataLen(kind EventKind) int {
	switch kind {
	case EventProgramChange, EventChannelAftertouch:
		return 1
	default:
		return 2
	}
}

func writeVLQ(body *bytes.Buffer, value uint32) {
	buf := []byte{byte(value & 0x7F)}
	value >>= 7
	for value > 0 {
		buf = append([]byte{byte(value&0x7F) | 0x80}, buf...)
		value >>= 7
	}
	body.Write(buf)
}
