package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"midi-ingest/internal/midi"
)

func TestComputeControllerHistogramTally(t *testing.T) {
	f := &midi.File{Tracks: []midi.Track{
		{Events: []midi.TimedEvent{
			{Kind: midi.EventControlChange, Channel: 0, Data1: 7, Data2: 100},
			{Kind: midi.EventControlChange, Channel: 1, Data1: 7, Data2: 80},
			{Kind: midi.EventControlChange, Channel: 0, Data1: 64, Data2: 127},
			{Kind: midi.EventNoteOn, Channel: 0, Data1: 60, Data2: 90},
		}},
	}}

	hist := ComputeControllerHistogram(f)
	assert.Equal(t, 2, hist[7])
	assert.Equal(t, 1, hist[64])
	assert.Len(t, hist, 2)
}

func TestControllerHistogramMarshalJSONUsesStringKeys(t *testing.T) {
	hist := ControllerHistogram{7: 2, 64: 1}

	raw, err := json.Marshal(hist)
	require.NoError(t, err)

	var decoded map[string]int
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, 2, decoded["7"])
	assert.Equal(t, 1, decoded["64"])
}
