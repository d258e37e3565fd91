package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"midi-ingest/internal/midi"
	"midi-ingest/internal/notifier"
)

func writeFixtureMIDI(t *testing.T, path string) {
	t.Helper()
	data, err := midi.WriteSMF(0, 96, []midi.Track{{Events: []midi.TimedEvent{
		{Tick: 0, Kind: midi.EventNoteOn, Channel: 0, Data1: 60, Data2: 90},
	}}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestNewFailsWithoutSource(t *testing.T) {
	configPath := writeConfigFile(t, "queue_capacity: 16\n")

	_, err := New(configPath)
	assert.Error(t, err)
}

func TestNewBuildsNullPublisherWithoutKafkaBrokers(t *testing.T) {
	src := t.TempDir()
	configPath := writeConfigFile(t, "source: "+src+"\n")

	a, err := New(configPath)
	require.NoError(t, err)
	assert.IsType(t, notifier.NullPublisher{}, a.publisher)
}

func TestNewAndRunEndToEnd(t *testing.T) {
	src := t.TempDir()
	writeFixtureMIDI(t, filepath.Join(src, "song.mid"))

	configPath := writeConfigFile(t, "source: "+src+"\nqueue_capacity: 16\ntemp_dir: "+t.TempDir()+"\n")

	a, err := New(configPath)
	require.NoError(t, err)

	summary, err := a.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalFiles)
	assert.Equal(t, 1, summary.Imported)
}
