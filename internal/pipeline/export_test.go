package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"midi-ingest/internal/config"
	"midi-ingest/internal/model"
	"midi-ingest/internal/notifier"
)

func TestExportFuncCopiesFileAndPreservesParentFolder(t *testing.T) {
	srcDir := t.TempDir()
	targetDir := t.TempDir()

	srcPath := filepath.Join(srcDir, "song.mid")
	require.NoError(t, os.WriteFile(srcPath, []byte("midi-bytes"), 0o644))

	rec := model.FileRecord{ID: 1, FilePath: srcPath, FileName: "song.mid", ParentFolder: "album/disc1"}

	target := config.ExportTargetConfig{Path: targetDir, Format: config.ExportFormatMPCOne}
	fn := NewExportFunc(target, notifier.NullPublisher{})
	out, err := fn(rec)
	require.NoError(t, err)
	require.Len(t, out, 1)

	destPath := filepath.Join(targetDir, "MPC", "album/disc1", "song.mid")
	contents, err := os.ReadFile(destPath)
	require.NoError(t, err)
	assert.Equal(t, "midi-bytes", string(contents))
}

func TestExportFuncBothFormatWritesBothLayouts(t *testing.T) {
	srcDir := t.TempDir()
	targetDir := t.TempDir()

	srcPath := filepath.Join(srcDir, "song.mid")
	require.NoError(t, os.WriteFile(srcPath, []byte("midi-bytes"), 0o644))

	rec := model.FileRecord{ID: 1, FilePath: srcPath, FileName: "song.mid"}

	target := config.ExportTargetConfig{Path: targetDir, Format: config.ExportFormatBoth}
	fn := NewExportFunc(target, notifier.NullPublisher{})
	_, err := fn(rec)
	require.NoError(t, err)

	for _, dir := range []string{"MPC", "Force"} {
		contents, err := os.ReadFile(filepath.Join(targetDir, dir, "song.mid"))
		require.NoError(t, err)
		assert.Equal(t, "midi-bytes", string(contents))
	}
}

func TestExportFuncPublishesChangeEvent(t *testing.T) {
	srcDir := t.TempDir()
	targetDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "song.mid")
	require.NoError(t, os.WriteFile(srcPath, []byte("x"), 0o644))

	pub := &recordingPublisher{}
	target := config.ExportTargetConfig{Path: targetDir, Format: config.ExportFormatMPCOne}
	fn := NewExportFunc(target, pub)

	_, err := fn(model.FileRecord{ID: 42, FilePath: srcPath, FileName: "song.mid"})
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	assert.Equal(t, int64(42), pub.events[0].FileID)
	assert.Equal(t, model.ChangeEventExported, pub.events[0].Kind)
}

type recordingPublisher struct {
	events []model.ChangeEvent
}

func (r *recordingPublisher) Publish(ev model.ChangeEvent) error {
	r.events = append(r.events, ev)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }
