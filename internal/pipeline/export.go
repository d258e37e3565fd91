package pipeline

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"midi-ingest/internal/config"
	"midi-ingest/internal/model"
	"midi-ingest/internal/notifier"
	"midi-ingest/internal/pipelineerr"
)

// NewExportFunc returns the optional Export stage's StageFunc. It lays the
// finished file out under target.Path according to target.Format -- one or
// both of the mpc-one and akai-force sampler directory conventions -- and
// publishes a ChangeEvent once every copy is durable. Like Rename, this
// stage is wired in or out as a whole pool by the orchestrator, never
// branched on inside a shared worker.
func NewExportFunc(target config.ExportTargetConfig, pub notifier.Publisher) StageFunc {
	return func(rec model.FileRecord) ([]model.FileRecord, error) {
		for _, layout := range exportLayouts(target.Format) {
			if err := exportOne(rec, target.Path, layout); err != nil {
				return nil, err
			}
		}

		if pub != nil {
			if err := pub.Publish(model.ChangeEvent{FileID: rec.ID, Kind: model.ChangeEventExported, OccurredAt: time.Now()}); err != nil {
				// A dropped notification delays the downstream indexer; it
				// does not invalidate the export itself.
				return []model.FileRecord{rec}, nil
			}
		}
		return []model.FileRecord{rec}, nil
	}
}

// exportLayouts expands a format selector into the concrete sampler
// layouts to write, "both" producing one copy under each.
func exportLayouts(format config.ExportFormat) []config.ExportFormat {
	if format == config.ExportFormatBoth {
		return []config.ExportFormat{config.ExportFormatMPCOne, config.ExportFormatAkaiForce}
	}
	if format == "" {
		return []config.ExportFormat{config.ExportFormatMPCOne}
	}
	return []config.ExportFormat{format}
}

// exportOne writes rec under targetDir/<layout subdirectory>, preserving
// the parent-folder structure recorded on the record. The MPC One and Akai
// Force conventions differ only in their top-level subdirectory name; both
// are a flat byte-for-byte copy beneath it, matching how both samplers
// browse a USB-attached file tree rather than requiring a project database.
func exportOne(rec model.FileRecord, targetDir string, layout config.ExportFormat) error {
	destDir := filepath.Join(targetDir, exportSubdir(layout))
	if rec.ParentFolder != "" {
		destDir = filepath.Join(destDir, rec.ParentFolder)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return pipelineerr.IO("export", "mkdir", "failed to create export directory").Wrap(err).WithFile(rec.ID)
	}

	destPath := filepath.Join(destDir, rec.FileName)
	if err := copyFile(rec.FilePath, destPath); err != nil {
		return pipelineerr.IO("export", "copy", "failed to copy file to export target").Wrap(err).WithFile(rec.ID)
	}
	return nil
}

func exportSubdir(layout config.ExportFormat) string {
	switch layout {
	case config.ExportFormatAkaiForce:
		return "Force"
	default:
		return "MPC"
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
