package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"midi-ingest/internal/model"
	"midi-ingest/internal/pipelineerr"
	"midi-ingest/internal/store"
)

var keySpaceRE = regexp.MustCompile(`\s+`)

// NewRenameFunc returns the optional Rename stage's StageFunc. It builds an
// informative filename from the file's analysis results — key and tempo
// class — and renames the file on disk, leaving
// unanalyzed or already-descriptively-named files untouched. This stage is
// only wired into the pipeline when configuration enables it; the
// orchestrator omits the whole pool otherwise; Rename never runs
// conditionally inside a shared worker.
func NewRenameFunc(st store.Store) StageFunc {
	return func(rec model.FileRecord) ([]model.FileRecord, error) {
		meta, ok, err := st.GetMetadata(context.Background(), rec.ID)
		if err != nil {
			return nil, pipelineerr.Database("rename", "lookup", "failed to load metadata").Wrap(err).WithFile(rec.ID)
		}
		if !ok {
			return []model.FileRecord{rec}, nil
		}

		newName := renamedFileName(rec.FileName, meta)
		if newName == rec.FileName {
			return []model.FileRecord{rec}, nil
		}

		dir := filepath.Dir(rec.FilePath)
		newName = disambiguate(dir, newName)
		newPath := filepath.Join(dir, newName)
		if err := os.Rename(rec.FilePath, newPath); err != nil {
			return nil, pipelineerr.IO("rename", "rename", "failed to rename analyzed file").Wrap(err).WithFile(rec.ID)
		}

		rec.FileName = newName
		rec.FilePath = newPath
		if err := st.UpdateFile(context.Background(), rec); err != nil {
			return nil, pipelineerr.Database("rename", "update", "failed to persist renamed file").Wrap(err).WithFile(rec.ID)
		}
		return []model.FileRecord{rec}, nil
	}
}

func renamedFileName(original string, meta model.MusicalMetadata) string {
	ext := filepath.Ext(original)
	base := strings.TrimSuffix(original, ext)

	key := strings.ReplaceAll(meta.KeySignature, " ", "-")
	if key == "" {
		key = "unknown-key"
	}
	tempo := meta.TempoClass
	if tempo == "" {
		tempo = "unknown-tempo"
	}

	prefix := fmt.Sprintf("[%s][%s]", key, tempo)
	if strings.HasPrefix(base, prefix) {
		return original // already renamed
	}

	cleanedBase := keySpaceRE.ReplaceAllString(base, "_")
	return prefix + "_" + cleanedBase + ext
}
