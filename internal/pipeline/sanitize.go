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

// NewSanitizeFunc returns the Sanitize stage's StageFunc: it reduces a
// filename to a safe character set, renaming the file on disk and updating
// the store only when the name actually changes. Transformation order is
// ported from the reference sanitize worker: extension normalization,
// space collapsing, then character-class reduction.
func NewSanitizeFunc(st store.Store) StageFunc {
	return func(rec model.FileRecord) ([]model.FileRecord, error) {
		newName := sanitizeFileName(rec.FileName)
		if newName == rec.FileName {
			return []model.FileRecord{rec}, nil
		}

		dir := filepath.Dir(rec.FilePath)
		newName = disambiguate(dir, newName)
		newPath := filepath.Join(dir, newName)

		if err := os.Rename(rec.FilePath, newPath); err != nil {
			return nil, pipelineerr.IO("sanitize", "rename", "failed to rename file").Wrap(err).WithFile(rec.ID)
		}

		rec.FileName = newName
		rec.FilePath = newPath

		if err := st.UpdateFile(context.Background(), rec); err != nil {
			return nil, pipelineerr.Database("sanitize", "update", "failed to persist renamed file").Wrap(err).WithFile(rec.ID)
		}
		return []model.FileRecord{rec}, nil
	}
}

// sanitizeFileName normalizes a MIDI filename to a conservative character
// set, leaving filenames that are already clean untouched.
func sanitizeFileName(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	switch strings.ToLower(ext) {
	case ".midi":
		ext = ".mid"
	}

	base = strings.ReplaceAll(base, " ", "_")

	var b strings.Builder
	b.Grow(len(base))
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	base = underscoreRunRE.ReplaceAllString(b.String(), "_")
	base = strings.Trim(base, "_")
	return base + ext
}

var underscoreRunRE = regexp.MustCompile(`_+`)

// disambiguate appends the smallest numeric suffix "_{n}" that makes name
// unique within dir, leaving name untouched if no sibling already occupies
// that path.
func disambiguate(dir, name string) string {
	if _, err := os.Stat(filepath.Join(dir, name)); os.IsNotExist(err) {
		return name
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s_%d%s", base, n, ext)
		if _, err := os.Stat(filepath.Join(dir, candidate)); os.IsNotExist(err) {
			return candidate
		}
	}
}
