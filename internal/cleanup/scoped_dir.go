// Package cleanup owns temporary directories created while extracting
// archives during Import, guaranteeing their removal on every exit path.
// Adapted from the teacher's disk-space manager, narrowed from a
// monitored-directory-pool model to a single scoped-directory-per-archive
// model matching this pipeline's needs.
package cleanup

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// ScopedDir is a temporary directory tied to the lifetime of one archive
// extraction. Callers must defer Remove immediately after a successful New.
type ScopedDir struct {
	Path   string
	logger *logrus.Logger
}

// NewScopedDir creates a fresh temp directory under base (os.TempDir() if
// base is empty) named after the archive being extracted.
func NewScopedDir(base, archiveName string, logger *logrus.Logger) (*ScopedDir, error) {
	if base == "" {
		base = os.TempDir()
	}
	pattern := fmt.Sprintf("midi-import-%s-*", sanitizeForTempName(archiveName))
	dir, err := os.MkdirTemp(base, pattern)
	if err != nil {
		return nil, fmt.Errorf("cleanup: creating scoped dir: %w", err)
	}
	return &ScopedDir{Path: dir, logger: logger}, nil
}

// Remove deletes the scoped directory and everything under it. Safe to
// call from a defer even after a panic: it never itself panics.
func (s *ScopedDir) Remove() {
	if s == nil || s.Path == "" {
		return
	}
	if err := os.RemoveAll(s.Path); err != nil && s.logger != nil {
		s.logger.WithFields(logrus.Fields{"path": s.Path}).WithError(err).
			Warn("failed to remove scoped temp directory")
	}
}

// Join builds a path inside the scoped directory. The member name is cleaned
// as if rooted, so leading ".." elements are dropped and the result always
// stays under the scoped directory, guarding against a maliciously crafted
// archive entry.
func (s *ScopedDir) Join(member string) (string, error) {
	cleaned := filepath.Clean("/" + member) // anchor, strip leading ../ sequences
	full := filepath.Join(s.Path, cleaned)
	if full != s.Path && filepath.Dir(full) == "" {
		return "", fmt.Errorf("cleanup: invalid archive member %q", member)
	}
	return full, nil
}

func sanitizeForTempName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "archive"
	}
	return string(out)
}
