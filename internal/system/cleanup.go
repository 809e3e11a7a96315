package system

import (
	"os"
	"path/filepath"
	"strings"

	apperrors "APKBackup/internal/errors"
)

// CleanWorkDir removes every entry of dir except those holding the keep
// paths. A kept path nested deeper than one level keeps its whole top-level
// directory; paths outside dir are ignored. It returns the number of
// entries removed.
func CleanWorkDir(dir string, keep ...string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, newSystemError("system.CleanWorkDir", "failed to list working directory", err,
			apperrors.Metadata{"dir": dir})
	}

	kept := make(map[string]struct{}, len(keep))
	for _, path := range keep {
		if name, ok := topLevelEntry(dir, path); ok {
			kept[name] = struct{}{}
		}
	}

	removed := 0
	for _, entry := range entries {
		if _, ok := kept[entry.Name()]; ok {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return removed, newSystemError("system.CleanWorkDir", "failed to remove entry", err,
				apperrors.Metadata{"path": path})
		}
		removed++
	}
	return removed, nil
}

// topLevelEntry returns the name of the entry of dir that contains path.
func topLevelEntry(dir, path string) (string, bool) {
	if path == "" {
		return "", false
	}
	if !filepath.IsAbs(path) && filepath.Base(path) == path {
		return path, true
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return strings.SplitN(rel, string(filepath.Separator), 2)[0], true
}
