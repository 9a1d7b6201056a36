package organize

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/wheelhouse/internal/wheel"
)

// NormalizeStats summarizes a filename normalization run.
type NormalizeStats struct {
	Total      int
	Normalized int
	Unchanged  int
	Errors     int
}

// NormalizeFilenames renames wheels so their versions appear as stable
// releases, stripping local version identifiers (+git..., +rocm...). Renaming
// is safe for index consumption: resolvers only read the filename when
// installing from a simple repository. A rename whose target already exists
// is counted as an error and left alone.
func NormalizeFilenames(dir string, recursive, dryRun bool) (*NormalizeStats, error) {
	stats := &NormalizeStats{}

	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".whl") {
			return nil
		}

		stats.Total++
		normalized := wheel.NormalizeFilename(d.Name())
		if normalized == d.Name() {
			stats.Unchanged++
			return nil
		}

		target := filepath.Join(filepath.Dir(path), normalized)
		if dryRun {
			slog.Info("Would rename wheel", "from", d.Name(), "to", normalized)
			stats.Normalized++
			return nil
		}
		if _, err := os.Stat(target); err == nil {
			slog.Error("Normalization target already exists", "from", d.Name(), "to", normalized)
			stats.Errors++
			return nil
		}
		if err := os.Rename(path, target); err != nil {
			slog.Error("Failed to rename wheel", "file", d.Name(), "error", err)
			stats.Errors++
			return nil
		}
		slog.Info("Normalized wheel filename", "from", d.Name(), "to", normalized)
		stats.Normalized++
		return nil
	}

	if err := filepath.WalkDir(dir, walk); err != nil {
		return nil, fmt.Errorf("normalize wheel filenames: %w", err)
	}
	return stats, nil
}
