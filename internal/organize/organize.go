// Package organize buckets wheels by size so small wheels can be hosted on a
// static page host with per-file size limits while large ones go to a
// release-asset store.
package organize

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Options configures a bucketing run.
type Options struct {
	ArtifactDir string
	OutputDir   string // receives packages/, packages-small/, packages-large/
	SizeLimit   int64  // bytes; wheels above go to the large bucket
	Now         time.Time
}

// Result summarizes a bucketing run.
type Result struct {
	Total      int
	SmallCount int
	LargeCount int
	SmallBytes int64
	LargeBytes int64
	ReleaseTag string
}

// Run copies every wheel under ArtifactDir into the size-appropriate bucket.
// Small wheels are additionally copied into packages/ for direct hosting.
func Run(opts Options) (*Result, error) {
	packagesDir := filepath.Join(opts.OutputDir, "packages")
	smallDir := filepath.Join(opts.OutputDir, "packages-small")
	largeDir := filepath.Join(opts.OutputDir, "packages-large")
	for _, dir := range []string{packagesDir, smallDir, largeDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create bucket directory: %w", err)
		}
	}

	result := &Result{
		ReleaseTag: "wheels-" + opts.Now.UTC().Format("20060102-150405"),
	}

	err := filepath.WalkDir(opts.ArtifactDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".whl") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		result.Total++
		if info.Size() > opts.SizeLimit {
			result.LargeCount++
			result.LargeBytes += info.Size()
			return copyFile(path, filepath.Join(largeDir, d.Name()))
		}

		result.SmallCount++
		result.SmallBytes += info.Size()
		if err := copyFile(path, filepath.Join(smallDir, d.Name())); err != nil {
			return err
		}
		return copyFile(path, filepath.Join(packagesDir, d.Name()))
	})
	if err != nil {
		return nil, fmt.Errorf("organize wheels: %w", err)
	}

	slog.Info("Wheel organization complete",
		"total", result.Total,
		"small", result.SmallCount,
		"large", result.LargeCount,
		"release_tag", result.ReleaseTag)
	return result, nil
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = srcFile.Close()
	}()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = dstFile.Close()
	}()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return err
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.Chmod(dst, srcInfo.Mode())
}
