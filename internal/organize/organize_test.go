package organize

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeWheelOfSize(t *testing.T, dir, name string, size int) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0o644))
}

func TestRun_WheelsBucketedBySize(t *testing.T) {
	artifactDir := t.TempDir()
	outputDir := t.TempDir()
	writeWheelOfSize(t, artifactDir, "small-1.0.0-py3-none-any.whl", 10)
	writeWheelOfSize(t, artifactDir, "large-1.0.0-py3-none-any.whl", 200)

	result, err := Run(Options{
		ArtifactDir: artifactDir,
		OutputDir:   outputDir,
		SizeLimit:   100,
		Now:         time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Total)
	require.Equal(t, 1, result.SmallCount)
	require.Equal(t, 1, result.LargeCount)
	require.Equal(t, int64(10), result.SmallBytes)
	require.Equal(t, int64(200), result.LargeBytes)
	require.Equal(t, "wheels-20260314-092653", result.ReleaseTag)

	// Small wheels land in both packages-small/ and packages/.
	require.FileExists(t, filepath.Join(outputDir, "packages-small", "small-1.0.0-py3-none-any.whl"))
	require.FileExists(t, filepath.Join(outputDir, "packages", "small-1.0.0-py3-none-any.whl"))
	require.FileExists(t, filepath.Join(outputDir, "packages-large", "large-1.0.0-py3-none-any.whl"))
	require.NoFileExists(t, filepath.Join(outputDir, "packages", "large-1.0.0-py3-none-any.whl"))
}

func TestRun_NonWheelFiles_Ignored(t *testing.T) {
	artifactDir := t.TempDir()
	writeWheelOfSize(t, artifactDir, "demo-1.0.0-py3-none-any.whl", 10)
	require.NoError(t, os.WriteFile(filepath.Join(artifactDir, "README.md"), []byte("docs"), 0o644))

	result, err := Run(Options{
		ArtifactDir: artifactDir,
		OutputDir:   t.TempDir(),
		SizeLimit:   100,
		Now:         time.Now(),
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.Total)
}

func TestRun_CopyPreservesFileMode(t *testing.T) {
	artifactDir := t.TempDir()
	outputDir := t.TempDir()
	src := filepath.Join(artifactDir, "demo-1.0.0-py3-none-any.whl")
	require.NoError(t, os.WriteFile(src, []byte("w"), 0o600))

	_, err := Run(Options{ArtifactDir: artifactDir, OutputDir: outputDir, SizeLimit: 100, Now: time.Now()})
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(outputDir, "packages", "demo-1.0.0-py3-none-any.whl"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestNormalizeFilenames_StripsLocalVersionIdentifier(t *testing.T) {
	dir := t.TempDir()
	writeWheelOfSize(t, dir, "torch-2.9.0a0+git1c57644-cp312-cp312-linux_x86_64.whl", 1)
	writeWheelOfSize(t, dir, "triton-3.4.0-cp312-cp312-linux_x86_64.whl", 1)

	stats, err := NormalizeFilenames(dir, false, false)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Total)
	require.Equal(t, 1, stats.Normalized)
	require.Equal(t, 1, stats.Unchanged)
	require.Equal(t, 0, stats.Errors)

	require.FileExists(t, filepath.Join(dir, "torch-2.9.0a0-cp312-cp312-linux_x86_64.whl"))
	require.NoFileExists(t, filepath.Join(dir, "torch-2.9.0a0+git1c57644-cp312-cp312-linux_x86_64.whl"))
}

func TestNormalizeFilenames_DryRun_LeavesFilesUntouched(t *testing.T) {
	dir := t.TempDir()
	writeWheelOfSize(t, dir, "torch-2.9.0a0+git1c57644-cp312-cp312-linux_x86_64.whl", 1)

	stats, err := NormalizeFilenames(dir, false, true)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Normalized)
	require.FileExists(t, filepath.Join(dir, "torch-2.9.0a0+git1c57644-cp312-cp312-linux_x86_64.whl"))
}

func TestNormalizeFilenames_ExistingTarget_CountedAsError(t *testing.T) {
	dir := t.TempDir()
	writeWheelOfSize(t, dir, "torch-2.9.0a0+git1c57644-cp312-cp312-linux_x86_64.whl", 1)
	writeWheelOfSize(t, dir, "torch-2.9.0a0-cp312-cp312-linux_x86_64.whl", 1)

	stats, err := NormalizeFilenames(dir, false, false)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Errors)
	// The colliding source stays in place.
	require.FileExists(t, filepath.Join(dir, "torch-2.9.0a0+git1c57644-cp312-cp312-linux_x86_64.whl"))
}

func TestNormalizeFilenames_NonRecursive_SkipsSubdirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	writeWheelOfSize(t, sub, "torch-2.9.0a0+gitaaaa-cp312-cp312-linux_x86_64.whl", 1)

	stats, err := NormalizeFilenames(dir, false, false)
	require.NoError(t, err)
	require.Equal(t, 0, stats.Total)

	stats, err = NormalizeFilenames(dir, true, false)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Total)
	require.Equal(t, 1, stats.Normalized)
	require.True(t, strings.HasSuffix(
		firstWheel(t, sub), "torch-2.9.0a0-cp312-cp312-linux_x86_64.whl"))
}

func firstWheel(t *testing.T, dir string) string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	return entries[0].Name()
}
