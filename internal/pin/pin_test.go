package pin

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var watchedFamily = []WatchedPackage{
	{Prefix: "torch", Package: "torch"},
	{Prefix: "triton", Package: "triton"},
	{Prefix: "triton_kernels", Package: "triton-kernels"},
	{Prefix: "torchvision", Package: "torchvision"},
	{Prefix: "amdsmi", Package: "amdsmi"},
}

func writeWheel(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("dummy wheel"), 0o644))
}

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "pyproject.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPinDependencies_LooseConstraint_RewrittenToExactPin(t *testing.T) {
	dir := t.TempDir()
	writeWheel(t, dir, "torch-2.9.0a0+git1c57644-cp312-cp312-linux_x86_64.whl")
	manifest := writeManifest(t, dir, "requires = [\n    \"torch >= 2.9.0\",\n]\n")

	pinner := NewPinner(Options{ArtifactDir: dir, ManifestPath: manifest, Watched: watchedFamily})
	result, err := pinner.PinDependencies()
	require.NoError(t, err)
	require.Equal(t, 1, result.Modified)

	rewritten, err := os.ReadFile(manifest)
	require.NoError(t, err)
	require.Contains(t, string(rewritten), `"torch == 2.9.0a0+git1c57644"`)
	require.NotContains(t, string(rewritten), ">=")
}

func TestPinDependencies_LocalIdentifier_PreservedInPin(t *testing.T) {
	dir := t.TempDir()
	writeWheel(t, dir, "torch-2.9.0a0+git1c57644-cp312-cp312-linux_x86_64.whl")
	manifest := writeManifest(t, dir, "torch >= 2.9.0\n")

	pinner := NewPinner(Options{ArtifactDir: dir, ManifestPath: manifest, Watched: watchedFamily})
	_, err := pinner.PinDependencies()
	require.NoError(t, err)

	rewritten, err := os.ReadFile(manifest)
	require.NoError(t, err)
	require.Equal(t, "torch == 2.9.0a0+git1c57644\n", string(rewritten))
}

func TestPinDependencies_BackupContainsOriginalText(t *testing.T) {
	dir := t.TempDir()
	writeWheel(t, dir, "demo-1.2.0+gitdead-cp312-cp312-linux_x86_64.whl")
	original := "demo >= 1.0.0\n"
	manifest := writeManifest(t, dir, original)

	pinner := NewPinner(Options{
		ArtifactDir:  dir,
		ManifestPath: manifest,
		Watched:      []WatchedPackage{{Prefix: "demo", Package: "demo"}},
	})
	result, err := pinner.PinDependencies()
	require.NoError(t, err)
	require.Equal(t, manifest+".bak", result.BackupPath)

	backup, err := os.ReadFile(result.BackupPath)
	require.NoError(t, err)
	require.Equal(t, original, string(backup))

	rewritten, err := os.ReadFile(manifest)
	require.NoError(t, err)
	require.Equal(t, "demo == 1.2.0+gitdead\n", string(rewritten))
}

func TestPinDependencies_TritonKernelsWheel_NotAttributedToTriton(t *testing.T) {
	dir := t.TempDir()
	writeWheel(t, dir, "triton_kernels-1.0.0-py3-none-any.whl")
	manifest := writeManifest(t, dir, "\"triton >= 3.0\"\n\"triton-kernels >= 0.5\"\n")

	pinner := NewPinner(Options{ArtifactDir: dir, ManifestPath: manifest, Watched: watchedFamily})
	result, err := pinner.PinDependencies()
	require.NoError(t, err)

	rewritten, err := os.ReadFile(manifest)
	require.NoError(t, err)
	// triton has no wheel here, so its loose constraint must survive.
	require.Contains(t, string(rewritten), `"triton >= 3.0"`)
	require.Contains(t, string(rewritten), `"triton-kernels == 1.0.0"`)
	require.Equal(t, 1, result.Modified)
}

func TestPinDependencies_PrefixOfLongerName_NotCorrupted(t *testing.T) {
	dir := t.TempDir()
	writeWheel(t, dir, "torch-2.9.0-cp312-cp312-linux_x86_64.whl")
	manifest := writeManifest(t, dir, "torchvision >= 0.20\nmega-torch >= 1.0\ntorch >= 2.9.0\n")

	pinner := NewPinner(Options{ArtifactDir: dir, ManifestPath: manifest, Watched: watchedFamily})
	_, err := pinner.PinDependencies()
	require.NoError(t, err)

	rewritten, err := os.ReadFile(manifest)
	require.NoError(t, err)
	require.Contains(t, string(rewritten), "torchvision >= 0.20")
	require.Contains(t, string(rewritten), "mega-torch >= 1.0")
	require.Contains(t, string(rewritten), "torch == 2.9.0")
}

func TestPinDependencies_CompoundConstraint_ReplacedWholesale(t *testing.T) {
	dir := t.TempDir()
	writeWheel(t, dir, "torch-2.9.0-cp312-cp312-linux_x86_64.whl")
	manifest := writeManifest(t, dir, "\"torch >= 2.8.0, <3.0\"\n")

	pinner := NewPinner(Options{ArtifactDir: dir, ManifestPath: manifest, Watched: watchedFamily})
	_, err := pinner.PinDependencies()
	require.NoError(t, err)

	rewritten, err := os.ReadFile(manifest)
	require.NoError(t, err)
	require.Equal(t, "\"torch == 2.9.0\"\n", string(rewritten))
}

func TestPinDependencies_StructuredKeyValueLine_Rewritten(t *testing.T) {
	dir := t.TempDir()
	writeWheel(t, dir, "amdsmi-6.2.0-py3-none-any.whl")
	manifest := writeManifest(t, dir, "amdsmi = \">= 6.0\"\n")

	pinner := NewPinner(Options{ArtifactDir: dir, ManifestPath: manifest, Watched: watchedFamily})
	_, err := pinner.PinDependencies()
	require.NoError(t, err)

	rewritten, err := os.ReadFile(manifest)
	require.NoError(t, err)
	require.Equal(t, "amdsmi = \"== 6.2.0\"\n", string(rewritten))
}

func TestPinDependencies_UnderscoreSpelling_MatchesHyphenName(t *testing.T) {
	dir := t.TempDir()
	writeWheel(t, dir, "triton_kernels-1.0.0-py3-none-any.whl")
	manifest := writeManifest(t, dir, "\"triton_kernels >= 0.5\"\n")

	pinner := NewPinner(Options{ArtifactDir: dir, ManifestPath: manifest, Watched: watchedFamily})
	_, err := pinner.PinDependencies()
	require.NoError(t, err)

	rewritten, err := os.ReadFile(manifest)
	require.NoError(t, err)
	require.Equal(t, "\"triton-kernels == 1.0.0\"\n", string(rewritten))
}

func TestPinDependencies_NoMatchingConstraint_ReportedUnmodified(t *testing.T) {
	dir := t.TempDir()
	writeWheel(t, dir, "amdsmi-6.2.0-py3-none-any.whl")
	manifest := writeManifest(t, dir, "numpy >= 1.26\n")

	pinner := NewPinner(Options{ArtifactDir: dir, ManifestPath: manifest, Watched: watchedFamily})
	result, err := pinner.PinDependencies()
	require.NoError(t, err)
	require.Equal(t, 0, result.Modified)
	require.Len(t, result.Packages, 1)
	require.False(t, result.Packages[0].Applied)

	rewritten, err := os.ReadFile(manifest)
	require.NoError(t, err)
	require.Equal(t, "numpy >= 1.26\n", string(rewritten))
}

func TestPinDependencies_EmptyArtifactDir_ReturnsErrNoCustomArtifactsFound(t *testing.T) {
	dir := t.TempDir()
	manifest := writeManifest(t, dir, "torch >= 2.9.0\n")

	pinner := NewPinner(Options{ArtifactDir: t.TempDir(), ManifestPath: manifest, Watched: watchedFamily})
	_, err := pinner.PinDependencies()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNoCustomArtifactsFound))
	require.True(t, strings.Contains(err.Error(), "torch"))

	// Nothing written: manifest intact, no backup.
	_, statErr := os.Stat(manifest + BackupSuffix)
	require.True(t, os.IsNotExist(statErr))
}

func TestPinDependencies_MissingManifest_ReturnsErrManifestNotFound(t *testing.T) {
	dir := t.TempDir()
	writeWheel(t, dir, "torch-2.9.0-cp312-cp312-linux_x86_64.whl")

	pinner := NewPinner(Options{
		ArtifactDir:  dir,
		ManifestPath: filepath.Join(dir, "missing.toml"),
		Watched:      watchedFamily,
	})
	_, err := pinner.PinDependencies()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrManifestNotFound))
}

func TestPinDependencies_UnrelatedWheelInScan_Ignored(t *testing.T) {
	dir := t.TempDir()
	writeWheel(t, dir, "numpy-1.26.0-cp312-cp312-linux_x86_64.whl")
	writeWheel(t, dir, "torch-2.9.0-cp312-cp312-linux_x86_64.whl")
	manifest := writeManifest(t, dir, "torch >= 2.8\nnumpy >= 1.0\n")

	pinner := NewPinner(Options{ArtifactDir: dir, ManifestPath: manifest, Watched: watchedFamily})
	result, err := pinner.PinDependencies()
	require.NoError(t, err)
	require.Len(t, result.Packages, 1)

	rewritten, err := os.ReadFile(manifest)
	require.NoError(t, err)
	require.Contains(t, string(rewritten), "numpy >= 1.0")
	require.Contains(t, string(rewritten), "torch == 2.9.0")
}
