package wheelmeta

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// buildWheel writes a minimal wheel archive with the given METADATA content.
func buildWheel(t *testing.T, metadata string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo-1.0.0-py3-none-any.whl")
	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	w, err := zw.Create("demo-1.0.0.dist-info/METADATA")
	require.NoError(t, err)
	_, err = w.Write([]byte(metadata))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

const sampleMetadata = `Metadata-Version: 2.1
Name: demo
Version: 1.0.0
Requires-Dist: torch==2.9.0a0+git1c57644
Requires-Dist: triton-kernels==1.0.0
Requires-Dist: numpy>=1.26
Requires-Dist: typing-extensions
`

func TestExtract_WheelWithMetadata_ParsesCoreFields(t *testing.T) {
	path := buildWheel(t, sampleMetadata)

	meta, err := Extract(path)
	require.NoError(t, err)
	require.Equal(t, "demo", meta.Name)
	require.Equal(t, "1.0.0", meta.Version)
	require.Len(t, meta.RequiresDist, 4)
	require.Equal(t, "torch==2.9.0a0+git1c57644", meta.RequiresDist[0])
}

func TestExtract_WheelWithoutMetadata_ReturnsErrNoMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty-1.0.0-py3-none-any.whl")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("empty-1.0.0.dist-info/RECORD")
	require.NoError(t, err)
	_, err = w.Write([]byte(""))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = Extract(path)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNoMetadata))
}

func TestExtract_NotAnArchive_ReturnsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.whl")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0o644))

	_, err := Extract(path)
	require.Error(t, err)
}

func TestVerify_PinnedWatchedDependencies_AllPinned(t *testing.T) {
	path := buildWheel(t, sampleMetadata)

	report, err := Verify(path, []string{"torch", "triton-kernels"})
	require.NoError(t, err)
	require.Len(t, report.Watched, 2)
	require.True(t, report.AllPinned())

	require.Equal(t, "torch", report.Watched[0].Name)
	require.Equal(t, "==2.9.0a0+git1c57644", report.Watched[0].Constraint)
	require.True(t, report.Watched[0].Pinned)
}

func TestVerify_LooseWatchedDependency_NotAllPinned(t *testing.T) {
	path := buildWheel(t, `Name: demo
Version: 1.0.0
Requires-Dist: torch>=2.9.0
`)

	report, err := Verify(path, []string{"torch"})
	require.NoError(t, err)
	require.Len(t, report.Watched, 1)
	require.False(t, report.Watched[0].Pinned)
	require.False(t, report.AllPinned())
}

func TestVerify_WatchedNameSpelledWithUnderscore_StillMatches(t *testing.T) {
	path := buildWheel(t, `Name: demo
Version: 1.0.0
Requires-Dist: triton_kernels==1.0.0
`)

	report, err := Verify(path, []string{"triton-kernels"})
	require.NoError(t, err)
	require.Len(t, report.Watched, 1)
	require.True(t, report.AllPinned())
}

func TestVerify_NoWatchedDependenciesPresent_AllPinnedIsFalse(t *testing.T) {
	path := buildWheel(t, `Name: demo
Version: 1.0.0
Requires-Dist: numpy>=1.26
`)

	report, err := Verify(path, []string{"torch"})
	require.NoError(t, err)
	require.Empty(t, report.Watched)
	require.False(t, report.AllPinned())
	// The loose numpy constraint is still surfaced.
	require.Len(t, report.Loose, 1)
	require.Equal(t, "numpy", report.Loose[0].Name)
}
