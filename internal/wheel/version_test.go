package wheel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompareVersions_NumericSegments_NotLexical(t *testing.T) {
	// Lexical order would put "10.0" before "9.0".
	require.Equal(t, 1, CompareVersions("10.0", "9.0"))
	require.Equal(t, -1, CompareVersions("2.9.0", "2.10.0"))
}

func TestCompareVersions_EqualVersions_ReturnsZero(t *testing.T) {
	require.Equal(t, 0, CompareVersions("2.9.0", "2.9.0"))
	require.Equal(t, 0, CompareVersions("1.0", "1.0.0"))
}

func TestCompareVersions_PreReleaseSortsBelowFinal(t *testing.T) {
	require.Equal(t, -1, CompareVersions("2.9.0a0", "2.9.0"))
	require.Equal(t, -1, CompareVersions("2.9.0rc1", "2.9.0"))
	require.Equal(t, 1, CompareVersions("2.9.0", "2.9.0b2"))
}

func TestCompareVersions_PreReleasePhases_AlphaBeforeBetaBeforeRC(t *testing.T) {
	require.Equal(t, -1, CompareVersions("1.0.0a2", "1.0.0b1"))
	require.Equal(t, -1, CompareVersions("1.0.0b1", "1.0.0rc1"))
	require.Equal(t, -1, CompareVersions("1.0.0a1", "1.0.0a2"))
}

func TestCompareVersions_DevBelowPre_PostAboveFinal(t *testing.T) {
	require.Equal(t, -1, CompareVersions("1.0.0.dev3", "1.0.0a1"))
	require.Equal(t, 1, CompareVersions("1.0.0.post1", "1.0.0"))
}

func TestCompareVersions_LocalIdentifierIgnoredForPrecedence(t *testing.T) {
	require.Equal(t, 0, CompareVersions("2.9.0a0+git1c57644", "2.9.0a0"))
	require.Equal(t, 1, CompareVersions("2.9.0+gitaaaa", "2.8.0+gitbbbb"))
}

func TestCompareVersions_Epoch_DominatesRelease(t *testing.T) {
	require.Equal(t, 1, CompareVersions("1!1.0", "2.0"))
}

func TestCompareVersions_UnparseableSortsBelowParseable(t *testing.T) {
	require.Equal(t, -1, CompareVersions("not-a-version", "0.0.1"))
	require.Equal(t, 1, CompareVersions("0.0.1", "garbage"))
}
