package release

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestComputeChecksum ensures the digest is stable and round-trips through base64.
func TestComputeChecksum(t *testing.T) {
	t.Parallel()

	first, err := ComputeChecksum(strings.NewReader("release bytes"))
	require.NoError(t, err)

	second, err := ComputeChecksum(strings.NewReader("release bytes"))
	require.NoError(t, err)
	require.Equal(t, first, second)

	other, err := ComputeChecksum(strings.NewReader("different bytes"))
	require.NoError(t, err)
	require.NotEqual(t, first, other)

	digest, err := DecodeChecksum(first)
	require.NoError(t, err)
	require.Len(t, digest, DefaultChecksumFunction.Size())
}

// TestFileChecksum verifies hashing a file matches hashing its contents.
func TestFileChecksum(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "artifact.bin")
	require.NoError(t, os.WriteFile(path, []byte("artifact"), 0o600))

	fromFile, err := FileChecksum(path)
	require.NoError(t, err)

	fromBytes, err := ComputeChecksum(strings.NewReader("artifact"))
	require.NoError(t, err)
	require.Equal(t, fromBytes, fromFile)

	_, err = FileChecksum(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
