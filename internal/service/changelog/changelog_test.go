package changelog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/relcut/internal/domain/release"
)

func writeChangelog(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "CHANGELOG")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

func parseVersion(t *testing.T, s string) domain.Version {
	t.Helper()

	v, err := domain.ParseVersion(s)
	require.NoError(t, err)

	return v
}

// TestTopEntry parses headings with and without dates.
func TestTopEntry(t *testing.T) {
	t.Parallel()

	path := writeChangelog(t, "Changelog\n=========\n\n## 0.30.0 (2024-01-12)\n\n- fixes\n\n## 0.29.1 (2023-10-01)\n")

	entry, err := TopEntry(path)
	require.NoError(t, err)
	require.Equal(t, "0.30.0", entry.Version)
	require.Equal(t, "2024-01-12", entry.Date)

	path = writeChangelog(t, "## Unreleased\n\n- pending\n")

	entry, err = TopEntry(path)
	require.NoError(t, err)
	require.Equal(t, UnreleasedHeading, entry.Version)
	require.Empty(t, entry.Date)

	path = writeChangelog(t, "no headings here\n")
	_, err = TopEntry(path)
	require.ErrorIs(t, err, ErrNoEntries)
}

// TestVerify checks the version-match and dated-entry gates.
func TestVerify(t *testing.T) {
	t.Parallel()

	v := parseVersion(t, "0.30.0")

	path := writeChangelog(t, "## 0.30.0 (2024-01-12)\n")
	require.NoError(t, Verify(path, v))

	path = writeChangelog(t, "## 0.29.0 (2023-10-01)\n")
	require.ErrorIs(t, Verify(path, v), ErrVersionMismatch)

	path = writeChangelog(t, "## 0.30.0\n")
	require.ErrorIs(t, Verify(path, v), ErrNotDated)
}

// TestStamp rewrites the Unreleased heading and is idempotent afterwards.
func TestStamp(t *testing.T) {
	t.Parallel()

	v := parseVersion(t, "0.30.0")
	date := time.Date(2024, 1, 12, 10, 0, 0, 0, time.UTC)

	path := writeChangelog(t, "## Unreleased\n\n- new parser\n\n## 0.29.1 (2023-10-01)\n")
	require.NoError(t, Stamp(path, v, date))
	require.NoError(t, Verify(path, v))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(contents), "## 0.30.0 (2024-01-12)")
	require.Contains(t, string(contents), "- new parser")

	// Stamping again is a no-op.
	require.NoError(t, Stamp(path, v, date.AddDate(0, 0, 5)))
	require.NoError(t, Verify(path, v))

	// An undated entry for the version gains the date.
	path = writeChangelog(t, "## 0.30.0\n\n- notes\n")
	require.NoError(t, Stamp(path, v, date))
	require.NoError(t, Verify(path, v))

	// A foreign top entry is rejected.
	path = writeChangelog(t, "## 0.28.0 (2023-01-01)\n")
	require.ErrorIs(t, Stamp(path, v, date), ErrNotPrepared)
}
