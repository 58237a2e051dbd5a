package vcs

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeRunner replays canned git output keyed by the joined argument list.
type fakeRunner struct {
	outputs map[string]string
	calls   []string
}

func (f *fakeRunner) Output(_ context.Context, _ string, args ...string) (string, error) {
	key := strings.Join(args, " ")
	f.calls = append(f.calls, key)

	output, ok := f.outputs[key]
	if !ok {
		return "", errors.New("unexpected git invocation: " + key)
	}

	return output, nil
}

// TestGit_IsClean maps porcelain output to the cleanliness flag.
func TestGit_IsClean(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{outputs: map[string]string{"status --porcelain": ""}}
	g := NewWithRunner("", runner)

	clean, err := g.IsClean(context.Background())
	require.NoError(t, err)
	require.True(t, clean)

	runner.outputs["status --porcelain"] = " M internal/version/version.go"

	clean, err = g.IsClean(context.Background())
	require.NoError(t, err)
	require.False(t, clean)
}

// TestGit_CreateTag covers the dirty-worktree and existing-tag guards.
func TestGit_CreateTag(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	// Dirty worktree refuses to tag.
	runner := &fakeRunner{outputs: map[string]string{"status --porcelain": "?? junk"}}
	g := NewWithRunner("", runner)
	require.ErrorIs(t, g.CreateTag(ctx, "v1.0.0", "Release 1.0.0"), ErrDirtyWorktree)

	// Existing tag refuses to re-tag.
	runner = &fakeRunner{outputs: map[string]string{
		"status --porcelain": "",
		"tag --list v1.0.0":  "v1.0.0",
	}}
	g = NewWithRunner("", runner)
	require.ErrorIs(t, g.CreateTag(ctx, "v1.0.0", "Release 1.0.0"), ErrTagExists)

	// Clean repository creates an annotated tag.
	runner = &fakeRunner{outputs: map[string]string{
		"status --porcelain":               "",
		"tag --list v1.0.0":                "",
		"tag -a v1.0.0 -m Release 1.0.0":   "",
	}}
	g = NewWithRunner("", runner)
	require.NoError(t, g.CreateTag(ctx, "v1.0.0", "Release 1.0.0"))
	require.Contains(t, runner.calls, "tag -a v1.0.0 -m Release 1.0.0")
}

// TestGit_Head returns the abbreviated commit hash.
func TestGit_Head(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{outputs: map[string]string{"rev-parse --short HEAD": "abc1234"}}
	g := NewWithRunner("", runner)

	head, err := g.Head(context.Background())
	require.NoError(t, err)
	require.Equal(t, "abc1234", head)
}
