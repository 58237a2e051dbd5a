package matrix

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/relcut/internal/config"
)

var errCommandFailed = errors.New("exit status 1")

// fakeRunner records invoked commands and returns canned results.
type fakeRunner struct {
	mu       sync.Mutex
	invoked  []string
	failures map[string]bool
}

func (f *fakeRunner) Run(_ context.Context, command string) ([]byte, error) {
	f.mu.Lock()
	f.invoked = append(f.invoked, command)
	f.mu.Unlock()

	if f.failures[command] {
		return []byte("boom"), errCommandFailed
	}

	return []byte("ok"), nil
}

func environments(names ...string) []config.MatrixEnvironment {
	envs := make([]config.MatrixEnvironment, 0, len(names))
	for _, name := range names {
		envs = append(envs, config.MatrixEnvironment{
			Name:    name,
			Command: "tox -e " + name,
			Timeout: time.Minute,
		})
	}

	return envs
}

func TestRunner_AllPass(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}

	results, err := NewRunnerWith(runner, 2).Run(t.Context(), environments("py38", "py39", "py310"))
	require.NoError(t, err)
	require.Len(t, results, 3)

	for _, result := range results {
		require.NoError(t, result.Err)
		require.Equal(t, []byte("ok"), result.Output)
	}

	require.Len(t, runner.invoked, 3)
}

func TestRunner_CollectsFailuresWithoutStopping(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		failures: map[string]bool{"tox -e py39": true},
	}

	results, err := NewRunnerWith(runner, 1).Run(t.Context(), environments("py38", "py39", "py310"))
	require.ErrorIs(t, err, ErrMatrixFailed)
	require.Len(t, results, 3)

	require.NoError(t, results[0].Err)
	require.ErrorIs(t, results[1].Err, errCommandFailed)
	require.NoError(t, results[2].Err)

	// Environments after the failing one still ran.
	require.Len(t, runner.invoked, 3)
}

func TestRunner_RejectsEmptyMatrix(t *testing.T) {
	t.Parallel()

	_, err := NewRunnerWith(&fakeRunner{}, 1).Run(t.Context(), nil)
	require.ErrorIs(t, err, ErrNoEnvironments)
}

func TestFilter(t *testing.T) {
	t.Parallel()

	all := environments("py38", "py39", "py310")

	require.Equal(t, all, Filter(all, nil))

	filtered := Filter(all, []string{"py39"})
	require.Len(t, filtered, 1)
	require.Equal(t, "py39", filtered[0].Name)

	require.Empty(t, Filter(all, []string{"unknown"}))
}

func TestExecRunner_RejectsEmptyCommand(t *testing.T) {
	t.Parallel()

	_, err := execRunner{}.Run(t.Context(), "   ")
	require.ErrorIs(t, err, errEmptyCommand)
}
