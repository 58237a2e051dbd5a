package matrix

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oshokin/relcut/internal/config"
	"github.com/oshokin/relcut/internal/logger"
)

const (
	// DefaultEnvironmentTimeout bounds a single environment's test run
	// when the configuration does not set one.
	DefaultEnvironmentTimeout = 15 * time.Minute

	// DefaultParallelism is how many environments run at once.
	DefaultParallelism = 2
)

var (
	// ErrNoEnvironments is returned when nothing is configured or the
	// requested filter matches nothing.
	ErrNoEnvironments = errors.New("no test environments to run")

	// ErrMatrixFailed is returned when at least one environment failed.
	ErrMatrixFailed = errors.New("test matrix failed")

	// errEmptyCommand is returned for an environment without a command.
	errEmptyCommand = errors.New("environment command is empty")
)

// CommandRunner executes one environment's test command.
type CommandRunner interface {
	// Run executes the command line and returns its combined output.
	Run(ctx context.Context, command string) ([]byte, error)
}

// Result is the outcome of a single environment.
type Result struct {
	// Name is the environment name from the configuration.
	Name string
	// Duration is how long the run took.
	Duration time.Duration
	// Output is the combined stdout and stderr of the command.
	Output []byte
	// Err is nil when the environment passed.
	Err error
}

// execRunner runs commands through the local shell-less exec path.
type execRunner struct{}

// Run splits the command line on whitespace and executes it.
func (execRunner) Run(ctx context.Context, command string) ([]byte, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errEmptyCommand
	}

	//nolint:gosec // The command comes from the project's own configuration.
	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)

	return cmd.CombinedOutput()
}

// Runner executes the configured environments with bounded parallelism.
type Runner struct {
	commands    CommandRunner
	parallelism int
}

// NewRunner returns a Runner backed by local command execution.
func NewRunner(parallelism int) *Runner {
	return NewRunnerWith(execRunner{}, parallelism)
}

// NewRunnerWith allows substituting command execution, mainly for tests.
func NewRunnerWith(commands CommandRunner, parallelism int) *Runner {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}

	return &Runner{
		commands:    commands,
		parallelism: parallelism,
	}
}

// Run executes every environment and returns their results in the
// configuration's order. The returned error is nil only when all passed.
func (r *Runner) Run(ctx context.Context, environments []config.MatrixEnvironment) ([]Result, error) {
	if len(environments) == 0 {
		return nil, ErrNoEnvironments
	}

	results := make([]Result, len(environments))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.parallelism)

	for i, env := range environments {
		group.Go(func() error {
			results[i] = r.runOne(groupCtx, env)

			// Environment failures are collected, not propagated, so the
			// rest of the matrix still runs to completion.
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return results, err
	}

	var failed int

	for _, result := range results {
		if result.Err != nil {
			failed++
		}
	}

	if failed > 0 {
		return results, fmt.Errorf("%w: %d of %d environments", ErrMatrixFailed, failed, len(environments))
	}

	return results, nil
}

// runOne executes a single environment under its timeout.
func (r *Runner) runOne(ctx context.Context, env config.MatrixEnvironment) Result {
	timeout := env.Timeout
	if timeout <= 0 {
		timeout = DefaultEnvironmentTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.InfoKV(ctx, "running test environment", "environment", env.Name)

	started := time.Now()
	output, err := r.commands.Run(runCtx, env.Command)
	duration := time.Since(started)

	if err != nil {
		logger.WarnKV(ctx, "test environment failed",
			"environment", env.Name,
			"duration", duration.String(),
			"error", err)
	} else {
		logger.InfoKV(ctx, "test environment passed",
			"environment", env.Name,
			"duration", duration.String())
	}

	return Result{
		Name:     env.Name,
		Duration: duration,
		Output:   output,
		Err:      err,
	}
}

// Filter keeps only the environments whose names are in the requested
// set. An empty request keeps everything.
func Filter(environments []config.MatrixEnvironment, names []string) []config.MatrixEnvironment {
	if len(names) == 0 {
		return environments
	}

	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[name] = struct{}{}
	}

	filtered := make([]config.MatrixEnvironment, 0, len(environments))

	for _, env := range environments {
		if _, ok := wanted[env.Name]; ok {
			filtered = append(filtered, env)
		}
	}

	return filtered
}
