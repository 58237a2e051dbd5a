package vcs

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes a git invocation and returns its trimmed output.
// It exists so tests can inject fakes without a real repository.
type Runner interface {
	Output(ctx context.Context, dir string, args ...string) (string, error)
}

// gitRunner is the real Runner shelling out to the git binary.
type gitRunner struct{}

// Output runs git with the provided arguments in the given directory.
func (gitRunner) Output(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stderr strings.Builder

	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		message := strings.TrimSpace(stderr.String())
		if message == "" {
			message = err.Error()
		}

		return "", fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), message, err)
	}

	return strings.TrimSpace(string(output)), nil
}

var (
	// ErrDirtyWorktree is returned when uncommitted changes would end up untagged.
	ErrDirtyWorktree = errors.New("worktree has uncommitted changes")
	// ErrTagExists is returned when the release tag already exists.
	ErrTagExists = errors.New("tag already exists")
)

// Git wraps the repository-level operations the release pipeline needs.
type Git struct {
	// runner executes git commands.
	runner Runner
	// dir is the repository root; empty means the current directory.
	dir string
}

// New creates a Git helper for the repository at dir.
func New(dir string) *Git {
	return &Git{
		runner: gitRunner{},
		dir:    dir,
	}
}

// NewWithRunner creates a Git helper with an injected runner for tests.
func NewWithRunner(dir string, runner Runner) *Git {
	return &Git{
		runner: runner,
		dir:    dir,
	}
}

// IsClean reports whether the worktree has no uncommitted changes.
func (g *Git) IsClean(ctx context.Context) (bool, error) {
	output, err := g.runner.Output(ctx, g.dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}

	return output == "", nil
}

// Head returns the abbreviated commit hash of HEAD.
func (g *Git) Head(ctx context.Context) (string, error) {
	return g.runner.Output(ctx, g.dir, "rev-parse", "--short", "HEAD")
}

// TagExists reports whether the given tag is already present.
func (g *Git) TagExists(ctx context.Context, tag string) (bool, error) {
	output, err := g.runner.Output(ctx, g.dir, "tag", "--list", tag)
	if err != nil {
		return false, err
	}

	return output != "", nil
}

// CreateTag creates an annotated tag at HEAD.
// A dirty worktree or an existing tag aborts the operation.
func (g *Git) CreateTag(ctx context.Context, tag, message string) error {
	clean, err := g.IsClean(ctx)
	if err != nil {
		return err
	}

	if !clean {
		return fmt.Errorf("refusing to tag %s: %w", tag, ErrDirtyWorktree)
	}

	exists, err := g.TagExists(ctx, tag)
	if err != nil {
		return err
	}

	if exists {
		return fmt.Errorf("%s: %w", tag, ErrTagExists)
	}

	if _, err = g.runner.Output(ctx, g.dir, "tag", "-a", tag, "-m", message); err != nil {
		return err
	}

	return nil
}
