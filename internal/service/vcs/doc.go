// Package vcs wraps the handful of git operations the release pipeline
// depends on: worktree cleanliness, HEAD resolution and annotated tags.
// Commands are run through a Runner interface so tests never need a
// real repository.
package vcs
