// Package matrix runs the configured test environments before a release,
// in parallel and each under its own timeout.
package matrix
