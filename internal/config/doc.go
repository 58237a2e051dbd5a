// Package config defines the release description used by the binaries and
// provides helpers to load, validate and save it in YAML format.
//
// The Config type names the project, the target version, the files that
// carry the version string, the changelog, the test matrix and the
// package index the release is pushed to.
package config
