// Package common holds helpers shared by several services.
//
// It provides a lightweight HTTP client for the package index with
// per-call timeouts and utilities to detect the current system actor
// (hostname/username) for the build audit trail.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
