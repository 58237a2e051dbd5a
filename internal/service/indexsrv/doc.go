// Package indexsrv implements the package-index server: upload admission
// with checksum verification against the release manifest, artifact
// downloads, and retention pruning that always keeps the newest release.
package indexsrv
