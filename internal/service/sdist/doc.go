// Package sdist builds the source distribution artifact and its manifest.
// Archives are deterministic: entries are sorted, timestamps are fixed and
// file modes are normalized, so an unchanged tree rebuilds byte-for-byte.
package sdist
