// Package release holds the release domain model: semantic versions,
// published releases, and the artifact manifest shared between the
// maintainer CLI and the package index.
package release
