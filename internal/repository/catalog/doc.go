// Package catalog persists the release catalog of the package index in
// sqlite: projects, their releases, artifact checksums and upload
// timestamps. Artifact bytes live on disk next to the database; the
// catalog only records metadata.
package catalog
