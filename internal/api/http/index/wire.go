package index

import (
	"time"

	domain "github.com/oshokin/relcut/internal/domain/release"
)

// ReleaseInfo is the JSON shape of one release in a project listing.
type ReleaseInfo struct {
	// Version is the semantic version string.
	Version string `json:"version"`
	// Artifact is the downloadable source distribution filename.
	Artifact string `json:"artifact"`
	// Checksum is the base64-encoded SHA-512 of the artifact.
	Checksum string `json:"checksum"`
	// SizeBytes is the artifact size.
	SizeBytes int64 `json:"size_bytes"`
	// UploadedAt is when the artifact was accepted.
	UploadedAt time.Time `json:"uploaded_at"`
	// Yanked marks a withdrawn release.
	Yanked bool `json:"yanked"`
}

// ProjectListing is the JSON response for a project index page.
type ProjectListing struct {
	// Project is the project name.
	Project string `json:"project"`
	// Releases lists the project's releases, oldest first.
	Releases []ReleaseInfo `json:"releases"`
}

// UploadResult is the JSON response for an accepted upload.
type UploadResult struct {
	// Accepted is the stored filename.
	Accepted string `json:"accepted"`
	// Version is set when the upload completed a release.
	Version string `json:"version,omitempty"`
}

// PruneResult is the JSON response for a prune request.
type PruneResult struct {
	// Removed lists the pruned version strings.
	Removed []string `json:"removed"`
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	// Error is the human-readable failure description.
	Error string `json:"error"`
}

// toReleaseInfo converts a domain release to its wire representation.
func toReleaseInfo(rel *domain.Release) ReleaseInfo {
	if rel == nil {
		return ReleaseInfo{}
	}

	return ReleaseInfo{
		Version:    rel.Version.String(),
		Artifact:   rel.Artifact,
		Checksum:   rel.Checksum,
		SizeBytes:  rel.SizeBytes,
		UploadedAt: rel.UploadedAt,
		Yanked:     rel.Yanked,
	}
}
