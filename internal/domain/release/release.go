package release

import "time"

// Actor identifies who performed an action in the system.
type Actor struct {
	// Hostname is the machine name where the action was performed.
	Hostname string `yaml:"hostname"`
	// Username is the system user who triggered the action.
	Username string `yaml:"username"`
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// Release describes a published release of a project as the index sees it.
type Release struct {
	// Project is the project the release belongs to.
	Project string
	// Version is the semantic version of the release.
	Version Version
	// Artifact is the source distribution filename.
	Artifact string
	// Checksum is the base64-encoded SHA-512 of the artifact bytes.
	Checksum string
	// SizeBytes is the artifact size.
	SizeBytes int64
	// UploadedAt is when the artifact was accepted by the index.
	UploadedAt time.Time
	// Yanked marks a release withdrawn from installation without deleting it.
	Yanked bool
}

// Clone returns a copy of the release to avoid leaking internal references.
func (r *Release) Clone() *Release {
	if r == nil {
		return nil
	}

	cloned := *r

	return &cloned
}

// Manifest is the metadata file built alongside the source distribution.
// It travels with the artifact to the index and is what the clean-room
// verification step trusts when recomputing checksums.
type Manifest struct {
	// Project is the project name the artifact belongs to.
	Project string `yaml:"project"`
	// VersionNumber is the semantic version of this release.
	VersionNumber string `yaml:"version"`
	// Artifact is the source distribution filename.
	Artifact string `yaml:"artifact"`
	// Checksum is the base64-encoded SHA-512 of the artifact bytes.
	Checksum string `yaml:"checksum"`
	// SizeBytes is the artifact size in bytes.
	SizeBytes int64 `yaml:"size_bytes"`
	// Files maps archive-relative paths to their base64-encoded checksums.
	Files map[string]string `yaml:"files"`
	// BuiltAt is the UTC build timestamp.
	BuiltAt time.Time `yaml:"built_at"`
	// Builder identifies who produced the artifact.
	Builder *Actor `yaml:"builder,omitempty"`
}

// defaultMapCapacity is the default initial capacity for manifest maps.
const defaultMapCapacity = 16

// NewManifest produces a Manifest initialized for the given project and version.
func NewManifest(project string, v Version) *Manifest {
	return &Manifest{
		Project:       project,
		VersionNumber: v.String(),
		Files:         make(map[string]string, defaultMapCapacity),
		BuiltAt:       time.Now().UTC(),
	}
}

// ArtifactName renders the canonical source distribution filename.
func ArtifactName(project string, v Version) string {
	return project + "-" + v.String() + ".tar.gz"
}

// ManifestName renders the canonical manifest filename for a release.
func ManifestName(project string, v Version) string {
	return project + "-" + v.String() + ".manifest.yaml"
}
