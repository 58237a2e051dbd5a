package indexsrv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	domain "github.com/oshokin/relcut/internal/domain/release"
	"github.com/oshokin/relcut/internal/logger"
	"github.com/oshokin/relcut/internal/repository/catalog"
)

const (
	// artifactSuffix identifies source distribution uploads.
	artifactSuffix = ".tar.gz"
	// manifestSuffix identifies manifest uploads.
	manifestSuffix = ".manifest.yaml"

	// storedFileMode is applied to accepted files in the data directory.
	storedFileMode os.FileMode = 0o644
)

var (
	// errUnknownUploadKind is returned for uploads that are neither artifact nor manifest.
	errUnknownUploadKind = errors.New("unknown upload file kind")
	// errManifestProjectMismatch is returned when a manifest names a different project.
	errManifestProjectMismatch = errors.New("manifest project does not match upload path")
)

// Service implements the package-index business logic: accepting uploads,
// serving artifacts and pruning superseded releases.
type Service struct {
	// repo is the release catalog.
	repo *catalog.Repository
	// dataDir is the root directory for stored artifact and manifest bytes.
	dataDir string
	// gracePeriod is how long a superseded release stays before prune removes it.
	gracePeriod time.Duration
	// now is the clock; tests override it.
	now func() time.Time

	// mu serializes uploads so checksum admission and the catalog insert are atomic.
	mu sync.Mutex
}

// NewService creates the index service on top of a catalog and a data directory.
func NewService(repo *catalog.Repository, dataDir string, gracePeriod time.Duration) *Service {
	return &Service{
		repo:        repo,
		dataDir:     dataDir,
		gracePeriod: gracePeriod,
		now:         time.Now,
	}
}

// ListReleases returns the releases of a project, oldest first.
func (s *Service) ListReleases(ctx context.Context, project string) ([]*domain.Release, error) {
	return s.repo.ListReleases(ctx, project)
}

// OpenFile opens a stored artifact or manifest for download.
func (s *Service) OpenFile(_ context.Context, project, filename string) (io.ReadCloser, int64, error) {
	path, err := s.storedPath(project, filename)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, fmt.Errorf("%s/%s: %w", project, filename, catalog.ErrNotFound)
		}

		return nil, 0, fmt.Errorf("open stored file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()

		return nil, 0, fmt.Errorf("stat stored file: %w", err)
	}

	return f, info.Size(), nil
}

// Accept stores an uploaded file. Manifests are admitted as-is; artifacts
// must match the checksum of a previously uploaded manifest, and admission
// records the release in the catalog.
func (s *Service) Accept(ctx context.Context, project, filename string, contents io.Reader) (*domain.Release, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case strings.HasSuffix(filename, manifestSuffix):
		return nil, s.acceptManifest(ctx, project, filename, contents)
	case strings.HasSuffix(filename, artifactSuffix):
		return s.acceptArtifact(ctx, project, filename, contents)
	default:
		return nil, fmt.Errorf("%s: %w", filename, errUnknownUploadKind)
	}
}

// Yank marks a release withdrawn without removing its bytes: the
// listing flags it, but downloads keep working for pinned installs.
func (s *Service) Yank(ctx context.Context, project, versionText string) error {
	version, err := domain.ParseVersion(versionText)
	if err != nil {
		return fmt.Errorf("yank version: %w", err)
	}

	if err = s.repo.SetYanked(ctx, project, version, true); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Release yanked", "project", project, "version", version.String())

	return nil
}

// Prune removes superseded releases older than the grace period.
// The latest release of a project is never removed, regardless of age.
func (s *Service) Prune(ctx context.Context, project string) ([]domain.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	releases, err := s.repo.ListReleases(ctx, project)
	if err != nil {
		return nil, err
	}

	if len(releases) == 0 {
		return nil, fmt.Errorf("%s: %w", project, catalog.ErrNotFound)
	}

	var (
		cutoff  = s.now().Add(-s.gracePeriod)
		removed []domain.Version
	)

	// The last entry is the newest; it is always retained.
	for _, rel := range releases[:len(releases)-1] {
		if rel.UploadedAt.After(cutoff) {
			continue
		}

		if err = s.repo.DeleteRelease(ctx, project, rel.Version); err != nil {
			return removed, err
		}

		s.removeStoredFiles(ctx, project, rel)

		removed = append(removed, rel.Version)
	}

	logger.InfoKV(ctx, "Prune finished", "project", project, "removed", len(removed))

	return removed, nil
}

// acceptManifest validates and stores the manifest file.
func (s *Service) acceptManifest(ctx context.Context, project, filename string, contents io.Reader) error {
	data, err := io.ReadAll(contents)
	if err != nil {
		return fmt.Errorf("read manifest upload: %w", err)
	}

	var manifest domain.Manifest
	if err = yaml.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("decode manifest upload: %w", err)
	}

	if manifest.Project != project {
		return fmt.Errorf("%q vs %q: %w", manifest.Project, project, errManifestProjectMismatch)
	}

	if _, err = domain.ParseVersion(manifest.VersionNumber); err != nil {
		return fmt.Errorf("manifest version: %w", err)
	}

	path, err := s.storedPath(project, filename)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create project dir: %w", err)
	}

	if err = os.WriteFile(path, data, storedFileMode); err != nil {
		return fmt.Errorf("store manifest: %w", err)
	}

	logger.InfoKV(ctx, "Manifest accepted", "project", project, "file", filename)

	return nil
}

// acceptArtifact verifies the artifact against its manifest and records the release.
func (s *Service) acceptArtifact(ctx context.Context, project, filename string, contents io.Reader) (*domain.Release, error) {
	manifest, err := s.loadManifest(project, manifestNameFor(filename))
	if err != nil {
		return nil, err
	}

	path, err := s.storedPath(project, filename)
	if err != nil {
		return nil, err
	}

	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create project dir: %w", err)
	}

	// Spool to a temporary name first so a failed admission leaves no artifact behind.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("spool upload: %w", err)
	}

	tmpName := tmp.Name()

	defer func() {
		_ = os.Remove(tmpName)
	}()

	size, err := io.Copy(tmp, contents)
	if err != nil {
		_ = tmp.Close()

		return nil, fmt.Errorf("spool upload: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return nil, fmt.Errorf("spool upload: %w", err)
	}

	checksum, err := domain.FileChecksum(tmpName)
	if err != nil {
		return nil, err
	}

	if checksum != manifest.Checksum {
		return nil, fmt.Errorf("%s: %w", filename, domain.ErrChecksumMismatch)
	}

	version, err := domain.ParseVersion(manifest.VersionNumber)
	if err != nil {
		return nil, fmt.Errorf("manifest version: %w", err)
	}

	rel := &domain.Release{
		Project:    project,
		Version:    version,
		Artifact:   filename,
		Checksum:   checksum,
		SizeBytes:  size,
		UploadedAt: s.now().UTC(),
	}

	if err = s.repo.SaveRelease(ctx, rel); err != nil {
		return nil, err
	}

	if err = os.Rename(tmpName, path); err != nil {
		return nil, fmt.Errorf("store artifact: %w", err)
	}

	if err = os.Chmod(path, storedFileMode); err != nil {
		return nil, fmt.Errorf("store artifact: %w", err)
	}

	logger.InfoKV(ctx, "Artifact accepted",
		"project", project, "version", rel.Version.String(), "size_bytes", size)

	return rel.Clone(), nil
}

// loadManifest reads a stored manifest for artifact admission.
func (s *Service) loadManifest(project, filename string) (*domain.Manifest, error) {
	path, err := s.storedPath(project, filename)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", filename, domain.ErrManifestMissing)
		}

		return nil, fmt.Errorf("read stored manifest: %w", err)
	}

	var manifest domain.Manifest
	if err = yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("decode stored manifest: %w", err)
	}

	return &manifest, nil
}

// removeStoredFiles deletes the artifact and manifest bytes of a pruned release.
func (s *Service) removeStoredFiles(ctx context.Context, project string, rel *domain.Release) {
	for _, name := range []string{rel.Artifact, manifestNameFor(rel.Artifact)} {
		path, err := s.storedPath(project, name)
		if err != nil {
			logger.Warnf(ctx, "Skipping removal of %s: %v", name, err)
			continue
		}

		if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warnf(ctx, "Unable to remove %s: %v", path, err)
		}
	}
}

// storedPath maps an upload name to its on-disk location, rejecting
// anything that would escape the project directory.
func (s *Service) storedPath(project, filename string) (string, error) {
	if project == "" || filename == "" ||
		strings.ContainsAny(project, `/\`) || strings.ContainsAny(filename, `/\`) {
		return "", fmt.Errorf("%s/%s: %w", project, filename, catalog.ErrNotFound)
	}

	return filepath.Join(s.dataDir, project, filename), nil
}

// manifestNameFor derives the manifest filename from an artifact filename.
func manifestNameFor(artifact string) string {
	return strings.TrimSuffix(artifact, artifactSuffix) + manifestSuffix
}
