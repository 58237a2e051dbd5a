package sdist

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oshokin/relcut/internal/config"
	domain "github.com/oshokin/relcut/internal/domain/release"
)

const (
	// DefaultFileMode is used when producing artifacts for distribution.
	DefaultFileMode os.FileMode = 0o755

	// regularEntryMode and execEntryMode normalize file modes inside the
	// archive so rebuilding from the same tree is byte-stable.
	regularEntryMode = 0o644
	execEntryMode    = 0o755
)

// sourceEpoch is the fixed modification time of archive entries.
// A constant time keeps the artifact deterministic.
var sourceEpoch = time.Unix(0, 0).UTC()

var (
	// errNoFiles is returned when file selection produces an empty archive.
	errNoFiles = errors.New("no files selected for the source distribution")
)

// Result describes a built source distribution.
type Result struct {
	// ArtifactPath is the location of the tar.gz artifact.
	ArtifactPath string
	// ManifestPath is the location of the YAML manifest.
	ManifestPath string
	// Manifest carries the checksums and metadata of the build.
	Manifest *domain.Manifest
}

// collectFiles walks the project tree and returns the sorted set of
// slash-separated relative paths to package.
func collectFiles(root string, cfg *config.Config) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(fullPath string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(root, fullPath)
		if err != nil {
			return err
		}

		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if entry.IsDir() {
			// Version control metadata and build output never ship.
			if entry.Name() == ".git" || rel == filepath.ToSlash(cfg.DistDir) {
				return fs.SkipDir
			}

			return nil
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		if matchAny(cfg.Sdist.Exclude, rel) {
			return nil
		}

		if len(cfg.Sdist.Include) > 0 && !matchAny(cfg.Sdist.Include, rel) {
			return nil
		}

		files = append(files, rel)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk project tree: %w", err)
	}

	if len(files) == 0 {
		return nil, errNoFiles
	}

	sort.Strings(files)

	return files, nil
}

// matchAny reports whether the relative path matches any of the globs.
// A pattern also matches when it names one of the path's parent
// directories or the file's base name.
func matchAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, err := path.Match(pattern, rel); err == nil && ok {
			return true
		}

		if ok, err := path.Match(pattern, path.Base(rel)); err == nil && ok {
			return true
		}

		if rel == pattern || strings.HasPrefix(rel, pattern+"/") {
			return true
		}
	}

	return false
}

// writeArchive produces the tar.gz artifact and fills per-file checksums
// into the manifest as it goes.
func writeArchive(root, artifactPath, archiveRoot string, files []string, manifest *domain.Manifest) error {
	artifact, err := os.Create(artifactPath)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}

	gzipWriter := gzip.NewWriter(artifact)
	tarWriter := tar.NewWriter(gzipWriter)

	for _, rel := range files {
		if err = addFile(tarWriter, root, archiveRoot, rel, manifest); err != nil {
			_ = tarWriter.Close()
			_ = gzipWriter.Close()
			_ = artifact.Close()

			return err
		}
	}

	if err = tarWriter.Close(); err != nil {
		_ = gzipWriter.Close()
		_ = artifact.Close()

		return fmt.Errorf("finalize archive: %w", err)
	}

	if err = gzipWriter.Close(); err != nil {
		_ = artifact.Close()

		return fmt.Errorf("finalize archive: %w", err)
	}

	if err = artifact.Close(); err != nil {
		return fmt.Errorf("finalize archive: %w", err)
	}

	return nil
}

// addFile writes a single entry with normalized metadata.
func addFile(tarWriter *tar.Writer, root, archiveRoot, rel string, manifest *domain.Manifest) error {
	fullPath := filepath.Join(root, filepath.FromSlash(rel))

	info, err := os.Stat(fullPath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", rel, err)
	}

	mode := int64(regularEntryMode)
	if info.Mode()&0o100 != 0 {
		mode = execEntryMode
	}

	//nolint:exhaustruct // Remaining header fields stay zero for determinism.
	header := &tar.Header{
		Name:    archiveRoot + "/" + rel,
		Size:    info.Size(),
		Mode:    mode,
		ModTime: sourceEpoch,
	}

	if err = tarWriter.WriteHeader(header); err != nil {
		return fmt.Errorf("write header %s: %w", rel, err)
	}

	f, err := os.Open(filepath.Clean(fullPath))
	if err != nil {
		return fmt.Errorf("open %s: %w", rel, err)
	}

	if _, err = io.Copy(tarWriter, f); err != nil {
		_ = f.Close()

		return fmt.Errorf("archive %s: %w", rel, err)
	}

	if err = f.Close(); err != nil {
		return fmt.Errorf("archive %s: %w", rel, err)
	}

	checksum, err := domain.FileChecksum(fullPath)
	if err != nil {
		return err
	}

	manifest.Files[rel] = checksum

	return nil
}
