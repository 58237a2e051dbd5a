package sdist

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	domain "github.com/oshokin/relcut/internal/domain/release"
	"github.com/oshokin/relcut/internal/logger"
)

var (
	// ErrUnexpectedLayout is returned when the archive does not unpack
	// into a single versioned root directory.
	ErrUnexpectedLayout = errors.New("archive layout does not match the manifest")

	// ErrTreeMismatch is returned when the unpacked tree disagrees with
	// the manifest's file list or checksums.
	ErrTreeMismatch = errors.New("unpacked tree does not match the manifest")

	// errUnsafePath guards against entries escaping the extraction root.
	errUnsafePath = errors.New("archive entry path is unsafe")
)

// Inspect unpacks the artifact into a scratch directory and checks the
// result file by file against the manifest.
func Inspect(ctx context.Context, artifactPath string, manifest *domain.Manifest) error {
	scratch, err := os.MkdirTemp("", "relcut-inspect-*")
	if err != nil {
		return fmt.Errorf("create scratch directory: %w", err)
	}

	defer func() {
		if removeErr := os.RemoveAll(scratch); removeErr != nil {
			logger.WarnKV(ctx, "failed to clean up scratch directory",
				"path", scratch,
				"error", removeErr)
		}
	}()

	rootName, err := Extract(artifactPath, scratch)
	if err != nil {
		return err
	}

	wantRoot := manifest.Project + "-" + manifest.VersionNumber
	if rootName != wantRoot {
		return fmt.Errorf("%w: unpacked into %q, expected %q", ErrUnexpectedLayout, rootName, wantRoot)
	}

	return VerifyTree(filepath.Join(scratch, rootName), manifest)
}

// Extract unpacks a tar.gz artifact into destDir and returns the name of
// the single top-level directory it contained.
func Extract(artifactPath, destDir string) (string, error) {
	artifact, err := os.Open(filepath.Clean(artifactPath))
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer artifact.Close()

	gzipReader, err := gzip.NewReader(artifact)
	if err != nil {
		return "", fmt.Errorf("read artifact: %w", err)
	}
	defer gzipReader.Close()

	var rootName string

	tarReader := tar.NewReader(gzipReader)

	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("read archive entry: %w", err)
		}

		name := filepath.ToSlash(header.Name)
		if !isSafePath(name) {
			return "", fmt.Errorf("%w: %s", errUnsafePath, header.Name)
		}

		top, _, found := strings.Cut(name, "/")
		if !found && header.Typeflag != tar.TypeDir {
			return "", fmt.Errorf("%w: entry %q outside a root directory", ErrUnexpectedLayout, header.Name)
		}

		switch rootName {
		case "":
			rootName = top
		case top:
		default:
			return "", fmt.Errorf("%w: multiple root directories %q and %q", ErrUnexpectedLayout, rootName, top)
		}

		if err = writeEntry(destDir, name, header, tarReader); err != nil {
			return "", err
		}
	}

	if rootName == "" {
		return "", fmt.Errorf("%w: archive is empty", ErrUnexpectedLayout)
	}

	return rootName, nil
}

// writeEntry materializes a single archive entry under destDir.
func writeEntry(destDir, name string, header *tar.Header, contents io.Reader) error {
	target := filepath.Join(destDir, filepath.FromSlash(name))

	switch header.Typeflag {
	case tar.TypeDir:
		if err := os.MkdirAll(target, DefaultFileMode); err != nil {
			return fmt.Errorf("create directory %s: %w", name, err)
		}

		return nil
	case tar.TypeReg:
	default:
		return fmt.Errorf("%w: unsupported entry type for %s", ErrUnexpectedLayout, name)
	}

	if err := os.MkdirAll(filepath.Dir(target), DefaultFileMode); err != nil {
		return fmt.Errorf("create directory for %s: %w", name, err)
	}

	mode := fs.FileMode(header.Mode & 0o777) //nolint:gosec // Mode is masked to permission bits.

	file, err := os.OpenFile(filepath.Clean(target), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}

	if _, err = io.Copy(file, contents); err != nil { //nolint:gosec // Artifacts are built locally or checksum-verified first.
		_ = file.Close()

		return fmt.Errorf("unpack %s: %w", name, err)
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("unpack %s: %w", name, err)
	}

	return nil
}

// isSafePath rejects absolute paths and parent-directory traversal.
func isSafePath(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") {
		return false
	}

	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}

	return true
}

// VerifyTree compares an unpacked tree against the manifest: every listed
// file must exist with a matching checksum and no extra files may appear.
func VerifyTree(root string, manifest *domain.Manifest) error {
	seen := make(map[string]struct{}, len(manifest.Files))

	err := filepath.WalkDir(root, func(fullPath string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if entry.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, fullPath)
		if err != nil {
			return err
		}

		rel = filepath.ToSlash(rel)

		want, ok := manifest.Files[rel]
		if !ok {
			return fmt.Errorf("%w: unexpected file %s", ErrTreeMismatch, rel)
		}

		got, err := domain.FileChecksum(fullPath)
		if err != nil {
			return err
		}

		if got != want {
			return fmt.Errorf("%w: checksum differs for %s", ErrTreeMismatch, rel)
		}

		seen[rel] = struct{}{}

		return nil
	})
	if err != nil {
		return err
	}

	for rel := range manifest.Files {
		if _, ok := seen[rel]; !ok {
			return fmt.Errorf("%w: missing file %s", ErrTreeMismatch, rel)
		}
	}

	return nil
}
