package release

import (
	"crypto"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	// Ensure SHA512 is available for checksum calculation.
	_ "crypto/sha512"
)

// DefaultChecksumFunction is used to calculate artifact and file hashes.
const DefaultChecksumFunction crypto.Hash = crypto.SHA512

var (
	// errHashUnavailable is returned when the checksum function is not linked in.
	errHashUnavailable = errors.New("hash function unavailable")
	// ErrChecksumMismatch is returned when artifact bytes disagree with the manifest.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrManifestMissing is returned when an artifact arrives without its manifest.
	ErrManifestMissing = errors.New("manifest missing for artifact")
)

// ComputeChecksum hashes the reader contents with DefaultChecksumFunction
// and returns the base64-encoded digest.
func ComputeChecksum(r io.Reader) (string, error) {
	if !DefaultChecksumFunction.Available() {
		return "", fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := DefaultChecksumFunction.New()
	if _, err := io.Copy(hasher, r); err != nil {
		return "", fmt.Errorf("calculate checksum: %w", err)
	}

	return base64.StdEncoding.EncodeToString(hasher.Sum(nil)), nil
}

// FileChecksum returns the base64-encoded checksum of a file on disk.
func FileChecksum(path string) (string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", err
	}

	defer func() {
		_ = f.Close()
	}()

	return ComputeChecksum(f)
}

// DecodeChecksum converts a base64 checksum back to raw digest bytes.
func DecodeChecksum(encoded string) ([]byte, error) {
	digest, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode checksum: %w", err)
	}

	return digest, nil
}
