package sdist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/relcut/internal/config"
	domain "github.com/oshokin/relcut/internal/domain/release"
	"github.com/oshokin/relcut/internal/logger"
	"github.com/oshokin/relcut/internal/service/common"
)

// Options configures the build entry point.
type Options struct {
	// ConfigPath is the release configuration file.
	ConfigPath string
}

// Run builds the source distribution described by the configuration,
// writes the manifest next to it and re-inspects the result.
func Run(ctx context.Context, opts *Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	result, err := Build(ctx, cfg)
	if err != nil {
		return err
	}

	if err = Inspect(ctx, result.ArtifactPath, result.Manifest); err != nil {
		return err
	}

	logger.InfoKV(ctx, "source distribution is ready",
		"artifact", result.ArtifactPath,
		"manifest", result.ManifestPath,
		"files", len(result.Manifest.Files),
		"size_bytes", result.Manifest.SizeBytes)

	return nil
}

// Build packages the current directory into a deterministic tar.gz and
// produces the accompanying manifest. Rebuilding an unchanged tree yields
// a byte-identical artifact.
func Build(ctx context.Context, cfg *config.Config) (*Result, error) {
	version, err := cfg.ReleaseVersion()
	if err != nil {
		return nil, err
	}

	root, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	return BuildFrom(ctx, root, cfg, version)
}

// BuildFrom is Build rooted at an explicit project directory.
func BuildFrom(ctx context.Context, root string, cfg *config.Config, version domain.Version) (*Result, error) {
	files, err := collectFiles(root, cfg)
	if err != nil {
		return nil, err
	}

	distDir := filepath.Join(root, cfg.DistDir)
	if err = os.MkdirAll(distDir, DefaultFileMode); err != nil {
		return nil, fmt.Errorf("create distribution directory: %w", err)
	}

	manifest := domain.NewManifest(cfg.Project, version)
	manifest.Artifact = domain.ArtifactName(cfg.Project, version)

	if builder, actorErr := common.DetectActor(); actorErr == nil {
		manifest.Builder = builder
	}

	archiveRoot := cfg.Project + "-" + version.String()
	artifactPath := filepath.Join(distDir, manifest.Artifact)

	logger.InfoKV(ctx, "building source distribution",
		"project", cfg.Project,
		"version", version.String(),
		"files", len(files))

	if err = writeArchive(root, artifactPath, archiveRoot, files, manifest); err != nil {
		return nil, err
	}

	info, err := os.Stat(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}

	manifest.SizeBytes = info.Size()

	manifest.Checksum, err = domain.FileChecksum(artifactPath)
	if err != nil {
		return nil, err
	}

	manifestPath := filepath.Join(distDir, domain.ManifestName(cfg.Project, version))
	if err = saveManifest(manifestPath, manifest); err != nil {
		return nil, err
	}

	return &Result{
		ArtifactPath: artifactPath,
		ManifestPath: manifestPath,
		Manifest:     manifest,
	}, nil
}

// saveManifest serializes the manifest as YAML next to the artifact.
func saveManifest(path string, manifest *domain.Manifest) error {
	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("serialize manifest: %w", err)
	}

	if err = os.WriteFile(path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// LoadManifest reads a manifest written by Build.
func LoadManifest(path string) (*domain.Manifest, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest domain.Manifest
	if err = yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	return &manifest, nil
}
