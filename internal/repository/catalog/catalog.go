package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	// Driver registration for database/sql.
	_ "modernc.org/sqlite"

	domain "github.com/oshokin/relcut/internal/domain/release"
)

//go:embed schema.sql
var schemaSQL string

var (
	// ErrNotFound is returned when a project or release does not exist.
	ErrNotFound = errors.New("release not found")
	// ErrDuplicateVersion is returned when a version is uploaded twice.
	ErrDuplicateVersion = errors.New("release version already exists")
)

// Repository is the sqlite-backed release catalog of the index server.
type Repository struct {
	// db is the underlying sqlite handle.
	db *sql.DB
}

// Open ensures the database directory exists, opens the sqlite database
// and applies the schema.
func Open(path string) (*Repository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create catalog dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	if _, err = db.Exec(schemaSQL); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("apply catalog schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close releases the underlying database handle.
func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}

	return r.db.Close()
}

// SaveRelease records a newly accepted release. The project row is
// created on first use. Re-uploading an existing version is rejected.
func (r *Repository) SaveRelease(ctx context.Context, rel *domain.Release) error {
	trx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog tx: %w", err)
	}

	defer func() {
		_ = trx.Rollback()
	}()

	projectID, err := ensureProject(ctx, trx, rel.Project)
	if err != nil {
		return err
	}

	var existing int

	row := trx.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM releases WHERE project_id = ? AND version = ?",
		projectID, rel.Version.String())
	if err = row.Scan(&existing); err != nil {
		return fmt.Errorf("check existing release: %w", err)
	}

	if existing > 0 {
		return fmt.Errorf("%s %s: %w", rel.Project, rel.Version, ErrDuplicateVersion)
	}

	uploadedAt := rel.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now().UTC()
	}

	_, err = trx.ExecContext(ctx, `INSERT INTO releases
		(project_id, version, artifact, checksum, size_bytes, uploaded_at, yanked)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		projectID, rel.Version.String(), rel.Artifact, rel.Checksum,
		rel.SizeBytes, uploadedAt.Format(time.RFC3339Nano), boolToInt(rel.Yanked))
	if err != nil {
		return fmt.Errorf("insert release: %w", err)
	}

	return trx.Commit()
}

// ListReleases returns every release of a project ordered oldest first.
func (r *Repository) ListReleases(ctx context.Context, project string) ([]*domain.Release, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT r.version, r.artifact, r.checksum, r.size_bytes, r.uploaded_at, r.yanked
		FROM releases r JOIN projects p ON p.id = r.project_id
		WHERE p.name = ?`, project)
	if err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var releases []*domain.Release

	for rows.Next() {
		rel, err := scanRelease(rows, project)
		if err != nil {
			return nil, err
		}

		releases = append(releases, rel)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("list releases: %w", err)
	}

	// Semantic ordering cannot be expressed in SQL; sort in memory.
	sort.Slice(releases, func(i, j int) bool {
		return releases[i].Version.Less(releases[j].Version)
	})

	return releases, nil
}

// LatestRelease returns the newest release of the project by semantic version.
func (r *Repository) LatestRelease(ctx context.Context, project string) (*domain.Release, error) {
	releases, err := r.ListReleases(ctx, project)
	if err != nil {
		return nil, err
	}

	if len(releases) == 0 {
		return nil, fmt.Errorf("%s: %w", project, ErrNotFound)
	}

	return releases[len(releases)-1], nil
}

// FindByArtifact resolves a release row by its artifact filename.
func (r *Repository) FindByArtifact(ctx context.Context, project, artifact string) (*domain.Release, error) {
	releases, err := r.ListReleases(ctx, project)
	if err != nil {
		return nil, err
	}

	for _, rel := range releases {
		if rel.Artifact == artifact {
			return rel, nil
		}
	}

	return nil, fmt.Errorf("%s/%s: %w", project, artifact, ErrNotFound)
}

// SetYanked flips the yanked flag of a release. Yanked releases stay
// downloadable but are marked withdrawn in listings.
func (r *Repository) SetYanked(ctx context.Context, project string, version domain.Version, yanked bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE releases SET yanked = ?
		WHERE version = ? AND project_id IN (SELECT id FROM projects WHERE name = ?)`,
		boolToInt(yanked), version.String(), project)
	if err != nil {
		return fmt.Errorf("set yanked: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set yanked: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("%s %s: %w", project, version, ErrNotFound)
	}

	return nil
}

// DeleteRelease removes a release row; the caller removes the artifact bytes.
func (r *Repository) DeleteRelease(ctx context.Context, project string, version domain.Version) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM releases
		WHERE version = ? AND project_id IN (SELECT id FROM projects WHERE name = ?)`,
		version.String(), project)
	if err != nil {
		return fmt.Errorf("delete release: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete release: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("%s %s: %w", project, version, ErrNotFound)
	}

	return nil
}

// ListProjects returns the names of all known projects.
func (r *Repository) ListProjects(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT name FROM projects ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var names []string

	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}

		names = append(names, name)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	return names, nil
}

// ensureProject returns the project id, creating the row when missing.
func ensureProject(ctx context.Context, trx *sql.Tx, name string) (int64, error) {
	var id int64

	row := trx.QueryRowContext(ctx, "SELECT id FROM projects WHERE name = ?", name)

	err := row.Scan(&id)
	if err == nil {
		return id, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("find project: %w", err)
	}

	result, err := trx.ExecContext(ctx, "INSERT INTO projects (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("insert project: %w", err)
	}

	id, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert project: %w", err)
	}

	return id, nil
}

// scanRelease reads one release row.
func scanRelease(rows *sql.Rows, project string) (*domain.Release, error) {
	var (
		versionText  string
		artifact     string
		checksum     string
		sizeBytes    int64
		uploadedText string
		yanked       int
	)

	if err := rows.Scan(&versionText, &artifact, &checksum, &sizeBytes, &uploadedText, &yanked); err != nil {
		return nil, fmt.Errorf("scan release: %w", err)
	}

	version, err := domain.ParseVersion(versionText)
	if err != nil {
		return nil, fmt.Errorf("catalog row %q: %w", versionText, err)
	}

	uploadedAt, err := time.Parse(time.RFC3339Nano, uploadedText)
	if err != nil {
		return nil, fmt.Errorf("catalog row %q: %w", uploadedText, err)
	}

	return &domain.Release{
		Project:    project,
		Version:    version,
		Artifact:   artifact,
		Checksum:   checksum,
		SizeBytes:  sizeBytes,
		UploadedAt: uploadedAt,
		Yanked:     yanked != 0,
	}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
