package index

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	domain "github.com/oshokin/relcut/internal/domain/release"
	"github.com/oshokin/relcut/internal/logger"
	"github.com/oshokin/relcut/internal/repository/catalog"
)

// Service abstracts the business operations the transport layer depends on.
type Service interface {
	ListReleases(ctx context.Context, project string) ([]*domain.Release, error)
	OpenFile(ctx context.Context, project, filename string) (io.ReadCloser, int64, error)
	Accept(ctx context.Context, project, filename string, contents io.Reader) (*domain.Release, error)
	Yank(ctx context.Context, project, version string) error
	Prune(ctx context.Context, project string) ([]domain.Version, error)
}

// Server implements the package-index HTTP API.
type Server struct {
	// service provides the business logic for index operations.
	service Service
}

// NewServer wires the provided service implementation into an HTTP handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// Handler returns the routed HTTP handler with request logging attached.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /projects/{project}/", s.handleListing)
	mux.HandleFunc("GET /projects/{project}/{file}", s.handleDownload)
	mux.HandleFunc("PUT /projects/{project}/{file}", s.handleUpload)
	mux.HandleFunc("POST /projects/{project}/prune", s.handlePrune)
	mux.HandleFunc("POST /projects/{project}/{version}/yank", s.handleYank)

	return withRequestLogging(mux)
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// handleListing returns every release of a project as JSON.
func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	project := r.PathValue("project")

	releases, err := s.service.ListReleases(r.Context(), project)
	if err != nil {
		writeError(w, r, err)
		return
	}

	listing := ProjectListing{
		Project:  project,
		Releases: make([]ReleaseInfo, 0, len(releases)),
	}

	for _, rel := range releases {
		listing.Releases = append(listing.Releases, toReleaseInfo(rel))
	}

	writeJSON(w, r, http.StatusOK, listing)
}

// handleDownload streams a stored artifact or manifest.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	project := r.PathValue("project")
	filename := r.PathValue("file")

	contents, size, err := s.service.OpenFile(r.Context(), project, filename)
	if err != nil {
		writeError(w, r, err)
		return
	}

	defer func() {
		_ = contents.Close()
	}()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))

	if _, err = io.Copy(w, contents); err != nil {
		logger.Warnf(r.Context(), "Download aborted for %s/%s: %v", project, filename, err)
	}
}

// handleUpload admits a manifest or artifact upload.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	project := r.PathValue("project")
	filename := r.PathValue("file")

	rel, err := s.service.Accept(r.Context(), project, filename, r.Body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result := UploadResult{Accepted: filename}
	if rel != nil {
		result.Version = rel.Version.String()
	}

	writeJSON(w, r, http.StatusCreated, result)
}

// handleYank marks a release withdrawn from installation.
func (s *Server) handleYank(w http.ResponseWriter, r *http.Request) {
	project := r.PathValue("project")
	version := r.PathValue("version")

	if err := s.service.Yank(r.Context(), project, version); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handlePrune removes superseded releases past the grace period.
func (s *Server) handlePrune(w http.ResponseWriter, r *http.Request) {
	project := r.PathValue("project")

	removed, err := s.service.Prune(r.Context(), project)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result := PruneResult{Removed: make([]string, 0, len(removed))}
	for _, version := range removed {
		result.Removed = append(result.Removed, version.String())
	}

	writeJSON(w, r, http.StatusOK, result)
}

// writeError maps domain failures to HTTP statuses and writes the JSON body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, catalog.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, catalog.ErrDuplicateVersion):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrChecksumMismatch),
		errors.Is(err, domain.ErrManifestMissing):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		logger.ErrorKV(r.Context(), "Request failed", "error", err)
	}

	writeJSON(w, r, status, ErrorResponse{Error: err.Error()})
}

// writeJSON serializes the payload with the given status code.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warnf(r.Context(), "Unable to write response: %v", err)
	}
}
