// internal/api/handler.go
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"

	"repo-dashboard/internal/model"
	"repo-dashboard/internal/stats"
)

// DataSource is the read side of the latest snapshot.
type DataSource interface {
	GetRepositories(ctx context.Context) []model.RepositorySnapshot
	GetReleases(ctx context.Context) []model.ReleaseRecord
	GetWorkflowRuns(ctx context.Context) []model.WorkflowRunRecord
	GetPackages(ctx context.Context) []model.PackageManifestSnapshot
	GetMetadata(ctx context.Context) model.Metadata
	ClearCache()
}

// Handler is the container for API dependencies.
type Handler struct {
	data    DataSource
	tracked []model.TrackedPackage
	clock   clockwork.Clock
	logger  *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(data DataSource, tracked []model.TrackedPackage, clock clockwork.Clock, logger *slog.Logger) http.Handler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	h := &Handler{
		data:    data,
		tracked: tracked,
		clock:   clock,
		logger:  logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger) // Chi's default logger
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// API Routes
	r.Get("/health", h.healthCheck)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/metadata", h.getMetadata)
		r.Get("/repos", h.getRepositories)
		r.Get("/repos/{owner}/{name}/releases", h.getRepositoryReleases)
		r.Get("/releases", h.getReleases)
		r.Get("/cicd", h.getWorkflows)
		r.Get("/packages", h.getPackages)
		r.Post("/cache/clear", h.clearCache)
	})

	return r
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /v1/metadata
func (h *Handler) getMetadata(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.data.GetMetadata(r.Context()))
}

// GET /v1/repos
func (h *Handler) getRepositories(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.data.GetRepositories(r.Context()))
}

// getReleases returns the release summary of every repository.
// GET /v1/releases
func (h *Handler) getReleases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summaries := stats.SummarizeReleases(h.data.GetRepositories(ctx), h.data.GetReleases(ctx), h.clock.Now())
	respondWithJSON(w, http.StatusOK, summaries)
}

// getRepositoryReleases returns the release summary of a single repository.
// GET /v1/repos/{owner}/{name}/releases
func (h *Handler) getRepositoryReleases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fullName := chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "name")

	var repo *model.RepositorySnapshot
	repos := h.data.GetRepositories(ctx)
	for i := range repos {
		if strings.EqualFold(repos[i].FullName, fullName) {
			repo = &repos[i]
			break
		}
	}
	if repo == nil {
		respondWithError(w, http.StatusNotFound, "Repository not found")
		return
	}

	summaries := stats.SummarizeReleases([]model.RepositorySnapshot{*repo}, h.data.GetReleases(ctx), h.clock.Now())
	respondWithJSON(w, http.StatusOK, summaries[0])
}

// getWorkflows returns CI statistics for repositories with recorded runs.
// GET /v1/cicd
func (h *Handler) getWorkflows(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summaries := stats.SummarizeWorkflows(h.data.GetRepositories(ctx), h.data.GetWorkflowRuns(ctx), h.clock.Now())
	respondWithJSON(w, http.StatusOK, summaries)
}

// GET /v1/packages
func (h *Handler) getPackages(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, stats.BuildPackageMatrix(h.tracked, h.data.GetPackages(r.Context())))
}

// clearCache forces the next reads to go back to the snapshot store.
// POST /v1/cache/clear
func (h *Handler) clearCache(w http.ResponseWriter, r *http.Request) {
	h.data.ClearCache()
	h.logger.Info("Read cache cleared", "request_id", middleware.GetReqID(r.Context()))
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
