package handler

import (
	"io"
	"log/slog"
	"net/http"

	"cumulus/internal/domain"
	"cumulus/internal/domain/services"
	"cumulus/internal/httputil"
)

// ListingHandler handles read-only listing and content requests
type ListingHandler struct {
	listing services.ListingService
	store   services.ContentStore
	logger  *slog.Logger
}

// NewListingHandler creates a new listing handler
func NewListingHandler(listing services.ListingService, store services.ContentStore, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{listing: listing, store: store, logger: logger}
}

// SharedWithMe lists entities shared with the caller
// GET /api/shared-with-me?sort=title&descending=true&all=true
func (h *ListingHandler) SharedWithMe(w http.ResponseWriter, r *http.Request) {
	caller := httputil.GetCaller(r)

	opts := services.SharedWithMeOptions{
		SortField:  r.URL.Query().Get("sort"),
		Descending: r.URL.Query().Get("descending") == "true",
		IncludeAll: r.URL.Query().Get("all") == "true",
	}

	entities, err := h.listing.SharedWithMe(r.Context(), caller, opts)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, entities)
}

// AllMyEntities lists owned and shared entities combined
// GET /api/entities
func (h *ListingHandler) AllMyEntities(w http.ResponseWriter, r *http.Request) {
	caller := httputil.GetCaller(r)

	entities, err := h.listing.AllMyEntities(r.Context(), caller)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, entities)
}

// GetFile returns a file entity with the caller's access flags
// GET /api/files/{id}
func (h *ListingHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	caller := httputil.GetCaller(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	result, err := h.listing.FileWithPermissions(r.Context(), caller, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// GetDocument returns a document body with the caller's access flags
// GET /api/documents/{id}
func (h *ListingHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	caller := httputil.GetCaller(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	result, err := h.listing.DocumentWithPermissions(r.Context(), caller, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// DownloadFile streams a file's byte content
// GET /api/files/{id}/content
func (h *ListingHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	caller := httputil.GetCaller(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	result, err := h.listing.FileWithPermissions(r.Context(), caller, id)
	if err != nil {
		handleError(w, err)
		return
	}
	entity := result.Entity
	if !entity.AllowDownload {
		handleError(w, domain.ErrPermissionDenied)
		return
	}
	if !entity.HasStorage() {
		httputil.RespondError(w, http.StatusBadRequest, "entity has no byte content")
		return
	}

	content, err := h.store.Open(r.Context(), *entity.StorageKey)
	if err != nil {
		handleError(w, err)
		return
	}
	defer content.Close()

	w.Header().Set("Content-Type", entity.Mime())
	w.Header().Set("Content-Disposition", `attachment; filename="`+entity.Title+`"`)
	if _, err := io.Copy(w, content); err != nil {
		h.logger.Warn("download aborted", "entity_id", id, "error", err)
	}
}

// HealthCheck reports liveness
// GET /health
func (h *ListingHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
