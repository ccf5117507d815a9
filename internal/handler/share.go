package handler

import (
	"log/slog"
	"net/http"

	"cumulus/internal/domain/models"
	"cumulus/internal/domain/services"
	"cumulus/internal/httputil"
)

// ShareHandler handles sharing HTTP requests
type ShareHandler struct {
	shares services.ShareManager
	access services.AccessResolver
	logger *slog.Logger
}

// NewShareHandler creates a new share handler
func NewShareHandler(shares services.ShareManager, access services.AccessResolver, logger *slog.Logger) *ShareHandler {
	return &ShareHandler{shares: shares, access: access, logger: logger}
}

// Share grants or updates a grantee's capabilities on an entity
// POST /api/entities/{id}/share
func (h *ShareHandler) Share(w http.ResponseWriter, r *http.Request) {
	caller := httputil.GetCaller(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Grantee string                  `json:"grantee"`
		Flags   models.CapabilityUpdate `json:"flags"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	perm, err := h.shares.Share(r.Context(), caller, id, req.Grantee, req.Flags)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, perm)
}

// Unshare revokes a grantee's record on the entity and its subtree
// POST /api/entities/{id}/unshare
func (h *ShareHandler) Unshare(w http.ResponseWriter, r *http.Request) {
	caller := httputil.GetCaller(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Grantee string `json:"grantee"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.shares.Unshare(r.Context(), caller, id, req.Grantee); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetGeneralAccess grants or revokes the everyone record
// PUT /api/entities/{id}/general-access
func (h *ShareHandler) SetGeneralAccess(w http.ResponseWriter, r *http.Request) {
	caller := httputil.GetCaller(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req services.GeneralAccessRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.shares.SetGeneralAccess(r.Context(), caller, id, &req); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SharedWith lists user grants on an entity
// GET /api/entities/{id}/shared-with
func (h *ShareHandler) SharedWith(w http.ResponseWriter, r *http.Request) {
	caller := httputil.GetCaller(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	entries, err := h.shares.SharedWith(r.Context(), caller, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, entries)
}

// GetUserAccess returns the caller's {read, write} on the entity
// GET /api/entities/{id}/access
func (h *ShareHandler) GetUserAccess(w http.ResponseWriter, r *http.Request) {
	caller := httputil.GetCaller(r)
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	access, err := h.access.GetUserAccess(r.Context(), id, caller)
	if err != nil {
		handleError(w, err)
		return
	}
	if access == nil {
		access = &models.Access{}
	}

	httputil.RespondJSON(w, http.StatusOK, access)
}

// GetGeneralAccess returns the everyone record's {read, write}
// GET /api/entities/{id}/general-access
func (h *ShareHandler) GetGeneralAccess(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	access, err := h.access.GetGeneralAccess(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	if access == nil {
		access = &models.Access{}
	}

	httputil.RespondJSON(w, http.StatusOK, access)
}
