package handler

import (
	"log/slog"
	"net/http"

	"cumulus/internal/domain"
	"cumulus/internal/domain/services"
	"cumulus/internal/httputil"
)

// HomeHandler resolves the caller's home container
type HomeHandler struct {
	home   services.HomeResolver
	logger *slog.Logger
}

// NewHomeHandler creates a new home handler
func NewHomeHandler(home services.HomeResolver, logger *slog.Logger) *HomeHandler {
	return &HomeHandler{home: home, logger: logger}
}

// GetHome returns (creating if needed) the caller's root container
// GET /api/home
func (h *HomeHandler) GetHome(w http.ResponseWriter, r *http.Request) {
	caller := httputil.GetCaller(r)
	if caller.Guest {
		handleError(w, domain.ErrPermissionDenied)
		return
	}

	home, err := h.home.GetOrCreate(r.Context(), caller.UserID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, home)
}
