package handler

import (
	"errors"
	"net/http"

	"cumulus/internal/domain"
	"cumulus/internal/httputil"
)

// handleError converts domain errors to HTTP responses. A name
// conflict additionally carries the suggested alternate title as a
// top-level field so clients can offer a one-click retry.
func handleError(w http.ResponseWriter, err error) {
	status := domain.StatusCode(err)
	if status == http.StatusInternalServerError {
		httputil.RespondError(w, status, "internal server error")
		return
	}

	var conflict *domain.NameConflictError
	if errors.As(err, &conflict) {
		httputil.RespondErrorWithExtras(w, status, conflict.Error(), map[string]interface{}{
			"title":      conflict.Title,
			"suggestion": conflict.Suggestion,
		})
		return
	}

	httputil.RespondError(w, status, err.Error())
}

// pathID extracts the {id} path value, rejecting empty values.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "entity ID is required")
		return "", false
	}
	return id, true
}
