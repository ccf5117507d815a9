package httputil

import (
	"context"
	"net/http"

	"cumulus/internal/domain/models"
)

// Context key type to avoid collisions
type contextKey string

const callerKey contextKey = "caller"

// WithCaller attaches the resolved caller to the request context.
func WithCaller(r *http.Request, caller models.Caller) *http.Request {
	ctx := context.WithValue(r.Context(), callerKey, caller)
	return r.WithContext(ctx)
}

// GetCaller retrieves the caller from the request context. Requests
// that never passed the auth middleware resolve as guest.
func GetCaller(r *http.Request) models.Caller {
	caller, ok := r.Context().Value(callerKey).(models.Caller)
	if !ok {
		return models.GuestCaller()
	}
	return caller
}
