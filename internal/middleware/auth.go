package middleware

import (
	"net/http"
	"strings"

	"cumulus/internal/auth"
	"cumulus/internal/domain/models"
	"cumulus/internal/httputil"
)

// Auth resolves the caller from the Authorization header. Requests
// without a bearer token proceed as guest; guests can still reach
// entities with general access. A token that is present but invalid
// is rejected outright.
func Auth(verifier auth.TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, httputil.WithCaller(r, models.GuestCaller()))
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				httputil.RespondError(w, http.StatusUnauthorized, "malformed authorization header")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				httputil.RespondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			next.ServeHTTP(w, httputil.WithCaller(r, models.User(claims.Subject)))
		})
	}
}
