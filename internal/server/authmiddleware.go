package server

import (
	"net/http"

	"github.com/Daytona2026/Warmano-webseite/internal/auth"
	"github.com/Daytona2026/Warmano-webseite/internal/domain"
)

// AdminAuthMiddleware guards operator routes with the admin API key. With a
// nil authenticator every request is rejected, so admin routes stay closed
// unless a key is configured.
func AdminAuthMiddleware(authenticator *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey, err := auth.ExtractAPIKey(r)
			if err != nil {
				WriteError(w, r, domain.ErrAuthentication("Missing API key").WithCause(err))
				return
			}

			if err := authenticator.ValidateAPIKey(apiKey); err != nil {
				WriteError(w, r, domain.ErrAuthentication("Invalid API key").
					WithCode(domain.ErrorCodeInvalidAPIKey).
					WithCause(err))
				return
			}

			AddLogField(r.Context(), "auth", "admin")
			next.ServeHTTP(w, r)
		})
	}
}
