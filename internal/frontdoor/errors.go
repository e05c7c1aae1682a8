package frontdoor

import (
	"context"
	"errors"
	"net/http"

	"github.com/Daytona2026/Warmano-webseite/internal/api/odoo"
	"github.com/Daytona2026/Warmano-webseite/internal/crm"
	"github.com/Daytona2026/Warmano-webseite/internal/domain"
	"github.com/Daytona2026/Warmano-webseite/internal/server"
	"github.com/Daytona2026/Warmano-webseite/internal/storage"
)

// backendError maps an error from the backend operations to the API error
// the client sees. The backend's own message stays in the request log.
func backendError(err error) *domain.APIError {
	var (
		apiErr    *domain.APIError
		authErr   *odoo.AuthError
		transport *odoo.TransportError
		fault     *odoo.RemoteFault
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, crm.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return domain.ErrNotFound("Nicht gefunden").WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return domain.ErrUpstream("Zeitüberschreitung bei der Anfrage").
			WithCode(domain.ErrorCodeBackendTransport).
			WithStatusCode(http.StatusGatewayTimeout).
			WithCause(err)
	case errors.As(err, &authErr):
		return domain.ErrUpstream("Serverfehler").WithCode(domain.ErrorCodeBackendAuth).WithCause(err)
	case errors.As(err, &transport):
		return domain.ErrUpstream("Odoo ist derzeit nicht erreichbar").WithCode(domain.ErrorCodeBackendTransport).WithCause(err)
	case errors.As(err, &fault):
		return domain.ErrUpstream("Serverfehler").WithCode(domain.ErrorCodeBackendFault).WithCause(err)
	}
	return domain.ErrServer("Serverfehler").WithCause(err)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	server.WriteError(w, r, backendError(err))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	server.WriteJSON(w, status, payload)
}
