package server

import (
	"encoding/json"
	"net/http"

	"github.com/Daytona2026/Warmano-webseite/internal/domain"
)

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Success bool             `json:"success"`
	Error   string           `json:"error"`
	Code    domain.ErrorCode `json:"code,omitempty"`
	Field   string           `json:"field,omitempty"`
}

// WriteJSON writes payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// WriteError maps err to its canonical API error and writes it. The full
// error goes to the request log; the client only sees the API message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	AddError(r.Context(), err)
	apiErr := domain.ToCanonicalError(err)
	WriteJSON(w, apiErr.HTTPStatusCode(), ErrorBody{
		Error: apiErr.Message,
		Code:  apiErr.Code,
		Field: apiErr.Param,
	})
}
