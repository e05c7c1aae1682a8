package odoo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Daytona2026/Warmano-webseite/internal/codec/xmlrpc"
)

// TransportError reports an HTTP-level failure: the request could not be
// sent, the server answered with a non-2xx status, or the body was not a
// readable XML-RPC response.
type TransportError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("odoo transport %s: HTTP %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("odoo transport %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError is returned when authenticate yields no usable uid.
type AuthError struct {
	Username string
	Err      error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("odoo authentication failed for %q: %v", e.Username, e.Err)
	}
	return fmt.Sprintf("odoo authentication failed for %q", e.Username)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RemoteFault carries a fault returned by the backend.
type RemoteFault struct {
	Fault *xmlrpc.Fault
}

func (e *RemoteFault) Error() string { return "odoo fault: " + e.Fault.Message }

func (e *RemoteFault) Unwrap() error { return e.Fault }

// sessionInvalid reports whether the fault means the cached uid is no
// longer accepted.
func (e *RemoteFault) sessionInvalid() bool {
	msg := e.Fault.Message
	return strings.Contains(msg, "AccessDenied") ||
		strings.Contains(msg, "Access Denied") ||
		strings.Contains(msg, "Session expired")
}

// RemoteError wraps every failure of an execute_kw call with the model and
// method that were being invoked.
type RemoteError struct {
	Model  string
	Method string
	Err    error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("odoo %s.%s: %v", e.Model, e.Method, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// outcome classifies an error for metrics labels.
func outcome(err error) string {
	var (
		fault *RemoteFault
		auth  *AuthError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &fault):
		return "fault"
	case errors.As(err, &auth):
		return "auth"
	default:
		return "transport"
	}
}
