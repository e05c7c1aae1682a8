package frontdoor

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Daytona2026/Warmano-webseite/internal/booking"
	"github.com/Daytona2026/Warmano-webseite/internal/domain"
	"github.com/Daytona2026/Warmano-webseite/internal/server"
)

// BookingResponse is the body of a successful booking.
type BookingResponse struct {
	Success        bool                  `json:"success"`
	Message        string                `json:"message"`
	RunID          string                `json:"runId"`
	PartnerID      int64                 `json:"partnerId"`
	LeadID         int64                 `json:"leadId"`
	SignURL        string                `json:"signUrl,omitempty"`
	AppointmentURL string                `json:"appointmentUrl,omitempty"`
	PortalURL      string                `json:"portalUrl,omitempty"`
	OrderName      string                `json:"orderName,omitempty"`
	Degradations   []booking.Degradation `json:"degradations,omitempty"`
}

// HandleBooking validates the booking form and runs the booking. Invalid
// input is a 400. A failed critical step is mapped like any backend error;
// the step's own error text only goes to the request log.
func (h *Handler) HandleBooking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req booking.Request
	if err := decodeJSON(w, r, &req); err != nil {
		server.WriteError(w, r, err)
		return
	}

	validated, err := req.Validate()
	if err != nil {
		var verr *booking.ValidationError
		if errors.As(err, &verr) {
			server.WriteError(w, r, domain.ErrInvalidRequest(verr.Message).
				WithCode(validationCode(verr.Problem)).
				WithParam(verr.Field).
				WithCause(err))
			return
		}
		server.WriteError(w, r, domain.ErrInvalidRequest("Ungültige Anfrage").WithCause(err))
		return
	}

	out := h.booker.Process(ctx, validated)
	server.AddLogField(ctx, "run_id", out.RunID)
	server.AddLogField(ctx, "package", string(validated.Tier))

	if !out.Success {
		err := out.Err
		if err == nil {
			err = errors.New(out.Error)
		}
		server.AddLogField(ctx, "failed_step", failedStep(err))
		writeError(w, r, err)
		return
	}

	if len(out.Degradations) > 0 {
		h.logger.InfoContext(ctx, "booking completed with degradations",
			slog.String("run_id", out.RunID),
			slog.Int("degradations", len(out.Degradations)),
		)
	}

	writeJSON(w, http.StatusOK, BookingResponse{
		Success:        true,
		Message:        out.Message(),
		RunID:          out.RunID,
		PartnerID:      out.CustomerID,
		LeadID:         out.OpportunityID,
		SignURL:        out.SigningURL,
		AppointmentURL: out.AppointmentURL,
		PortalURL:      out.PortalURL,
		OrderName:      out.OrderName,
		Degradations:   out.Degradations,
	})
}

// HandleConnectionTest authenticates against the backend and reports the
// uid it was given.
func (h *Handler) HandleConnectionTest(w http.ResponseWriter, r *http.Request) {
	uid, err := h.pinger.Ping(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Odoo-Verbindung erfolgreich",
		"uid":     uid,
	})
}

func failedStep(err error) string {
	var stepErr *booking.StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step
	}
	return ""
}

func validationCode(p booking.Problem) domain.ErrorCode {
	switch p {
	case booking.ProblemBadEmail:
		return domain.ErrorCodeInvalidEmail
	case booking.ProblemBadChoice:
		return domain.ErrorCodeInvalidOption
	default:
		return domain.ErrorCodeRequiredField
	}
}
