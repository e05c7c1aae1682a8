package frontdoor

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Daytona2026/Warmano-webseite/internal/crm"
	"github.com/Daytona2026/Warmano-webseite/internal/domain"
	"github.com/Daytona2026/Warmano-webseite/internal/server"
)

var errAllFieldsRequired = domain.ErrInvalidRequest("Alle Felder sind erforderlich").
	WithCode(domain.ErrorCodeRequiredField)

// emailParam returns the email query parameter or writes a 400.
func emailParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		server.WriteError(w, r, domain.ErrInvalidRequest("E-Mail erforderlich").
			WithCode(domain.ErrorCodeRequiredField).
			WithParam("email"))
		return "", false
	}
	return email, true
}

// HandleInvoices lists the customer's invoices.
func (h *Handler) HandleInvoices(w http.ResponseWriter, r *http.Request) {
	email, ok := emailParam(w, r)
	if !ok {
		return
	}
	invoices, err := h.crm.ListInvoices(r.Context(), email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "invoices": invoices})
}

type ticketRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	Priority string `json:"priority"`
}

// HandleCreateTicket files a support ticket.
func (h *Handler) HandleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var req ticketRequest
	if err := decodeJSON(w, r, &req); err != nil {
		server.WriteError(w, r, err)
		return
	}
	if blank(req.Email, req.Name, req.Subject, req.Message) {
		server.WriteError(w, r, errAllFieldsRequired)
		return
	}
	priority, err := crm.ParsePriority(req.Priority)
	if err != nil {
		server.WriteError(w, r, domain.ErrInvalidRequest("Ungültige Priorität").
			WithCode(domain.ErrorCodeInvalidOption).
			WithParam("priority").
			WithCause(err))
		return
	}

	ticket, err := h.crm.CreateSupportTicket(r.Context(), crm.TicketInput{
		Email:       strings.TrimSpace(req.Email),
		Name:        strings.TrimSpace(req.Name),
		Subject:     strings.TrimSpace(req.Subject),
		Description: req.Message,
		Priority:    priority,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"ticketId":     ticket.ID,
		"ticketNumber": ticket.Number,
		"message":      fmt.Sprintf("Ticket %s wurde erstellt. Wir melden uns in Kürze.", ticket.Number),
	})
}

// HandleListTickets lists the customer's tickets.
func (h *Handler) HandleListTickets(w http.ResponseWriter, r *http.Request) {
	email, ok := emailParam(w, r)
	if !ok {
		return
	}
	tickets, err := h.crm.ListSupportTickets(r.Context(), email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "tickets": tickets})
}

type referralRequest struct {
	ReferrerEmail string `json:"referrerEmail"`
	ReferredName  string `json:"referredName"`
	ReferredEmail string `json:"referredEmail"`
	ReferredPhone string `json:"referredPhone"`
}

// HandleCreateReferral records a referral as a lead.
func (h *Handler) HandleCreateReferral(w http.ResponseWriter, r *http.Request) {
	var req referralRequest
	if err := decodeJSON(w, r, &req); err != nil {
		server.WriteError(w, r, err)
		return
	}
	if blank(req.ReferrerEmail, req.ReferredName, req.ReferredEmail) {
		server.WriteError(w, r, errAllFieldsRequired)
		return
	}

	lead, err := h.crm.CreateReferralLead(r.Context(), crm.ReferralInput{
		ReferrerEmail: strings.TrimSpace(req.ReferrerEmail),
		Name:          strings.TrimSpace(req.ReferredName),
		Email:         strings.TrimSpace(req.ReferredEmail),
		Phone:         strings.TrimSpace(req.ReferredPhone),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"leadId":  lead.LeadID,
		"message": "Empfehlung erfolgreich übermittelt! Vielen Dank.",
	})
}

// HandleReferralStats returns the customer's referral counts and code.
func (h *Handler) HandleReferralStats(w http.ResponseWriter, r *http.Request) {
	email, ok := emailParam(w, r)
	if !ok {
		return
	}
	stats, err := h.crm.GetReferralStats(r.Context(), email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})
}

// HandleLiveChat returns the live chat channel for the website widget.
func (h *Handler) HandleLiveChat(w http.ResponseWriter, r *http.Request) {
	channel, err := h.crm.GetLiveChatConfig(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "channel": channel})
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}
