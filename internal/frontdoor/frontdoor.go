// Package frontdoor holds the JSON handlers the website talks to: booking,
// the customer area (invoices, support, referrals, live chat) and the
// operator routes (diagnostics, booking journal).
//
// Handlers are described as HandlerRegistrations and mounted on a chi
// router by Mount, which applies rate limiting to public writes and the
// admin key check to operator routes.
package frontdoor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Daytona2026/Warmano-webseite/internal/booking"
	"github.com/Daytona2026/Warmano-webseite/internal/codec/xmlrpc"
	"github.com/Daytona2026/Warmano-webseite/internal/crm"
	"github.com/Daytona2026/Warmano-webseite/internal/domain"
	"github.com/Daytona2026/Warmano-webseite/internal/storage"
	"github.com/Daytona2026/Warmano-webseite/internal/telemetry"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 64 << 10

// Booker runs a validated booking.
type Booker interface {
	Process(ctx context.Context, req booking.Validated) booking.Outcome
}

// Pinger checks that the backend accepts the configured credentials.
type Pinger interface {
	Ping(ctx context.Context) (int64, error)
}

// CRM is the set of backend operations the customer area and the
// diagnostics use. *crm.Service implements it.
type CRM interface {
	ListInvoices(ctx context.Context, email string) ([]crm.Invoice, error)
	CreateSupportTicket(ctx context.Context, in crm.TicketInput) (crm.Ticket, error)
	ListSupportTickets(ctx context.Context, email string) ([]crm.Ticket, error)
	CreateReferralLead(ctx context.Context, in crm.ReferralInput) (crm.ReferralLead, error)
	GetReferralStats(ctx context.Context, email string) (crm.ReferralStats, error)
	GetLiveChatConfig(ctx context.Context) (crm.LiveChatChannel, error)

	CheckModules(ctx context.Context) (crm.ModuleReport, error)
	ListSignTemplates(ctx context.Context) ([]crm.SignTemplate, error)
	GetSignTemplateDetails(ctx context.Context, templateID int64) (crm.SignTemplateDetails, error)
	FindModels(ctx context.Context, pattern string) ([]crm.ModelInfo, error)
	ModelFields(ctx context.Context, model string) ([]string, error)
	SignItems(ctx context.Context, templateID int64) (xmlrpc.Value, error)
}

var _ CRM = (*crm.Service)(nil)

// Access classifies a route for Mount.
type Access int

const (
	// Public routes are open.
	Public Access = iota
	// Limited routes are open but rate limited per client.
	Limited
	// Admin routes require the operator API key.
	Admin
)

// HandlerRegistration represents a registered HTTP handler.
type HandlerRegistration struct {
	Method  string
	Path    string
	Access  Access
	Handler http.HandlerFunc
}

// Deps are the collaborators of Handler. Booker, Pinger and CRM are
// required; a nil Journal or Metrics disables the routes that need them.
type Deps struct {
	Booker  Booker
	Pinger  Pinger
	CRM     CRM
	Journal storage.JournalStore
	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

type Handler struct {
	booker  Booker
	pinger  Pinger
	crm     CRM
	journal storage.JournalStore
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		booker:  d.Booker,
		pinger:  d.Pinger,
		crm:     d.CRM,
		journal: d.Journal,
		metrics: d.Metrics,
		logger:  logger,
	}
}

// Registrations lists every route served by h.
func (h *Handler) Registrations() []HandlerRegistration {
	regs := []HandlerRegistration{
		{Method: http.MethodGet, Path: "/healthz", Access: Public, Handler: h.HandleHealth},

		{Method: http.MethodPost, Path: "/api/booking", Access: Limited, Handler: h.HandleBooking},
		{Method: http.MethodGet, Path: "/api/booking", Access: Public, Handler: h.HandleConnectionTest},

		{Method: http.MethodGet, Path: "/api/invoices", Access: Public, Handler: h.HandleInvoices},
		{Method: http.MethodPost, Path: "/api/support", Access: Limited, Handler: h.HandleCreateTicket},
		{Method: http.MethodGet, Path: "/api/support", Access: Public, Handler: h.HandleListTickets},
		{Method: http.MethodPost, Path: "/api/referral", Access: Limited, Handler: h.HandleCreateReferral},
		{Method: http.MethodGet, Path: "/api/referral", Access: Public, Handler: h.HandleReferralStats},
		{Method: http.MethodGet, Path: "/api/livechat", Access: Public, Handler: h.HandleLiveChat},

		{Method: http.MethodGet, Path: "/api/admin/diagnostics", Access: Admin, Handler: h.HandleDiagnostics},
	}
	if h.journal != nil {
		regs = append(regs,
			HandlerRegistration{Method: http.MethodGet, Path: "/api/admin/bookings", Access: Admin, Handler: h.HandleListBookings},
			HandlerRegistration{Method: http.MethodGet, Path: "/api/admin/bookings/{runID}", Access: Admin, Handler: h.HandleGetBooking},
		)
	}
	if h.metrics != nil {
		regs = append(regs, HandlerRegistration{
			Method: http.MethodGet, Path: "/metrics", Access: Public, Handler: h.metrics.Handler().ServeHTTP,
		})
	}
	return regs
}

// Mount registers regs on r. limit wraps Limited routes and admin wraps
// Admin routes; a nil middleware is skipped.
func Mount(r chi.Router, regs []HandlerRegistration, limit, admin func(http.Handler) http.Handler) {
	for _, reg := range regs {
		var mw []func(http.Handler) http.Handler
		switch reg.Access {
		case Limited:
			if limit != nil {
				mw = append(mw, limit)
			}
		case Admin:
			if admin != nil {
				mw = append(mw, admin)
			}
		}
		r.With(mw...).Method(reg.Method, reg.Path, reg.Handler)
	}
}

// HandleHealth reports liveness. It never calls the backend.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if err == io.EOF {
			return domain.ErrInvalidRequest("Leere Anfrage").WithCause(err)
		}
		return domain.ErrInvalidRequest("Ungültige Anfrage").WithCause(fmt.Errorf("decode body: %w", err))
	}
	return nil
}
