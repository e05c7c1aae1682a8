package frontdoor

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Daytona2026/Warmano-webseite/internal/domain"
	"github.com/Daytona2026/Warmano-webseite/internal/server"
	"github.com/Daytona2026/Warmano-webseite/internal/storage"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// HandleDiagnostics runs one read-only diagnostic selected by ?action=.
//
//	templates                   sign templates
//	modules                     e-signature modules and installed apps
//	template-details&id=N       one template with every sign role
//	model-fields&model=M        field names of a model
//	find-models&q=S             models whose name contains S
//	sign-items&id=N             raw sign items of a template
func (h *Handler) HandleDiagnostics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	action := q.Get("action")
	server.AddLogField(ctx, "action", action)

	var (
		payload map[string]any
		err     error
	)
	switch action {
	case "templates":
		templates, e := h.crm.ListSignTemplates(ctx)
		payload, err = map[string]any{"templates": templates}, e
	case "modules":
		report, e := h.crm.CheckModules(ctx)
		payload, err = map[string]any{"modules": report}, e
	case "template-details":
		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}
		details, e := h.crm.GetSignTemplateDetails(ctx, id)
		payload, err = map[string]any{"template": details}, e
	case "model-fields":
		model := strings.TrimSpace(q.Get("model"))
		if model == "" {
			server.WriteError(w, r, domain.ErrInvalidRequest("model erforderlich").
				WithCode(domain.ErrorCodeRequiredField).WithParam("model"))
			return
		}
		fields, e := h.crm.ModelFields(ctx, model)
		payload, err = map[string]any{"model": model, "fields": fields}, e
	case "find-models":
		pattern := strings.TrimSpace(q.Get("q"))
		if pattern == "" {
			pattern = "sign"
		}
		models, e := h.crm.FindModels(ctx, pattern)
		payload, err = map[string]any{"models": models}, e
	case "sign-items":
		id, ok := idParam(w, r, "id")
		if !ok {
			return
		}
		items, e := h.crm.SignItems(ctx, id)
		payload, err = map[string]any{"items": items}, e
	default:
		server.WriteError(w, r, domain.ErrInvalidRequest("Unbekannte Aktion").
			WithCode(domain.ErrorCodeInvalidOption).WithParam("action"))
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	payload["success"] = true
	writeJSON(w, http.StatusOK, payload)
}

// HandleListBookings pages through the booking journal, newest first.
// Query: limit (default 50, max 500), offset, failed=true.
func (h *Handler) HandleListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := storage.ListOptions{Limit: defaultPageSize}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			server.WriteError(w, r, domain.ErrInvalidRequest("Ungültiges limit").WithParam("limit"))
			return
		}
		opts.Limit = min(n, maxPageSize)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			server.WriteError(w, r, domain.ErrInvalidRequest("Ungültiger offset").WithParam("offset"))
			return
		}
		opts.Offset = n
	}
	opts.FailedOnly, _ = strconv.ParseBool(q.Get("failed"))

	records, err := h.journal.ListBookings(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"bookings": records,
		"limit":    opts.Limit,
		"offset":   opts.Offset,
	})
}

// HandleGetBooking returns one journal record by run id.
func (h *Handler) HandleGetBooking(w http.ResponseWriter, r *http.Request) {
	rec, err := h.journal.GetBooking(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "booking": rec})
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	if err != nil || id <= 0 {
		server.WriteError(w, r, domain.ErrInvalidRequest(name+" muss eine positive Zahl sein").WithParam(name))
		return 0, false
	}
	return id, true
}
