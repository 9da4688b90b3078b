// Package admin exposes the operator endpoints: the route catalog and the
// audit trail. These are read-only views; nothing here mutates case state.
package admin

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"docket/internal/audit"
	"docket/internal/catalog"
	"docket/internal/transport/http/shared"
	dErrors "docket/pkg/domain-errors"
)

type Handler struct {
	logger  *slog.Logger
	catalog *catalog.Catalog
	trail   audit.Store
}

func New(cat *catalog.Catalog, trail audit.Store, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, catalog: cat, trail: trail}
}

// Register registers the admin routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/routes", h.handleListRoutes)
	r.Get("/admin/audit/events", h.handleListAuditEvents)
}

func (h *Handler) handleListRoutes(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, http.StatusOK, h.catalog.Routes(r.Context()))
}

func (h *Handler) handleListAuditEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	events, err := h.trail.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit events", "error", err.Error())
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, events)
}
