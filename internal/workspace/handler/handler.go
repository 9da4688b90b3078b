// Package handler exposes the case-level endpoints: opening cases, board
// snapshots, drag gestures, bindings, and the confirmation protocol.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"docket/internal/dragdrop"
	"docket/internal/snapshot"
	"docket/internal/transport/http/shared"
	"docket/internal/workspace"
	id "docket/pkg/domain"
)

type Handler struct {
	logger  *slog.Logger
	manager *workspace.Manager
}

func New(manager *workspace.Manager, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, manager: manager}
}

// Register registers the case routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/cases", h.handleOpenCase)
	r.Get("/cases", h.handleListCases)
	r.Get("/cases/{caseID}", h.handleSnapshot)
	r.Get("/cases/{caseID}/layout", h.handleLayout)
	r.Post("/cases/{caseID}/drag", h.handleDrag)
	r.Get("/cases/{caseID}/groups/{groupID}/bindings", h.handleListBindings)
	r.Post("/cases/{caseID}/groups/{groupID}/bindings", h.handleBind)
	r.Delete("/cases/{caseID}/groups/{groupID}/bindings", h.handleUnbind)
	r.Get("/cases/{caseID}/confirmations", h.handleListConfirmations)
	r.Post("/cases/{caseID}/confirmations/{confirmationID}/accept", h.handleAcceptConfirmation)
	r.Post("/cases/{caseID}/confirmations/{confirmationID}/cancel", h.handleCancelConfirmation)
}

type openCaseRequest struct {
	RouteID string `json:"route_id"`
}

func (h *Handler) handleOpenCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req openCaseRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	ws, err := h.manager.Open(ctx, req.RouteID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to open case", "route_id", req.RouteID, "error", err.Error())
		shared.WriteError(w, err)
		return
	}
	snap, err := snapshot.Build(ctx, ws)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, snap)
}

type caseSummary struct {
	CaseID  id.CaseID `json:"case_id"`
	RouteID string    `json:"route_id"`
}

func (h *Handler) handleListCases(w http.ResponseWriter, r *http.Request) {
	workspaces := h.manager.List()
	out := make([]caseSummary, 0, len(workspaces))
	for _, ws := range workspaces {
		out = append(out, caseSummary{CaseID: ws.CaseID, RouteID: ws.Route.ID})
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ws, ok := h.resolve(w, r)
	if !ok {
		return
	}
	snap, err := snapshot.Build(ctx, ws)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) handleLayout(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.resolve(w, r)
	if !ok {
		return
	}
	layout, err := ws.Layout(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, layout)
}

func (h *Handler) handleDrag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ws, ok := h.resolve(w, r)
	if !ok {
		return
	}
	var ev dragdrop.DragEvent
	if err := shared.DecodeJSON(r, &ev); err != nil {
		shared.WriteError(w, err)
		return
	}
	result, err := ws.ApplyDrag(ctx, ev)
	if err != nil {
		h.logger.WarnContext(ctx, "drag rejected", "case_id", ws.CaseID.String(), "error", err.Error())
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

type bindRequest struct {
	Type    string       `json:"type"`
	Section id.SectionID `json:"section,omitempty"`
}

func (h *Handler) handleBind(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ws, groupID, ok := h.resolveGroup(w, r)
	if !ok {
		return
	}
	var req bindRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	var err error
	switch req.Type {
	case "assessment":
		err = ws.BindAssessment(ctx, groupID)
	default:
		err = ws.BindSection(ctx, groupID, req.Section)
	}
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnbind(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ws, groupID, ok := h.resolveGroup(w, r)
	if !ok {
		return
	}
	var req bindRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	var err error
	switch req.Type {
	case "assessment":
		err = ws.UnbindAssessment(ctx, groupID)
	default:
		err = ws.UnbindSection(ctx, groupID, req.Section)
	}
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListBindings(w http.ResponseWriter, r *http.Request) {
	ws, groupID, ok := h.resolveGroup(w, r)
	if !ok {
		return
	}
	bindings, err := ws.GroupBindings(r.Context(), groupID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, bindings)
}

func (h *Handler) handleListConfirmations(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.resolve(w, r)
	if !ok {
		return
	}
	shared.WriteJSON(w, http.StatusOK, ws.PendingConfirmations())
}

func (h *Handler) handleAcceptConfirmation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ws, ok := h.resolve(w, r)
	if !ok {
		return
	}
	confirmationID, err := id.ParseConfirmationID(chi.URLParam(r, "confirmationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := ws.AcceptConfirmation(ctx, confirmationID); err != nil {
		h.logger.WarnContext(ctx, "confirmation accept failed", "confirmation_id", confirmationID.String(), "error", err.Error())
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCancelConfirmation(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.resolve(w, r)
	if !ok {
		return
	}
	confirmationID, err := id.ParseConfirmationID(chi.URLParam(r, "confirmationID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := ws.CancelConfirmation(r.Context(), confirmationID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		shared.WriteError(w, err)
		return nil, false
	}
	ws, err := h.manager.Get(caseID)
	if err != nil {
		shared.WriteError(w, err)
		return nil, false
	}
	return ws, true
}

func (h *Handler) resolveGroup(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, id.GroupID, bool) {
	ws, ok := h.resolve(w, r)
	if !ok {
		return nil, id.GroupID{}, false
	}
	groupID, err := id.ParseGroupID(chi.URLParam(r, "groupID"))
	if err != nil {
		shared.WriteError(w, err)
		return nil, id.GroupID{}, false
	}
	return ws, groupID, true
}
