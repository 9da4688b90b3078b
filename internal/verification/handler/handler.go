// Package handler exposes the evidence-verification endpoints: extraction
// delivery, field verification, issue resolution, and review confirmation.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"docket/internal/transport/http/shared"
	"docket/internal/verification"
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

// Register registers the verification routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/cases/{caseID}/modules", h.handleListModules)
	r.Get("/cases/{caseID}/modules/{moduleID}", h.handleGetModule)
	r.Post("/cases/{caseID}/modules/{moduleID}/extraction", h.handleAcceptExtraction)
	r.Post("/cases/{caseID}/modules/{moduleID}/fields/{fieldKey}/verification", h.handleSetFieldVerification)
	r.Post("/cases/{caseID}/modules/{moduleID}/issues/{issueID}/resolve", h.handleResolveIssue)
	r.Post("/cases/{caseID}/modules/{moduleID}/review", h.handleConfirmReview)
}

func (h *Handler) handleListModules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ws, ok := h.resolve(w, r)
	if !ok {
		return
	}

	var modules []*verification.EvidenceModule
	var err error
	switch consumer := r.URL.Query().Get("consumer"); {
	case consumer == "assessment":
		modules, err = ws.AssessmentModules(ctx)
	case consumer != "":
		var section id.SectionID
		section, err = id.ParseSectionID(consumer)
		if err == nil {
			modules, err = ws.ModulesBySection(ctx, section)
		}
	default:
		modules, err = ws.ListModules(ctx)
	}
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, modules)
}

func (h *Handler) handleGetModule(w http.ResponseWriter, r *http.Request) {
	ws, moduleID, ok := h.resolveModule(w, r)
	if !ok {
		return
	}
	module, err := ws.GetModule(r.Context(), moduleID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, module)
}

type acceptExtractionRequest struct {
	Fields []verification.ExtractedField `json:"fields"`
	Issues []verification.Issue          `json:"issues"`
}

func (h *Handler) handleAcceptExtraction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ws, moduleID, ok := h.resolveModule(w, r)
	if !ok {
		return
	}
	var req acceptExtractionRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	module, err := ws.AcceptExtraction(ctx, moduleID, req.Fields, req.Issues)
	if err != nil {
		h.logger.WarnContext(ctx, "extraction rejected", "module_id", moduleID.String(), "error", err.Error())
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, module)
}

type setFieldVerificationRequest struct {
	Status      verification.FieldStatus `json:"status"`
	EditedValue *string                  `json:"edited_value,omitempty"`
}

func (h *Handler) handleSetFieldVerification(w http.ResponseWriter, r *http.Request) {
	ws, moduleID, ok := h.resolveModule(w, r)
	if !ok {
		return
	}
	fieldKey := chi.URLParam(r, "fieldKey")
	var req setFieldVerificationRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	module, err := ws.SetFieldVerification(r.Context(), moduleID, fieldKey, req.Status, req.EditedValue)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, module)
}

func (h *Handler) handleResolveIssue(w http.ResponseWriter, r *http.Request) {
	ws, moduleID, ok := h.resolveModule(w, r)
	if !ok {
		return
	}
	module, err := ws.ResolveIssue(r.Context(), moduleID, chi.URLParam(r, "issueID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, module)
}

func (h *Handler) handleConfirmReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ws, moduleID, ok := h.resolveModule(w, r)
	if !ok {
		return
	}
	result, err := ws.ConfirmReview(ctx, moduleID)
	if err != nil {
		h.logger.WarnContext(ctx, "review confirmation rejected", "module_id", moduleID.String(), "error", err.Error())
		shared.WriteError(w, err)
		return
	}
	if result.Pending != nil {
		shared.WriteJSON(w, http.StatusAccepted, result)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
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

func (h *Handler) resolveModule(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, id.ModuleID, bool) {
	ws, ok := h.resolve(w, r)
	if !ok {
		return nil, id.ModuleID{}, false
	}
	moduleID, err := id.ParseModuleID(chi.URLParam(r, "moduleID"))
	if err != nil {
		shared.WriteError(w, err)
		return nil, id.ModuleID{}, false
	}
	return ws, moduleID, true
}
