// Package handler exposes the document-organization endpoints: group CRUD,
// uploads, page moves, merges, splits, and section reordering.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"docket/internal/documents/models"
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

// Register registers the document routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/cases/{caseID}/groups", h.handleCreateGroup)
	r.Get("/cases/{caseID}/groups", h.handleListGroups)
	r.Post("/cases/{caseID}/groups/merge", h.handleMergeGroups)
	r.Get("/cases/{caseID}/groups/{groupID}", h.handleGetGroup)
	r.Delete("/cases/{caseID}/groups/{groupID}", h.handleDeleteGroup)
	r.Post("/cases/{caseID}/groups/{groupID}/rename", h.handleRenameGroup)
	r.Post("/cases/{caseID}/groups/{groupID}/pages", h.handleAddPage)
	r.Post("/cases/{caseID}/groups/{groupID}/split", h.handleSplitGroup)
	r.Post("/cases/{caseID}/groups/{groupID}/review", h.handleSetReviewStatus)
	r.Post("/cases/{caseID}/uploads", h.handleRegisterUpload)
	r.Post("/cases/{caseID}/pages/{pageID}/move", h.handleMovePage)
	r.Post("/cases/{caseID}/sections/{sectionID}/reorder", h.handleReorderGroups)
}

type createGroupRequest struct {
	Section id.SectionID `json:"section"`
	Title   string       `json:"title"`
}

func (h *Handler) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ws, ok := h.resolve(w, r)
	if !ok {
		return
	}
	var req createGroupRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	group, err := ws.CreateGroup(ctx, req.Section, req.Title)
	if err != nil {
		h.logger.WarnContext(ctx, "create group rejected", "case_id", ws.CaseID.String(), "error", err.Error())
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, group)
}

func (h *Handler) handleListGroups(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.resolve(w, r)
	if !ok {
		return
	}
	groups, err := ws.ListGroups(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, groups)
}

func (h *Handler) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	ws, groupID, ok := h.resolveGroup(w, r)
	if !ok {
		return
	}
	group, err := ws.GetGroup(r.Context(), groupID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, group)
}

type renameGroupRequest struct {
	Title string `json:"title"`
}

func (h *Handler) handleRenameGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ws, groupID, ok := h.resolveGroup(w, r)
	if !ok {
		return
	}
	var req renameGroupRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	result, err := ws.RenameGroup(ctx, groupID, req.Title)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	writeGateResult(w, result)
}

func (h *Handler) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	ws, groupID, ok := h.resolveGroup(w, r)
	if !ok {
		return
	}
	result, err := ws.DeleteGroup(r.Context(), groupID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	writeGateResult(w, result)
}

type addPageRequest struct {
	Filename   string `json:"filename"`
	PayloadRef string `json:"payload_ref"`
}

func (h *Handler) handleAddPage(w http.ResponseWriter, r *http.Request) {
	ws, groupID, ok := h.resolveGroup(w, r)
	if !ok {
		return
	}
	var req addPageRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	group, err := ws.AddPage(r.Context(), groupID, req.Filename, req.PayloadRef)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, group)
}

type registerUploadRequest struct {
	Section    id.SectionID `json:"section"`
	Title      string       `json:"title"`
	Filename   string       `json:"filename"`
	PayloadRef string       `json:"payload_ref"`
}

func (h *Handler) handleRegisterUpload(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.resolve(w, r)
	if !ok {
		return
	}
	var req registerUploadRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	group, err := ws.RegisterUpload(r.Context(), req.Section, req.Title, req.Filename, req.PayloadRef)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, group)
}

type mergeGroupsRequest struct {
	SourceID id.GroupID `json:"source_id"`
	DestID   id.GroupID `json:"dest_id"`
}

func (h *Handler) handleMergeGroups(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.resolve(w, r)
	if !ok {
		return
	}
	var req mergeGroupsRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	result, err := ws.MergeGroups(r.Context(), req.SourceID, req.DestID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	writeGateResult(w, result)
}

type splitGroupRequest struct {
	PageIDs  []id.PageID `json:"page_ids"`
	NewTitle string      `json:"new_title"`
}

func (h *Handler) handleSplitGroup(w http.ResponseWriter, r *http.Request) {
	ws, groupID, ok := h.resolveGroup(w, r)
	if !ok {
		return
	}
	var req splitGroupRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	group, err := ws.SplitGroup(r.Context(), groupID, req.PageIDs, req.NewTitle)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, group)
}

type setReviewStatusRequest struct {
	Status models.ReviewStatus `json:"status"`
}

func (h *Handler) handleSetReviewStatus(w http.ResponseWriter, r *http.Request) {
	ws, groupID, ok := h.resolveGroup(w, r)
	if !ok {
		return
	}
	var req setReviewStatusRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	group, err := ws.SetReviewStatus(r.Context(), groupID, req.Status)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, group)
}

type movePageRequest struct {
	FromGroupID id.GroupID `json:"from_group_id"`
	ToGroupID   id.GroupID `json:"to_group_id"`
	TargetIndex int        `json:"target_index"`
}

func (h *Handler) handleMovePage(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.resolve(w, r)
	if !ok {
		return
	}
	pageID, err := id.ParsePageID(chi.URLParam(r, "pageID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req movePageRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := ws.MovePage(r.Context(), pageID, req.FromGroupID, req.ToGroupID, req.TargetIndex); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reorderGroupsRequest struct {
	Ordered []id.GroupID `json:"ordered"`
}

func (h *Handler) handleReorderGroups(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.resolve(w, r)
	if !ok {
		return
	}
	section, err := id.ParseSectionID(chi.URLParam(r, "sectionID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var req reorderGroupsRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := ws.ReorderGroups(r.Context(), section, req.Ordered); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeGateResult distinguishes an applied mutation from one parked behind a
// confirmation token.
func writeGateResult(w http.ResponseWriter, result workspace.PendingResult) {
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
