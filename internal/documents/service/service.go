// Package service orchestrates document group lifecycle. Policy for bound
// groups (confirmation gating) lives above this layer in the workspace; the
// service applies mutations unconditionally once invoked and fans out the
// change signals the binding registry consumes.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"docket/internal/audit"
	docmetrics "docket/internal/documents/metrics"
	"docket/internal/documents/models"
	id "docket/pkg/domain"
	dErrors "docket/pkg/domain-errors"
	"docket/pkg/platform/sentinel"
	"docket/pkg/requestcontext"
)

// Store is the persistence contract the service drives. The in-memory store
// is the only implementation; case state lives and dies with the session.
type Store interface {
	CreateIfTitleAvailable(ctx context.Context, group *models.DocumentGroup) error
	FindGroup(ctx context.Context, groupID id.GroupID) (*models.DocumentGroup, error)
	FindGroupByTitle(ctx context.Context, section id.SectionID, title string) (*models.DocumentGroup, error)
	GroupsBySection(ctx context.Context, section id.SectionID) ([]*models.DocumentGroup, error)
	ListGroups(ctx context.Context) ([]*models.DocumentGroup, error)
	Rename(ctx context.Context, groupID id.GroupID, newTitle string, now time.Time) (*models.DocumentGroup, error)
	AddPage(ctx context.Context, groupID id.GroupID, page *models.Page) (*models.DocumentGroup, error)
	MovePage(ctx context.Context, pageID id.PageID, fromGroupID, toGroupID id.GroupID, targetIndex int, now time.Time) error
	ReorderGroups(ctx context.Context, section id.SectionID, ordered []id.GroupID, now time.Time) error
	MergeGroups(ctx context.Context, sourceID, destID id.GroupID, now time.Time) (*models.DocumentGroup, error)
	SplitGroup(ctx context.Context, groupID id.GroupID, pageIDs []id.PageID, newGroup *models.DocumentGroup) (*models.DocumentGroup, error)
	DeleteGroup(ctx context.Context, groupID id.GroupID) (*models.DocumentGroup, error)
	Execute(ctx context.Context, groupID id.GroupID, validate func(*models.DocumentGroup) error, mutate func(*models.DocumentGroup)) (*models.DocumentGroup, error)
}

// ChangeListener receives the removal and content-change events the binding
// registry consumes. The workspace wires the registry and the verification
// engine behind this interface.
type ChangeListener interface {
	// GroupContentChanged fires on page add/remove/reorder and on rename.
	GroupContentChanged(ctx context.Context, groupID id.GroupID) error
	// GroupDeleted fires after a group is removed; removedPages lists pages
	// that ceased to exist (empty for a merge, where pages survive).
	GroupDeleted(ctx context.Context, groupID id.GroupID, removedPages []id.PageID) error
}

// AuditPublisher emits audit events from domain logic.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the document store's operation surface.
type Service struct {
	store    Store
	listener ChangeListener
	caseID   id.CaseID
	logger   *slog.Logger
	auditor  AuditPublisher
	metrics  *docmetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithChangeListener(listener ChangeListener) Option {
	return func(s *Service) { s.listener = listener }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

func WithMetrics(m *docmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store Store, caseID id.CaseID, opts ...Option) *Service {
	s := &Service{store: store, caseID: caseID, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetChangeListener wires the listener after construction; the registry and
// the service are built independently and joined in wiring.
func (s *Service) SetChangeListener(listener ChangeListener) {
	s.listener = listener
}

// CreateGroup makes an empty category in a section. Fails with
// duplicate_title when the title collides case-insensitively with a sibling.
func (s *Service) CreateGroup(ctx context.Context, section id.SectionID, title string) (*models.DocumentGroup, error) {
	start := time.Now()
	group, err := models.NewDocumentGroup(id.NewGroupID(), section, title, 0, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateIfTitleAvailable(ctx, group); err != nil {
		return nil, wrapTitleErr(err)
	}
	created, err := s.store.FindGroup(ctx, group.ID)
	if err != nil {
		return nil, wrapGroupErr(err)
	}
	s.observe(start)
	if s.metrics != nil {
		s.metrics.IncrementGroupsCreated()
	}
	s.emit(ctx, audit.ActionGroupCreated, created.ID.String(), created.Title)
	return created, nil
}

// RenameGroup changes a group's title. Bound-group confirmation is the
// caller's job; once invoked the rename applies unconditionally, then the
// group's consumers are invalidated.
func (s *Service) RenameGroup(ctx context.Context, groupID id.GroupID, newTitle string) (*models.DocumentGroup, error) {
	start := time.Now()
	if err := models.ValidateTitle(newTitle); err != nil {
		return nil, err
	}
	renamed, err := s.store.Rename(ctx, groupID, newTitle, requestcontext.Now(ctx))
	if err != nil {
		return nil, wrapTitleErr(err)
	}
	s.observe(start)
	if err := s.contentChanged(ctx, groupID); err != nil {
		return nil, err
	}
	s.emit(ctx, audit.ActionGroupRenamed, groupID.String(), renamed.Title)
	return renamed, nil
}

// RegisterUpload attaches an uploaded page to the titled group, creating the
// group on first upload.
func (s *Service) RegisterUpload(ctx context.Context, section id.SectionID, title, filename, payloadRef string) (*models.DocumentGroup, error) {
	group, err := s.store.FindGroupByTitle(ctx, section, title)
	if errors.Is(err, sentinel.ErrNotFound) {
		group, err = s.CreateGroup(ctx, section, title)
	}
	if err != nil {
		return nil, wrapGroupErr(err)
	}
	return s.AddPage(ctx, group.ID, filename, payloadRef)
}

// AddPage appends an uploaded page to a group.
func (s *Service) AddPage(ctx context.Context, groupID id.GroupID, filename, payloadRef string) (*models.DocumentGroup, error) {
	start := time.Now()
	page, err := models.NewPage(id.NewPageID(), filename, payloadRef, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	group, err := s.store.AddPage(ctx, groupID, page)
	if err != nil {
		return nil, wrapGroupErr(err)
	}
	s.observe(start)
	if err := s.contentChanged(ctx, groupID); err != nil {
		return nil, err
	}
	s.emit(ctx, audit.ActionPageAdded, page.ID.String(), filename)
	return group, nil
}

// MovePage re-parents a page (or reorders it within its group when source
// and target are the same) and invalidates both groups' consumers.
func (s *Service) MovePage(ctx context.Context, pageID id.PageID, fromGroupID, toGroupID id.GroupID, targetIndex int) error {
	start := time.Now()
	if err := s.store.MovePage(ctx, pageID, fromGroupID, toGroupID, targetIndex, requestcontext.Now(ctx)); err != nil {
		return wrapGroupErr(err)
	}
	s.observe(start)
	if s.metrics != nil {
		s.metrics.IncrementPagesMoved()
	}
	if err := s.contentChanged(ctx, fromGroupID); err != nil {
		return err
	}
	if toGroupID != fromGroupID {
		if err := s.contentChanged(ctx, toGroupID); err != nil {
			return err
		}
	}
	s.emit(ctx, audit.ActionPageMoved, pageID.String(), "to group "+toGroupID.String())
	return nil
}

// ReorderGroups replaces the rank of every group in a section atomically.
// Fails with incomplete_set when the list omits, duplicates, or imports a
// member. Group order is presentation state, so no consumer is invalidated.
func (s *Service) ReorderGroups(ctx context.Context, section id.SectionID, ordered []id.GroupID) error {
	start := time.Now()
	if err := s.store.ReorderGroups(ctx, section, ordered, requestcontext.Now(ctx)); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return dErrors.Wrap(err, dErrors.CodeIncompleteSet, "reorder list must name every group in the section exactly once")
		}
		return wrapGroupErr(err)
	}
	s.observe(start)
	s.emit(ctx, audit.ActionGroupsReordered, section.String(), "")
	return nil
}

// MergeGroups appends all of source's pages to dest and deletes source. The
// source's consumers are invalidated once and its bindings released; dest's
// consumers are invalidated because its content grew.
func (s *Service) MergeGroups(ctx context.Context, sourceID, destID id.GroupID) (*models.DocumentGroup, error) {
	start := time.Now()
	dest, err := s.store.MergeGroups(ctx, sourceID, destID, requestcontext.Now(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "cannot merge a group into itself")
		}
		return nil, wrapGroupErr(err)
	}
	s.observe(start)
	if s.metrics != nil {
		s.metrics.IncrementMergesCompleted()
	}
	// Pages survive a merge, so the deleted-source cascade carries no
	// removed pages.
	if s.listener != nil {
		if err := s.listener.GroupDeleted(ctx, sourceID, nil); err != nil {
			return nil, err
		}
	}
	if err := s.contentChanged(ctx, destID); err != nil {
		return nil, err
	}
	s.emit(ctx, audit.ActionGroupsMerged, sourceID.String(), "into "+destID.String())
	return dest, nil
}

// SplitGroup moves the named pages into a newly created group. Fails with
// empty_selection when no pages are given.
func (s *Service) SplitGroup(ctx context.Context, groupID id.GroupID, pageIDs []id.PageID, newTitle string) (*models.DocumentGroup, error) {
	start := time.Now()
	if len(pageIDs) == 0 {
		return nil, dErrors.New(dErrors.CodeEmptySelection, "split requires at least one page")
	}
	source, err := s.store.FindGroup(ctx, groupID)
	if err != nil {
		return nil, wrapGroupErr(err)
	}
	newGroup, err := models.NewDocumentGroup(id.NewGroupID(), source.SectionID, newTitle, 0, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	created, err := s.store.SplitGroup(ctx, groupID, pageIDs, newGroup)
	if err != nil {
		return nil, wrapTitleErr(err)
	}
	s.observe(start)
	if s.metrics != nil {
		s.metrics.IncrementGroupsCreated()
	}
	if err := s.contentChanged(ctx, groupID); err != nil {
		return nil, err
	}
	s.emit(ctx, audit.ActionGroupSplit, groupID.String(), "into "+created.Title)
	return created, nil
}

// DeleteGroup removes the group and all its pages, then cascades: each
// bound consumer is invalidated once before the bindings are released, and
// fields citing the removed pages go stale.
func (s *Service) DeleteGroup(ctx context.Context, groupID id.GroupID) error {
	start := time.Now()
	removed, err := s.store.DeleteGroup(ctx, groupID)
	if err != nil {
		return wrapGroupErr(err)
	}
	s.observe(start)
	if s.metrics != nil {
		s.metrics.IncrementGroupsDeleted()
	}
	if s.listener != nil {
		if err := s.listener.GroupDeleted(ctx, groupID, removed.PageIDs()); err != nil {
			return err
		}
	}
	s.emit(ctx, audit.ActionGroupDeleted, groupID.String(), removed.Title)
	return nil
}

// SetReviewStatus flips a group's reviewed flag.
func (s *Service) SetReviewStatus(ctx context.Context, groupID id.GroupID, status models.ReviewStatus) (*models.DocumentGroup, error) {
	if status != models.ReviewStatusReviewed && status != models.ReviewStatusUnreviewed {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown review status")
	}
	now := requestcontext.Now(ctx)
	group, err := s.store.Execute(ctx, groupID, nil, func(g *models.DocumentGroup) {
		if status == models.ReviewStatusReviewed {
			g.MarkReviewed(now)
		} else {
			g.MarkUnreviewed(now)
		}
	})
	if err != nil {
		return nil, wrapGroupErr(err)
	}
	return group, nil
}

// GetGroup returns one group snapshot.
func (s *Service) GetGroup(ctx context.Context, groupID id.GroupID) (*models.DocumentGroup, error) {
	group, err := s.store.FindGroup(ctx, groupID)
	if err != nil {
		return nil, wrapGroupErr(err)
	}
	return group, nil
}

// ListGroups returns every group ordered by section then rank.
func (s *Service) ListGroups(ctx context.Context) ([]*models.DocumentGroup, error) {
	groups, err := s.store.ListGroups(ctx)
	if err != nil {
		return nil, wrapGroupErr(err)
	}
	return groups, nil
}

// GroupsBySection lists one section's groups in rank order.
func (s *Service) GroupsBySection(ctx context.Context, section id.SectionID) ([]*models.DocumentGroup, error) {
	groups, err := s.store.GroupsBySection(ctx, section)
	if err != nil {
		return nil, wrapGroupErr(err)
	}
	return groups, nil
}

func (s *Service) contentChanged(ctx context.Context, groupID id.GroupID) error {
	if s.listener == nil {
		return nil
	}
	return s.listener.GroupContentChanged(ctx, groupID)
}

func (s *Service) emit(ctx context.Context, action audit.Action, subject, detail string) {
	if s.auditor == nil {
		return
	}
	event := audit.Event{
		Timestamp: requestcontext.Now(ctx),
		CaseID:    s.caseID,
		Action:    action,
		Subject:   subject,
		Detail:    detail,
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", string(action), "error", err)
	}
}

func (s *Service) observe(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveMutation(start)
	}
}

func wrapGroupErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "group or page not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "document store conflict")
	default:
		if dErrors.CodeOf(err) != dErrors.CodeInternal {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "document store operation failed")
	}
}

// wrapTitleErr maps uniqueness conflicts onto duplicate_title; everything
// else falls through to the generic mapping.
func wrapTitleErr(err error) error {
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.Wrap(err, dErrors.CodeDuplicateTitle, "a group with this title already exists in the section")
	}
	return wrapGroupErr(err)
}
