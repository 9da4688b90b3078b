// Package workspace joins one case's document store, binding registry,
// verification engine, and confirmation gate into a single operation
// surface. It enforces the mutation pipeline: intent -> gate -> store or
// engine mutation -> binding re-evaluation -> invalidation fan-out.
//
// Mutations are serialized per workspace. The UI dispatches one action at a
// time; the mutex makes that assumption hold even for concurrent HTTP
// callers.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"docket/internal/binding"
	"docket/internal/catalog"
	docmetrics "docket/internal/documents/metrics"
	"docket/internal/documents/models"
	docservice "docket/internal/documents/service"
	docstore "docket/internal/documents/store"
	"docket/internal/gate"
	"docket/internal/verification"
	vmetrics "docket/internal/verification/metrics"
	id "docket/pkg/domain"
	dErrors "docket/pkg/domain-errors"
)

// Workspace is one case's live state.
type Workspace struct {
	CaseID id.CaseID
	Route  catalog.Route

	mu            sync.Mutex
	store         *docstore.InMemory
	docs          *docservice.Service
	registry      *binding.Registry
	engine        *verification.Engine
	confirmations *gate.Coordinator

	logger  *slog.Logger
	auditor docservice.AuditPublisher
}

// Deps carries the shared collaborators a workspace plugs into.
type Deps struct {
	Logger       *slog.Logger
	Auditor      docservice.AuditPublisher
	DocMetrics   *docmetrics.Metrics
	VerifMetrics *vmetrics.Metrics
}

// New builds a workspace for a case on the given route and instantiates its
// evidence modules from the route's schema templates.
func New(ctx context.Context, caseID id.CaseID, route catalog.Route, deps Deps) (*Workspace, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store := docstore.NewInMemory()
	registry := binding.NewRegistry(binding.WithLogger(logger))

	var engineOpts []verification.EngineOption
	engineOpts = append(engineOpts, verification.WithLogger(logger))
	if deps.VerifMetrics != nil {
		engineOpts = append(engineOpts, verification.WithMetrics(deps.VerifMetrics))
	}
	engine := verification.NewEngine(verification.NewInMemoryStore(), store, engineOpts...)

	docOpts := []docservice.Option{docservice.WithLogger(logger)}
	if deps.Auditor != nil {
		docOpts = append(docOpts, docservice.WithAuditPublisher(deps.Auditor))
	}
	if deps.DocMetrics != nil {
		docOpts = append(docOpts, docservice.WithMetrics(deps.DocMetrics))
	}
	docs := docservice.New(store, caseID, docOpts...)

	w := &Workspace{
		CaseID:        caseID,
		Route:         route,
		store:         store,
		docs:          docs,
		registry:      registry,
		engine:        engine,
		confirmations: gate.NewCoordinator(),
		logger:        logger,
		auditor:       deps.Auditor,
	}
	registry.SetSink(&invalidationSink{engine: engine})
	docs.SetChangeListener(&changeListener{registry: registry, engine: engine})

	if err := w.instantiateModules(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// instantiateModules creates one pending module per schema requirement plus
// the assessment module the case-level binding targets.
func (w *Workspace) instantiateModules(ctx context.Context) error {
	for _, section := range w.Route.Sections {
		for _, req := range section.Requirements {
			count := req.Count
			if count < 1 {
				count = 1
			}
			for i := 1; i <= count; i++ {
				title := req.Title
				if count > 1 {
					title = fmt.Sprintf("%s #%d", req.Title, i)
				}
				if _, err := w.engine.Instantiate(ctx, title, req.DocumentType, section.ID, false); err != nil {
					return err
				}
			}
		}
	}
	_, err := w.engine.Instantiate(ctx, "Case assessment", id.DocumentType("assessment"), "", true)
	return err
}

// changeListener routes document store change events into the binding
// registry and the stale-page cascade.
type changeListener struct {
	registry *binding.Registry
	engine   *verification.Engine
}

func (l *changeListener) GroupContentChanged(ctx context.Context, groupID id.GroupID) error {
	return l.registry.Invalidate(ctx, groupID)
}

func (l *changeListener) GroupDeleted(ctx context.Context, groupID id.GroupID, removedPages []id.PageID) error {
	// Invalidate-then-release, so consumers react while the reference
	// still resolves; stale flags land after the pages are gone.
	if err := l.registry.GroupDeleted(ctx, groupID); err != nil {
		return err
	}
	l.engine.FlagStalePages(ctx, removedPages)
	return nil
}

// invalidationSink adapts binding invalidations onto the engine's consumer
// model.
type invalidationSink struct {
	engine *verification.Engine
}

func (s *invalidationSink) ConsumerInvalidated(ctx context.Context, b binding.Binding) error {
	return s.engine.InvalidateConsumer(ctx, b.Section, b.Type == binding.TypeAssessment)
}

// PendingResult is the gated-operation return shape: exactly one of Applied
// or Pending is meaningful. When Pending is set the mutation has not run;
// it is parked behind the confirmation token.
type PendingResult struct {
	Applied bool                         `json:"applied"`
	Group   *models.DocumentGroup        `json:"group,omitempty"`
	Module  *verification.EvidenceModule `json:"module,omitempty"`
	Pending *gate.PendingConfirmation    `json:"pending,omitempty"`
}

func appliedGroup(g *models.DocumentGroup) PendingResult {
	return PendingResult{Applied: true, Group: g}
}

func parked(p gate.PendingConfirmation) PendingResult {
	return PendingResult{Pending: &p}
}

// CreateGroup makes a new category; never gated.
func (w *Workspace) CreateGroup(ctx context.Context, section id.SectionID, title string) (*models.DocumentGroup, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkSection(section); err != nil {
		return nil, err
	}
	return w.docs.CreateGroup(ctx, section, title)
}

// RegisterUpload attaches an uploaded page, creating the titled group on
// first upload; never gated.
func (w *Workspace) RegisterUpload(ctx context.Context, section id.SectionID, title, filename, payloadRef string) (*models.DocumentGroup, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkSection(section); err != nil {
		return nil, err
	}
	return w.docs.RegisterUpload(ctx, section, title, filename, payloadRef)
}

// checkSection rejects sections the case's route does not carry. Groups only
// ever live in checklist sections, so the board layout stays complete.
func (w *Workspace) checkSection(section id.SectionID) error {
	if !w.Route.HasSection(section) {
		return dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("route %q has no section %q", w.Route.ID, section))
	}
	return nil
}

// AddPage appends an uploaded page to an existing group; never gated.
func (w *Workspace) AddPage(ctx context.Context, groupID id.GroupID, filename, payloadRef string) (*models.DocumentGroup, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.docs.AddPage(ctx, groupID, filename, payloadRef)
}

// RenameGroup routes through the gate: renaming a bound group requires the
// caseworker to acknowledge the affected consumers first.
func (w *Workspace) RenameGroup(ctx context.Context, groupID id.GroupID, newTitle string) (PendingResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := models.ValidateTitle(newTitle); err != nil {
		return PendingResult{}, err
	}
	decision, err := w.decide(ctx, gate.Intent{Kind: gate.IntentRename, GroupID: groupID, Detail: "rename to " + newTitle})
	if err != nil {
		return PendingResult{}, err
	}
	if decision.Outcome == gate.OutcomeConfirm {
		pending := w.confirmations.Request(ctx, *decision.Payload, func(ctx context.Context) error {
			w.mu.Lock()
			defer w.mu.Unlock()
			_, err := w.docs.RenameGroup(ctx, groupID, newTitle)
			return err
		})
		return parked(pending), nil
	}
	group, err := w.docs.RenameGroup(ctx, groupID, newTitle)
	if err != nil {
		return PendingResult{}, err
	}
	return appliedGroup(group), nil
}

// DeleteGroup routes through the gate. Deleting an unbound group proceeds
// silently; bound groups need confirmation; a missing group blocks.
func (w *Workspace) DeleteGroup(ctx context.Context, groupID id.GroupID) (PendingResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	decision, err := w.decide(ctx, gate.Intent{Kind: gate.IntentDelete, GroupID: groupID})
	if err != nil {
		return PendingResult{}, err
	}
	if decision.Outcome == gate.OutcomeConfirm {
		pending := w.confirmations.Request(ctx, *decision.Payload, func(ctx context.Context) error {
			w.mu.Lock()
			defer w.mu.Unlock()
			return w.docs.DeleteGroup(ctx, groupID)
		})
		return parked(pending), nil
	}
	if err := w.docs.DeleteGroup(ctx, groupID); err != nil {
		return PendingResult{}, err
	}
	return PendingResult{Applied: true}, nil
}

// MergeGroups merges source into dest. The source group disappears, so the
// gate consults the source's bindings.
func (w *Workspace) MergeGroups(ctx context.Context, sourceID, destID id.GroupID) (PendingResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if sourceID == destID {
		return PendingResult{}, dErrors.New(dErrors.CodeInvalidInput, "cannot merge a group into itself")
	}
	dest, err := w.docs.GetGroup(ctx, destID)
	if err != nil {
		return PendingResult{}, err
	}
	decision, err := w.decide(ctx, gate.Intent{Kind: gate.IntentMerge, GroupID: sourceID, Detail: "merge into " + dest.Title})
	if err != nil {
		return PendingResult{}, err
	}
	if decision.Outcome == gate.OutcomeConfirm {
		pending := w.confirmations.Request(ctx, *decision.Payload, func(ctx context.Context) error {
			w.mu.Lock()
			defer w.mu.Unlock()
			_, err := w.docs.MergeGroups(ctx, sourceID, destID)
			return err
		})
		return parked(pending), nil
	}
	merged, err := w.docs.MergeGroups(ctx, sourceID, destID)
	if err != nil {
		return PendingResult{}, err
	}
	return appliedGroup(merged), nil
}

// SplitGroup moves pages into a new group; never gated (content changes
// invalidate consumers, but nothing is destroyed).
func (w *Workspace) SplitGroup(ctx context.Context, groupID id.GroupID, pageIDs []id.PageID, newTitle string) (*models.DocumentGroup, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.docs.SplitGroup(ctx, groupID, pageIDs, newTitle)
}

// MovePage applies a direct page move; never gated.
func (w *Workspace) MovePage(ctx context.Context, pageID id.PageID, fromGroupID, toGroupID id.GroupID, targetIndex int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.docs.MovePage(ctx, pageID, fromGroupID, toGroupID, targetIndex)
}

// ReorderGroups applies a section reorder; never gated.
func (w *Workspace) ReorderGroups(ctx context.Context, section id.SectionID, ordered []id.GroupID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.docs.ReorderGroups(ctx, section, ordered)
}

// GetGroup returns one group.
func (w *Workspace) GetGroup(ctx context.Context, groupID id.GroupID) (*models.DocumentGroup, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.docs.GetGroup(ctx, groupID)
}

// ListGroups returns every group ordered by section then rank.
func (w *Workspace) ListGroups(ctx context.Context) ([]*models.DocumentGroup, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.docs.ListGroups(ctx)
}

// GroupsBySection returns one section's groups in rank order.
func (w *Workspace) GroupsBySection(ctx context.Context, section id.SectionID) ([]*models.DocumentGroup, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.docs.GroupsBySection(ctx, section)
}

// SetReviewStatus marks a group reviewed or unreviewed.
func (w *Workspace) SetReviewStatus(ctx context.Context, groupID id.GroupID, status models.ReviewStatus) (*models.DocumentGroup, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.docs.SetReviewStatus(ctx, groupID, status)
}

// decide resolves an intent against the store and registry, translating a
// block into the structural not_found it stands for. The gate sees the
// group's review status and page count alongside its bindings: reviewed
// groups and non-empty deletes need confirmation even when unbound.
func (w *Workspace) decide(ctx context.Context, intent gate.Intent) (gate.Decision, error) {
	state := gate.GroupState{Exists: true}
	group, err := w.docs.GetGroup(ctx, intent.GroupID)
	switch {
	case err == nil:
		state.Reviewed = group.Status == models.ReviewStatusReviewed
		state.NonEmpty = !group.IsEmpty()
	case dErrors.HasCode(err, dErrors.CodeNotFound):
		state.Exists = false
	default:
		return gate.Decision{}, err
	}
	decision := gate.Decide(intent, state, w.registry.BindingsFor(ctx, intent.GroupID))
	if decision.Outcome == gate.OutcomeBlock {
		return decision, dErrors.New(dErrors.CodeNotFound, "group does not exist")
	}
	return decision, nil
}
