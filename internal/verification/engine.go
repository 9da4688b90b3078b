package verification

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	vmetrics "docket/internal/verification/metrics"
	id "docket/pkg/domain"
	dErrors "docket/pkg/domain-errors"
	"docket/pkg/platform/sentinel"
	"docket/pkg/requestcontext"
)

// PageIndex is the engine's weak-reference view into the document store:
// fields cite pages by id and the engine revalidates on every read rather
// than holding the records themselves.
type PageIndex interface {
	PageExists(ctx context.Context, pageID id.PageID) bool
}

// Engine orchestrates evidence-module lifecycle: accepting extraction
// results, field verification, issue resolution, and invalidation.
type Engine struct {
	store   *InMemoryStore
	pages   PageIndex
	logger  *slog.Logger
	metrics *vmetrics.Metrics
}

type EngineOption func(*Engine)

func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

func WithMetrics(m *vmetrics.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(store *InMemoryStore, pages PageIndex, opts ...EngineOption) *Engine {
	e := &Engine{store: store, pages: pages, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Instantiate creates a pending module from a schema template and registers
// it with the engine.
func (e *Engine) Instantiate(ctx context.Context, title string, docType id.DocumentType, section id.SectionID, assessment bool) (*EvidenceModule, error) {
	module, err := NewEvidenceModule(id.NewModuleID(), title, docType, section, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	module.Assessment = assessment
	if err := e.store.Create(ctx, module); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create evidence module")
	}
	return module, nil
}

// GetModule returns one module with stale source flags refreshed.
func (e *Engine) GetModule(ctx context.Context, moduleID id.ModuleID) (*EvidenceModule, error) {
	m, err := e.store.Find(ctx, moduleID)
	if err != nil {
		return nil, wrapModuleErr(err)
	}
	e.refreshStaleFlags(ctx, m)
	return m, nil
}

// ListModules returns every module with stale source flags refreshed.
func (e *Engine) ListModules(ctx context.Context) ([]*EvidenceModule, error) {
	modules, err := e.store.List(ctx)
	if err != nil {
		return nil, wrapModuleErr(err)
	}
	for _, m := range modules {
		e.refreshStaleFlags(ctx, m)
	}
	return modules, nil
}

// ModulesBySection returns the modules serving one checklist section, stale
// flags refreshed.
func (e *Engine) ModulesBySection(ctx context.Context, section id.SectionID) ([]*EvidenceModule, error) {
	modules, err := e.store.ListBySection(ctx, section)
	if err != nil {
		return nil, wrapModuleErr(err)
	}
	for _, m := range modules {
		e.refreshStaleFlags(ctx, m)
	}
	return modules, nil
}

// AssessmentModules returns the assessment-consumer modules, stale flags
// refreshed.
func (e *Engine) AssessmentModules(ctx context.Context) ([]*EvidenceModule, error) {
	modules, err := e.store.ListAssessment(ctx)
	if err != nil {
		return nil, wrapModuleErr(err)
	}
	for _, m := range modules {
		e.refreshStaleFlags(ctx, m)
	}
	return modules, nil
}

// refreshStaleFlags revalidates each field's weak page reference against the
// document store. References are checked on every read because the store
// mutates independently.
func (e *Engine) refreshStaleFlags(ctx context.Context, m *EvidenceModule) {
	if e.pages == nil {
		return
	}
	for i := range m.Fields {
		src := m.Fields[i].Source
		if src.ManuallyEntered || src.PageID.IsNil() {
			continue
		}
		if !e.pages.PageExists(ctx, src.PageID) {
			m.Fields[i].Stale = true
		}
	}
}

// AcceptExtraction stores externally produced extraction results on a
// module, replacing any previous fields and issues. Modules never return to
// pending; a re-extraction lands in extracted or needs_review.
func (e *Engine) AcceptExtraction(ctx context.Context, moduleID id.ModuleID, fields []ExtractedField, issues []Issue) (*EvidenceModule, error) {
	for i := range fields {
		if strings.TrimSpace(fields[i].Key) == "" {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "extracted field key cannot be empty")
		}
		if fields[i].Status == "" {
			fields[i].Status = FieldStatusUnverified
		}
	}
	now := requestcontext.Now(ctx)
	m, err := e.store.Execute(ctx, moduleID, nil, func(m *EvidenceModule) {
		m.ApplyExtraction(fields, issues, now)
	})
	if err != nil {
		return nil, wrapModuleErr(err)
	}
	if e.metrics != nil {
		e.metrics.IncrementExtractionsAccepted()
	}
	e.logger.InfoContext(ctx, "extraction accepted",
		"module_id", moduleID.String(),
		"fields", len(fields),
		"issues", len(issues),
		"status", string(m.Status),
	)
	return m, nil
}

// SetFieldVerification updates one field's verification status. Status
// edited requires an edited value and flips provenance to manually entered;
// the original page reference stays on the record for audit. Confirming a
// field clears info/warning issues keyed to it but never error issues.
func (e *Engine) SetFieldVerification(ctx context.Context, moduleID id.ModuleID, fieldKey string, status FieldStatus, editedValue *string) (*EvidenceModule, error) {
	if !status.IsSettled() && status != FieldStatusUnverified {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown field verification status")
	}
	if status == FieldStatusEdited && editedValue == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "edited status requires an edited value")
	}

	now := requestcontext.Now(ctx)
	m, err := e.store.Execute(ctx, moduleID,
		func(m *EvidenceModule) error {
			field := m.FieldByKey(fieldKey)
			if field == nil {
				return dErrors.New(dErrors.CodeNotFound, "field "+fieldKey+" does not exist on module")
			}
			if status == FieldStatusEdited && !field.Editable {
				return dErrors.New(dErrors.CodeInvariantViolation, "field "+fieldKey+" is not editable")
			}
			return nil
		},
		func(m *EvidenceModule) {
			field := m.FieldByKey(fieldKey)
			field.Status = status
			if status == FieldStatusEdited {
				field.Value = *editedValue
				field.Source.ManuallyEntered = true
				field.Stale = false
			}
			if status == FieldStatusConfirmed {
				for i := range m.Issues {
					issue := &m.Issues[i]
					if issue.FieldKey != fieldKey || issue.Resolved {
						continue
					}
					if issue.Severity == SeverityInfo || issue.Severity == SeverityWarning {
						issue.Resolved = true
					}
				}
				m.refreshReviewStatus()
			}
			m.UpdatedAt = now
		},
	)
	if err != nil {
		return nil, wrapModuleErr(err)
	}
	if e.metrics != nil {
		e.metrics.IncrementFieldsVerified()
	}
	return m, nil
}

// ResolveIssue marks an issue resolved. Hard errors reach this path only
// through an explicit call: confirming a field never auto-clears them.
func (e *Engine) ResolveIssue(ctx context.Context, moduleID id.ModuleID, issueID string) (*EvidenceModule, error) {
	now := requestcontext.Now(ctx)
	m, err := e.store.Execute(ctx, moduleID,
		func(m *EvidenceModule) error {
			for i := range m.Issues {
				if m.Issues[i].ID == issueID {
					return nil
				}
			}
			return dErrors.New(dErrors.CodeNotFound, "issue "+issueID+" does not exist on module")
		},
		func(m *EvidenceModule) {
			for i := range m.Issues {
				if m.Issues[i].ID == issueID {
					m.Issues[i].Resolved = true
				}
			}
			m.refreshReviewStatus()
			m.UpdatedAt = now
		},
	)
	if err != nil {
		return nil, wrapModuleErr(err)
	}
	return m, nil
}

// ConfirmReview transitions a module to reviewed. Fails with
// incomplete_review while any field remains unverified.
func (e *Engine) ConfirmReview(ctx context.Context, moduleID id.ModuleID) (*EvidenceModule, error) {
	now := requestcontext.Now(ctx)
	m, err := e.store.Execute(ctx, moduleID,
		func(m *EvidenceModule) error { return m.CanConfirmReview() },
		func(m *EvidenceModule) { m.ApplyReviewConfirmation(now) },
	)
	if err != nil {
		return nil, wrapModuleErr(err)
	}
	if e.metrics != nil {
		e.metrics.IncrementReviewsConfirmed()
	}
	e.logger.InfoContext(ctx, "module review confirmed", "module_id", moduleID.String())
	return m, nil
}

// AttachSource links a document group as an evidence source on every module
// serving the given consumer.
func (e *Engine) AttachSource(ctx context.Context, section id.SectionID, assessment bool, groupID id.GroupID) {
	now := requestcontext.Now(ctx)
	e.store.ExecuteAll(ctx,
		func(m *EvidenceModule) bool { return consumerMatches(m, section, assessment) },
		func(m *EvidenceModule) {
			for _, src := range m.Sources {
				if src == groupID {
					return
				}
			}
			m.Sources = append(m.Sources, groupID)
			m.UpdatedAt = now
		},
	)
}

// DetachSource removes a group link from every module serving the consumer.
func (e *Engine) DetachSource(ctx context.Context, section id.SectionID, assessment bool, groupID id.GroupID) {
	now := requestcontext.Now(ctx)
	e.store.ExecuteAll(ctx,
		func(m *EvidenceModule) bool { return consumerMatches(m, section, assessment) },
		func(m *EvidenceModule) {
			for i, src := range m.Sources {
				if src == groupID {
					m.Sources = append(m.Sources[:i], m.Sources[i+1:]...)
					m.UpdatedAt = now
					return
				}
			}
		},
	)
}

// InvalidateConsumer raises the needs-re-analysis flag on every module
// serving the consumer; reviewed modules drop to stale.
func (e *Engine) InvalidateConsumer(ctx context.Context, section id.SectionID, assessment bool) error {
	now := requestcontext.Now(ctx)
	touched := e.store.ExecuteAll(ctx,
		func(m *EvidenceModule) bool { return consumerMatches(m, section, assessment) },
		func(m *EvidenceModule) { m.ApplyInvalidation(now) },
	)
	if e.metrics != nil {
		e.metrics.AddModulesInvalidated(len(touched))
	}
	for _, mid := range touched {
		e.logger.InfoContext(ctx, "module invalidated", "module_id", mid.String())
	}
	return nil
}

// FlagStalePages marks every field citing one of the removed pages as stale.
// Called on group deletion so provenance loss is recorded, not hidden.
func (e *Engine) FlagStalePages(ctx context.Context, removed []id.PageID) {
	if len(removed) == 0 {
		return
	}
	gone := make(map[id.PageID]bool, len(removed))
	for _, pid := range removed {
		gone[pid] = true
	}
	now := requestcontext.Now(ctx)
	e.store.ExecuteAll(ctx,
		func(m *EvidenceModule) bool {
			for _, f := range m.Fields {
				if !f.Source.ManuallyEntered && gone[f.Source.PageID] {
					return true
				}
			}
			return false
		},
		func(m *EvidenceModule) {
			for i := range m.Fields {
				f := &m.Fields[i]
				if !f.Source.ManuallyEntered && gone[f.Source.PageID] {
					f.Stale = true
				}
			}
			m.UpdatedAt = now
		},
	)
}

func consumerMatches(m *EvidenceModule, section id.SectionID, assessment bool) bool {
	if assessment {
		return m.Assessment
	}
	return !m.Assessment && m.Section == section
}

func wrapModuleErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "evidence module not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "evidence module conflict")
	default:
		if dErrors.CodeOf(err) != dErrors.CodeInternal {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "evidence module operation failed")
	}
}
