package workspace

import (
	"context"

	"docket/internal/audit"
	"docket/internal/binding"
	"docket/internal/gate"
	"docket/internal/verification"
	id "docket/pkg/domain"
)

// ListModules returns the case's evidence modules in instantiation order.
func (w *Workspace) ListModules(ctx context.Context) ([]*verification.EvidenceModule, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.engine.ListModules(ctx)
}

// ModulesBySection returns the modules serving one checklist section.
func (w *Workspace) ModulesBySection(ctx context.Context, section id.SectionID) ([]*verification.EvidenceModule, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.engine.ModulesBySection(ctx, section)
}

// AssessmentModules returns the assessment-consumer modules.
func (w *Workspace) AssessmentModules(ctx context.Context) ([]*verification.EvidenceModule, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.engine.AssessmentModules(ctx)
}

// GetModule returns one evidence module.
func (w *Workspace) GetModule(ctx context.Context, moduleID id.ModuleID) (*verification.EvidenceModule, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.engine.GetModule(ctx, moduleID)
}

// AcceptExtraction stores externally produced extraction results on a module.
func (w *Workspace) AcceptExtraction(ctx context.Context, moduleID id.ModuleID, fields []verification.ExtractedField, issues []verification.Issue) (*verification.EvidenceModule, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	module, err := w.engine.AcceptExtraction(ctx, moduleID, fields, issues)
	if err != nil {
		return nil, err
	}
	w.emit(ctx, audit.ActionExtractionStored, moduleID.String(), module.Title)
	return module, nil
}

// SetFieldVerification records the caseworker's verdict on one field.
func (w *Workspace) SetFieldVerification(ctx context.Context, moduleID id.ModuleID, fieldKey string, status verification.FieldStatus, editedValue *string) (*verification.EvidenceModule, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	module, err := w.engine.SetFieldVerification(ctx, moduleID, fieldKey, status, editedValue)
	if err != nil {
		return nil, err
	}
	w.emit(ctx, audit.ActionFieldVerified, moduleID.String(), fieldKey+" -> "+string(status))
	return module, nil
}

// ResolveIssue acknowledges a hard issue on a module.
func (w *Workspace) ResolveIssue(ctx context.Context, moduleID id.ModuleID, issueID string) (*verification.EvidenceModule, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	module, err := w.engine.ResolveIssue(ctx, moduleID, issueID)
	if err != nil {
		return nil, err
	}
	w.emit(ctx, audit.ActionIssueResolved, moduleID.String(), issueID)
	return module, nil
}

// ConfirmReview routes through the gate: when a module's source evidence
// also feeds other consumers, the caseworker acknowledges that before the
// review locks in.
func (w *Workspace) ConfirmReview(ctx context.Context, moduleID id.ModuleID) (PendingResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	module, err := w.engine.GetModule(ctx, moduleID)
	if err != nil {
		return PendingResult{}, err
	}

	affectedGroup, foreign := w.foreignBindings(ctx, module)
	decision := gate.Decide(gate.Intent{Kind: gate.IntentConfirmReview, GroupID: affectedGroup, Detail: "confirm review of " + module.Title}, gate.GroupState{Exists: true}, foreign)
	if decision.Outcome == gate.OutcomeConfirm {
		pending := w.confirmations.Request(ctx, *decision.Payload, func(ctx context.Context) error {
			w.mu.Lock()
			defer w.mu.Unlock()
			return w.confirmReview(ctx, moduleID)
		})
		return parked(pending), nil
	}
	if err := w.confirmReview(ctx, moduleID); err != nil {
		return PendingResult{}, err
	}
	confirmed, err := w.engine.GetModule(ctx, moduleID)
	if err != nil {
		return PendingResult{}, err
	}
	return PendingResult{Applied: true, Module: confirmed}, nil
}

func (w *Workspace) confirmReview(ctx context.Context, moduleID id.ModuleID) error {
	module, err := w.engine.ConfirmReview(ctx, moduleID)
	if err != nil {
		return err
	}
	w.emit(ctx, audit.ActionReviewConfirmed, moduleID.String(), module.Title)
	return nil
}

// foreignBindings collects the bindings on the module's source groups that
// feed consumers other than the module itself. Those are the consumers a
// review confirmation warns about.
func (w *Workspace) foreignBindings(ctx context.Context, module *verification.EvidenceModule) (id.GroupID, []binding.Binding) {
	var affected id.GroupID
	var foreign []binding.Binding
	for _, groupID := range module.Sources {
		for _, b := range w.registry.BindingsFor(ctx, groupID) {
			ownConsumer := (b.Type == binding.TypeAssessment) == module.Assessment && b.Section == module.Section
			if ownConsumer {
				continue
			}
			if affected.IsNil() {
				affected = groupID
			}
			foreign = append(foreign, b)
		}
	}
	return affected, foreign
}
