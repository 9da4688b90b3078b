package workspace

import (
	"context"
	"fmt"

	"docket/internal/audit"
	"docket/internal/binding"
	id "docket/pkg/domain"
	"docket/pkg/requestcontext"
)

// BindSection links a group to a checklist section as its evidence source.
// Recording an existing binding is a no-op.
func (w *Workspace) BindSection(ctx context.Context, groupID id.GroupID, section id.SectionID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.checkSection(section); err != nil {
		return err
	}
	b, err := binding.SectionBinding(section)
	if err != nil {
		return err
	}
	return w.bind(ctx, groupID, b)
}

// BindAssessment links a group to the case-level assessment.
func (w *Workspace) BindAssessment(ctx context.Context, groupID id.GroupID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bind(ctx, groupID, binding.AssessmentBinding())
}

func (w *Workspace) bind(ctx context.Context, groupID id.GroupID, b binding.Binding) error {
	group, err := w.docs.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	w.registry.Record(ctx, groupID, b)
	w.engine.AttachSource(ctx, b.Section, b.Type == binding.TypeAssessment, groupID)
	w.emit(ctx, audit.ActionBindingRecorded, groupID.String(), fmt.Sprintf("%s -> %s", group.Title, b.ConsumerLabel()))
	return nil
}

// UnbindSection removes a section binding. Releasing an absent binding is a
// no-op; nothing is invalidated either way.
func (w *Workspace) UnbindSection(ctx context.Context, groupID id.GroupID, section id.SectionID) error {
	b, err := binding.SectionBinding(section)
	if err != nil {
		return err
	}
	return w.unbind(ctx, groupID, b)
}

// UnbindAssessment removes the assessment binding from a group.
func (w *Workspace) UnbindAssessment(ctx context.Context, groupID id.GroupID) error {
	return w.unbind(ctx, groupID, binding.AssessmentBinding())
}

func (w *Workspace) unbind(ctx context.Context, groupID id.GroupID, b binding.Binding) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.docs.GetGroup(ctx, groupID); err != nil {
		return err
	}
	w.registry.Release(ctx, groupID, b)
	w.engine.DetachSource(ctx, b.Section, b.Type == binding.TypeAssessment, groupID)
	w.emit(ctx, audit.ActionBindingReleased, groupID.String(), b.ConsumerLabel())
	return nil
}

// GroupBindings lists a group's bindings in recording order.
func (w *Workspace) GroupBindings(ctx context.Context, groupID id.GroupID) ([]binding.Binding, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.docs.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return w.registry.BindingsFor(ctx, groupID), nil
}

func (w *Workspace) emit(ctx context.Context, action audit.Action, subject, detail string) {
	if w.auditor == nil {
		return
	}
	event := audit.Event{
		Timestamp: requestcontext.Now(ctx),
		CaseID:    w.CaseID,
		Action:    action,
		Subject:   subject,
		Detail:    detail,
	}
	if err := w.auditor.Emit(ctx, event); err != nil {
		w.logger.WarnContext(ctx, "audit emit failed", "action", string(action), "error", err)
	}
}
