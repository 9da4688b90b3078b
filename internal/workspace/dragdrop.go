package workspace

import (
	"context"

	"docket/internal/dragdrop"
	"docket/internal/gate"
)

// DragResult reports what a gesture did. NextLayout is the board after the
// mutation; Pending is set when the gesture emptied a bound or reviewed
// group whose removal now waits on the confirmation gate.
type DragResult struct {
	Command    dragdrop.Command          `json:"command"`
	NextLayout dragdrop.Layout           `json:"next_layout"`
	Pending    *gate.PendingConfirmation `json:"pending,omitempty"`
}

// ApplyDrag resolves a drag gesture against the current board and applies
// the resulting store command. The reducer stays pure; this is the only
// place its commands touch state.
func (w *Workspace) ApplyDrag(ctx context.Context, ev dragdrop.DragEvent) (DragResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	layout, err := w.layoutLocked(ctx)
	if err != nil {
		return DragResult{}, err
	}
	next, cmd, err := dragdrop.Reduce(layout, ev)
	if err != nil {
		return DragResult{}, err
	}
	result := DragResult{Command: cmd, NextLayout: next}

	switch cmd.Kind {
	case dragdrop.CommandNone:
		return result, nil
	case dragdrop.CommandMovePage:
		if err := w.docs.MovePage(ctx, cmd.PageID, cmd.FromGroup, cmd.ToGroup, cmd.TargetIndex); err != nil {
			return DragResult{}, err
		}
	case dragdrop.CommandReorderGroups:
		if err := w.docs.ReorderGroups(ctx, cmd.Section, cmd.OrderedGroups); err != nil {
			return DragResult{}, err
		}
	}

	if cmd.Cleanup == dragdrop.CleanupAutoDelete || cmd.Cleanup == dragdrop.CleanupDeferred {
		decision, err := w.decide(ctx, gate.Intent{Kind: gate.IntentDelete, GroupID: cmd.CleanupGroup, Detail: "group emptied by drag"})
		if err != nil {
			return DragResult{}, err
		}
		if decision.Outcome == gate.OutcomeConfirm {
			// The emptied group is bound or reviewed: park its deletion
			// behind the gate instead of removing it out from under its
			// consumers.
			groupID := cmd.CleanupGroup
			pending := w.confirmations.Request(ctx, *decision.Payload, func(ctx context.Context) error {
				w.mu.Lock()
				defer w.mu.Unlock()
				return w.docs.DeleteGroup(ctx, groupID)
			})
			result.Pending = &pending
			if cmd.Cleanup == dragdrop.CleanupAutoDelete {
				// The reducer dropped the group from its layout; the group
				// survives until the caseworker accepts, so re-read the board.
				refreshed, err := w.layoutLocked(ctx)
				if err != nil {
					return DragResult{}, err
				}
				result.NextLayout = refreshed
			}
		} else if err := w.docs.DeleteGroup(ctx, cmd.CleanupGroup); err != nil {
			return DragResult{}, err
		}
	}
	return result, nil
}

// Layout returns the current board: route sections in checklist order, each
// with its groups in rank order and their binding flags.
func (w *Workspace) Layout(ctx context.Context) (dragdrop.Layout, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.layoutLocked(ctx)
}

func (w *Workspace) layoutLocked(ctx context.Context) (dragdrop.Layout, error) {
	layout := dragdrop.Layout{Sections: make([]dragdrop.SectionLayout, 0, len(w.Route.Sections))}
	for _, section := range w.Route.Sections {
		groups, err := w.docs.GroupsBySection(ctx, section.ID)
		if err != nil {
			return dragdrop.Layout{}, err
		}
		sl := dragdrop.SectionLayout{ID: section.ID, Groups: make([]dragdrop.GroupLayout, 0, len(groups))}
		for _, g := range groups {
			sl.Groups = append(sl.Groups, dragdrop.GroupLayout{
				ID:    g.ID,
				Bound: w.registry.IsBound(ctx, g.ID),
				Pages: g.PageIDs(),
			})
		}
		layout.Sections = append(layout.Sections, sl)
	}
	return layout, nil
}
