// Package snapshot assembles the read model the UI renders: the full board
// (sections, groups, bindings), the evidence modules, and any pending
// confirmations. The UI dispatches one action at a time, so the reads here
// see a quiescent workspace; each read is individually consistent under the
// workspace lock.
package snapshot

import (
	"context"

	"golang.org/x/sync/errgroup"

	"docket/internal/binding"
	"docket/internal/documents/models"
	"docket/internal/gate"
	"docket/internal/verification"
	"docket/internal/workspace"
	id "docket/pkg/domain"
)

// GroupView is one group plus its current bindings.
type GroupView struct {
	Group    *models.DocumentGroup `json:"group"`
	Bindings []binding.Binding     `json:"bindings"`
}

// SectionView is one checklist section with its groups in rank order.
type SectionView struct {
	ID     id.SectionID `json:"id"`
	Title  string       `json:"title"`
	Groups []GroupView  `json:"groups"`
}

// CaseSnapshot is the complete render state for one case.
type CaseSnapshot struct {
	CaseID   id.CaseID                      `json:"case_id"`
	RouteID  string                         `json:"route_id"`
	Sections []SectionView                  `json:"sections"`
	Modules  []*verification.EvidenceModule `json:"modules"`
	Pending  []gate.PendingConfirmation     `json:"pending_confirmations"`
}

// Build gathers the board, module, and confirmation views for a case. The
// three reads are independent, so they run concurrently; the workspace's own
// locking keeps each one internally consistent.
func Build(ctx context.Context, w *workspace.Workspace) (CaseSnapshot, error) {
	snap := CaseSnapshot{CaseID: w.CaseID, RouteID: w.Route.ID}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sections, err := buildSections(ctx, w)
		if err != nil {
			return err
		}
		snap.Sections = sections
		return nil
	})
	g.Go(func() error {
		modules, err := w.ListModules(ctx)
		if err != nil {
			return err
		}
		snap.Modules = modules
		return nil
	})
	g.Go(func() error {
		snap.Pending = w.PendingConfirmations()
		return nil
	})
	if err := g.Wait(); err != nil {
		return CaseSnapshot{}, err
	}
	return snap, nil
}

func buildSections(ctx context.Context, w *workspace.Workspace) ([]SectionView, error) {
	sections := make([]SectionView, 0, len(w.Route.Sections))
	for _, def := range w.Route.Sections {
		groups, err := w.GroupsBySection(ctx, def.ID)
		if err != nil {
			return nil, err
		}
		view := SectionView{ID: def.ID, Title: def.Title, Groups: make([]GroupView, 0, len(groups))}
		for _, group := range groups {
			bindings, err := w.GroupBindings(ctx, group.ID)
			if err != nil {
				return nil, err
			}
			view.Groups = append(view.Groups, GroupView{Group: group, Bindings: bindings})
		}
		sections = append(sections, view)
	}
	return sections, nil
}
