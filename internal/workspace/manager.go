package workspace

import (
	"context"
	"sort"
	"sync"

	"docket/internal/catalog"
	id "docket/pkg/domain"
	dErrors "docket/pkg/domain-errors"
)

// Manager owns the live workspaces, one per open case.
type Manager struct {
	mu      sync.RWMutex
	cases   map[id.CaseID]*Workspace
	catalog *catalog.Catalog
	deps    Deps
}

func NewManager(cat *catalog.Catalog, deps Deps) *Manager {
	return &Manager{
		cases:   make(map[id.CaseID]*Workspace),
		catalog: cat,
		deps:    deps,
	}
}

// Open creates a workspace for a new case on the given route.
func (m *Manager) Open(ctx context.Context, routeID string) (*Workspace, error) {
	route, err := m.catalog.Route(ctx, routeID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "unknown visa route")
	}
	w, err := New(ctx, id.NewCaseID(), route, m.deps)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cases[w.CaseID] = w
	return w, nil
}

// Get returns an open case's workspace.
func (m *Manager) Get(caseID id.CaseID) (*Workspace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.cases[caseID]
	if !ok {
		return nil, dErrors.New(dErrors.CodeNotFound, "case does not exist")
	}
	return w, nil
}

// List returns the open workspaces ordered by case id.
func (m *Manager) List() []*Workspace {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Workspace, 0, len(m.cases))
	for _, w := range m.cases {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CaseID.String() < out[j].CaseID.String() })
	return out
}
