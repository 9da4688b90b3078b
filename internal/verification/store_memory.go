package verification

import (
	"context"
	"fmt"
	"sort"
	"sync"

	id "docket/pkg/domain"
	"docket/pkg/platform/sentinel"
)

// InMemoryStore holds the evidence modules for one case workspace.
type InMemoryStore struct {
	mu      sync.RWMutex
	modules map[id.ModuleID]*EvidenceModule
	order   []id.ModuleID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{modules: make(map[id.ModuleID]*EvidenceModule)}
}

// Create inserts a new module. Instantiation order is preserved for listing.
func (s *InMemoryStore) Create(_ context.Context, module *EvidenceModule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.modules[module.ID]; exists {
		return fmt.Errorf("module %s already exists: %w", module.ID, sentinel.ErrConflict)
	}
	s.modules[module.ID] = module.Clone()
	s.order = append(s.order, module.ID)
	return nil
}

// Find returns a deep copy of the module.
func (s *InMemoryStore) Find(_ context.Context, moduleID id.ModuleID) (*EvidenceModule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.modules[moduleID]
	if !ok {
		return nil, fmt.Errorf("module %s: %w", moduleID, sentinel.ErrNotFound)
	}
	return m.Clone(), nil
}

// List returns all modules in instantiation order.
func (s *InMemoryStore) List(_ context.Context) ([]*EvidenceModule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*EvidenceModule, 0, len(s.order))
	for _, mid := range s.order {
		out = append(out, s.modules[mid].Clone())
	}
	return out, nil
}

// ListBySection returns the modules serving a checklist section, in
// instantiation order.
func (s *InMemoryStore) ListBySection(_ context.Context, section id.SectionID) ([]*EvidenceModule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*EvidenceModule
	for _, mid := range s.order {
		if m := s.modules[mid]; m.Section == section && !m.Assessment {
			out = append(out, m.Clone())
		}
	}
	return out, nil
}

// ListAssessment returns the assessment-consumer modules.
func (s *InMemoryStore) ListAssessment(_ context.Context) ([]*EvidenceModule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*EvidenceModule
	for _, mid := range s.order {
		if m := s.modules[mid]; m.Assessment {
			out = append(out, m.Clone())
		}
	}
	return out, nil
}

// Execute runs validate then mutate on a module under the store lock.
func (s *InMemoryStore) Execute(_ context.Context, moduleID id.ModuleID, validate func(*EvidenceModule) error, mutate func(*EvidenceModule)) (*EvidenceModule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.modules[moduleID]
	if !ok {
		return nil, fmt.Errorf("module %s: %w", moduleID, sentinel.ErrNotFound)
	}
	if validate != nil {
		if err := validate(m); err != nil {
			return nil, err
		}
	}
	if mutate != nil {
		mutate(m)
	}
	return m.Clone(), nil
}

// ExecuteAll applies mutate to every module matching the filter and returns
// the ids it touched, sorted for deterministic logging.
func (s *InMemoryStore) ExecuteAll(_ context.Context, filter func(*EvidenceModule) bool, mutate func(*EvidenceModule)) []id.ModuleID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var touched []id.ModuleID
	for _, mid := range s.order {
		m := s.modules[mid]
		if filter(m) {
			mutate(m)
			touched = append(touched, mid)
		}
	}
	sort.Slice(touched, func(i, j int) bool { return touched[i].String() < touched[j].String() })
	return touched
}
