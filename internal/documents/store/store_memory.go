// Package store owns DocumentGroup and Page lifetimes. It is the only
// writer of group membership and ordering; every other component holds weak
// id references into it and revalidates on each read.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"docket/internal/documents/models"
	id "docket/pkg/domain"
	"docket/pkg/platform/sentinel"
)

// InMemory is the process-local document store. All methods take copies in
// and hand copies out; internal state never escapes.
type InMemory struct {
	mu     sync.RWMutex
	groups map[id.GroupID]*models.DocumentGroup
	pages  map[id.PageID]id.GroupID
}

func NewInMemory() *InMemory {
	return &InMemory{
		groups: make(map[id.GroupID]*models.DocumentGroup),
		pages:  make(map[id.PageID]id.GroupID),
	}
}

// CreateIfTitleAvailable inserts the group unless a sibling already uses the
// title case-insensitively. The rank is assigned here so sibling order stays
// a strict total order regardless of what the caller passed.
func (s *InMemory) CreateIfTitleAvailable(_ context.Context, group *models.DocumentGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.groups[group.ID]; exists {
		return fmt.Errorf("group %s already exists: %w", group.ID, sentinel.ErrConflict)
	}
	key := models.TitleKey(group.Title)
	maxRank := -1
	for _, g := range s.groups {
		if g.SectionID != group.SectionID {
			continue
		}
		if models.TitleKey(g.Title) == key {
			return fmt.Errorf("title %q taken in section %s: %w", group.Title, group.SectionID, sentinel.ErrConflict)
		}
		if g.Rank > maxRank {
			maxRank = g.Rank
		}
	}

	stored := group.Clone()
	stored.Rank = maxRank + 1
	for _, p := range stored.Pages {
		p.GroupID = stored.ID
		s.pages[p.ID] = stored.ID
	}
	s.normalizePositions(stored)
	s.groups[stored.ID] = stored
	return nil
}

// FindGroup returns a deep copy of the group.
func (s *InMemory) FindGroup(_ context.Context, groupID id.GroupID) (*models.DocumentGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", groupID, sentinel.ErrNotFound)
	}
	return g.Clone(), nil
}

// FindGroupByTitle resolves a group by section and case-insensitive title.
func (s *InMemory) FindGroupByTitle(_ context.Context, section id.SectionID, title string) (*models.DocumentGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key := models.TitleKey(title)
	for _, g := range s.groups {
		if g.SectionID == section && models.TitleKey(g.Title) == key {
			return g.Clone(), nil
		}
	}
	return nil, fmt.Errorf("title %q in section %s: %w", title, section, sentinel.ErrNotFound)
}

// FindPage returns a copy of the page and the owning group id.
func (s *InMemory) FindPage(_ context.Context, pageID id.PageID) (*models.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findPageLocked(pageID)
}

func (s *InMemory) findPageLocked(pageID id.PageID) (*models.Page, error) {
	groupID, ok := s.pages[pageID]
	if !ok {
		return nil, fmt.Errorf("page %s: %w", pageID, sentinel.ErrNotFound)
	}
	g := s.groups[groupID]
	for _, p := range g.Pages {
		if p.ID == pageID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("page %s: %w", pageID, sentinel.ErrNotFound)
}

// GroupsBySection lists a section's groups ordered by rank.
func (s *InMemory) GroupsBySection(_ context.Context, section id.SectionID) ([]*models.DocumentGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.DocumentGroup
	for _, g := range s.groups {
		if g.SectionID == section {
			out = append(out, g.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

// ListGroups returns every group ordered by section then rank.
func (s *InMemory) ListGroups(_ context.Context) ([]*models.DocumentGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.DocumentGroup, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SectionID != out[j].SectionID {
			return out[i].SectionID < out[j].SectionID
		}
		return out[i].Rank < out[j].Rank
	})
	return out, nil
}

// Execute runs validate then mutate on a group under the store lock, the
// atomic validate-then-mutate pattern. The mutate callback sees the live
// record; a copy is returned.
func (s *InMemory) Execute(_ context.Context, groupID id.GroupID, validate func(*models.DocumentGroup) error, mutate func(*models.DocumentGroup)) (*models.DocumentGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", groupID, sentinel.ErrNotFound)
	}
	if validate != nil {
		if err := validate(g); err != nil {
			return nil, err
		}
	}
	if mutate != nil {
		mutate(g)
	}
	return g.Clone(), nil
}

// Rename changes a group's title after re-checking sibling uniqueness. The
// store applies unconditionally once invoked; binding policy lives above it.
func (s *InMemory) Rename(_ context.Context, groupID id.GroupID, newTitle string, now time.Time) (*models.DocumentGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", groupID, sentinel.ErrNotFound)
	}
	key := models.TitleKey(newTitle)
	for _, sibling := range s.groups {
		if sibling.ID == groupID || sibling.SectionID != g.SectionID {
			continue
		}
		if models.TitleKey(sibling.Title) == key {
			return nil, fmt.Errorf("title %q taken in section %s: %w", newTitle, g.SectionID, sentinel.ErrConflict)
		}
	}
	g.ApplyRename(newTitle, now)
	return g.Clone(), nil
}

// AddPage appends a page to the end of a group.
func (s *InMemory) AddPage(_ context.Context, groupID id.GroupID, page *models.Page) (*models.DocumentGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", groupID, sentinel.ErrNotFound)
	}
	if _, exists := s.pages[page.ID]; exists {
		return nil, fmt.Errorf("page %s already owned: %w", page.ID, sentinel.ErrConflict)
	}
	cp := *page
	cp.GroupID = groupID
	cp.Position = len(g.Pages)
	g.Pages = append(g.Pages, &cp)
	g.UpdatedAt = cp.UploadedAt
	s.pages[cp.ID] = groupID
	return g.Clone(), nil
}

// MovePage re-parents a page, inserting it at targetIndex in the destination
// and re-ranking siblings in both groups. Same-group moves are a local
// reorder. The index is clamped to the end.
func (s *InMemory) MovePage(_ context.Context, pageID id.PageID, fromGroupID, toGroupID id.GroupID, targetIndex int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok := s.groups[fromGroupID]
	if !ok {
		return fmt.Errorf("source group %s: %w", fromGroupID, sentinel.ErrNotFound)
	}
	to, ok := s.groups[toGroupID]
	if !ok {
		return fmt.Errorf("target group %s: %w", toGroupID, sentinel.ErrNotFound)
	}
	owner, ok := s.pages[pageID]
	if !ok || owner != fromGroupID {
		return fmt.Errorf("page %s in group %s: %w", pageID, fromGroupID, sentinel.ErrNotFound)
	}

	var page *models.Page
	rest := make([]*models.Page, 0, len(from.Pages))
	for _, p := range from.Pages {
		if p.ID == pageID {
			page = p
			continue
		}
		rest = append(rest, p)
	}
	if page == nil {
		return fmt.Errorf("page %s in group %s: %w", pageID, fromGroupID, sentinel.ErrNotFound)
	}
	from.Pages = rest

	if targetIndex < 0 {
		targetIndex = 0
	}
	if targetIndex > len(to.Pages) {
		targetIndex = len(to.Pages)
	}
	page.GroupID = toGroupID
	to.Pages = append(to.Pages[:targetIndex], append([]*models.Page{page}, to.Pages[targetIndex:]...)...)
	s.pages[pageID] = toGroupID

	s.normalizePositions(from)
	s.normalizePositions(to)
	from.UpdatedAt = now
	to.UpdatedAt = now
	return nil
}

// ReorderGroups replaces the rank of every group in a section atomically.
// The supplied list must be exactly the section's members; omissions,
// duplicates, and foreign groups all fail with ErrInvalidState.
func (s *InMemory) ReorderGroups(_ context.Context, section id.SectionID, ordered []id.GroupID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	members := make(map[id.GroupID]*models.DocumentGroup)
	for _, g := range s.groups {
		if g.SectionID == section {
			members[g.ID] = g
		}
	}
	if len(ordered) != len(members) {
		return fmt.Errorf("reorder list has %d entries, section %s has %d groups: %w",
			len(ordered), section, len(members), sentinel.ErrInvalidState)
	}
	seen := make(map[id.GroupID]bool, len(ordered))
	for _, gid := range ordered {
		if seen[gid] {
			return fmt.Errorf("group %s listed twice: %w", gid, sentinel.ErrInvalidState)
		}
		seen[gid] = true
		if _, ok := members[gid]; !ok {
			return fmt.Errorf("group %s not in section %s: %w", gid, section, sentinel.ErrInvalidState)
		}
	}
	for rank, gid := range ordered {
		members[gid].Rank = rank
		members[gid].UpdatedAt = now
	}
	return nil
}

// MergeGroups appends all of source's pages to dest preserving relative
// order, then deletes source. Returns the updated dest.
func (s *InMemory) MergeGroups(_ context.Context, sourceID, destID id.GroupID, now time.Time) (*models.DocumentGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sourceID == destID {
		return nil, fmt.Errorf("source and destination are the same group: %w", sentinel.ErrInvalidState)
	}
	source, ok := s.groups[sourceID]
	if !ok {
		return nil, fmt.Errorf("source group %s: %w", sourceID, sentinel.ErrNotFound)
	}
	dest, ok := s.groups[destID]
	if !ok {
		return nil, fmt.Errorf("destination group %s: %w", destID, sentinel.ErrNotFound)
	}

	for _, p := range source.Pages {
		p.GroupID = destID
		dest.Pages = append(dest.Pages, p)
		s.pages[p.ID] = destID
	}
	source.Pages = nil
	delete(s.groups, sourceID)
	s.compactRanks(source.SectionID)
	s.normalizePositions(dest)
	dest.UpdatedAt = now
	return dest.Clone(), nil
}

// SplitGroup moves the named pages out of a group into a freshly created
// one. The new group lands at the end of the section's order. All requested
// pages must belong to the source group.
func (s *InMemory) SplitGroup(_ context.Context, groupID id.GroupID, pageIDs []id.PageID, newGroup *models.DocumentGroup) (*models.DocumentGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	source, ok := s.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", groupID, sentinel.ErrNotFound)
	}
	key := models.TitleKey(newGroup.Title)
	maxRank := -1
	for _, g := range s.groups {
		if g.SectionID != newGroup.SectionID {
			continue
		}
		if models.TitleKey(g.Title) == key {
			return nil, fmt.Errorf("title %q taken in section %s: %w", newGroup.Title, newGroup.SectionID, sentinel.ErrConflict)
		}
		if g.Rank > maxRank {
			maxRank = g.Rank
		}
	}

	wanted := make(map[id.PageID]bool, len(pageIDs))
	for _, pid := range pageIDs {
		owner, ok := s.pages[pid]
		if !ok || owner != groupID {
			return nil, fmt.Errorf("page %s in group %s: %w", pid, groupID, sentinel.ErrNotFound)
		}
		wanted[pid] = true
	}

	created := newGroup.Clone()
	created.Rank = maxRank + 1
	created.Pages = nil

	rest := make([]*models.Page, 0, len(source.Pages))
	for _, p := range source.Pages {
		if wanted[p.ID] {
			p.GroupID = created.ID
			created.Pages = append(created.Pages, p)
			s.pages[p.ID] = created.ID
			continue
		}
		rest = append(rest, p)
	}
	source.Pages = rest

	s.normalizePositions(source)
	s.normalizePositions(created)
	source.UpdatedAt = created.CreatedAt
	s.groups[created.ID] = created
	return created.Clone(), nil
}

// DeleteGroup removes the group and all its pages, returning a copy of the
// removed record so callers can cascade (stale field flags, audit).
func (s *InMemory) DeleteGroup(_ context.Context, groupID id.GroupID) (*models.DocumentGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", groupID, sentinel.ErrNotFound)
	}
	for _, p := range g.Pages {
		delete(s.pages, p.ID)
	}
	removed := g.Clone()
	delete(s.groups, groupID)
	s.compactRanks(g.SectionID)
	return removed, nil
}

// PageExists is the weak-reference revalidation hook for the verification
// engine: it answers only whether the page is still owned by some group.
func (s *InMemory) PageExists(_ context.Context, pageID id.PageID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pages[pageID]
	return ok
}

func (s *InMemory) normalizePositions(g *models.DocumentGroup) {
	for i, p := range g.Pages {
		p.Position = i
	}
}

// compactRanks closes rank gaps after a deletion so sibling order stays a
// contiguous total order.
func (s *InMemory) compactRanks(section id.SectionID) {
	var siblings []*models.DocumentGroup
	for _, g := range s.groups {
		if g.SectionID == section {
			siblings = append(siblings, g)
		}
	}
	sort.Slice(siblings, func(i, j int) bool { return siblings[i].Rank < siblings[j].Rank })
	for i, g := range siblings {
		g.Rank = i
	}
}
