package models

import (
	"strings"
	"time"

	id "docket/pkg/domain"
	dErrors "docket/pkg/domain-errors"
)

// ReviewStatus tracks whether a caseworker has looked through a group's pages.
type ReviewStatus string

const (
	ReviewStatusUnreviewed ReviewStatus = "unreviewed"
	ReviewStatusReviewed   ReviewStatus = "reviewed"
)

// DocumentGroup is the aggregate root for one named document category
// ("Passport", "Bank Statements").
//
// Invariants:
//   - Title is non-empty, at most 128 characters, and unique within its
//     section case-insensitively (enforced by the store)
//   - Rank is a strict total order among sibling groups (no ties)
//   - Pages are exclusively owned: a page belongs to exactly one group
//   - Page positions are contiguous from zero in display order
type DocumentGroup struct {
	ID        id.GroupID   `json:"id"`
	SectionID id.SectionID `json:"section_id"`
	Title     string       `json:"title"`
	Rank      int          `json:"rank"`
	Status    ReviewStatus `json:"status"`
	Pages     []*Page      `json:"pages"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Page is one uploaded file belonging to exactly one group. PayloadRef is an
// opaque handle owned by the external upload collaborator; this core never
// dereferences it.
type Page struct {
	ID         id.PageID  `json:"id"`
	GroupID    id.GroupID `json:"group_id"`
	Filename   string     `json:"filename"`
	Position   int        `json:"position"`
	PayloadRef string     `json:"payload_ref"`
	UploadedAt time.Time  `json:"uploaded_at"`
}

// ValidateTitle enforces the shape constraints on a group title. Uniqueness
// is the store's concern since it needs sibling visibility.
func ValidateTitle(title string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "group title cannot be empty")
	}
	if len(trimmed) > 128 {
		return dErrors.New(dErrors.CodeInvalidInput, "group title must be 128 characters or less")
	}
	return nil
}

// NewDocumentGroup constructs a group with no pages. Rank placement is the
// store's job; callers pass the rank the store assigned.
func NewDocumentGroup(groupID id.GroupID, section id.SectionID, title string, rank int, now time.Time) (*DocumentGroup, error) {
	if err := ValidateTitle(title); err != nil {
		return nil, err
	}
	if section.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "section id is required")
	}
	return &DocumentGroup{
		ID:        groupID,
		SectionID: section,
		Title:     strings.TrimSpace(title),
		Rank:      rank,
		Status:    ReviewStatusUnreviewed,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NewPage constructs an unattached page record. The store parents it.
func NewPage(pageID id.PageID, filename, payloadRef string, now time.Time) (*Page, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "page filename cannot be empty")
	}
	return &Page{
		ID:         pageID,
		Filename:   filename,
		PayloadRef: payloadRef,
		UploadedAt: now,
	}, nil
}

// TitleKey normalizes a title for case-insensitive uniqueness checks.
func TitleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// IsEmpty reports whether the group holds no pages.
func (g *DocumentGroup) IsEmpty() bool { return len(g.Pages) == 0 }

// PageIDs returns the group's page identifiers in display order.
func (g *DocumentGroup) PageIDs() []id.PageID {
	ids := make([]id.PageID, len(g.Pages))
	for i, p := range g.Pages {
		ids[i] = p.ID
	}
	return ids
}

// ApplyRename changes the title. Call after the store's uniqueness check.
func (g *DocumentGroup) ApplyRename(title string, now time.Time) {
	g.Title = strings.TrimSpace(title)
	g.UpdatedAt = now
}

// MarkReviewed records that a caseworker has gone through the pages.
func (g *DocumentGroup) MarkReviewed(now time.Time) {
	g.Status = ReviewStatusReviewed
	g.UpdatedAt = now
}

// MarkUnreviewed drops the reviewed flag, used when content changes.
func (g *DocumentGroup) MarkUnreviewed(now time.Time) {
	g.Status = ReviewStatusUnreviewed
	g.UpdatedAt = now
}

// Clone returns a deep copy so store snapshots cannot be mutated by callers.
func (g *DocumentGroup) Clone() *DocumentGroup {
	cp := *g
	cp.Pages = make([]*Page, len(g.Pages))
	for i, p := range g.Pages {
		pc := *p
		cp.Pages[i] = &pc
	}
	return &cp
}
