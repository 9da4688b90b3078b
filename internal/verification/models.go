// Package verification tracks per-module extraction state: extracted fields,
// their provenance, detected issues, and the review lifecycle. It holds weak
// id references into the document store and revalidates them on read;
// extraction itself happens outside this core and arrives as input data.
package verification

import (
	"strings"
	"time"

	id "docket/pkg/domain"
	dErrors "docket/pkg/domain-errors"
)

// ModuleStatus is the per-module lifecycle state.
//
// Transitions:
//
//	pending -> extracted              extraction results accepted
//	extracted <-> needs_review        unresolved error/warning issues appear/clear
//	extracted|needs_review -> reviewed  every field confirmed/rejected/edited
//	reviewed -> stale                 a bound source changed after review
//	stale -> extracted|needs_review   re-extraction, or review redone
//
// No state ever returns to pending; modules are re-extracted, not reset.
type ModuleStatus string

const (
	ModuleStatusPending     ModuleStatus = "pending"
	ModuleStatusExtracted   ModuleStatus = "extracted"
	ModuleStatusNeedsReview ModuleStatus = "needs_review"
	ModuleStatusReviewed    ModuleStatus = "reviewed"
	ModuleStatusStale       ModuleStatus = "stale"
)

// FieldStatus is the verification state of one extracted field.
type FieldStatus string

const (
	FieldStatusUnverified FieldStatus = "unverified"
	FieldStatusConfirmed  FieldStatus = "confirmed"
	FieldStatusRejected   FieldStatus = "rejected"
	FieldStatusEdited     FieldStatus = "edited"
)

// IsSettled reports whether the field no longer blocks review completion.
func (s FieldStatus) IsSettled() bool {
	return s == FieldStatusConfirmed || s == FieldStatusRejected || s == FieldStatusEdited
}

// Severity ranks an issue.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Region is an optional bounding box on the source page, in page-relative
// coordinates (0..1).
type Region struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// FieldSource is the provenance backing a field value. When ManuallyEntered
// is set, the original page reference is retained for audit but is no longer
// authoritative.
type FieldSource struct {
	PageID          id.PageID `json:"page_id,omitempty"`
	Region          *Region   `json:"region,omitempty"`
	ManuallyEntered bool      `json:"manually_entered"`
}

// ExtractedField is one schema-defined datum on a module.
// Stale is set when the source page disappears; it is a first-class flag,
// never an error, so provenance loss stays visible.
type ExtractedField struct {
	Key      string      `json:"key"`
	Value    string      `json:"value"`
	Source   FieldSource `json:"source"`
	Status   FieldStatus `json:"status"`
	Editable bool        `json:"editable"`
	Stale    bool        `json:"stale"`
}

// Issue is a detected problem on a module or one of its fields. FieldKey is
// empty for module-level issues.
type Issue struct {
	ID       string   `json:"id"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	FieldKey string   `json:"field_key,omitempty"`
	Resolved bool     `json:"resolved"`
}

// EvidenceModule is one instantiated evidence requirement ("Payslip #2")
// drawn from a schema template.
//
// Invariants:
//   - Status follows the transition table on ModuleStatus
//   - Reviewed requires every field settled (confirmed/rejected/edited)
//   - Sources are weak references; the document store may delete them
//     independently, which surfaces as stale field flags, never errors
type EvidenceModule struct {
	ID              id.ModuleID      `json:"id"`
	Title           string           `json:"title"`
	DocumentType    id.DocumentType  `json:"document_type"`
	Section         id.SectionID     `json:"section"`
	Assessment      bool             `json:"assessment"`
	Status          ModuleStatus     `json:"status"`
	NeedsReanalysis bool             `json:"needs_reanalysis"`
	Fields          []ExtractedField `json:"fields"`
	Issues          []Issue          `json:"issues"`
	Sources         []id.GroupID     `json:"sources"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// NewEvidenceModule constructs a pending module from a schema template.
func NewEvidenceModule(moduleID id.ModuleID, title string, docType id.DocumentType, section id.SectionID, now time.Time) (*EvidenceModule, error) {
	if strings.TrimSpace(title) == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "module title cannot be empty")
	}
	return &EvidenceModule{
		ID:           moduleID,
		Title:        strings.TrimSpace(title),
		DocumentType: docType,
		Section:      section,
		Status:       ModuleStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// hasBlockingIssues reports whether any unresolved error/warning issue
// remains.
func (m *EvidenceModule) hasBlockingIssues() bool {
	for _, issue := range m.Issues {
		if issue.Resolved {
			continue
		}
		if issue.Severity == SeverityError || issue.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// ApplyExtraction replaces fields and issues wholesale and settles the
// post-extraction status. Valid from every state: pending gets its first
// results, later states are re-extractions.
func (m *EvidenceModule) ApplyExtraction(fields []ExtractedField, issues []Issue, now time.Time) {
	m.Fields = fields
	m.Issues = issues
	m.NeedsReanalysis = false
	if m.hasBlockingIssues() {
		m.Status = ModuleStatusNeedsReview
	} else {
		m.Status = ModuleStatusExtracted
	}
	m.UpdatedAt = now
}

// CanConfirmReview checks the review-completion precondition: no field may
// remain unverified.
func (m *EvidenceModule) CanConfirmReview() error {
	if m.Status == ModuleStatusPending {
		return dErrors.New(dErrors.CodeInvariantViolation, "module has no extraction results to review")
	}
	if m.Status == ModuleStatusReviewed {
		return dErrors.New(dErrors.CodeInvariantViolation, "module is already reviewed")
	}
	for _, f := range m.Fields {
		if !f.Status.IsSettled() {
			return dErrors.New(dErrors.CodeIncompleteReview, "field "+f.Key+" is still unverified")
		}
	}
	return nil
}

// ApplyReviewConfirmation transitions to reviewed. Call CanConfirmReview
// first.
func (m *EvidenceModule) ApplyReviewConfirmation(now time.Time) {
	m.Status = ModuleStatusReviewed
	m.NeedsReanalysis = false
	m.UpdatedAt = now
}

// ApplyInvalidation raises the needs-re-analysis flag; a previously reviewed
// module drops back to stale and must pass through review again before being
// trusted.
func (m *EvidenceModule) ApplyInvalidation(now time.Time) {
	m.NeedsReanalysis = true
	if m.Status == ModuleStatusReviewed {
		m.Status = ModuleStatusStale
	}
	m.UpdatedAt = now
}

// FieldByKey returns a pointer into the module's field slice, or nil.
func (m *EvidenceModule) FieldByKey(key string) *ExtractedField {
	for i := range m.Fields {
		if m.Fields[i].Key == key {
			return &m.Fields[i]
		}
	}
	return nil
}

// refreshReviewStatus re-derives extracted/needs_review after issue changes.
// Reviewed and stale are sticky: issue edits never silently certify or
// decertify a completed review.
func (m *EvidenceModule) refreshReviewStatus() {
	if m.Status != ModuleStatusExtracted && m.Status != ModuleStatusNeedsReview {
		return
	}
	if m.hasBlockingIssues() {
		m.Status = ModuleStatusNeedsReview
	} else {
		m.Status = ModuleStatusExtracted
	}
}

// Clone returns a deep copy for snapshot reads.
func (m *EvidenceModule) Clone() *EvidenceModule {
	cp := *m
	cp.Fields = make([]ExtractedField, len(m.Fields))
	copy(cp.Fields, m.Fields)
	for i := range cp.Fields {
		if m.Fields[i].Source.Region != nil {
			region := *m.Fields[i].Source.Region
			cp.Fields[i].Source.Region = &region
		}
	}
	cp.Issues = make([]Issue, len(m.Issues))
	copy(cp.Issues, m.Issues)
	cp.Sources = append([]id.GroupID(nil), m.Sources...)
	return &cp
}
