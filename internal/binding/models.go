// Package binding tracks which document groups back which checklist
// consumers. Bindings gate destructive edits and drive re-analysis
// invalidation; they never own the groups they reference.
package binding

import (
	"time"

	id "docket/pkg/domain"
	dErrors "docket/pkg/domain-errors"
)

// Type discriminates the two consumer kinds. The distinguishing behavior is
// only the display label, so this is a tagged variant rather than an
// interface hierarchy.
type Type string

const (
	// TypeSection binds a group to a named checklist section.
	TypeSection Type = "section"
	// TypeAssessment binds a group to the overall case assessment.
	TypeAssessment Type = "assessment"
)

// Binding is one reference from a group to a consumer. Section is set iff
// Type == TypeSection.
type Binding struct {
	Type    Type         `json:"type"`
	Section id.SectionID `json:"section,omitempty"`
}

// SectionBinding constructs a checklist-section binding.
func SectionBinding(section id.SectionID) (Binding, error) {
	if section.IsNil() {
		return Binding{}, dErrors.New(dErrors.CodeInvalidInput, "section binding requires a section id")
	}
	return Binding{Type: TypeSection, Section: section}, nil
}

// AssessmentBinding constructs the special assessment binding.
func AssessmentBinding() Binding {
	return Binding{Type: TypeAssessment}
}

// ConsumerLabel renders the human-readable consumer name used in
// confirmation prompts.
func (b Binding) ConsumerLabel() string {
	if b.Type == TypeAssessment {
		return "case assessment"
	}
	return "checklist section " + string(b.Section)
}

// record is a binding plus bookkeeping the registry keeps internally.
type record struct {
	binding   Binding
	createdAt time.Time
}
