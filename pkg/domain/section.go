package domain

import (
	"strings"

	dErrors "docket/pkg/domain-errors"
)

// SectionID names a checklist/schema section ("employment", "finances").
// Invariant: non-empty, trimmed, at most 64 characters. Sections come from
// the route catalog, not user input, but the boundary still validates.
type SectionID string

func (s SectionID) String() string { return string(s) }

func (s SectionID) IsNil() bool { return s == "" }

// ParseSectionID constructs a SectionID from external input.
func ParseSectionID(raw string) (SectionID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "section id is required")
	}
	if len(trimmed) > 64 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "section id must be 64 characters or less")
	}
	return SectionID(trimmed), nil
}

// DocumentType tags an evidence requirement with the kind of document that
// satisfies it ("passport", "payslip", "bank_statement").
type DocumentType string

func (d DocumentType) String() string { return string(d) }

func ParseDocumentType(raw string) (DocumentType, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "document type is required")
	}
	return DocumentType(trimmed), nil
}
