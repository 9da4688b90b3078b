// Package domain holds shared domain primitives: typed identifiers and the
// small value objects that cross package boundaries. Construct values via the
// Parse* functions at trust boundaries; direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "docket/pkg/domain-errors"
)

// Typed IDs prevent cross-entity assignment at compile time. A PageID can
// never be passed where a GroupID is expected.
type (
	CaseID         uuid.UUID
	GroupID        uuid.UUID
	PageID         uuid.UUID
	ModuleID       uuid.UUID
	ConfirmationID uuid.UUID
)

func (id CaseID) String() string         { return uuid.UUID(id).String() }
func (id GroupID) String() string        { return uuid.UUID(id).String() }
func (id PageID) String() string         { return uuid.UUID(id).String() }
func (id ModuleID) String() string       { return uuid.UUID(id).String() }
func (id ConfirmationID) String() string { return uuid.UUID(id).String() }

func (id CaseID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id GroupID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id PageID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ModuleID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id ConfirmationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// MarshalText / UnmarshalText keep typed IDs JSON-friendly without exposing
// the underlying uuid type in API structs.
func (id GroupID) MarshalText() ([]byte, error)  { return []byte(id.String()), nil }
func (id PageID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id ModuleID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id CaseID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id ConfirmationID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *GroupID) UnmarshalText(b []byte) error {
	parsed, err := ParseGroupID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *PageID) UnmarshalText(b []byte) error {
	parsed, err := ParsePageID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ModuleID) UnmarshalText(b []byte) error {
	parsed, err := ParseModuleID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *CaseID) UnmarshalText(b []byte) error {
	parsed, err := ParseCaseID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ConfirmationID) UnmarshalText(b []byte) error {
	parsed, err := ParseConfirmationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// parseUUID enforces the shared invariant: IDs must be valid, non-empty,
// non-nil UUIDs.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id is not a valid uuid")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" id cannot be nil")
	}
	return parsed, nil
}

func ParseCaseID(raw string) (CaseID, error) {
	u, err := parseUUID(raw, "case")
	return CaseID(u), err
}

func ParseGroupID(raw string) (GroupID, error) {
	u, err := parseUUID(raw, "group")
	return GroupID(u), err
}

func ParsePageID(raw string) (PageID, error) {
	u, err := parseUUID(raw, "page")
	return PageID(u), err
}

func ParseModuleID(raw string) (ModuleID, error) {
	u, err := parseUUID(raw, "module")
	return ModuleID(u), err
}

func ParseConfirmationID(raw string) (ConfirmationID, error) {
	u, err := parseUUID(raw, "confirmation")
	return ConfirmationID(u), err
}

// NewGroupID and friends mint fresh identifiers. Kept here so callers do not
// import uuid directly.
func NewCaseID() CaseID                 { return CaseID(uuid.New()) }
func NewGroupID() GroupID               { return GroupID(uuid.New()) }
func NewPageID() PageID                 { return PageID(uuid.New()) }
func NewModuleID() ModuleID             { return ModuleID(uuid.New()) }
func NewConfirmationID() ConfirmationID { return ConfirmationID(uuid.New()) }
