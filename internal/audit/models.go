// Package audit records who did what to the casework state. Events are
// emitted from domain logic, fanned out over a channel, and persisted by a
// background worker. Keep the event transport-agnostic so stores and sinks
// can fan out.
package audit

import (
	"time"

	id "docket/pkg/domain"
)

// Action names the mutation an event records.
type Action string

const (
	ActionGroupCreated      Action = "group_created"
	ActionGroupRenamed      Action = "group_renamed"
	ActionGroupDeleted      Action = "group_deleted"
	ActionGroupsMerged      Action = "groups_merged"
	ActionGroupSplit        Action = "group_split"
	ActionGroupsReordered   Action = "groups_reordered"
	ActionPageAdded         Action = "page_added"
	ActionPageMoved         Action = "page_moved"
	ActionBindingRecorded   Action = "binding_recorded"
	ActionBindingReleased   Action = "binding_released"
	ActionExtractionStored  Action = "extraction_stored"
	ActionFieldVerified     Action = "field_verified"
	ActionIssueResolved     Action = "issue_resolved"
	ActionReviewConfirmed   Action = "review_confirmed"
	ActionModuleInvalidated Action = "module_invalidated"
	ActionConfirmAccepted   Action = "confirmation_accepted"
	ActionConfirmCancelled  Action = "confirmation_cancelled"
)

// Event is one audit record.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	CaseID    id.CaseID `json:"case_id"`
	Action    Action    `json:"action"`
	Subject   string    `json:"subject"`
	Detail    string    `json:"detail,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}
