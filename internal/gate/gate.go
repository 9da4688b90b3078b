// Package gate decides whether a destructive mutation may proceed silently,
// needs the caseworker's explicit confirmation, or is structurally invalid.
// Confirmation warnings are always soft: the user can override them.
package gate

import (
	"strings"

	"docket/internal/binding"
	id "docket/pkg/domain"
)

// IntentKind names the mutation being gated.
type IntentKind string

const (
	IntentRename        IntentKind = "rename"
	IntentDelete        IntentKind = "delete"
	IntentMerge         IntentKind = "merge"
	IntentConfirmReview IntentKind = "confirm_review"
)

// Intent describes the mutation the caller wants to run against a group.
type Intent struct {
	Kind    IntentKind
	GroupID id.GroupID
	// Detail carries operation context for the prompt ("merge into Bank
	// Statements"); optional.
	Detail string
}

// GroupState is the gate's view of the affected group at decision time.
type GroupState struct {
	// Exists reports whether the group resolves in the document store.
	Exists bool
	// Reviewed reports whether a caseworker has marked the group reviewed.
	Reviewed bool
	// NonEmpty reports whether the group still holds pages.
	NonEmpty bool
}

// Outcome is the gate's verdict.
type Outcome string

const (
	// OutcomeProceed: nothing protected is affected; apply immediately.
	OutcomeProceed Outcome = "proceed"
	// OutcomeConfirm: the mutation touches bound or reviewed material, or
	// would destroy pages; it runs only after an explicit accept.
	OutcomeConfirm Outcome = "require_confirmation"
	// OutcomeBlock: the request is structurally invalid (the group does not
	// exist). Never used for warnings.
	OutcomeBlock Outcome = "block"
)

// Payload is the confirmation contract handed to the UI: the human-readable
// consumers the mutation would affect.
type Payload struct {
	Intent    IntentKind `json:"intent"`
	GroupID   id.GroupID `json:"group_id"`
	Consumers []string   `json:"consumers"`
	Message   string     `json:"message"`
}

// Decision pairs the outcome with the confirmation payload when one is
// required.
type Decision struct {
	Outcome Outcome
	Payload *Payload
}

// Decide is the stateless gate function. Confirmation is required when the
// group feeds bound consumers, when it has already been reviewed, or when a
// delete would destroy pages it still holds.
func Decide(intent Intent, group GroupState, bindings []binding.Binding) Decision {
	if !group.Exists {
		return Decision{Outcome: OutcomeBlock}
	}

	var reasons []string
	if len(bindings) > 0 {
		reasons = append(reasons, "this change affects evidence consumers and will require re-analysis")
	}
	if group.Reviewed {
		reasons = append(reasons, "the group has already been reviewed")
	}
	if intent.Kind == IntentDelete && group.NonEmpty {
		reasons = append(reasons, "the group still holds pages")
	}
	if len(reasons) == 0 {
		return Decision{Outcome: OutcomeProceed}
	}

	consumers := make([]string, len(bindings))
	for i, b := range bindings {
		consumers[i] = b.ConsumerLabel()
	}
	msg := strings.Join(reasons, "; ")
	if intent.Detail != "" {
		msg = msg + ": " + intent.Detail
	}
	return Decision{
		Outcome: OutcomeConfirm,
		Payload: &Payload{
			Intent:    intent.Kind,
			GroupID:   intent.GroupID,
			Consumers: consumers,
			Message:   msg,
		},
	}
}
