package workspace

import (
	"context"
	"errors"

	"docket/internal/audit"
	"docket/internal/gate"
	id "docket/pkg/domain"
	dErrors "docket/pkg/domain-errors"
	"docket/pkg/platform/sentinel"
)

// PendingConfirmations lists the case's unresolved confirmation tokens.
func (w *Workspace) PendingConfirmations() []gate.PendingConfirmation {
	return w.confirmations.List()
}

// AcceptConfirmation resolves a token and runs the parked mutation. The
// coordinator's closure takes the workspace lock itself, so this method must
// not hold it.
func (w *Workspace) AcceptConfirmation(ctx context.Context, confirmationID id.ConfirmationID) error {
	if err := w.confirmations.Accept(ctx, confirmationID); err != nil {
		return wrapConfirmationErr(err)
	}
	w.emit(ctx, audit.ActionConfirmAccepted, confirmationID.String(), "")
	return nil
}

// CancelConfirmation discards a token, leaving prior state unchanged.
func (w *Workspace) CancelConfirmation(ctx context.Context, confirmationID id.ConfirmationID) error {
	if err := w.confirmations.Cancel(confirmationID); err != nil {
		return wrapConfirmationErr(err)
	}
	w.emit(ctx, audit.ActionConfirmCancelled, confirmationID.String(), "")
	return nil
}

func wrapConfirmationErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "confirmation not found")
	}
	return err
}
