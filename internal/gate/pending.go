package gate

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	id "docket/pkg/domain"
	"docket/pkg/platform/sentinel"
	"docket/pkg/requestcontext"
)

// Coordinator implements the two-phase confirmation protocol. When the gate
// requires confirmation, the caller parks the mutation here and hands the
// token to the UI; the mutation runs only on Accept. Cancel discards it with
// the store untouched. An unresolved token simply persists; there is no
// timeout.
type Coordinator struct {
	mu      sync.Mutex
	pending map[id.ConfirmationID]*pendingConfirmation
}

type pendingConfirmation struct {
	payload   Payload
	apply     func(ctx context.Context) error
	createdAt time.Time
}

// PendingConfirmation is the UI-facing view of a parked mutation.
type PendingConfirmation struct {
	ID        id.ConfirmationID `json:"id"`
	Payload   Payload           `json:"payload"`
	CreatedAt time.Time         `json:"created_at"`
}

func NewCoordinator() *Coordinator {
	return &Coordinator{pending: make(map[id.ConfirmationID]*pendingConfirmation)}
}

// Request parks a mutation behind a confirmation token.
func (c *Coordinator) Request(ctx context.Context, payload Payload, apply func(ctx context.Context) error) PendingConfirmation {
	c.mu.Lock()
	defer c.mu.Unlock()
	confirmation := &pendingConfirmation{
		payload:   payload,
		apply:     apply,
		createdAt: requestcontext.Now(ctx),
	}
	confirmationID := id.NewConfirmationID()
	c.pending[confirmationID] = confirmation
	return PendingConfirmation{
		ID:        confirmationID,
		Payload:   confirmation.payload,
		CreatedAt: confirmation.createdAt,
	}
}

// Accept resolves a token and runs the parked mutation exactly once. The
// token is consumed even if the mutation fails; the caller re-issues the
// original operation instead of retrying a stale confirmation.
func (c *Coordinator) Accept(ctx context.Context, confirmationID id.ConfirmationID) error {
	c.mu.Lock()
	confirmation, ok := c.pending[confirmationID]
	if ok {
		delete(c.pending, confirmationID)
	}
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("confirmation %s: %w", confirmationID, sentinel.ErrNotFound)
	}
	return confirmation.apply(ctx)
}

// Cancel discards a token. Prior state is left unchanged.
func (c *Coordinator) Cancel(confirmationID id.ConfirmationID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[confirmationID]; !ok {
		return fmt.Errorf("confirmation %s: %w", confirmationID, sentinel.ErrNotFound)
	}
	delete(c.pending, confirmationID)
	return nil
}

// List returns the pending confirmations ordered by creation time.
func (c *Coordinator) List() []PendingConfirmation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]PendingConfirmation, 0, len(c.pending))
	for confirmationID, confirmation := range c.pending {
		out = append(out, PendingConfirmation{
			ID:        confirmationID,
			Payload:   confirmation.payload,
			CreatedAt: confirmation.createdAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
