package audit

import (
	"context"
	"log/slog"
)

// Publisher is the emit side of the audit pipeline. Emits never block the
// mutation path: if the buffer is full the event is dropped and logged,
// since casework must not stall on observability.
type Publisher struct {
	inbox  chan<- Event
	logger *slog.Logger
}

func NewPublisher(inbox chan<- Event, logger *slog.Logger) *Publisher {
	return &Publisher{inbox: inbox, logger: logger}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit buffer full, event dropped",
			"action", string(event.Action),
			"subject", event.Subject,
		)
	}
	return nil
}
