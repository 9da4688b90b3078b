package binding

import (
	"context"
	"log/slog"
	"sync"

	id "docket/pkg/domain"
	"docket/pkg/requestcontext"
)

// Sink receives invalidation signals for a binding's consumer. The
// verification engine satisfies this through an adapter so the registry
// stays free of evidence-model imports.
type Sink interface {
	ConsumerInvalidated(ctx context.Context, b Binding) error
}

// Registry is the in-memory binding table. Bindings are ordered by creation
// within each group, and the (group, consumer) pair is unique.
type Registry struct {
	mu      sync.RWMutex
	byGroup map[id.GroupID][]record

	sink   Sink
	logger *slog.Logger
}

type Option func(*Registry)

func WithSink(sink Sink) Option {
	return func(r *Registry) { r.sink = sink }
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		byGroup: make(map[id.GroupID][]record),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetSink wires the invalidation consumer after construction; the engine and
// registry are built independently and joined in wiring.
func (r *Registry) SetSink(sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink = sink
}

// BindingsFor returns the group's bindings in creation order. Never fails;
// unknown groups yield an empty slice.
func (r *Registry) BindingsFor(_ context.Context, groupID id.GroupID) []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := r.byGroup[groupID]
	out := make([]Binding, len(records))
	for i, rec := range records {
		out[i] = rec.binding
	}
	return out
}

// IsBound reports whether the group has at least one binding.
func (r *Registry) IsBound(_ context.Context, groupID id.GroupID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byGroup[groupID]) > 0
}

// Record registers a binding. Binding the same (group, consumer) pair twice
// is a no-op.
func (r *Registry) Record(ctx context.Context, groupID id.GroupID, b Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.byGroup[groupID] {
		if rec.binding == b {
			return
		}
	}
	r.byGroup[groupID] = append(r.byGroup[groupID], record{
		binding:   b,
		createdAt: requestcontext.Now(ctx),
	})
}

// Release removes a binding. Releasing an absent binding is a no-op.
func (r *Registry) Release(_ context.Context, groupID id.GroupID, b Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	records := r.byGroup[groupID]
	for i, rec := range records {
		if rec.binding == b {
			r.byGroup[groupID] = append(records[:i], records[i+1:]...)
			break
		}
	}
	if len(r.byGroup[groupID]) == 0 {
		delete(r.byGroup, groupID)
	}
}

// Invalidate raises a needs-re-analysis signal on every consumer bound to
// the group. Called whenever a bound group's content changes or it is
// renamed.
func (r *Registry) Invalidate(ctx context.Context, groupID id.GroupID) error {
	r.mu.RLock()
	records := append([]record(nil), r.byGroup[groupID]...)
	sink := r.sink
	r.mu.RUnlock()

	if sink == nil {
		return nil
	}
	for _, rec := range records {
		if err := sink.ConsumerInvalidated(ctx, rec.binding); err != nil {
			return err
		}
		r.logger.InfoContext(ctx, "binding invalidated",
			"group_id", groupID.String(),
			"consumer", rec.binding.ConsumerLabel(),
		)
	}
	return nil
}

// GroupDeleted invalidates each affected consumer once, then releases all of
// the group's bindings. Invalidation runs before release so downstream state
// can react while the reference still resolves.
func (r *Registry) GroupDeleted(ctx context.Context, groupID id.GroupID) error {
	if err := r.Invalidate(ctx, groupID); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.byGroup, groupID)
	r.mu.Unlock()
	return nil
}
