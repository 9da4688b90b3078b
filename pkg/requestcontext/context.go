// Package requestcontext carries request-scoped values that domain services
// read without depending on the transport layer. The clock lives here so
// tests can pin time deterministically.
package requestcontext

import (
	"context"
	"time"
)

type nowKey struct{}

// WithNow pins the request time in context. Middleware sets it once per
// request; tests set it explicitly.
func WithNow(ctx context.Context, now time.Time) context.Context {
	return context.WithValue(ctx, nowKey{}, now)
}

// Now returns the pinned request time, falling back to the wall clock when
// no middleware ran (library usage, tests that don't care).
func Now(ctx context.Context) time.Time {
	if now, ok := ctx.Value(nowKey{}).(time.Time); ok {
		return now
	}
	return time.Now()
}
