package common

import (
	"context"
)

// TraderContext identifies the trader behind a request, resolved from a
// bearer token by the HTTP middleware.
type TraderContext struct {
	TraderID string
	Approved bool
}

type contextKey int

const traderContextKey contextKey = iota

// WithTraderContext stores a TraderContext in the request context.
func WithTraderContext(ctx context.Context, tc *TraderContext) context.Context {
	return context.WithValue(ctx, traderContextKey, tc)
}

// TraderContextFromContext retrieves the TraderContext from context, or nil if absent.
func TraderContextFromContext(ctx context.Context) *TraderContext {
	tc, _ := ctx.Value(traderContextKey).(*TraderContext)
	return tc
}

// ResolveTraderID returns the trader id from context, or "" when unauthenticated.
func ResolveTraderID(ctx context.Context) string {
	if tc := TraderContextFromContext(ctx); tc != nil {
		return tc.TraderID
	}
	return ""
}
