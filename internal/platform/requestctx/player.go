// Package requestctx carries request-scoped identity through contexts.
package requestctx

import "context"

// playerIDContextKey is the context key for the authenticated wallet.
type playerIDContextKey struct{}

// WithPlayerID stores the authenticated wallet identifier in context.
func WithPlayerID(ctx context.Context, playerID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, playerIDContextKey{}, playerID)
}

// PlayerIDFromContext returns the wallet identifier stored in context.
func PlayerIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(playerIDContextKey{}).(string)
	return value
}
