package auth

import (
	"context"
)

type contextKey string

const claimsContextKey contextKey = "auth_claims"

// WithClaims attaches validated claims to a request context
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext returns the claims attached to ctx, if any
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok
}

// UIDFromContext returns the authenticated user id as a string, or ""
// when the context carries no claims.
func UIDFromContext(ctx context.Context) string {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return ""
	}
	return claims.UserID.String()
}
