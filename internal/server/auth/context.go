package auth

import "context"

type ctxKey string

const (
	identityKey ctxKey = "identity"
	claimsKey   ctxKey = "claims"
)

func WithIdentity(ctx context.Context, identityID string) context.Context {
	return context.WithValue(ctx, identityKey, identityID)
}

// WithClaims stores the verified claims and the identity they carry.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	ctx = context.WithValue(ctx, claimsKey, c)
	return WithIdentity(ctx, c.UserID)
}

// IdentityFromContext returns the authenticated identity of the request, or
// ok=false for unauthenticated requests.
func IdentityFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(identityKey).(string)
	return id, ok && id != ""
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}
