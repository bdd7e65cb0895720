package shared

import "context"

// Identity carries the tenant scope and acting user resolved by the gateway.
// Every ledger operation is executed on behalf of exactly one tenant.
type Identity struct {
	TenantID int64
	UserID   int64
}

type identityContextKey struct{}

// ContextWithIdentity stores the resolved identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}

// TenantFromContext returns the tenant id or zero when unresolved.
func TenantFromContext(ctx context.Context) int64 {
	id, _ := IdentityFromContext(ctx)
	return id.TenantID
}
