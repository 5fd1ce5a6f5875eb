package common

import "context"

type contextKey string

const identityContextKey contextKey = "identity"

// Identity represents the JWT-derived caller.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// ContextWithIdentity stores the caller identity into context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext extracts the caller identity from context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(Identity)
	if !ok || id.ID == "" {
		return Identity{}, false
	}
	return id, true
}

// CallerID returns the caller's id, or "" for anonymous requests.
func CallerID(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.ID
}
