package auth

import (
	"context"
)

// Method is how a request was authenticated
type Method string

const (
	MethodAPIKey Method = "api_key"
	MethodJWT    Method = "jwt"
	// MethodBasic is HTTP basic auth with the API key as password (HTML forms)
	MethodBasic Method = "basic"
)

// Principal identifies the caller of an authenticated request
type Principal struct {
	Subject string
	Name    string
	Method  Method
}

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal adds the principal to the context
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// FromContext extracts the principal from the context
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}
