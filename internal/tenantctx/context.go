// Package tenantctx propagates the per-request tenant scope. Every
// data-plane operation reads the scope and injects the tenant predicate;
// an absent scope fails the operation instead of defaulting.
package tenantctx

import (
	"context"
	"errors"
	"strings"
)

// ErrTenantContextMissing is returned when a data-plane operation runs
// without a tenant scope on its context.
var ErrTenantContextMissing = errors.New("tenant_context_missing")

// Scope identifies the tenant and principal of the current request.
type Scope struct {
	TenantID string
	UserID   string
	Email    string
}

type scopeKey struct{}

// WithScope stores the tenant scope in the context.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// FromContext returns the tenant scope, if set.
func FromContext(ctx context.Context) (Scope, bool) {
	if ctx == nil {
		return Scope{}, false
	}
	scope, ok := ctx.Value(scopeKey{}).(Scope)
	if !ok || strings.TrimSpace(scope.TenantID) == "" {
		return Scope{}, false
	}
	return scope, true
}

// RequireScope returns the tenant scope or ErrTenantContextMissing.
func RequireScope(ctx context.Context) (Scope, error) {
	scope, ok := FromContext(ctx)
	if !ok {
		return Scope{}, ErrTenantContextMissing
	}
	return scope, nil
}
