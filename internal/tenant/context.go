package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// The tenant of a request is the company the authenticated API client belongs to.

type contextKey string

const tenantContextKey contextKey = "tenant.id"

var (
	// ErrTenantMissing indicates the tenant identifier was not found in context.
	ErrTenantMissing = errors.New("tenant missing")
	// ErrTenantInvalid indicates the tenant identifier could not be parsed.
	ErrTenantInvalid = errors.New("tenant invalid")
)

// With stores the company identifier inside the context.
func With(ctx context.Context, companyID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, tenantContextKey, strings.TrimSpace(companyID))
}

// From extracts the company identifier from the context if available.
func From(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(tenantContextKey).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// UUID returns the company identifier of ctx as a UUID.
func UUID(ctx context.Context) (uuid.UUID, error) {
	id, ok := From(ctx)
	if !ok {
		return uuid.Nil, ErrTenantMissing
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrTenantInvalid, err)
	}
	return parsed, nil
}
