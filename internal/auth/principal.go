package auth

import (
	"context"

	"github.com/noah-isme/backend-invoice/internal/invoice"
)

// Role is the access role of an API client.
type Role string

const (
	RoleCompany      Role = "company"
	RoleCounterparty Role = "counterparty"
	RoleAdmin        Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCompany, RoleCounterparty, RoleAdmin:
		return true
	}
	return false
}

// Principal is the authenticated caller of a request.
type Principal struct {
	ClientID  string `json:"clientId"`
	CompanyID string `json:"companyId"`
	Role      Role   `json:"role"`
}

// Perspective returns the rate set the principal bills with. Counterparty clients see vendor
// rates, everyone else sees company rates.
func (p Principal) Perspective() invoice.Perspective {
	if p.Role == RoleCounterparty {
		return invoice.PerspectiveCounterparty
	}
	return invoice.PerspectiveCompany
}

type principalKey struct{}

// WithPrincipal stores p on ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored on ctx.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.ClientID != ""
}
