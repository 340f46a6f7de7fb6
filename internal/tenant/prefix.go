package tenant

import "context"

// PrefixKey creates a namespaced cache/queue key per company.
func PrefixKey(companyID, key string) string {
	if companyID == "" {
		return key
	}
	return companyID + ":" + key
}

// Key prefixes base with the company of ctx, if any.
func Key(ctx context.Context, base string) string {
	id, _ := From(ctx)
	return PrefixKey(id, base)
}
