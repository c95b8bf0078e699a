package manager

import "context"

type domainKey struct{}

func withDomain(ctx context.Context, domain string) context.Context {
	return context.WithValue(ctx, domainKey{}, domain)
}

// DomainFromContext returns the domain an item is being registered under.
// Compilers, validators and hooks receive it through their context.
func DomainFromContext(ctx context.Context) string {
	domain, _ := ctx.Value(domainKey{}).(string)
	return domain
}
