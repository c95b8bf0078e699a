package manager

import "github.com/teranos/composr/identifier"

// GetByID returns the item stored under id in the domain derived from id.
func (m *Manager[T]) GetByID(id string) (T, bool) {
	return m.store.Get(identifier.ExtractDomain(id), id)
}

// GetByDomain returns every item of domain.
func (m *Manager[T]) GetByDomain(domain string) []T {
	return m.store.GetAsList(domain)
}

// GetByVirtualDomain returns the items of vdID's domain that are scoped
// under vdID.
func (m *Manager[T]) GetByVirtualDomain(vdID string) []T {
	var out []T
	for _, item := range m.store.GetAsList(identifier.ExtractDomain(vdID)) {
		if identifier.ExtractVirtualDomain(item.ID()) == vdID {
			out = append(out, item)
		}
	}
	return out
}

// Domains returns every domain holding at least one item, sorted.
func (m *Manager[T]) Domains() []string {
	return m.store.Domains()
}
