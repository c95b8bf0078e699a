// Package identifier parses composr item identifiers.
//
// An identifier is a colon-delimited domain followed by a "!"-delimited local
// path:
//
//	booqs:demo!loginuser
//	booqs:demo!bookWarehouseDetailMock!:id
//
// The domain is everything before the first "!". Items scoped under a
// virtual domain carry the virtual domain name as the first local segment:
//
//	booqs:demo!shop!checkout   -> virtual domain "booqs:demo!shop"
package identifier

import "strings"

// Separator splits the domain from the local path.
const Separator = "!"

// ExtractDomain returns the prefix of id before the first "!". An id with no
// separator is its own domain.
func ExtractDomain(id string) string {
	if i := strings.Index(id, Separator); i >= 0 {
		return id[:i]
	}
	return id
}

// ExtractVirtualDomain returns the prefix of id before the second "!", i.e.
// "<domain>!<virtual domain name>". Ids with fewer than two separators are
// returned unchanged: they already name a virtual domain (or a bare domain).
func ExtractVirtualDomain(id string) string {
	first := strings.Index(id, Separator)
	if first < 0 {
		return id
	}
	second := strings.Index(id[first+1:], Separator)
	if second < 0 {
		return id
	}
	return id[:first+1+second]
}

// Join builds an identifier from a domain and local path segments.
func Join(domain string, segments ...string) string {
	if len(segments) == 0 {
		return domain
	}
	return domain + Separator + strings.Join(segments, Separator)
}
