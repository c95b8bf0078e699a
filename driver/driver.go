// Package driver is the client side of the remote collection store.
//
// The remote exposes named collections of JSON records. Collections are read
// page by page; single records are addressed by (collection, id) and can be
// fetched, upserted and deleted. DAOs never hold a Driver directly: they ask
// a Holder, so the driver can be installed (or replaced after a token
// refresh) once at startup and shared by every DAO.
package driver

import (
	"context"
	"fmt"
	"sync"
)

// Record is one decoded JSON record.
type Record = map[string]any

// Params selects one page of a collection.
type Params struct {
	Page     int
	PageSize int
	// Query is a list of filter clauses, e.g. {"$in": {"id": [...]}}.
	Query []map[string]any
}

// Collection reads pages of a named collection.
type Collection interface {
	Get(ctx context.Context, params Params) ([]Record, error)
}

// Resource addresses a single record.
type Resource interface {
	Get(ctx context.Context) (Record, error)
	Update(ctx context.Context, record Record) error
	Delete(ctx context.Context) error
}

// Driver opens collections and resources.
type Driver interface {
	Collection(name string) Collection
	Resource(collection, id string) Resource
}

// ResponseError reports a non-2xx answer from the remote.
type ResponseError struct {
	Method string
	URL    string
	Status int
	Body   []byte
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Status)
}

// InQuery builds the "id in set" filter clause.
func InQuery(field string, values []string) map[string]any {
	return map[string]any{
		"$in": map[string]any{field: values},
	}
}

// Holder is the process-wide slot the active driver lives in.
type Holder struct {
	mu     sync.RWMutex
	driver Driver
}

// NewHolder creates a holder, optionally pre-filled.
func NewHolder(d Driver) *Holder {
	return &Holder{driver: d}
}

// Set installs d, replacing any previous driver.
func (h *Holder) Set(d Driver) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.driver = d
}

// Get returns the installed driver, or nil.
func (h *Holder) Get() Driver {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.driver
}

// Clear removes the installed driver.
func (h *Holder) Clear() {
	h.Set(nil)
}
