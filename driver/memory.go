package driver

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"sync"
)

// Memory is an in-process Driver holding collections in maps. It pages and
// filters the way the remote does, so DAOs and managers can run against it
// in tests and in offline mode.
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]Record
	failures    map[string]int
	calls       []string
}

// NewMemory creates an empty in-memory driver.
func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]Record),
		failures:    make(map[string]int),
	}
}

// Seed stores records in collection, keyed by their "id" field.
func (m *Memory) Seed(collection string, records ...Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		id, _ := r["id"].(string)
		m.bucket(collection)[id] = r
	}
}

// FailWith makes every call against collection fail with status until
// cleared with FailWith(collection, 0).
func (m *Memory) FailWith(collection string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status == 0 {
		delete(m.failures, collection)
		return
	}
	m.failures[collection] = status
}

// Calls returns the operations performed so far, e.g. "get:phrases:0".
func (m *Memory) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// Records returns a copy of collection sorted by id.
func (m *Memory) Records(collection string) []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(collection, nil)
}

func (m *Memory) bucket(collection string) map[string]Record {
	b, ok := m.collections[collection]
	if !ok {
		b = make(map[string]Record)
		m.collections[collection] = b
	}
	return b
}

func (m *Memory) sorted(collection string, only map[string]bool) []Record {
	b := m.collections[collection]
	ids := make([]string, 0, len(b))
	for id := range b {
		if only == nil || only[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, b[id])
	}
	return out
}

func (m *Memory) fail(method, collection string) error {
	if status, ok := m.failures[collection]; ok {
		body, _ := json.Marshal(map[string]string{"error": http.StatusText(status)})
		return &ResponseError{Method: method, URL: collection, Status: status, Body: body}
	}
	return nil
}

// Collection implements Driver.
func (m *Memory) Collection(name string) Collection {
	return &memoryCollection{m: m, name: name}
}

// Resource implements Driver.
func (m *Memory) Resource(collection, id string) Resource {
	return &memoryResource{m: m, collection: collection, id: id}
}

type memoryCollection struct {
	m    *Memory
	name string
}

func (c *memoryCollection) Get(ctx context.Context, params Params) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	c.m.calls = append(c.m.calls, "get:"+c.name+":"+strconv.Itoa(params.Page))
	if err := c.m.fail(http.MethodGet, c.name); err != nil {
		return nil, err
	}

	records := c.m.sorted(c.name, idFilter(params.Query))
	size := params.PageSize
	if size <= 0 {
		return records, nil
	}
	start := params.Page * size
	if start >= len(records) {
		return []Record{}, nil
	}
	end := start + size
	if end > len(records) {
		end = len(records)
	}
	return records[start:end], nil
}

// idFilter extracts the {"$in": {"id": [...]}} clause, if present.
func idFilter(query []map[string]any) map[string]bool {
	for _, clause := range query {
		in, ok := clause["$in"].(map[string]any)
		if !ok {
			continue
		}
		only := make(map[string]bool)
		switch ids := in["id"].(type) {
		case []string:
			for _, id := range ids {
				only[id] = true
			}
		case []any:
			for _, id := range ids {
				if s, ok := id.(string); ok {
					only[s] = true
				}
			}
		}
		return only
	}
	return nil
}

type memoryResource struct {
	m          *Memory
	collection string
	id         string
}

func (r *memoryResource) Get(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.calls = append(r.m.calls, "load:"+r.collection+":"+r.id)
	if err := r.m.fail(http.MethodGet, r.collection); err != nil {
		return nil, err
	}
	record, ok := r.m.collections[r.collection][r.id]
	if !ok {
		body, _ := json.Marshal(map[string]string{"error": "not_found"})
		return nil, &ResponseError{Method: http.MethodGet, URL: r.collection + "/" + r.id, Status: http.StatusNotFound, Body: body}
	}
	return record, nil
}

func (r *memoryResource) Update(ctx context.Context, record Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.calls = append(r.m.calls, "update:"+r.collection+":"+r.id)
	if err := r.m.fail(http.MethodPut, r.collection); err != nil {
		return err
	}
	r.m.bucket(r.collection)[r.id] = record
	return nil
}

func (r *memoryResource) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.calls = append(r.m.calls, "delete:"+r.collection+":"+r.id)
	if err := r.m.fail(http.MethodDelete, r.collection); err != nil {
		return err
	}
	delete(r.m.bucket(r.collection), r.id)
	return nil
}
