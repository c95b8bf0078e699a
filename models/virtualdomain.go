package models

import (
	"context"

	"github.com/teranos/composr/errors"
	"github.com/teranos/composr/identifier"
	"github.com/teranos/composr/manager"
)

// VirtualDomain groups phrases and snippets under "<domain>!<name>".
type VirtualDomain struct {
	id       string
	name     string
	phrases  []string
	snippets []string
	md5      string
	raw      manager.Raw
}

// NewVirtualDomain builds a VirtualDomain from its compiled raw form.
func NewVirtualDomain(raw manager.Raw) (*VirtualDomain, error) {
	id := stringField(raw, "id")
	if id == "" {
		return nil, errors.NewMissingInput(errors.CodeMissingID)
	}
	return &VirtualDomain{
		id:       id,
		name:     stringField(raw, "name"),
		phrases:  stringList(raw, "phrases"),
		snippets: stringList(raw, "snippets"),
		md5:      Checksum(raw),
		raw:      raw,
	}, nil
}

// ID implements manager.Item.
func (v *VirtualDomain) ID() string { return v.id }

// MD5 implements manager.Item.
func (v *VirtualDomain) MD5() string { return v.md5 }

// RawModel implements manager.Item.
func (v *VirtualDomain) RawModel() manager.Raw { return v.raw }

// Name returns the display name.
func (v *VirtualDomain) Name() string { return v.name }

// Phrases returns the ids of the phrases scoped under this virtual domain.
func (v *VirtualDomain) Phrases() []string { return v.phrases }

// Snippets returns the ids of the snippets scoped under this virtual domain.
func (v *VirtualDomain) Snippets() []string { return v.snippets }

// CompileVirtualDomain requires an id of the form "<domain>!<name>" and
// fills in "name" from it when absent.
func CompileVirtualDomain(_ context.Context, raw manager.Raw) (manager.Raw, bool, error) {
	id := stringField(raw, "id")
	if id == "" {
		return nil, false, errors.New("virtual domain has no id")
	}
	domain := identifier.ExtractDomain(id)
	if domain == id {
		return nil, false, errors.Newf("virtual domain id %q has no name part", id)
	}

	compiled := clone(raw)
	if stringField(compiled, "name") == "" {
		compiled["name"] = id[len(domain)+1:]
	}
	return compiled, true, nil
}

// ValidateVirtualDomain checks that every referenced phrase and snippet is
// scoped under the virtual domain.
func ValidateVirtualDomain(_ context.Context, v *VirtualDomain) (*VirtualDomain, error) {
	for _, ref := range append(append([]string(nil), v.phrases...), v.snippets...) {
		if identifier.ExtractVirtualDomain(ref) != v.id {
			return nil, errors.Newf("virtual domain %s references %s outside its scope", v.id, ref)
		}
	}
	return v, nil
}
