package models

import (
	"context"
	"encoding/base64"

	"github.com/teranos/composr/errors"
	"github.com/teranos/composr/identifier"
	"github.com/teranos/composr/manager"
)

// Snippet is a piece of shared code phrases can reference by name.
type Snippet struct {
	id   string
	code string
	md5  string
	raw  manager.Raw
}

// NewSnippet builds a Snippet from its compiled raw form.
func NewSnippet(raw manager.Raw) (*Snippet, error) {
	id := stringField(raw, "id")
	if id == "" {
		return nil, errors.NewMissingInput(errors.CodeMissingID)
	}
	return &Snippet{
		id:   id,
		code: stringField(raw, "code"),
		md5:  Checksum(raw),
		raw:  raw,
	}, nil
}

// ID implements manager.Item.
func (s *Snippet) ID() string { return s.id }

// MD5 implements manager.Item.
func (s *Snippet) MD5() string { return s.md5 }

// RawModel implements manager.Item.
func (s *Snippet) RawModel() manager.Raw { return s.raw }

// Code returns the decoded source.
func (s *Snippet) Code() string { return s.code }

// Name returns the local part of the id.
func (s *Snippet) Name() string {
	domain := identifier.ExtractDomain(s.id)
	if len(s.id) > len(domain) {
		return s.id[len(domain)+1:]
	}
	return s.id
}

// CompileSnippet requires an id and either plain "code" or a base64
// "codehash". The compiled form always carries the decoded "code".
func CompileSnippet(_ context.Context, raw manager.Raw) (manager.Raw, bool, error) {
	if stringField(raw, "id") == "" {
		return nil, false, errors.New("snippet has no id")
	}

	compiled := clone(raw)
	if stringField(raw, "code") != "" {
		return compiled, true, nil
	}

	hash := stringField(raw, "codehash")
	if hash == "" {
		return nil, false, errors.New("snippet has neither code nor codehash")
	}
	code, err := base64.StdEncoding.DecodeString(hash)
	if err != nil {
		return nil, false, errors.Wrap(err, "decode snippet codehash")
	}
	compiled["code"] = string(code)
	return compiled, true, nil
}

// ValidateSnippet rejects snippets registered outside their own domain.
func ValidateSnippet(ctx context.Context, s *Snippet) (*Snippet, error) {
	if domain := manager.DomainFromContext(ctx); domain != "" && identifier.ExtractDomain(s.id) != domain {
		return nil, errors.Newf("snippet %s does not belong to domain %s", s.id, domain)
	}
	return s, nil
}
