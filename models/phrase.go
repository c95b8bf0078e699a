package models

import (
	"context"
	"slices"
	"strings"

	"github.com/teranos/composr/errors"
	"github.com/teranos/composr/identifier"
	"github.com/teranos/composr/manager"
)

// Verbs a phrase may define.
var Verbs = []string{"get", "post", "put", "delete", "options"}

// Phrase is an HTTP endpoint: a URL pattern plus code per verb.
type Phrase struct {
	id    string
	url   string
	verbs []string
	md5   string
	raw   manager.Raw
}

// NewPhrase builds a Phrase from its compiled raw form.
func NewPhrase(raw manager.Raw) (*Phrase, error) {
	id := stringField(raw, "id")
	if id == "" {
		return nil, errors.NewMissingInput(errors.CodeMissingID)
	}
	p := &Phrase{
		id:  id,
		url: stringField(raw, "url"),
		md5: Checksum(raw),
		raw: raw,
	}
	for _, verb := range Verbs {
		if hasCode(raw[verb]) {
			p.verbs = append(p.verbs, verb)
		}
	}
	return p, nil
}

// ID implements manager.Item.
func (p *Phrase) ID() string { return p.id }

// MD5 implements manager.Item.
func (p *Phrase) MD5() string { return p.md5 }

// RawModel implements manager.Item.
func (p *Phrase) RawModel() manager.Raw { return p.raw }

// URL returns the URL pattern, e.g. "user/:id".
func (p *Phrase) URL() string { return p.url }

// Verbs returns the verbs that carry code, in Verbs order.
func (p *Phrase) Verbs() []string { return p.verbs }

// Domain returns the domain part of the phrase id.
func (p *Phrase) Domain() string { return identifier.ExtractDomain(p.id) }

// HasVerb reports whether verb carries code.
func (p *Phrase) HasVerb(verb string) bool {
	return slices.Contains(p.verbs, verb)
}

// hasCode reports whether a verb definition carries code: a non-empty
// "code" string or a non-empty "codes" object.
func hasCode(v any) bool {
	def, ok := v.(map[string]any)
	if !ok {
		return false
	}
	if code, ok := def["code"].(string); ok && code != "" {
		return true
	}
	codes, ok := def["codes"].(map[string]any)
	return ok && len(codes) > 0
}

// PhraseID derives the id of a phrase without one: the domain, then the URL
// with every "/" turned into "!".
func PhraseID(domain, url string) string {
	url = strings.Trim(url, "/")
	return identifier.Join(domain, strings.ReplaceAll(url, "/", identifier.Separator))
}

// CompilePhrase requires a url and at least one verb with code. A missing id
// is derived from the registration domain and the url.
func CompilePhrase(ctx context.Context, raw manager.Raw) (manager.Raw, bool, error) {
	url := stringField(raw, "url")
	if url == "" {
		return nil, false, errors.New("phrase has no url")
	}

	found := false
	for _, verb := range Verbs {
		def, present := raw[verb]
		if !present {
			continue
		}
		if !hasCode(def) {
			return nil, false, errors.Newf("phrase verb %s has no code", verb)
		}
		found = true
	}
	if !found {
		return nil, false, errors.WithHintf(errors.New("phrase defines no verbs"), "define at least one of %s", strings.Join(Verbs, ", "))
	}

	compiled := clone(raw)
	if stringField(compiled, "id") == "" {
		compiled["id"] = PhraseID(manager.DomainFromContext(ctx), url)
	}
	return compiled, true, nil
}

// ValidatePhrase rejects phrases registered outside their own domain and
// URLs containing whitespace or a query string.
func ValidatePhrase(ctx context.Context, p *Phrase) (*Phrase, error) {
	if domain := manager.DomainFromContext(ctx); domain != "" && p.Domain() != domain {
		return nil, errors.Newf("phrase %s does not belong to domain %s", p.id, domain)
	}
	if strings.ContainsAny(p.url, " \t\n?") {
		return nil, errors.Newf("phrase %s has an invalid url %q", p.id, p.url)
	}
	return p, nil
}
