// Package origin decides which browser origin a widget token may be scoped
// to and which origins the CORS layer echoes back.
package origin

import "strings"

// Policy is an exact-match allow-list with a fallback origin. Entries are
// compared with one trailing slash removed, so "https://a.example/" and
// "https://a.example" are the same origin; nothing else is normalised.
type Policy struct {
	def     string
	allowed map[string]struct{}
	list    []string
}

// NewPolicy builds a policy whose allow-list is def plus extra.
func NewPolicy(def string, extra ...string) *Policy {
	p := &Policy{
		def:     trim(def),
		allowed: make(map[string]struct{}, len(extra)+1),
	}
	for _, o := range append([]string{def}, extra...) {
		o = trim(o)
		if o == "" {
			continue
		}
		if _, dup := p.allowed[o]; dup {
			continue
		}
		p.allowed[o] = struct{}{}
		p.list = append(p.list, o)
	}
	return p
}

func (p *Policy) Default() string { return p.def }

// Allowed returns the allow-list in configuration order.
func (p *Policy) Allowed() []string {
	return append([]string(nil), p.list...)
}

func (p *Policy) Allows(requestOrigin string) bool {
	if requestOrigin == "" {
		return false
	}
	_, ok := p.allowed[trim(requestOrigin)]
	return ok
}

// Resolve returns requestOrigin when it is on the allow-list, otherwise the
// default. The result never ends in a slash.
func (p *Policy) Resolve(requestOrigin string) string {
	if p.Allows(requestOrigin) {
		return trim(requestOrigin)
	}
	return p.def
}

// Resolve is the stateless form of Policy.Resolve.
func Resolve(requestOrigin, def string, allowList []string) string {
	return NewPolicy(def, allowList...).Resolve(requestOrigin)
}

func trim(o string) string {
	return strings.TrimSuffix(strings.TrimSpace(o), "/")
}
