package sources

import "os"

// Provider supplies credential values by name. The default implementation
// reads the process environment; tests inject a fake.
type Provider interface {
	Lookup(name string) (value string, ok bool)
}

// EnvProvider reads credentials from environment variables.
type EnvProvider struct{}

// Lookup returns the environment value for name; empty values count as absent.
func (EnvProvider) Lookup(name string) (string, bool) {
	v := os.Getenv(name)
	return v, v != ""
}

// MapProvider serves credentials from a fixed map. Useful in tests.
type MapProvider map[string]string

// Lookup returns the mapped value for name; empty values count as absent.
func (m MapProvider) Lookup(name string) (string, bool) {
	v := m[name]
	return v, v != ""
}

// Resolver resolves a source credential from an ordered chain of candidate
// variable names: the primary first, then each fallback in declared order.
type Resolver struct {
	provider Provider
}

// NewResolver creates a resolver over the given provider; nil uses the
// process environment.
func NewResolver(p Provider) *Resolver {
	if p == nil {
		p = EnvProvider{}
	}
	return &Resolver{provider: p}
}

// Resolve returns the first non-empty value found in the chain, or "".
func (r *Resolver) Resolve(primary string, fallbacks []string) string {
	if v, ok := r.provider.Lookup(primary); ok {
		return v
	}
	for _, name := range fallbacks {
		if v, ok := r.provider.Lookup(name); ok {
			return v
		}
	}
	return ""
}
