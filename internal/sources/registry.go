package sources

import (
	"fmt"

	"github.com/grantwell/grantwell/internal/logger"
)

// SourceHealth is the result of a static configuration check for one
// source. It does not probe connectivity.
type SourceHealth struct {
	SourceID string   `json:"source_id"`
	Healthy  bool     `json:"healthy"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// ValidationReport aggregates health across all declared sources.
type ValidationReport struct {
	TotalSources        int      `json:"total_sources"`
	EnabledSources      int      `json:"enabled_sources"`
	CredentialedSources int      `json:"credentialed_sources"`
	HealthySources      int      `json:"healthy_sources"`
	Errors              []string `json:"errors,omitempty"`
}

// Registry holds every declared source descriptor and computes which ones
// are usable given the available credentials. Enablement is a one-shot,
// boot-time decision.
type Registry struct {
	descriptors map[string]*Descriptor
	order       []string
}

// NewRegistry builds a registry from the built-in source table.
// Parameters:
//   - resolver: credential resolver; nil uses the process environment.
// Returns:
//   - *Registry: registry with credentials resolved and enablement computed.
func NewRegistry(resolver *Resolver) *Registry {
	return NewRegistryFrom(builtinTable(), resolver)
}

// NewRegistryFrom builds a registry from an explicit descriptor list.
// Used by tests to inject small fixture tables.
func NewRegistryFrom(table []Descriptor, resolver *Resolver) *Registry {
	if resolver == nil {
		resolver = NewResolver(nil)
	}

	r := &Registry{descriptors: make(map[string]*Descriptor, len(table))}

	// First pass: resolve credentials through the fallback chain.
	for i := range table {
		d := table[i]
		d.Credential = resolver.Resolve(d.PrimaryCredentialVar(), d.CredentialFallbacks)
		r.descriptors[d.ID] = &d
		r.order = append(r.order, d.ID)
	}

	// Second pass: auto-enable. A source force-enabled in the static table
	// is left as-is; otherwise it is enabled when it needs no credential or
	// when one was found.
	for _, id := range r.order {
		d := r.descriptors[id]
		if d.Enabled {
			continue
		}
		d.Enabled = !d.CredentialRequired || d.Credential != ""
	}

	for _, id := range r.order {
		d := r.descriptors[id]
		if d.CredentialRequired && d.Credential == "" {
			logger.GetDefault().WithField(logger.FieldSource, d.ID).
				Warnf("Source disabled: no credential found (primary %s)", d.PrimaryCredentialVar())
		}
	}

	return r
}

// Get returns the descriptor for id.
func (r *Registry) Get(id string) (*Descriptor, bool) {
	d, ok := r.descriptors[id]
	return d, ok
}

// All returns every declared descriptor in table order.
func (r *Registry) All() []*Descriptor {
	out := make([]*Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.descriptors[id])
	}
	return out
}

// Enabled returns the enabled descriptors in table order.
func (r *Registry) Enabled() []*Descriptor {
	var out []*Descriptor
	for _, id := range r.order {
		if d := r.descriptors[id]; d.Enabled {
			out = append(out, d)
		}
	}
	return out
}

// IsEnabled reports whether the named source exists and is enabled.
func (r *Registry) IsEnabled(id string) bool {
	d, ok := r.descriptors[id]
	return ok && d.Enabled
}

// CheckSourceHealth runs the static configuration check for one source.
// Missing declaration is itself an error result, not a panic.
func (r *Registry) CheckSourceHealth(id string) SourceHealth {
	h := SourceHealth{SourceID: id, Healthy: true}

	d, ok := r.descriptors[id]
	if !ok {
		h.Healthy = false
		h.Errors = append(h.Errors, "Unknown source")
		return h
	}

	if d.CredentialRequired && d.Credential == "" {
		h.Healthy = false
		h.Errors = append(h.Errors, "Missing required credentials")
	}
	if d.BaseURL == "" {
		h.Healthy = false
		h.Errors = append(h.Errors, "Missing base URL")
	}
	if d.RateLimit.Calls <= 0 || d.RateLimit.Period <= 0 {
		h.Warnings = append(h.Warnings, "No rate limit configured")
	}

	return h
}

// Validate aggregates the static health of every declared source.
func (r *Registry) Validate() ValidationReport {
	report := ValidationReport{TotalSources: len(r.order)}

	for _, id := range r.order {
		d := r.descriptors[id]
		if d.Enabled {
			report.EnabledSources++
		}
		if d.Credential != "" {
			report.CredentialedSources++
		}

		h := r.CheckSourceHealth(id)
		if h.Healthy {
			report.HealthySources++
		}
		for _, e := range h.Errors {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %s", id, e))
		}
	}

	return report
}
