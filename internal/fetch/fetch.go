package fetch

import (
	"context"

	"github.com/grantwell/grantwell/internal/domain"
	"github.com/grantwell/grantwell/internal/sources"
)

// Params carries caller-supplied request parameters: "query" for keyword
// search, "grant_id" for detail lookups, plus source-agnostic filters that
// each fetcher translates to its wire format.
type Params map[string]string

// Fetcher defines the interface for grant data source fetchers.
type Fetcher interface {
	// SourceID returns the unique identifier for this fetcher's source.
	SourceID() string

	// Fetch retrieves and standardizes grant records from the source.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - params: caller-supplied search/detail parameters.
	// Returns:
	//   - []domain.Grant: standardized records; may be empty.
	//   - error: non-nil if the upstream request ultimately fails.
	Fetch(ctx context.Context, params Params) ([]domain.Grant, error)
}

// NewFetchers builds the fetcher registry for every declared source. The
// manager decides per call whether a source is enabled; the registry itself
// carries all of them so enablement stays a single-point decision.
func NewFetchers(reg *sources.Registry) map[string]Fetcher {
	out := make(map[string]Fetcher)
	for _, d := range reg.All() {
		out[d.ID] = NewRESTFetcher(d)
	}
	return out
}
