package sources

import (
	"strings"
	"time"
)

// AuthType represents how a source request is authenticated.
// Values include AuthNone, AuthAPIKey, AuthBasic, AuthBearer, and AuthAppToken.
type AuthType string

const (
	AuthNone     AuthType = "none"
	AuthAPIKey   AuthType = "api_key"
	AuthBasic    AuthType = "basic_auth"
	AuthBearer   AuthType = "bearer"
	AuthAppToken AuthType = "app_token"
)

// RateLimit caps calls to a source within a sliding window.
type RateLimit struct {
	Calls  int
	Period time.Duration
}

// ErrorHandling declares which upstream status codes are retried and how.
type ErrorHandling struct {
	RetryCodes    []int
	MaxRetries    int
	BackoffFactor float64 // seconds; sleep is BackoffFactor * 2^attempt
}

// Descriptor declares one external grant-data source. Descriptors are
// constructed once at process start from the static table; only Enabled and
// Credential are derived during registry initialization and nothing is
// mutated afterwards (no hot-reload: rotating credentials requires a
// restart).
type Descriptor struct {
	ID   string
	Name string

	// Enabled in the static table force-enables a source regardless of
	// credentials; otherwise it is computed from credential availability.
	Enabled bool

	BaseURL   string
	Endpoints map[string]string // operation name -> path template
	Method    string            // HTTP method for the search endpoint

	AuthType   AuthType
	AuthHeader string // header the credential is injected into

	CredentialRequired bool
	// CredentialEnvVar is the primary environment variable; empty defaults
	// to {ID_UPPER}_API_KEY. CredentialFallbacks are tried in order when the
	// primary is unset. Basic-auth sources store "user:password" in one
	// variable.
	CredentialEnvVar    string
	CredentialFallbacks []string

	// Credential holds whatever the resolver found, possibly empty.
	Credential string

	RateLimit RateLimit
	CacheTTL  time.Duration

	ErrorHandling ErrorHandling

	// RecordsPath is the dot-path to the list of raw records in the search
	// response body; empty means the body itself is the array.
	RecordsPath string

	// FieldMapping maps canonical grant field names to source-specific
	// dot-paths into a raw record.
	FieldMapping map[string]string
}

// PrimaryCredentialVar returns the primary environment variable name for
// this source's credential.
func (d *Descriptor) PrimaryCredentialVar() string {
	if d.CredentialEnvVar != "" {
		return d.CredentialEnvVar
	}
	return strings.ToUpper(d.ID) + "_API_KEY"
}

// Endpoint returns the path template for the named operation.
func (d *Descriptor) Endpoint(op string) (string, bool) {
	path, ok := d.Endpoints[op]
	return path, ok
}
