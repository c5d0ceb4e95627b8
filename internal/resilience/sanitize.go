package resilience

import "regexp"

// redactedPlaceholder replaces any captured secret in sanitized error text.
const redactedPlaceholder = "[REDACTED]"

// Patterns that capture credential material commonly leaked into error
// strings by HTTP clients: key=value pairs, Authorization header values,
// userinfo embedded in URLs, and token query parameters.
var credentialPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(?i)(api[_-]?key["']?\s*[:=]\s*["']?)[^\s"'&,;]+`), "${1}" + redactedPlaceholder},
	{regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9._~+/-]+=*`), "${1}" + redactedPlaceholder},
	{regexp.MustCompile(`(?i)(basic\s+)[A-Za-z0-9+/]+=*`), "${1}" + redactedPlaceholder},
	{regexp.MustCompile(`(://)[^/\s:@]+:[^/\s@]+(@)`), "${1}" + redactedPlaceholder + "${2}"},
	{regexp.MustCompile(`(?i)(access_token=)[^&\s"']+`), "${1}" + redactedPlaceholder},
}

// SanitizeCredentials scrubs credential material from error text before it
// is stored or logged. Applied unconditionally: even errors not classified
// as credential errors may embed secrets in URLs or headers.
func SanitizeCredentials(s string) string {
	out := s
	for _, p := range credentialPatterns {
		out = p.re.ReplaceAllString(out, p.repl)
	}
	return out
}
