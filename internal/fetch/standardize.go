package fetch

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/grantwell/grantwell/internal/domain"
	"github.com/grantwell/grantwell/internal/sources"
)

// lookupPath resolves a dot-path into nested JSON data. Map steps use the
// key as-is; slice steps expect a numeric index. Returns nil when any step
// fails to resolve.
func lookupPath(data interface{}, path string) interface{} {
	current := data
	for _, part := range strings.Split(path, ".") {
		switch v := current.(type) {
		case map[string]interface{}:
			next, ok := v[part]
			if !ok {
				return nil
			}
			current = next
		case []interface{}:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil
			}
			current = v[idx]
		default:
			return nil
		}
	}
	return current
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func asFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case json.Number:
		f, _ := t.Float64()
		return f
	case string:
		cleaned := strings.TrimSpace(strings.NewReplacer("$", "", ",", "").Replace(t))
		f, _ := strconv.ParseFloat(cleaned, 64)
		return f
	}
	return 0
}

// standardize applies the source's field mapping to one raw record. Fields
// the mapping cannot resolve stay at their zero value and are dropped from
// JSON output, so callers never see null-valued keys.
func standardize(raw map[string]interface{}, d *sources.Descriptor, now time.Time) domain.Grant {
	g := domain.Grant{
		Source:      d.ID,
		SourceData:  domain.JSONMap(raw),
		LastUpdated: now.UTC().Format(time.RFC3339),
	}

	for canonical, path := range d.FieldMapping {
		v := lookupPath(raw, path)
		if v == nil {
			continue
		}
		switch canonical {
		case "title":
			g.Title = asString(v)
		case "funder":
			g.Funder = asString(v)
		case "amount_min":
			g.AmountMin = asFloat(v)
		case "amount_max":
			g.AmountMax = asFloat(v)
		case "deadline":
			g.Deadline = asString(v)
		case "description":
			g.Description = asString(v)
		case "eligibility":
			g.Eligibility = asString(v)
		}
	}

	return g
}
