package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// JSONMap is a custom type for storing arbitrary JSON objects as text in the database.
type JSONMap map[string]interface{}

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the map.
//   - error: non-nil if marshaling fails.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan JSONMap")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, m)
}

// Grant is the standardized opportunity record produced from any source's raw
// response via the source's declared field mapping. Fields a mapping leaves
// empty are omitted from JSON output, so callers never see null-valued keys.
type Grant struct {
	Title       string  `json:"title,omitempty"`
	Funder      string  `json:"funder,omitempty"`
	AmountMin   float64 `json:"amount_min,omitempty"`
	AmountMax   float64 `json:"amount_max,omitempty"`
	Deadline    string  `json:"deadline,omitempty"`
	Description string  `json:"description,omitempty"`
	Eligibility string  `json:"eligibility,omitempty"`
	Source      string  `json:"source,omitempty"`
	SourceData  JSONMap `json:"source_data,omitempty"`
	LastUpdated string  `json:"last_updated,omitempty"`
}

// DedupKey returns the composite key used to collapse the same opportunity
// reported by multiple sources. First occurrence wins during aggregation.
func (g Grant) DedupKey() string {
	return g.Title + ":" + g.Funder
}
