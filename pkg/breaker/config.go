package breaker

import (
	"encoding/json"
	"fmt"
	"time"
)

// UnmarshalJSON implements custom JSON unmarshaling for Config to support
// duration strings (e.g., "30s") in addition to nanosecond integers.
func (c *Config) UnmarshalJSON(data []byte) error {
	type Alias Config

	aux := &struct {
		OpenTimeout json.RawMessage `json:"open_timeout,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if len(aux.OpenTimeout) > 0 {
		timeout, err := parseDurationField(aux.OpenTimeout, "open_timeout")
		if err != nil {
			return err
		}
		c.OpenTimeout = timeout
	}
	return nil
}

// parseDurationField parses a JSON duration field that can be either an
// integer (nanoseconds) or a string (duration like "1h", "5m", "30s").
func parseDurationField(data json.RawMessage, fieldName string) (time.Duration, error) {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		duration, err := time.ParseDuration(str)
		if err != nil {
			return 0, fmt.Errorf("invalid duration string for %s: %w", fieldName, err)
		}
		return duration, nil
	}

	var nsec int64
	if err := json.Unmarshal(data, &nsec); err != nil {
		return 0, fmt.Errorf("field %s must be either a duration string (e.g., '30s') or integer nanoseconds", fieldName)
	}
	return time.Duration(nsec), nil
}
