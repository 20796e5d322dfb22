package scaler

import (
	"encoding/json"
	"fmt"
	"time"
)

// UnmarshalJSON implements custom JSON unmarshaling for Config to support
// duration strings (e.g., "1m") in addition to nanosecond integers.
func (c *Config) UnmarshalJSON(data []byte) error {
	type Alias Config

	aux := &struct {
		Cooldown json.RawMessage `json:"cooldown,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if len(aux.Cooldown) > 0 {
		cooldown, err := parseDurationField(aux.Cooldown, "cooldown")
		if err != nil {
			return err
		}
		c.Cooldown = cooldown
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
		return 0, fmt.Errorf("field %s must be either a duration string (e.g., '1m') or integer nanoseconds", fieldName)
	}
	return time.Duration(nsec), nil
}
