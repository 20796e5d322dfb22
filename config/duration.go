package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// UnmarshalJSON implements custom JSON unmarshaling for ControllerConfig to
// support duration strings (e.g., "15s") in addition to nanosecond integers.
func (c *ControllerConfig) UnmarshalJSON(data []byte) error {
	type Alias ControllerConfig

	aux := &struct {
		EvaluateInterval json.RawMessage `json:"evaluate_interval,omitempty"`
		HealthInterval   json.RawMessage `json:"health_interval,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if len(aux.EvaluateInterval) > 0 {
		d, err := parseDurationField(aux.EvaluateInterval, "evaluate_interval")
		if err != nil {
			return err
		}
		c.EvaluateInterval = d
	}
	if len(aux.HealthInterval) > 0 {
		d, err := parseDurationField(aux.HealthInterval, "health_interval")
		if err != nil {
			return err
		}
		c.HealthInterval = d
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
		return 0, fmt.Errorf("field %s must be either a duration string (e.g., '15s') or integer nanoseconds", fieldName)
	}
	return time.Duration(nsec), nil
}
