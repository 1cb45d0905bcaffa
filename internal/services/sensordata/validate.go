package sensordata

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/LeonardoBeccarini/sensor_dashboard/internal/model/entities"
)

// ParseReading decodes a JSON object carrying temperature, humidity, moisture and ph.
// Every key must be present and hold a JSON number; unknown keys are ignored.
func ParseReading(body []byte) (entities.ReadingFields, error) {
	raw, err := decodeObject(body)
	if err != nil {
		return entities.ReadingFields{}, err
	}
	return fieldsFromObject(raw)
}

func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: body is null", ErrInvalidInput)
	}
	return raw, nil
}

func fieldsFromObject(raw map[string]json.RawMessage) (entities.ReadingFields, error) {
	var f entities.ReadingFields
	for _, m := range []struct {
		key string
		dst *float64
	}{
		{"temperature", &f.Temperature},
		{"humidity", &f.Humidity},
		{"moisture", &f.Moisture},
		{"ph", &f.PH},
	} {
		v, ok := raw[m.key]
		if !ok {
			return entities.ReadingFields{}, fmt.Errorf("%w: %s is missing", ErrInvalidInput, m.key)
		}
		n, err := number(v)
		if err != nil {
			return entities.ReadingFields{}, fmt.Errorf("%w: %s %v", ErrInvalidInput, m.key, err)
		}
		*m.dst = n
	}
	return f, nil
}

// number accepts only JSON number literals: null, strings, booleans, arrays and
// objects are rejected rather than coerced.
func number(v json.RawMessage) (float64, error) {
	t := bytes.TrimSpace(v)
	if len(t) == 0 || !(t[0] == '-' || (t[0] >= '0' && t[0] <= '9')) {
		return 0, fmt.Errorf("is not a number: %s", t)
	}
	var n float64
	if err := json.Unmarshal(t, &n); err != nil {
		return 0, err
	}
	return n, nil
}
