package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

var (
	// ErrNotObject is returned for lines that are valid JSON but not an object.
	ErrNotObject = errors.New("telemetry line is not a JSON object")
	// ErrFieldMissing is returned when a routed field is absent from a sample.
	ErrFieldMissing = errors.New("field missing")
	// ErrFieldNotNumeric is returned when a routed field is not a JSON number
	// or does not fit in a float64.
	ErrFieldNotNumeric = errors.New("field not numeric")
)

// Sample is one decoded telemetry line, e.g.
//
//	{"ax":0.01,"ay":-0.02,"az":0.98,"am":0.98,"gx":1.2,"gy":-0.4,"gz":12.5}
//
// Numbers are kept as json.Number so a value that overflows float64 only
// affects its own field. A Sample lives for a single loop iteration.
type Sample map[string]any

// DecodeSample decodes line as a single JSON object.
func DecodeSample(line string) (Sample, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(line)))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode sample: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("failed to decode sample: unexpected data after JSON value")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: got JSON %s", ErrNotObject, kind(v))
	}
	return Sample(obj), nil
}

func kind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	default:
		return "number"
	}
}

// Float returns the numeric value of field. Only JSON numbers within float64
// range qualify; numeric strings and booleans are rejected.
func (s Sample) Float(field string) (float64, error) {
	v, ok := s[field]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrFieldMissing, field)
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("%w: %q is JSON %s", ErrFieldNotNumeric, field, kind(v))
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrFieldNotNumeric, field, err)
	}
	return f, nil
}
