package timestamp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Value is a timestamp field as it arrived on the wire. It keeps the raw
// string or number and only interprets it when asked, so a task with an odd
// deadline encoding still decodes.
type Value struct {
	raw any
}

// Of wraps a raw value (string, number or time.Time).
func Of(raw any) Value {
	return Value{raw: raw}
}

// Millis wraps an epoch millisecond count.
func Millis(ms int64) Value {
	return Value{raw: json.Number(fmt.Sprint(ms))}
}

// Raw returns the value as decoded: nil, string, json.Number, time.Time or
// whatever JSON type the server sent.
func (v Value) Raw() any {
	return v.raw
}

// Time normalizes the value.
func (v Value) Time() (time.Time, bool) {
	return Normalize(v.raw)
}

// IsZero reports whether the field was absent or null.
func (v Value) IsZero() bool {
	return v.raw == nil
}

// UnmarshalJSON implements the json.Unmarshaler interface for Value.
func (v *Value) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode timestamp %s: %w", b, err)
	}
	v.raw = raw
	return nil
}

// MarshalJSON implements the json.Marshaler interface for Value.
func (v Value) MarshalJSON() ([]byte, error) {
	if t, ok := v.raw.(time.Time); ok {
		return json.Marshal(t.UTC().Format(time.RFC3339Nano))
	}
	return json.Marshal(v.raw)
}
