// Package dpcodec translates between the canonical bus-facing LampState and
// a device's opaque data point (DP) map.
package dpcodec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DpEntry is one key/value pair of a DpMap. Key is the DP id rendered as a
// decimal string (e.g. "20"); Value is a JSON scalar: a bool, a string, or
// a number (json.Number when parsed from JSON, int when built by Encode).
type DpEntry struct {
	Key   string
	Value any
}

// DpMap is an ordered collection of DP entries. Iteration and JSON
// marshaling order matches insertion order, which devices rely on: the mode
// DP ("21") must be the last color-related entry or color updates are
// silently ignored by the firmware.
type DpMap []DpEntry

// Get returns the value stored for key, and whether it was present.
func (m DpMap) Get(key string) (any, bool) {
	for _, e := range m {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Set appends key/value to the map. DpMap never deduplicates existing keys;
// callers are expected to build a map once, in the exact order they want it
// to marshal in.
func (m *DpMap) Set(key string, value any) {
	*m = append(*m, DpEntry{Key: key, Value: value})
}

// MarshalJSON renders the map as a JSON object, preserving insertion order.
func (m DpMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON parses a JSON object into a DpMap, preserving the order DP
// ids appear on the wire. Numbers decode as json.Number so callers can
// distinguish integral DP values without losing precision.
func (m *DpMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("dpcodec: expected JSON object, got %v", tok)
	}

	var out DpMap
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("dpcodec: expected string key, got %v", keyTok)
		}

		var val any
		if err := dec.Decode(&val); err != nil {
			return err
		}
		out = append(out, DpEntry{Key: key, Value: val})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}
