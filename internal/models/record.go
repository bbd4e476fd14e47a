package models

import (
	"bytes"
	"encoding/json"
)

// fields decodes a JSON object into its members. Any other JSON value has none.
func fields(b []byte) map[string]json.RawMessage {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

// takeText removes key from m and returns its value as text. Strings are
// returned unchanged, numbers and booleans in their literal form; null,
// objects and arrays read as empty.
func takeText(m map[string]json.RawMessage, key string) string {
	raw := bytes.TrimSpace(m[key])
	delete(m, key)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '{', '[', 'n':
		return ""
	default:
		return string(raw)
	}
}

// takeID removes key from m and decodes it as an ID.
func takeID(m map[string]json.RawMessage, key string) ID {
	raw := m[key]
	delete(m, key)
	var id ID
	if err := id.UnmarshalJSON(raw); err != nil {
		return ""
	}
	return id
}

func putText(out map[string]any, key, v string, omitEmpty bool) {
	if v != "" || !omitEmpty {
		out[key] = v
	}
}

func withExtra(extra map[string]json.RawMessage, known int) map[string]any {
	out := make(map[string]any, len(extra)+known)
	for k, v := range extra {
		out[k] = v
	}
	return out
}
