package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ID is an upstream identifier. Providers send ids as JSON numbers or as
// strings depending on the panel version; both decode to the same text.
type ID string

// UnmarshalJSON accepts a string, a number or null. Other JSON kinds decode to the empty ID.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		*id = ""
		return nil
	}
	*id = ID(n.String())
	return nil
}

// Present reports whether the id carries a value. Zero is treated as absent.
func (id ID) Present() bool {
	return id != "" && id != "0"
}

func (id ID) String() string { return string(id) }
