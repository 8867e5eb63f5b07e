package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ExternalID is an identifier issued by the property management system.
// It is numeric on the wire but is also accepted as a JSON string.
type ExternalID string

// String returns the identifier text.
func (id ExternalID) String() string {
	return string(id)
}

// IsZero returns true for an empty identifier.
func (id ExternalID) IsZero() bool {
	return id == ""
}

// MarshalJSON writes numeric identifiers as JSON numbers and anything else
// as a string. The zero value is written as null.
func (id ExternalID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts a number, a string or null.
func (id *ExternalID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ExternalID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ExternalID(n.String())
	return nil
}
