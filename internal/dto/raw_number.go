package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RawNumber keeps the literal text of a JSON number or string so the service layer
// can parse it strictly. `10`, `"10"` and `"ten"` all bind; only the parser decides validity.
type RawNumber string

// UnmarshalJSON implements json.Unmarshaler.
func (n *RawNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = RawNumber(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("expected a number or a string, got %s", string(data))
	}
	*n = RawNumber(num.String())
	return nil
}

// String returns the literal text.
func (n RawNumber) String() string { return string(n) }
