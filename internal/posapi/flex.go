package posapi

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// FlexDecimal decodes a JSON number, a numeric string, an empty string or null.
// Set reports whether a non-empty value was present.
type FlexDecimal struct {
	Value decimal.Decimal
	Set   bool
}

// Flex wraps d as a present value.
func Flex(d decimal.Decimal) FlexDecimal {
	return FlexDecimal{Value: d, Set: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexDecimal) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*f = FlexDecimal{}
		return nil
	}
	var raw string
	if len(trimmed) > 0 && trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
	} else {
		raw = string(trimmed)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*f = FlexDecimal{}
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return err
	}
	*f = FlexDecimal{Value: d, Set: true}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f FlexDecimal) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}
