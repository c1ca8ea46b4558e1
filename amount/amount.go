// Package amount handles the unbounded non-negative integers (prices, stock,
// quantities, deadlines) mirrored from the chain. They are stored as NUMERIC
// and cross the HTTP boundary as decimal strings.
package amount

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sdkmath "cosmossdk.io/math"
)

// ErrInvalid signals a value that is not a non-negative base-10 integer.
var ErrInvalid = errors.New("amount: invalid integer")

// Parse reads a non-negative base-10 integer without losing precision.
func Parse(s string) (sdkmath.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return sdkmath.Int{}, fmt.Errorf("%w: empty", ErrInvalid)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return sdkmath.Int{}, fmt.Errorf("%w: %q", ErrInvalid, s)
		}
	}
	v, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("%w: %q out of range", ErrInvalid, s)
	}
	return v, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) sdkmath.Int {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Flex decodes either a JSON string ("123") or a JSON integer (123).
// Set reports whether the field was present and non-null.
type Flex struct {
	Value sdkmath.Int
	Set   bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flex) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = Flex{}
		return nil
	}

	var raw string
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		raw = n.String()
	}

	v, err := Parse(raw)
	if err != nil {
		return err
	}
	f.Value = v
	f.Set = true
	return nil
}

// MarshalJSON renders the value as a decimal string.
func (f Flex) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value.String())
}

// Of wraps a parsed value as present.
func Of(v sdkmath.Int) Flex {
	return Flex{Value: v, Set: true}
}
