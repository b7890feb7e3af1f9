package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Amount is a fixed-point currency value in minor units (cents).
// Arithmetic stays in int64; JSON renders as a decimal number with
// two fraction digits, e.g. 100050 <-> 1000.50.
type Amount int64

const maxWholeUnits = (1<<63 - 1) / 100

// ParseAmount parses a decimal string with at most two fraction digits.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("parse amount: empty input")
	}

	neg := false
	if s[0] == '+' || s[0] == '-' {
		neg = s[0] == '-'
		s = s[1:]
	}

	whole := s
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("parse amount: %q is not a number", s)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("parse amount: %q has more than two decimal places", s)
	}

	units := int64(0)
	if whole != "" {
		w, err := strconv.ParseUint(whole, 10, 64)
		if err != nil || w > maxWholeUnits {
			return 0, fmt.Errorf("parse amount: %q out of range", s)
		}
		units = int64(w) * 100
	}
	if frac != "" {
		f, err := strconv.ParseUint(frac, 10, 8)
		if err != nil {
			return 0, fmt.Errorf("parse amount: %q is not a number", s)
		}
		if len(frac) == 1 {
			f *= 10
		}
		units += int64(f)
	}
	if neg {
		units = -units
	}
	return Amount(units), nil
}

func (a Amount) String() string {
	u := int64(a)
	sign := ""
	if u < 0 {
		sign = "-"
		u = -u
	}
	return fmt.Sprintf("%s%d.%02d", sign, u/100, u%100)
}

// MarshalJSON emits the amount as a plain JSON number (1000.50).
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		return nil
	}
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}
