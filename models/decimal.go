package models

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// CoercedDecimal is a decimal that never fails to unmarshal: JSON numbers
// parse normally, formatted strings are cleaned, and unparseable input
// coerces to zero. Used for line-item quantity/rate/tax fields where the
// legacy contract is "bad input contributes 0", not "reject the edit".
type CoercedDecimal struct {
	decimal.Decimal
}

func (d *CoercedDecimal) UnmarshalJSON(data []byte) error {
	var raw json.Number
	if err := json.Unmarshal(data, &raw); err == nil {
		if v, derr := decimal.NewFromString(raw.String()); derr == nil {
			d.Decimal = v
			return nil
		}
		d.Decimal = decimal.Zero
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		d.Decimal = CoerceDecimal(s)
		return nil
	}

	d.Decimal = decimal.Zero
	return nil
}

func (d CoercedDecimal) MarshalJSON() ([]byte, error) {
	return []byte(d.Decimal.String()), nil
}

// CoerceDecimal parses user-formatted numeric strings into a decimal.
// Accepts common formatted inputs like:
//   - "20,000"
//   - "$ 1,234.50"
//   - "  500  "
//
// Anything unparseable coerces to zero. This is the compatibility contract
// for line-item edits: a bad quantity/rate/tax input contributes 0 to the
// totals instead of failing the edit.
func CoerceDecimal(input string) decimal.Decimal {
	s := strings.TrimSpace(input)
	if s == "" {
		return decimal.Zero
	}
	s = strings.ReplaceAll(s, ",", "")

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}

	// Strip everything except digits and '.'.
	var b strings.Builder
	b.Grow(len(s) + 1)
	dots := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r == '.' {
			dots++
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" || clean == "." || dots > 1 {
		return decimal.Zero
	}
	if neg {
		clean = "-" + clean
	}

	val, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero
	}
	return val
}
