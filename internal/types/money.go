// README: Common money value object used across modules.
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const DefaultCurrency = "SAR"

// Money carries an amount in minor units (halalas). Arithmetic stays in
// integers end to end; decimal strings appear only at the serialization
// boundary.
type Money struct {
	Amount   int64
	Currency string
}

func NewMoney(amount int64) Money {
	return Money{Amount: amount, Currency: DefaultCurrency}
}

// FromMajor builds a Money from whole currency units, e.g. FromMajor(85) == "85.00".
func FromMajor(units int64) Money {
	return NewMoney(units * 100)
}

// ParseDecimal parses a decimal string such as "85.00" or "12.5" into minor
// units. At most two fraction digits are accepted.
func ParseDecimal(s string) (Money, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return Money{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	var cents int64
	if frac != "" {
		if len(frac) > 2 {
			return Money{}, fmt.Errorf("parse amount %q: too many fraction digits", s)
		}
		for len(frac) < 2 {
			frac += "0"
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return Money{}, fmt.Errorf("parse amount %q: %w", s, err)
		}
	}
	total := units*100 + cents
	if neg {
		total = -total
	}
	return NewMoney(total), nil
}

// Decimal renders the amount as a two-fraction-digit decimal string.
func (m Money) Decimal() string {
	a := m.Amount
	sign := ""
	if a < 0 {
		sign = "-"
		a = -a
	}
	return fmt.Sprintf("%s%d.%02d", sign, a/100, a%100)
}

func (m Money) Add(o Money) Money     { return Money{Amount: m.Amount + o.Amount, Currency: m.currency()} }
func (m Money) Sub(o Money) Money     { return Money{Amount: m.Amount - o.Amount, Currency: m.currency()} }
func (m Money) Neg() Money            { return Money{Amount: -m.Amount, Currency: m.currency()} }
func (m Money) IsZero() bool          { return m.Amount == 0 }
func (m Money) IsPositive() bool      { return m.Amount > 0 }
func (m Money) LessThan(o Money) bool { return m.Amount < o.Amount }

func (m Money) currency() string {
	if m.Currency == "" {
		return DefaultCurrency
	}
	return m.Currency
}

// MarshalJSON emits the decimal-string form the storefront clients expect.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Decimal())
}

func (m *Money) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		// Tolerate bare numbers from older clients.
		var n json.Number
		if err2 := json.Unmarshal(b, &n); err2 != nil {
			return err
		}
		s = n.String()
	}
	parsed, err := ParseDecimal(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
