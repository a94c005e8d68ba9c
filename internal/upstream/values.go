package upstream

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a monetary value that the API sends either as a JSON number or as a
// string. Unparsable or missing values decode to zero.
type Amount struct {
	d decimal.Decimal
}

// NewAmount wraps a float value.
func NewAmount(v float64) Amount {
	return Amount{d: decimal.NewFromFloat(v)}
}

// AmountFromDecimal wraps a decimal value.
func AmountFromDecimal(d decimal.Decimal) Amount {
	return Amount{d: d}
}

// Float64 returns the value as float64.
func (a Amount) Float64() float64 {
	f, _ := a.d.Float64()
	return f
}

// Decimal returns the exact value.
func (a Amount) Decimal() decimal.Decimal {
	return a.d
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.d.IsZero()
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	a.d = parseDecimal(data)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.d.String()), nil
}

// Count is an integer counter that may arrive stringified.
type Count int64

// UnmarshalJSON implements json.Unmarshaler.
func (c *Count) UnmarshalJSON(data []byte) error {
	*c = Count(parseDecimal(data).IntPart())
	return nil
}

// Int64 returns the counter value.
func (c Count) Int64() int64 {
	return int64(c)
}

// Label is a period or date label that may arrive as a string or number (years).
type Label string

// UnmarshalJSON implements json.Unmarshaler.
func (l *Label) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Label(strings.TrimSpace(s))
		return nil
	}
	*l = Label(string(data))
	return nil
}

// String returns the label text.
func (l Label) String() string {
	return string(l)
}

// Percent is a percentage the API reports either as a number or as "N/A".
type Percent struct {
	Value float64
	Valid bool
}

// PercentOf returns a known percentage.
func PercentOf(v float64) Percent {
	return Percent{Value: v, Valid: true}
}

// NotApplicable is the "N/A" percentage.
var NotApplicable = Percent{}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Percent) UnmarshalJSON(data []byte) error {
	*p = Percent{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSuffix(strings.TrimSpace(s), "%")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil
	}
	*p = PercentOf(v)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p Percent) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte(`"N/A"`), nil
	}
	return []byte(strconv.FormatFloat(p.Value, 'f', -1, 64)), nil
}

// String renders the percentage for tables and exports.
func (p Percent) String() string {
	if !p.Valid {
		return "N/A"
	}
	return strconv.FormatFloat(p.Value, 'f', 2, 64) + "%"
}

func parseDecimal(data []byte) decimal.Decimal {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return decimal.Zero
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return decimal.Zero
		}
		raw = strings.NewReplacer(",", "", " ", "").Replace(s)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
