package exceptions

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/retailhq/headoffice/internal/upstream"
)

// Severity ranks how far a transaction strayed outside its expected band.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityUnknown  Severity = "unknown"
)

// Severities lists every level from most to least severe.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityUnknown}

// ClassifySeverity maps a deviation percentage onto a severity. Deviations
// below the band arrive negative, so the magnitude is compared.
func ClassifySeverity(deviation upstream.Percent) Severity {
	if !deviation.Valid || math.IsNaN(deviation.Value) {
		return SeverityUnknown
	}
	v := math.Abs(deviation.Value)
	switch {
	case v > 50:
		return SeverityCritical
	case v > 25:
		return SeverityHigh
	case v > 10:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

var hundred = decimal.NewFromInt(100)

// DeviationFor derives the deviation of amount from the [min, max] band.
// Amounts inside the band deviate by zero and a zero max means the band is
// open ended. A breach of a zero bound has no meaningful percentage and yields N/A.
func DeviationFor(amount, min, max upstream.Amount) upstream.Percent {
	a := amount.Decimal()
	var bound decimal.Decimal
	switch {
	case !max.IsZero() && a.GreaterThan(max.Decimal()):
		bound = max.Decimal()
	case a.LessThan(min.Decimal()):
		bound = min.Decimal()
	default:
		return upstream.PercentOf(0)
	}
	if bound.IsZero() {
		return upstream.NotApplicable
	}
	pct, _ := a.Sub(bound).Div(bound).Mul(hundred).Round(2).Float64()
	return upstream.PercentOf(pct)
}

// Breach describes which side of the band an amount fell on.
func Breach(amount, min, max upstream.Amount) string {
	a := amount.Decimal()
	switch {
	case !max.IsZero() && a.GreaterThan(max.Decimal()):
		return "above"
	case a.LessThan(min.Decimal()):
		return "below"
	default:
		return "within"
	}
}
