package exceptions

import "github.com/retailhq/headoffice/internal/upstream"

// RangeException is a transaction outside its expected band, with severity.
type RangeException struct {
	Code        string           `json:"code"`
	Date        string           `json:"date"`
	Category    string           `json:"category"`
	Description string           `json:"description,omitempty"`
	Branch      string           `json:"branch,omitempty"`
	Amount      float64          `json:"amount"`
	MinAmount   float64          `json:"minAmount"`
	MaxAmount   float64          `json:"maxAmount"`
	Deviation   upstream.Percent `json:"deviationPercent"`
	Breach      string           `json:"breach"`
	// Severity grades the magnitude of Deviation, so -60 and 60 are both
	// critical. An N/A deviation is unknown.
	Severity    Severity         `json:"severity"`
}

// SeverityCount is the number of exceptions at one severity.
type SeverityCount struct {
	Severity    Severity         `json:"severity"`
	Count    int      `json:"count"`
}

// ClassifyRanges attaches a severity to every row and counts rows per level.
// Counts are listed for every level, most severe first.
func ClassifyRanges(rows []upstream.RangeRow) ([]RangeException, []SeverityCount) {
	counts := make(map[Severity]int, len(Severities))
	out := make([]RangeException, 0, len(rows))
	for _, r := range rows {
		deviation := DeviationFor(r.Amount, r.MinAmount, r.MaxAmount)
		if r.Deviation != nil {
			deviation = *r.Deviation
		}
		sev := ClassifySeverity(deviation)
		counts[sev]++
		out = append(out, RangeException{
			Code:        r.Code,
			Date:        r.Date.String(),
			Category:    r.Category,
			Description: r.Description,
			Branch:      r.Branch,
			Amount:      r.Amount.Float64(),
			MinAmount:   r.MinAmount.Float64(),
			MaxAmount:   r.MaxAmount.Float64(),
			Deviation:   deviation,
			Breach:      Breach(r.Amount, r.MinAmount, r.MaxAmount),
			Severity:    sev,
		})
	}
	summary := make([]SeverityCount, 0, len(Severities))
	for _, s := range Severities {
		summary = append(summary, SeverityCount{Severity: s, Count: counts[s]})
	}
	return out, summary
}
