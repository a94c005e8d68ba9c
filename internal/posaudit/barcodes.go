// Package posaudit ranks POS terminals and cashiers by how often EANs were
// keyed in by hand instead of scanned.
package posaudit

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/retailhq/headoffice/internal/reporting/grouping"
	"github.com/retailhq/headoffice/internal/upstream"
)

// DefaultThreshold is the typed ratio, in percent, at or above which a line is flagged.
const DefaultThreshold = 10.0

const unassigned = "(unassigned)"

// ScanCount is a pair of scanned and typed counters with the derived ratio.
type ScanCount struct {
	Scanned    int64    `json:"scanned"`
	Typed      int64    `json:"typed"`
	Total      int64    `json:"total"`
	TypedRatio *float64 `json:"typedRatio"`
	Flagged    bool     `json:"flagged"`
}

// CashierScan is one cashier on one terminal.
type CashierScan struct {
	User string `json:"user"`
	ScanCount
}

// TerminalScan aggregates a terminal and its cashiers.
type TerminalScan struct {
	Terminal  string        `json:"terminal"`
	FirstSeen string        `json:"firstSeen"`
	LastSeen  string        `json:"lastSeen"`
	Cashiers  []CashierScan `json:"cashiers"`
	ScanCount
}

// TypedRatio returns typed/(scanned+typed)*100 rounded to two places, or nil
// when nothing was rung up.
func TypedRatio(scanned, typed int64) *float64 {
	total := scanned + typed
	if total <= 0 {
		return nil
	}
	v := decimal.NewFromInt(typed).Div(decimal.NewFromInt(total)).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
	return &v
}

func newCount(scanned, typed int64, threshold float64) ScanCount {
	c := ScanCount{Scanned: scanned, Typed: typed, Total: scanned + typed, TypedRatio: TypedRatio(scanned, typed)}
	c.Flagged = c.TypedRatio != nil && *c.TypedRatio >= threshold
	return c
}

type terminalAcc struct {
	terminal       string
	first, last    string
	scanned, typed int64
	cashiers       *grouping.Ordered[[2]int64]
}

func orUnassigned(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return unassigned
	}
	return s
}

// Aggregate folds rows into terminals in first-seen order. Cashiers inside a
// terminal keep their first-seen order; ranking happens in Rank.
func Aggregate(rows []upstream.BarcodeRow, threshold float64) []TerminalScan {
	grouped := grouping.GroupAndSummarize(rows, func(row upstream.BarcodeRow) string {
		return orUnassigned(row.Terminal)
	}, func(acc *terminalAcc, row upstream.BarcodeRow) *terminalAcc {
		if acc.terminal == "" {
			acc.terminal = orUnassigned(row.Terminal)
		}
		if d := strings.TrimSpace(row.Date.String()); d != "" {
			if acc.first == "" || d < acc.first {
				acc.first = d
			}
			if d > acc.last {
				acc.last = d
			}
		}
		scanned, typed := row.Scanned.Int64(), row.Typed.Int64()
		acc.scanned += scanned
		acc.typed += typed
		user := orUnassigned(row.User)
		counts, _ := acc.cashiers.Get(user)
		acc.cashiers.Set(user, [2]int64{counts[0] + scanned, counts[1] + typed})
		return acc
	}, func() *terminalAcc {
		return &terminalAcc{cashiers: grouping.NewOrdered[[2]int64]()}
	})

	out := make([]TerminalScan, 0, grouped.Len())
	grouped.Each(func(_ string, acc *terminalAcc) {
		t := TerminalScan{
			Terminal:  acc.terminal,
			FirstSeen: acc.first,
			LastSeen:  acc.last,
			Cashiers:  make([]CashierScan, 0, acc.cashiers.Len()),
			ScanCount: newCount(acc.scanned, acc.typed, threshold),
		}
		acc.cashiers.Each(func(user string, c [2]int64) {
			t.Cashiers = append(t.Cashiers, CashierScan{User: user, ScanCount: newCount(c[0], c[1], threshold)})
		})
		out = append(out, t)
	})
	return out
}

func ratioOf(c ScanCount) float64 {
	if c.TypedRatio == nil {
		return -1
	}
	return *c.TypedRatio
}

func worse(a, b ScanCount) bool {
	ra, rb := ratioOf(a), ratioOf(b)
	if ra != rb {
		return ra > rb
	}
	return a.Typed > b.Typed
}

// Rank returns a copy of terminals ordered worst first, with each terminal's
// cashiers ordered the same way.
func Rank(terminals []TerminalScan) []TerminalScan {
	out := make([]TerminalScan, len(terminals))
	for i, t := range terminals {
		cashiers := make([]CashierScan, len(t.Cashiers))
		copy(cashiers, t.Cashiers)
		sort.SliceStable(cashiers, func(a, b int) bool { return worse(cashiers[a].ScanCount, cashiers[b].ScanCount) })
		t.Cashiers = cashiers
		out[i] = t
	}
	sort.SliceStable(out, func(a, b int) bool { return worse(out[a].ScanCount, out[b].ScanCount) })
	return out
}
