package exceptions

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/retailhq/headoffice/internal/reporting/format"
	"github.com/retailhq/headoffice/internal/reporting/grouping"
	"github.com/retailhq/headoffice/internal/upstream"
)

const unassigned = "(unassigned)"

// UserRefunds totals one cashier's refunds on a terminal.
type UserRefunds struct {
	User  string  `json:"user"`
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// TerminalRefunds totals refunds per terminal with a per-user breakdown.
type TerminalRefunds struct {
	Terminal  string        `json:"terminal"`
	Count     int           `json:"count"`
	Total     float64       `json:"total"`
	FirstSeen string        `json:"firstSeen"`
	LastSeen  string        `json:"lastSeen"`
	Users     []UserRefunds `json:"users"`
}

type userAcc struct {
	user  string
	count int
	total decimal.Decimal
}

type terminalAcc struct {
	terminal  string
	bills     *grouping.Set
	total     decimal.Decimal
	users     *grouping.Ordered[*userAcc]
	firstSeen string
	lastSeen  string
}

func refundTerminal(r upstream.RefundRow) string {
	if t := strings.TrimSpace(r.Terminal); t != "" {
		return t
	}
	return unassigned
}

func accumulateRefund(acc *terminalAcc, r upstream.RefundRow) *terminalAcc {
	if acc.terminal == "" {
		acc.terminal = refundTerminal(r)
	}
	// A bill reported twice is one refund.
	if bill := strings.TrimSpace(r.BillNo); bill != "" && !acc.bills.Add(bill) {
		return acc
	}
	amount := r.Amount.Decimal().Abs()
	acc.total = acc.total.Add(amount)

	user := strings.TrimSpace(r.User)
	if user == "" {
		user = unassigned
	}
	u, ok := acc.users.Get(user)
	if !ok {
		u = &userAcc{user: user}
		acc.users.Set(user, u)
	}
	u.count++
	u.total = u.total.Add(amount)

	date := r.Date.String()
	if acc.firstSeen == "" || earlier(date, acc.firstSeen) {
		acc.firstSeen = date
	}
	if acc.lastSeen == "" || earlier(acc.lastSeen, date) {
		acc.lastSeen = date
	}
	return acc
}

// earlier compares API dates chronologically, falling back to text order for
// labels that do not parse.
func earlier(a, b string) bool {
	ta, errA := format.ParseDate(a)
	tb, errB := format.ParseDate(b)
	if errA != nil || errB != nil {
		return a < b
	}
	return ta.Before(tb)
}

// RollupRefunds groups refunds by terminal, with nested per-user totals, in the
// order terminals first appear. Duplicate bill numbers on a terminal count once.
func RollupRefunds(rows []upstream.RefundRow) []TerminalRefunds {
	grouped := grouping.GroupAndSummarize(rows, refundTerminal, accumulateRefund, func() *terminalAcc {
		return &terminalAcc{bills: grouping.NewSet(), users: grouping.NewOrdered[*userAcc]()}
	})
	out := make([]TerminalRefunds, 0, grouped.Len())
	grouped.Each(func(_ string, acc *terminalAcc) {
		t := TerminalRefunds{
			Terminal:  acc.terminal,
			Total:     acc.total.InexactFloat64(),
			FirstSeen: acc.firstSeen,
			LastSeen:  acc.lastSeen,
			Users:     make([]UserRefunds, 0, acc.users.Len()),
		}
		acc.users.Each(func(_ string, u *userAcc) {
			t.Count += u.count
			t.Users = append(t.Users, UserRefunds{User: u.user, Count: u.count, Total: u.total.InexactFloat64()})
		})
		out = append(out, t)
	})
	return out
}
