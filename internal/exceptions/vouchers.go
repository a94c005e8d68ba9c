package exceptions

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/retailhq/headoffice/internal/reporting/format"
	"github.com/retailhq/headoffice/internal/reporting/grouping"
	"github.com/retailhq/headoffice/internal/upstream"
)

// Leg is one debit or credit line of a voucher.
type Leg struct {
	AccountCode string  `json:"accountCode"`
	AccountName string  `json:"accountName"`
	Amount      float64 `json:"amount"`
}

// VoucherRow is a journal voucher with its debit and credit legs paired into a
// single display row.
type VoucherRow struct {
	Code          string  `json:"code"`
	VoucherType   string  `json:"voucherType,omitempty"`
	EntryDate     string  `json:"entryDate"`
	BillDate      string  `json:"billDate"`
	DelayDays     *int    `json:"delayDays"`
	DebitAccount  string  `json:"debitAccount"`
	CreditAccount string  `json:"creditAccount"`
	Debits        []Leg   `json:"debits"`
	Credits       []Leg   `json:"credits"`
	DebitTotal    float64 `json:"debitTotal"`
	CreditTotal   float64 `json:"creditTotal"`
	Amount        float64 `json:"amount"`
	Balanced      bool    `json:"balanced"`
	Narration     string  `json:"narration,omitempty"`
	User          string  `json:"user,omitempty"`
	Branch        string  `json:"branch,omitempty"`
}

type voucherAcc struct {
	row    VoucherRow
	debit  decimal.Decimal
	credit decimal.Decimal
}

func voucherKey(r upstream.JournalRow) string {
	return strings.TrimSpace(r.Code)
}

func accumulateVoucher(acc *voucherAcc, r upstream.JournalRow) *voucherAcc {
	if acc.row.Code == "" {
		acc.row.Code = strings.TrimSpace(r.Code)
		acc.row.VoucherType = r.VoucherType
		acc.row.EntryDate = r.EntryDate.String()
		acc.row.BillDate = r.BillDate.String()
		acc.row.Narration = r.Narration
		acc.row.User = r.User
		acc.row.Branch = r.Branch
	}
	value := r.Value().Decimal().Abs()
	leg := Leg{AccountCode: r.AccountCode, AccountName: r.AccountName, Amount: value.InexactFloat64()}
	if r.IsDebit() {
		acc.debit = acc.debit.Add(value)
		acc.row.Debits = append(acc.row.Debits, leg)
	} else {
		acc.credit = acc.credit.Add(value)
		acc.row.Credits = append(acc.row.Credits, leg)
	}
	return acc
}

func (acc *voucherAcc) finish() VoucherRow {
	row := acc.row
	row.DebitTotal = acc.debit.InexactFloat64()
	row.CreditTotal = acc.credit.InexactFloat64()
	row.Amount = decimal.Max(acc.debit, acc.credit).InexactFloat64()
	row.Balanced = acc.debit.Equal(acc.credit)
	row.DebitAccount = legNames(row.Debits)
	row.CreditAccount = legNames(row.Credits)
	if row.Debits == nil {
		row.Debits = []Leg{}
	}
	if row.Credits == nil {
		row.Credits = []Leg{}
	}
	return row
}

func legNames(legs []Leg) string {
	seen := grouping.NewSet()
	for _, l := range legs {
		name := l.AccountName
		if name == "" {
			name = l.AccountCode
		}
		seen.Add(name)
	}
	return strings.Join(seen.Items(), ", ")
}

// GroupVouchers pairs the legs sharing a voucher code into one row per voucher,
// in the order vouchers first appear.
func GroupVouchers(rows []upstream.JournalRow) []VoucherRow {
	grouped := grouping.GroupAndSummarize(rows, voucherKey, accumulateVoucher, func() *voucherAcc {
		return &voucherAcc{}
	})
	out := make([]VoucherRow, 0, grouped.Len())
	grouped.Each(func(_ string, acc *voucherAcc) {
		out = append(out, acc.finish())
	})
	return out
}

// Backdated groups backdated legs by voucher and derives how many days the
// entry trailed the bill.
func Backdated(rows []upstream.JournalRow) []VoucherRow {
	vouchers := GroupVouchers(rows)
	for i := range vouchers {
		vouchers[i].DelayDays = delay(vouchers[i].BillDate, vouchers[i].EntryDate)
	}
	return vouchers
}

func delay(from, to string) *int {
	a, err := format.ParseDate(from)
	if err != nil {
		return nil
	}
	b, err := format.ParseDate(to)
	if err != nil {
		return nil
	}
	d := format.DaysBetween(a, b)
	return &d
}

// CreditNote is a pending credit note with its legs paired.
type CreditNote struct {
	Code      string  `json:"code"`
	Party     string  `json:"party"`
	Reference string  `json:"reference,omitempty"`
	Date      string  `json:"date"`
	AgeDays   *int    `json:"ageDays"`
	Amount    float64 `json:"amount"`
	Legs      int     `json:"legs"`
}

type creditAcc struct {
	note   CreditNote
	debit  decimal.Decimal
	credit decimal.Decimal
}

// PendingCreditNotes groups credit note legs by voucher code and ages each note
// relative to now.
func PendingCreditNotes(rows []upstream.CreditNoteRow, now time.Time) []CreditNote {
	grouped := grouping.GroupAndSummarize(rows,
		func(r upstream.CreditNoteRow) string { return strings.TrimSpace(r.Code) },
		func(acc *creditAcc, r upstream.CreditNoteRow) *creditAcc {
			if acc.note.Code == "" {
				acc.note.Code = strings.TrimSpace(r.Code)
				acc.note.Date = r.Date.String()
			}
			if acc.note.Party == "" {
				acc.note.Party = r.Party
			}
			if acc.note.Reference == "" {
				acc.note.Reference = r.Reference
			}
			value := r.Amount.Decimal().Abs()
			if isDebit(r.DrCr) {
				acc.debit = acc.debit.Add(value)
			} else {
				acc.credit = acc.credit.Add(value)
			}
			acc.note.Legs++
			return acc
		},
		func() *creditAcc { return &creditAcc{} },
	)
	today := now.UTC().Format("2006-01-02")
	out := make([]CreditNote, 0, grouped.Len())
	grouped.Each(func(_ string, acc *creditAcc) {
		note := acc.note
		note.Amount = decimal.Max(acc.debit, acc.credit).InexactFloat64()
		note.AgeDays = delay(note.Date, today)
		out = append(out, note)
	})
	return out
}

func isDebit(drCr string) bool {
	return upstream.JournalRow{DrCr: drCr}.IsDebit()
}
