package exceptions

import (
	"strconv"
	"strings"

	"github.com/retailhq/headoffice/internal/reporting/export"
	"github.com/retailhq/headoffice/internal/reporting/format"
)

// BackdatedTable renders the backdated report for download.
func BackdatedTable(f *format.Formatter, r BackdatedReport) export.Table {
	t := export.Table{
		Title:   "Backdated Entries",
		Headers: []string{"Voucher", "Type", "Bill Date", "Entry Date", "Delay (days)", "Debit", "Credit", "Amount", "User", "Narration"},
	}
	for _, v := range r.Vouchers {
		t.Rows = append(t.Rows, []string{
			v.Code, v.VoucherType, format.Date(v.BillDate), format.Date(v.EntryDate), days(v.DelayDays),
			v.DebitAccount, v.CreditAccount, f.Currency(v.Amount), v.User, v.Narration,
		})
	}
	return t
}

// RangeTable renders range exceptions for download.
func RangeTable(f *format.Formatter, r RangeReport) export.Table {
	t := export.Table{
		Title:   "Range Exceptions",
		Headers: []string{"Code", "Date", "Category", "Amount", "Min", "Max", "Deviation", "Breach", "Severity"},
	}
	for _, row := range r.Rows {
		t.Rows = append(t.Rows, []string{
			row.Code, format.Date(row.Date), row.Category, f.Currency(row.Amount),
			f.Currency(row.MinAmount), f.Currency(row.MaxAmount), row.Deviation.String(),
			row.Breach, strings.ToUpper(string(row.Severity)),
		})
	}
	return t
}

// RefundTable flattens the terminal/user refund rollup for download.
func RefundTable(f *format.Formatter, r RefundReport) export.Table {
	t := export.Table{
		Title:   "Refund Exceptions",
		Headers: []string{"Terminal", "User", "Refunds", "Total", "First", "Last"},
	}
	for _, term := range r.Terminals {
		for _, u := range term.Users {
			t.Rows = append(t.Rows, []string{
				term.Terminal, u.User, strconv.Itoa(u.Count), f.Currency(u.Total),
				format.Date(term.FirstSeen), format.Date(term.LastSeen),
			})
		}
	}
	return t
}

// CreditNoteTable renders pending credit notes for download.
func CreditNoteTable(f *format.Formatter, r CreditNoteReport) export.Table {
	t := export.Table{
		Title:   "Pending Credit Notes",
		Headers: []string{"Voucher", "Party", "Reference", "Date", "Age (days)", "Amount"},
	}
	for _, n := range r.Notes {
		t.Rows = append(t.Rows, []string{
			n.Code, n.Party, n.Reference, format.Date(n.Date), days(n.AgeDays), f.Currency(n.Amount),
		})
	}
	return t
}

func days(d *int) string {
	if d == nil {
		return format.NotAvailable
	}
	return strconv.Itoa(*d)
}
