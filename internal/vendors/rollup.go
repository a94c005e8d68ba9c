package vendors

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/retailhq/headoffice/internal/reporting/format"
	"github.com/retailhq/headoffice/internal/reporting/grouping"
	"github.com/retailhq/headoffice/internal/upstream"
)

// Summary is one vendor's purchases over the window.
type Summary struct {
	VendorCode        string   `json:"vendorCode"`
	VendorName        string   `json:"vendorName"`
	InvoiceCount      int      `json:"invoiceCount"`
	ItemCount         int      `json:"itemCount"`
	Quantity          float64  `json:"quantity"`
	Amount            float64  `json:"amount"`
	LastPurchase      string   `json:"lastPurchase"`
	UnclearedInvoices int      `json:"unclearedInvoices"`
	Invoices          []string `json:"invoices"`
}

type vendorAcc struct {
	code      string
	name      string
	invoices  *grouping.Set
	uncleared *grouping.Set
	items     *grouping.Set
	quantity  decimal.Decimal
	amount    decimal.Decimal
	last      string
}

type sourcedRow struct {
	row       upstream.PurchaseRow
	uncleared bool
}

func vendorKey(r upstream.PurchaseRow) string {
	if code := strings.TrimSpace(r.VendorCode); code != "" {
		return code
	}
	return strings.TrimSpace(r.VendorName)
}

func lineKey(r upstream.PurchaseRow) string {
	return vendorKey(r) + "\x00" + strings.TrimSpace(r.InvoiceNo) + "\x00" + strings.TrimSpace(r.ItemCode)
}

// Rollup folds regular purchases and paid-without-stock-clearing purchases
// into one summary per vendor. Every regular row counts. An uncleared row is
// the same line as an unmatched regular row with its vendor, invoice and item
// and is then only flagged; otherwise it counts on its own. Invoices are
// counted by number.
func Rollup(regular, uncleared []upstream.PurchaseRow) []Summary {
	rows := make([]sourcedRow, 0, len(regular)+len(uncleared))
	pending := make(map[string][]int, len(regular))
	for _, r := range regular {
		key := lineKey(r)
		pending[key] = append(pending[key], len(rows))
		rows = append(rows, sourcedRow{row: r})
	}
	for _, r := range uncleared {
		key := lineKey(r)
		if idx := pending[key]; len(idx) > 0 {
			rows[idx[0]].uncleared = true
			pending[key] = idx[1:]
			continue
		}
		rows = append(rows, sourcedRow{row: r, uncleared: true})
	}

	grouped := grouping.GroupAndSummarize(rows,
		func(s sourcedRow) string { return vendorKey(s.row) },
		accumulate,
		func() *vendorAcc {
			return &vendorAcc{invoices: grouping.NewSet(), uncleared: grouping.NewSet(), items: grouping.NewSet()}
		},
	)

	out := make([]Summary, 0, grouped.Len())
	grouped.Each(func(_ string, acc *vendorAcc) {
		out = append(out, Summary{
			VendorCode:        acc.code,
			VendorName:        acc.name,
			InvoiceCount:      acc.invoices.Len(),
			ItemCount:         acc.items.Len(),
			Quantity:          acc.quantity.InexactFloat64(),
			Amount:            acc.amount.InexactFloat64(),
			LastPurchase:      acc.last,
			UnclearedInvoices: acc.uncleared.Len(),
			Invoices:          acc.invoices.Items(),
		})
	})
	return out
}

func accumulate(acc *vendorAcc, s sourcedRow) *vendorAcc {
	r := s.row
	if acc.code == "" {
		acc.code = strings.TrimSpace(r.VendorCode)
	}
	if acc.name == "" {
		acc.name = strings.TrimSpace(r.VendorName)
	}
	if inv := strings.TrimSpace(r.InvoiceNo); inv != "" {
		acc.invoices.Add(inv)
		if s.uncleared {
			acc.uncleared.Add(inv)
		}
	}
	if item := strings.TrimSpace(r.ItemCode); item != "" {
		acc.items.Add(item)
	}
	acc.quantity = acc.quantity.Add(r.Quantity.Decimal())
	acc.amount = acc.amount.Add(r.Amount.Decimal())
	if date := r.InvoiceDate.String(); date != "" && (acc.last == "" || later(date, acc.last)) {
		acc.last = date
	}
	return acc
}

func later(a, b string) bool {
	ta, errA := format.ParseDate(a)
	tb, errB := format.ParseDate(b)
	if errA != nil || errB != nil {
		return a > b
	}
	return ta.After(tb)
}
