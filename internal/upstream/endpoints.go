package upstream

import (
	"context"
	"net/url"
	"strconv"
)

// DateRange bounds report queries, inclusive, formatted YYYY-MM-DD.
type DateRange struct {
	From string
	To   string
}

func (r DateRange) values() url.Values {
	q := url.Values{}
	if r.From != "" {
		q.Set("from", r.From)
	}
	if r.To != "" {
		q.Set("to", r.To)
	}
	return q
}

// Login exchanges credentials for an API token.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	return post[LoginResult](ctx, c, "/auth/login", creds)
}

// SalesDayWise returns one bucket per day in the range.
func (c *Client) SalesDayWise(ctx context.Context, r DateRange) ([]SalesRow, error) {
	return get[[]SalesRow](ctx, c, "/sales/day-wise", r.values())
}

// SalesMonthWise returns one bucket per month of year.
func (c *Client) SalesMonthWise(ctx context.Context, year int) ([]SalesRow, error) {
	q := url.Values{}
	q.Set("year", strconv.Itoa(year))
	return get[[]SalesRow](ctx, c, "/sales/month-wise", q)
}

// SalesYearWise returns one bucket per year between fromYear and toYear.
func (c *Client) SalesYearWise(ctx context.Context, fromYear, toYear int) ([]SalesRow, error) {
	q := url.Values{}
	q.Set("from", strconv.Itoa(fromYear))
	q.Set("to", strconv.Itoa(toYear))
	return get[[]SalesRow](ctx, c, "/sales/year-wise", q)
}

// CategorySales returns category level sales for the range.
func (c *Client) CategorySales(ctx context.Context, r DateRange) ([]CategoryRow, error) {
	return get[[]CategoryRow](ctx, c, "/inventory/category-sales", r.values())
}

// CategoryItems returns the items of one category for the range.
func (c *Client) CategoryItems(ctx context.Context, category string, r DateRange) ([]CategoryItemRow, error) {
	q := r.values()
	q.Set("category", category)
	return get[[]CategoryItemRow](ctx, c, "/inventory/category-items", q)
}

// Customers searches the CRM customer list.
func (c *Client) Customers(ctx context.Context, query string, page, perPage int) (CustomerPage, error) {
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	return get[CustomerPage](ctx, c, "/crm/customers", q)
}

// BackdatedEntries returns journal legs whose entry date is after the bill date.
func (c *Client) BackdatedEntries(ctx context.Context, r DateRange) ([]JournalRow, error) {
	return get[[]JournalRow](ctx, c, "/finance/exceptions/backdated", r.values())
}

// RangeExceptions returns transactions outside their expected band.
func (c *Client) RangeExceptions(ctx context.Context, r DateRange) ([]RangeRow, error) {
	return get[[]RangeRow](ctx, c, "/finance/exceptions/range", r.values())
}

// RefundExceptions returns refunded bills flagged for review.
func (c *Client) RefundExceptions(ctx context.Context, r DateRange) ([]RefundRow, error) {
	return get[[]RefundRow](ctx, c, "/finance/exceptions/refunds", r.values())
}

// PendingCreditNotes returns unsettled credit note legs.
func (c *Client) PendingCreditNotes(ctx context.Context, r DateRange) ([]CreditNoteRow, error) {
	return get[[]CreditNoteRow](ctx, c, "/finance/credit-notes/pending", r.values())
}

// VendorPurchases returns regular purchase invoice lines.
func (c *Client) VendorPurchases(ctx context.Context, r DateRange) ([]PurchaseRow, error) {
	return get[[]PurchaseRow](ctx, c, "/purchases/vendors", r.values())
}

// PaidWithoutStockClearing returns invoice lines paid before stock was cleared.
func (c *Client) PaidWithoutStockClearing(ctx context.Context, r DateRange) ([]PurchaseRow, error) {
	return get[[]PurchaseRow](ctx, c, "/purchases/paid-without-stock-clearing", r.values())
}

// BarcodeMetrics returns per terminal scan counters.
func (c *Client) BarcodeMetrics(ctx context.Context, r DateRange) ([]BarcodeRow, error) {
	return get[[]BarcodeRow](ctx, c, "/pos-audit/barcodes", r.values())
}
