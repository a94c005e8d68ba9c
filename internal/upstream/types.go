package upstream

import "strings"

// SalesRow is one day, month or year bucket from the sales endpoints. Only the
// label field matching the endpoint cadence is populated.
type SalesRow struct {
	Date        Label  `json:"date"`
	Month       Label  `json:"month"`
	Year        Label  `json:"year"`
	NOB         Count  `json:"nob"`
	GrossAmount Amount `json:"grossAmount"`
}

// Period returns whichever label the endpoint populated.
func (r SalesRow) Period() string {
	switch {
	case r.Date != "":
		return r.Date.String()
	case r.Month != "":
		return r.Month.String()
	default:
		return r.Year.String()
	}
}

// JournalRow is one leg of a journal entry as returned by the exception
// reports. encoding/json matches keys case-insensitively, so both "CODE" and
// "code" populate Code.
type JournalRow struct {
	Code        string `json:"code"`
	VoucherType string `json:"voucherType"`
	AccountCode string `json:"accountCode"`
	AccountName string `json:"accountName"`
	DrCr        string `json:"drCr"`
	Amount      Amount `json:"amount"`
	Debit       Amount `json:"debit"`
	Credit      Amount `json:"credit"`
	EntryDate   Label  `json:"entryDate"`
	BillDate    Label  `json:"billDate"`
	Narration   string `json:"narration"`
	User        string `json:"user"`
	Branch      string `json:"branch"`
}

// IsDebit reports whether the leg debits its account.
func (r JournalRow) IsDebit() bool {
	switch strings.ToUpper(strings.TrimSpace(r.DrCr)) {
	case "D", "DR", "DEBIT":
		return true
	case "C", "CR", "CREDIT":
		return false
	}
	return !r.Debit.IsZero() && r.Credit.IsZero()
}

// Value returns the leg amount regardless of how the API split the columns.
func (r JournalRow) Value() Amount {
	if !r.Amount.IsZero() {
		return r.Amount
	}
	if !r.Debit.IsZero() {
		return r.Debit
	}
	return r.Credit
}

// RangeRow is a transaction that fell outside its category's expected band.
// Deviation is nil when the API omitted it, and not Valid when it sent "N/A".
type RangeRow struct {
	Code        string   `json:"code"`
	Date        Label    `json:"date"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	Branch      string   `json:"branch"`
	Amount      Amount   `json:"amount"`
	MinAmount   Amount   `json:"minAmount"`
	MaxAmount   Amount   `json:"maxAmount"`
	Deviation   *Percent `json:"deviationPercent"`
}

// RefundRow is one refunded bill.
type RefundRow struct {
	BillNo   string `json:"billNo"`
	Terminal string `json:"terminal"`
	User     string `json:"user"`
	Amount   Amount `json:"amount"`
	Date     Label  `json:"date"`
	Reason   string `json:"reason"`
}

// CreditNoteRow is an unsettled credit note leg.
type CreditNoteRow struct {
	Code      string `json:"code"`
	Party     string `json:"party"`
	Reference string `json:"reference"`
	DrCr      string `json:"drCr"`
	Amount    Amount `json:"amount"`
	Date      Label  `json:"date"`
}

// PurchaseRow is one purchase invoice line.
type PurchaseRow struct {
	VendorCode  string `json:"vendorCode"`
	VendorName  string `json:"vendorName"`
	InvoiceNo   string `json:"invoiceNo"`
	InvoiceDate Label  `json:"invoiceDate"`
	ItemCode    string `json:"itemCode"`
	ItemName    string `json:"itemName"`
	Quantity    Amount `json:"qty"`
	Amount      Amount `json:"amount"`
}

// BarcodeRow counts scanned and hand-keyed EANs for one terminal and cashier.
type BarcodeRow struct {
	Terminal string `json:"terminal"`
	User     string `json:"user"`
	Date     Label  `json:"date"`
	Scanned  Count  `json:"scanned"`
	Typed    Count  `json:"typed"`
}

// CategoryRow is a category level sales aggregate.
type CategoryRow struct {
	Code     string `json:"categoryCode"`
	Name     string `json:"categoryName"`
	Sales    Amount `json:"sales"`
	Cost     Amount `json:"cost"`
	Quantity Amount `json:"qty"`
	NOB      Count  `json:"nob"`
}

// CategoryItemRow is an item level aggregate inside a category.
type CategoryItemRow struct {
	ItemCode string `json:"itemCode"`
	ItemName string `json:"itemName"`
	Brand    string `json:"brand"`
	Sales    Amount `json:"sales"`
	Cost     Amount `json:"cost"`
	Quantity Amount `json:"qty"`
	Stock    Amount `json:"stock"`
}

// Customer is a CRM customer record.
type Customer struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Visits     Count  `json:"visits"`
	TotalSpend Amount `json:"totalSpend"`
	LastVisit  Label  `json:"lastVisit"`
}

// CustomerPage is a page of CRM customers.
type CustomerPage struct {
	Items   []Customer `json:"items"`
	Total   int        `json:"total"`
	Page    int        `json:"page"`
	PerPage int        `json:"perPage"`
}

// Credentials are posted to the login endpoint.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Account is the authenticated user as reported by the API.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// LoginResult carries the issued token and the account it belongs to.
type LoginResult struct {
	Token string  `json:"token"`
	User  Account `json:"user"`
}
