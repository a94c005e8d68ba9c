package vendors

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailhq/headoffice/internal/upstream"
)

func purchases(t *testing.T, raw string) []upstream.PurchaseRow {
	t.Helper()
	var rows []upstream.PurchaseRow
	require.NoError(t, json.Unmarshal([]byte(raw), &rows))
	return rows
}

func TestRollupCountsSharedInvoiceOnce(t *testing.T) {
	regular := purchases(t, `[
		{"vendorCode":"V1","vendorName":"Acme","invoiceNo":"INV-1","invoiceDate":"2025-01-03","itemCode":"I1","qty":"2","amount":"100"},
		{"vendorCode":"V1","vendorName":"Acme","invoiceNo":"INV-1","invoiceDate":"2025-01-03","itemCode":"I2","qty":1,"amount":"50"}
	]`)
	uncleared := purchases(t, `[
		{"vendorCode":"V1","vendorName":"Acme","invoiceNo":"INV-1","invoiceDate":"2025-01-03","itemCode":"I1","qty":"2","amount":"100"}
	]`)

	out := Rollup(regular, uncleared)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].InvoiceCount)
	assert.Equal(t, 2, out[0].ItemCount)
	assert.Equal(t, 150.0, out[0].Amount)
	assert.Equal(t, 3.0, out[0].Quantity)
	assert.Equal(t, 1, out[0].UnclearedInvoices)
	assert.Equal(t, []string{"INV-1"}, out[0].Invoices)
}

func TestRollupAcrossVendors(t *testing.T) {
	regular := purchases(t, `[
		{"vendorCode":"V1","vendorName":"Acme","invoiceNo":"A","invoiceDate":"2025-01-03","itemCode":"I1","amount":"10.10"},
		{"vendorCode":"V2","vendorName":"Beta","invoiceNo":"B","invoiceDate":"2025-01-09","itemCode":"I1","amount":"5"},
		{"vendorCode":"V1","vendorName":"Acme","invoiceNo":"C","invoiceDate":"2025-01-12","itemCode":"I3","amount":"0.20"},
		{"vendorCode":"V1","vendorName":"Acme","invoiceNo":"D","invoiceDate":"2025-01-07","itemCode":"I1","amount":"bad"}
	]`)
	uncleared := purchases(t, `[
		{"vendorCode":"V2","vendorName":"Beta","invoiceNo":"E","invoiceDate":"2025-01-02","itemCode":"I9","amount":"7"}
	]`)

	out := Rollup(regular, uncleared)
	require.Len(t, out, 2)
	assert.Equal(t, "V1", out[0].VendorCode)
	assert.Equal(t, 3, out[0].InvoiceCount)
	assert.Equal(t, 2, out[0].ItemCount)
	assert.Equal(t, 10.3, out[0].Amount)
	assert.Equal(t, "2025-01-12", out[0].LastPurchase)
	assert.Equal(t, 0, out[0].UnclearedInvoices)

	assert.Equal(t, 2, out[1].InvoiceCount)
	assert.Equal(t, 12.0, out[1].Amount)
	assert.Equal(t, "2025-01-09", out[1].LastPurchase)
	assert.Equal(t, 1, out[1].UnclearedInvoices)

	var sum float64
	for _, r := range append(regular, uncleared...) {
		sum += r.Amount.Float64()
	}
	assert.InDelta(t, sum, out[0].Amount+out[1].Amount, 1e-9)
}

func TestRollupEmpty(t *testing.T) {
	assert.Empty(t, Rollup(nil, nil))
}

func TestRollupKeepsRepeatedLinesWithinAList(t *testing.T) {
	regular := purchases(t, `[
		{"vendorCode":"V1","vendorName":"Acme","invoiceNo":"INV-1","invoiceDate":"2025-01-03","itemCode":"I1","qty":2,"amount":"100"},
		{"vendorCode":"V1","vendorName":"Acme","invoiceNo":"INV-1","invoiceDate":"2025-01-03","itemCode":"I1","qty":1,"amount":"40"},
		{"vendorCode":"V2","vendorName":"Beta","invoiceNo":"B-1","invoiceDate":"2025-01-04","amount":"10"},
		{"vendorCode":"V2","vendorName":"Beta","invoiceNo":"B-1","invoiceDate":"2025-01-04","amount":"20"},
		{"vendorCode":"V2","vendorName":"Beta","amount":"5"},
		{"vendorCode":"V2","vendorName":"Beta","amount":"7"}
	]`)

	out := Rollup(regular, nil)
	require.Len(t, out, 2)
	assert.Equal(t, 140.0, out[0].Amount)
	assert.Equal(t, 3.0, out[0].Quantity)
	assert.Equal(t, 1, out[0].InvoiceCount)
	assert.Equal(t, 42.0, out[1].Amount)
	assert.Equal(t, 1, out[1].InvoiceCount)
}

func TestRollupMatchesUnclearedRowsByCount(t *testing.T) {
	line := `{"vendorCode":"V1","vendorName":"Acme","invoiceNo":"INV-1","invoiceDate":"2025-01-03","itemCode":"I1","qty":1,"amount":"40"}`
	regular := purchases(t, `[`+line+`]`)
	uncleared := purchases(t, `[`+line+`,`+line+`]`)

	out := Rollup(regular, uncleared)
	require.Len(t, out, 1)
	// One uncleared copy pairs with the regular line, the second is a line of its own.
	assert.Equal(t, 80.0, out[0].Amount)
	assert.Equal(t, 2.0, out[0].Quantity)
	assert.Equal(t, 1, out[0].UnclearedInvoices)
}
