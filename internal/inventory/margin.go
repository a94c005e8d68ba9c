// Package inventory shapes category sales and their item drill-downs.
package inventory

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/retailhq/headoffice/internal/reporting/grouping"
	"github.com/retailhq/headoffice/internal/upstream"
)

var hundred = decimal.NewFromInt(100)

// GRM returns the gross retail margin (sales-cost)/sales*100 rounded to two
// places, or nil when there were no sales.
func GRM(sales, cost decimal.Decimal) *float64 {
	if sales.IsZero() {
		return nil
	}
	v := sales.Sub(cost).Div(sales).Mul(hundred).Round(2).InexactFloat64()
	return &v
}

func share(part, whole decimal.Decimal) *float64 {
	if whole.IsZero() {
		return nil
	}
	v := part.Div(whole).Mul(hundred).Round(2).InexactFloat64()
	return &v
}

// CategorySummary is one category line with its margin and share of sales.
type CategorySummary struct {
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	Sales    float64  `json:"sales"`
	Cost     float64  `json:"cost"`
	Margin   float64  `json:"margin"`
	GRM      *float64 `json:"grm"`
	Share    *float64 `json:"share"`
	Quantity float64  `json:"quantity"`
	NOB      int64    `json:"nob"`
}

// ItemSummary is one item inside a category.
type ItemSummary struct {
	ItemCode string   `json:"itemCode"`
	ItemName string   `json:"itemName"`
	Brand    string   `json:"brand"`
	Sales    float64  `json:"sales"`
	Cost     float64  `json:"cost"`
	GRM      *float64 `json:"grm"`
	Quantity float64  `json:"quantity"`
	Stock    float64  `json:"stock"`
}

// Totals sums a category or item listing.
type Totals struct {
	Sales    float64  `json:"sales"`
	Cost     float64  `json:"cost"`
	Margin   float64  `json:"margin"`
	GRM      *float64 `json:"grm"`
	Quantity float64  `json:"quantity"`
	NOB      int64    `json:"nob,omitempty"`
}

type lineAcc struct {
	code, name, brand       string
	sales, cost, qty, stock decimal.Decimal
	nob                     int64
}

func newLineAcc() *lineAcc {
	return &lineAcc{sales: decimal.Zero, cost: decimal.Zero, qty: decimal.Zero, stock: decimal.Zero}
}

type totalsAcc struct {
	sales, cost, qty decimal.Decimal
	nob              int64
}

func (t *totalsAcc) add(a *lineAcc) {
	t.sales = t.sales.Add(a.sales)
	t.cost = t.cost.Add(a.cost)
	t.qty = t.qty.Add(a.qty)
	t.nob += a.nob
}

func (t totalsAcc) result() Totals {
	return Totals{
		Sales:    t.sales.InexactFloat64(),
		Cost:     t.cost.InexactFloat64(),
		Margin:   t.sales.Sub(t.cost).InexactFloat64(),
		GRM:      GRM(t.sales, t.cost),
		Quantity: t.qty.InexactFloat64(),
		NOB:      t.nob,
	}
}

func categoryKey(row upstream.CategoryRow) string {
	if code := strings.TrimSpace(row.Code); code != "" {
		return strings.ToUpper(code)
	}
	return strings.ToUpper(strings.TrimSpace(row.Name))
}

// SummarizeCategories merges rows per category code, largest sales first.
func SummarizeCategories(rows []upstream.CategoryRow) ([]CategorySummary, Totals) {
	grouped := grouping.GroupAndSummarize(rows, categoryKey, func(acc *lineAcc, row upstream.CategoryRow) *lineAcc {
		if acc.code == "" {
			acc.code = strings.TrimSpace(row.Code)
			acc.name = strings.TrimSpace(row.Name)
		}
		acc.sales = acc.sales.Add(row.Sales.Decimal())
		acc.cost = acc.cost.Add(row.Cost.Decimal())
		acc.qty = acc.qty.Add(row.Quantity.Decimal())
		acc.nob += row.NOB.Int64()
		return acc
	}, newLineAcc)

	var totals totalsAcc
	grouped.Each(func(_ string, acc *lineAcc) { totals.add(acc) })

	ordered := grouping.SortedBy(grouped, func(a, b *lineAcc) bool { return a.sales.GreaterThan(b.sales) })
	out := make([]CategorySummary, 0, len(ordered))
	for _, acc := range ordered {
		out = append(out, CategorySummary{
			Code:     acc.code,
			Name:     acc.name,
			Sales:    acc.sales.InexactFloat64(),
			Cost:     acc.cost.InexactFloat64(),
			Margin:   acc.sales.Sub(acc.cost).InexactFloat64(),
			GRM:      GRM(acc.sales, acc.cost),
			Share:    share(acc.sales, totals.sales),
			Quantity: acc.qty.InexactFloat64(),
			NOB:      acc.nob,
		})
	}
	return out, totals.result()
}

// SummarizeItems merges rows per item code, largest sales first.
func SummarizeItems(rows []upstream.CategoryItemRow) ([]ItemSummary, Totals) {
	grouped := grouping.GroupAndSummarize(rows, func(row upstream.CategoryItemRow) string {
		return strings.ToUpper(strings.TrimSpace(row.ItemCode))
	}, func(acc *lineAcc, row upstream.CategoryItemRow) *lineAcc {
		if acc.code == "" {
			acc.code = strings.TrimSpace(row.ItemCode)
			acc.name = strings.TrimSpace(row.ItemName)
			acc.brand = strings.TrimSpace(row.Brand)
		}
		acc.sales = acc.sales.Add(row.Sales.Decimal())
		acc.cost = acc.cost.Add(row.Cost.Decimal())
		acc.qty = acc.qty.Add(row.Quantity.Decimal())
		acc.stock = acc.stock.Add(row.Stock.Decimal())
		return acc
	}, newLineAcc)

	var totals totalsAcc
	out := make([]ItemSummary, 0, grouped.Len())
	for _, acc := range grouping.SortedBy(grouped, func(a, b *lineAcc) bool { return a.sales.GreaterThan(b.sales) }) {
		totals.add(acc)
		out = append(out, ItemSummary{
			ItemCode: acc.code,
			ItemName: acc.name,
			Brand:    acc.brand,
			Sales:    acc.sales.InexactFloat64(),
			Cost:     acc.cost.InexactFloat64(),
			GRM:      GRM(acc.sales, acc.cost),
			Quantity: acc.qty.InexactFloat64(),
			Stock:    acc.stock.InexactFloat64(),
		})
	}
	return out, totals.result()
}
