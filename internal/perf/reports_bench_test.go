package perf

import (
	"fmt"
	"testing"
	"time"

	"github.com/retailhq/headoffice/internal/inventory"
	"github.com/retailhq/headoffice/internal/posaudit"
	"github.com/retailhq/headoffice/internal/reporting/compare"
	"github.com/retailhq/headoffice/internal/upstream"
	"github.com/retailhq/headoffice/internal/vendors"
)

// yearOfDays mimics the widest day-wise window a report may request.
func yearOfDays(offset float64) []compare.Bucket {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	buckets := make([]compare.Bucket, 366)
	for i := range buckets {
		buckets[i] = compare.Bucket{
			Period:      start.AddDate(0, 0, i).Format("2006-01-02"),
			NOB:         int64(100 + i%17),
			GrossAmount: offset + float64(i*37%1000),
		}
	}
	return buckets
}

func BenchmarkCombineByIndex(b *testing.B) {
	cur, prev := yearOfDays(5000), yearOfDays(4000)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		records := compare.CombinePeriods(cur, prev, compare.ByIndex)
		_ = compare.Totals(records)
	}
}

func BenchmarkCombineByKey(b *testing.B) {
	cur, prev := yearOfDays(5000), yearOfDays(4000)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = compare.CombinePeriods(cur, prev, compare.ByKey)
	}
}

func BenchmarkBarcodeAggregate(b *testing.B) {
	rows := make([]upstream.BarcodeRow, 0, 5000)
	for i := 0; i < 5000; i++ {
		rows = append(rows, upstream.BarcodeRow{
			Terminal: fmt.Sprintf("T%02d", i%40),
			User:     fmt.Sprintf("cashier-%d", i%120),
			Date:     upstream.Label(fmt.Sprintf("2025-03-%02d", i%28+1)),
			Scanned:  upstream.Count(200 + i%50),
			Typed:    upstream.Count(i % 30),
		})
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = posaudit.Rank(posaudit.Aggregate(rows, posaudit.DefaultThreshold))
	}
}

func BenchmarkSummarizeCategories(b *testing.B) {
	rows := make([]upstream.CategoryRow, 0, 2000)
	for i := 0; i < 2000; i++ {
		rows = append(rows, upstream.CategoryRow{
			Code:  fmt.Sprintf("C%03d", i%300),
			Name:  fmt.Sprintf("Category %d", i%300),
			Sales: upstream.NewAmount(float64(1000 + i)),
			Cost:  upstream.NewAmount(float64(700 + i)),
			NOB:   upstream.Count(i % 90),
		})
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = inventory.SummarizeCategories(rows)
	}
}

func BenchmarkVendorRollup(b *testing.B) {
	regular := make([]upstream.PurchaseRow, 0, 3000)
	for i := 0; i < 3000; i++ {
		regular = append(regular, upstream.PurchaseRow{
			VendorCode: fmt.Sprintf("V%03d", i%250),
			VendorName: fmt.Sprintf("Vendor %d", i%250),
			InvoiceNo:  fmt.Sprintf("INV-%d", i/3),
			Amount:     upstream.NewAmount(float64(100 + i%900)),
		})
	}
	uncleared := regular[:500]
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = vendors.Rollup(regular, uncleared)
	}
}
