package compare

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailhq/headoffice/internal/upstream"
)

func TestPercentChange(t *testing.T) {
	got := PercentChange(120, 100)
	require.NotNil(t, got)
	assert.Equal(t, 20.0, *got)

	assert.Nil(t, PercentChange(50, 0))

	got = PercentChange(100, 300)
	require.NotNil(t, got)
	assert.Equal(t, -66.7, *got)

	got = PercentChange(0, 80)
	require.NotNil(t, got)
	assert.Equal(t, -100.0, *got)
}

func TestPercentChangeOpt(t *testing.T) {
	assert.Nil(t, PercentChangeOpt(10, nil))
	prev := 4.0
	got := PercentChangeOpt(5, &prev)
	require.NotNil(t, got)
	assert.Equal(t, 25.0, *got)
}

func decodeRows(t *testing.T, raw string) []Bucket {
	t.Helper()
	var rows []upstream.SalesRow
	require.NoError(t, json.Unmarshal([]byte(raw), &rows))
	return BucketsFromRows(rows)
}

func TestCombinePeriodsByKeyMatches(t *testing.T) {
	current := decodeRows(t, `[{"month":"Jan","nob":10,"grossAmount":"100"}]`)
	previous := decodeRows(t, `[{"month":"Jan","nob":5,"grossAmount":"50"}]`)

	records := CombinePeriods(current, previous, ByKey)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "Jan", rec.Period)
	assert.Equal(t, int64(5), rec.PrevNOB)
	assert.Equal(t, 50.0, rec.PrevGrossAmount)
	require.NotNil(t, rec.NOBGrowth)
	require.NotNil(t, rec.RevenueGrowth)
	assert.Equal(t, 100.0, *rec.NOBGrowth)
	assert.Equal(t, 100.0, *rec.RevenueGrowth)
}

func TestCombinePeriodsByKeyWithoutBaseline(t *testing.T) {
	current := decodeRows(t, `[{"month":"Mar","nob":10,"grossAmount":"100"}]`)

	records := CombinePeriods(current, nil, ByKey)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, int64(0), rec.PrevNOB)
	assert.Equal(t, 0.0, rec.PrevGrossAmount)
	assert.Nil(t, rec.NOBGrowth)
	assert.Nil(t, rec.RevenueGrowth)

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"nobGrowth":null`)
	assert.Contains(t, string(out), `"revenueGrowth":null`)
}

func TestCombinePeriodsByKeyPreservesCurrentOrder(t *testing.T) {
	current := []Bucket{{Period: "Mar", NOB: 3, GrossAmount: 30}, {Period: "Jan", NOB: 1, GrossAmount: 10}}
	previous := []Bucket{{Period: "Jan", NOB: 2, GrossAmount: 5}, {Period: "Feb", NOB: 9, GrossAmount: 9}, {Period: "Jan", NOB: 7, GrossAmount: 70}}

	records := CombinePeriods(current, previous, ByKey)
	require.Len(t, records, 2)
	assert.Equal(t, "Mar", records[0].Period)
	assert.Nil(t, records[0].RevenueGrowth)
	assert.Equal(t, "Jan", records[1].Period)
	assert.Equal(t, int64(2), records[1].PrevNOB, "first previous occurrence wins")
	require.NotNil(t, records[1].RevenueGrowth)
	assert.Equal(t, 100.0, *records[1].RevenueGrowth)
}

func TestCombinePeriodsByIndexUnmatchedTail(t *testing.T) {
	current := []Bucket{
		{Period: "2025-03-01", NOB: 10, GrossAmount: 200},
		{Period: "2025-03-02", NOB: 12, GrossAmount: 240},
		{Period: "2025-03-03", NOB: 8, GrossAmount: 160},
	}
	previous := []Bucket{
		{Period: "2025-02-26", NOB: 5, GrossAmount: 100},
		{Period: "2025-02-27", NOB: 0, GrossAmount: 0},
	}

	records := CombinePeriods(current, previous, ByIndex)
	require.Len(t, records, 3)

	require.NotNil(t, records[0].RevenueGrowth)
	assert.Equal(t, 100.0, *records[0].RevenueGrowth)
	assert.Equal(t, "2025-03-01", records[0].Period)

	assert.Nil(t, records[1].NOBGrowth, "zero baseline yields no growth")
	assert.Nil(t, records[1].RevenueGrowth)

	assert.Equal(t, int64(0), records[2].PrevNOB)
	assert.Equal(t, 0.0, records[2].PrevGrossAmount)
	assert.Nil(t, records[2].RevenueGrowth)
}

func TestCoercesUnparsableAmounts(t *testing.T) {
	current := decodeRows(t, `[{"date":"2025-01-01","nob":"4","grossAmount":"abc"},{"date":"2025-01-02","nob":2,"grossAmount":null},{"date":"2025-01-03","nob":1,"grossAmount":"1,250.50"}]`)
	require.Len(t, current, 3)
	assert.Equal(t, 0.0, current[0].GrossAmount)
	assert.Equal(t, int64(4), current[0].NOB)
	assert.Equal(t, 0.0, current[1].GrossAmount)
	assert.Equal(t, 1250.5, current[2].GrossAmount)
}

func TestTotalsAndChart(t *testing.T) {
	records := CombinePeriods(
		[]Bucket{{Period: "Jan", NOB: 10, GrossAmount: 100}, {Period: "Feb", NOB: 10, GrossAmount: 200}},
		[]Bucket{{Period: "Jan", NOB: 5, GrossAmount: 100}, {Period: "Feb", NOB: 5, GrossAmount: 50}},
		ByKey,
	)
	totals := Totals(records)
	assert.Equal(t, int64(20), totals.NOB)
	assert.Equal(t, 300.0, totals.GrossAmount)
	assert.Equal(t, 150.0, totals.PrevGrossAmount)
	require.NotNil(t, totals.RevenueGrowth)
	assert.Equal(t, 100.0, *totals.RevenueGrowth)
	require.NotNil(t, totals.AvgBillValue)
	assert.Equal(t, 15.0, *totals.AvgBillValue)

	chart := Chart(records)
	assert.Equal(t, []string{"Jan", "Feb"}, chart.Labels)
	assert.Equal(t, []float64{100, 200}, chart.Current)
	assert.Equal(t, []float64{100, 50}, chart.Previous)
}

func TestParseJoinMode(t *testing.T) {
	mode, err := ParseJoinMode("KEY")
	require.NoError(t, err)
	assert.Equal(t, ByKey, mode)
	mode, err = ParseJoinMode("index")
	require.NoError(t, err)
	assert.Equal(t, ByIndex, mode)
	_, err = ParseJoinMode("diagonal")
	assert.Error(t, err)
}
