package exceptions

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailhq/headoffice/internal/upstream"
)

func journal(t *testing.T, raw string) []upstream.JournalRow {
	t.Helper()
	var rows []upstream.JournalRow
	require.NoError(t, json.Unmarshal([]byte(raw), &rows))
	return rows
}

func TestGroupVouchersPairsLegs(t *testing.T) {
	rows := journal(t, `[
		{"CODE":"JV1","drCr":"Dr","accountName":"Rent","amount":"1,000","billDate":"2025-01-02","entryDate":"2025-01-10"},
		{"code":"JV2","drCr":"Dr","accountName":"Fuel","amount":50},
		{"code":"JV1","drCr":"Cr","accountName":"Bank","amount":"600"},
		{"code":"JV1","drCr":"Cr","accountName":"Cash","amount":"400"},
		{"code":"JV2","drCr":"Cr","accountName":"Cash","amount":45}
	]`)

	vouchers := Backdated(rows)
	require.Len(t, vouchers, 2)

	jv1 := vouchers[0]
	assert.Equal(t, "JV1", jv1.Code)
	assert.Equal(t, "Rent", jv1.DebitAccount)
	assert.Equal(t, "Bank, Cash", jv1.CreditAccount)
	assert.Equal(t, 1000.0, jv1.DebitTotal)
	assert.Equal(t, 1000.0, jv1.CreditTotal)
	assert.True(t, jv1.Balanced)
	require.NotNil(t, jv1.DelayDays)
	assert.Equal(t, 8, *jv1.DelayDays)

	jv2 := vouchers[1]
	assert.False(t, jv2.Balanced)
	assert.Equal(t, 50.0, jv2.Amount)
	assert.Nil(t, jv2.DelayDays)
}

func TestGroupVouchersTotalsMatchRawRows(t *testing.T) {
	rows := journal(t, `[
		{"code":"A","debit":"10.10"},{"code":"A","credit":"10.10"},
		{"code":"B","debit":"0.20"},{"code":"B","credit":"0.20"}
	]`)
	var debit float64
	for _, v := range GroupVouchers(rows) {
		debit += v.DebitTotal
		assert.Len(t, v.Debits, 1)
		assert.Len(t, v.Credits, 1)
	}
	assert.InDelta(t, 10.30, debit, 1e-9)
}

func TestPendingCreditNotesAge(t *testing.T) {
	var rows []upstream.CreditNoteRow
	raw := `[
		{"code":"CN1","party":"Acme","drCr":"Dr","amount":"250","date":"2025-03-01"},
		{"code":"CN1","party":"Acme","drCr":"Cr","amount":"250","date":"2025-03-01"},
		{"code":"CN2","party":"Beta","drCr":"Cr","amount":"75.5","date":"bad"}
	]`
	require.NoError(t, json.Unmarshal([]byte(raw), &rows))

	notes := PendingCreditNotes(rows, time.Date(2025, 3, 31, 18, 0, 0, 0, time.UTC))
	require.Len(t, notes, 2)
	assert.Equal(t, 250.0, notes[0].Amount)
	assert.Equal(t, 2, notes[0].Legs)
	require.NotNil(t, notes[0].AgeDays)
	assert.Equal(t, 30, *notes[0].AgeDays)
	assert.Nil(t, notes[1].AgeDays)
}
