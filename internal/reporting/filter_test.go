package reporting

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

func TestParseDateFilterDefaultsToMonthToDate(t *testing.T) {
	f, err := ParseDateFilter(url.Values{}, now)
	require.NoError(t, err)
	assert.Equal(t, DateFilter{From: "2025-03-01", To: "2025-03-15"}, f)
	assert.Equal(t, 15, f.Days())
}

func TestParseDateFilterRejectsBadInput(t *testing.T) {
	cases := []url.Values{
		{"from": {"2025-13-01"}},
		{"from": {"2025-03-10"}, "to": {"2025-03-01"}},
		{"from": {"2023-01-01"}, "to": {"2025-03-01"}},
		{"to": {"15/03/2025"}},
	}
	for _, q := range cases {
		_, err := ParseDateFilter(q, now)
		require.Error(t, err, q.Encode())
		assert.ErrorIs(t, err, ErrInvalidFilter)
	}
}

func TestPreviousWindow(t *testing.T) {
	f := DateFilter{From: "2025-03-01", To: "2025-03-07"}
	prev := f.Previous()
	assert.Equal(t, DateFilter{From: "2025-02-22", To: "2025-02-28"}, prev)
	assert.Equal(t, f.Days(), prev.Days())
}

func TestStatusDegrade(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	var s Status
	s.Degrade(context.Background(), logger, "refund exceptions", errors.New("dial tcp: refused"))
	assert.True(t, s.Degraded)
	assert.Equal(t, []string{"refund exceptions is temporarily unavailable"}, s.Warnings)
	assert.Contains(t, buf.String(), "report load failed")
}
