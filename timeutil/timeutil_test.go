package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireUTCRejectsLocalTime(t *testing.T) {
	local := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
	err := RequireUTC("t", local)
	require.Error(t, err)
	var naiveErr *NaiveDatetimeError
	assert.ErrorAs(t, err, &naiveErr)
}

func TestRequireUTCAcceptsUTC(t *testing.T) {
	u := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, RequireUTC("t", u))
}

func TestRequireUTCRangeRejectsBackwardsRange(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	err := RequireUTCRange(start, end)
	require.Error(t, err)
	var rangeErr *InvalidInputRangeError
	assert.ErrorAs(t, err, &rangeErr)
}

func TestJSTDateCrossesUTCMidnight(t *testing.T) {
	// 2024-01-01 16:00 UTC is 2024-01-02 01:00 JST.
	u := time.Date(2024, 1, 1, 16, 0, 0, 0, time.UTC)
	d := JSTDate(u)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, time.January, d.Month())
	assert.Equal(t, 2, d.Day())
}

func TestJSTDayBasisContains(t *testing.T) {
	spanStart := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC) // 2024-01-02 05:00 JST
	spanEnd := time.Date(2024, 1, 30, 20, 0, 0, 0, time.UTC)  // 2024-01-31 05:00 JST

	inside := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	assert.True(t, JSTDayBasisContains(spanStart, spanEnd, inside))

	beforeStart := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC) // 2024-01-01 19:00 JST, before span start day
	assert.False(t, JSTDayBasisContains(spanStart, spanEnd, beforeStart))

	onEndDay := time.Date(2024, 1, 31, 1, 0, 0, 0, time.UTC) // 2024-01-31 10:00 JST == span end day, excluded
	assert.False(t, JSTDayBasisContains(spanStart, spanEnd, onEndDay))
}
