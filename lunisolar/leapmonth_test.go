package lunisolar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func makeSpans(count int, start time.Time, spacing time.Duration) []LunarSpan {
	spans := make([]LunarSpan, count)
	for i := 0; i < count; i++ {
		spans[i] = LunarSpan{
			Index:    i,
			StartUTC: start.Add(time.Duration(i) * spacing),
			EndUTC:   start.Add(time.Duration(i+1) * spacing),
		}
	}
	return spans
}

func TestDecideLeapMonthTwelveMonthsNoLeap(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	spacing := 29 * 24 * time.Hour
	spans := makeSpans(12, start, spacing)

	var terms []PrincipalTerm
	for i, s := range spans {
		terms = append(terms, PrincipalTerm{Deg: float64(30 * i), InstantUTC: s.StartUTC.Add(10 * time.Hour)})
	}

	window := SaisjitsuWindow{MonthCount: 12}
	decision, err := DecideLeapMonth(window, spans, terms, DefaultConfig())
	assert.NoError(t, err)
	assert.Equal(t, -1, decision.LeapSpanPos)
	assert.Empty(t, decision.NoZhongqiPositions)
}

func TestDecideLeapMonthThirteenMonthsSingleGap(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	spacing := 27 * 24 * time.Hour // shorter than a solar month, creates a real gap
	spans := makeSpans(13, start, spacing)

	leapPos := 5
	var terms []PrincipalTerm
	deg := 0.0
	for i, s := range spans {
		if i == leapPos {
			continue
		}
		terms = append(terms, PrincipalTerm{Deg: deg, InstantUTC: s.StartUTC.Add(10 * time.Hour)})
		deg += 30
		if deg >= 360 {
			deg -= 360
		}
	}

	window := SaisjitsuWindow{MonthCount: 13}
	decision, err := DecideLeapMonth(window, spans, terms, DefaultConfig())
	assert.NoError(t, err)
	assert.Equal(t, leapPos, decision.LeapSpanPos)
	assert.Len(t, decision.NoZhongqiPositions, 1)
}

func TestAssignMonthNumbersCyclesAndRepeatsAtLeap(t *testing.T) {
	months := AssignMonthNumbers(13, 5, 11)
	assert.Equal(t, 11, months[0])
	assert.Equal(t, 12, months[1])
	assert.Equal(t, 1, months[2])
	assert.Equal(t, 2, months[3])
	assert.Equal(t, 3, months[4])
	assert.Equal(t, 3, months[5]) // leap span repeats position 4's month
	assert.Equal(t, 4, months[6])
}

func TestAssignMonthNumbersNoLeap(t *testing.T) {
	months := AssignMonthNumbers(12, -1, 11)
	assert.Equal(t, []int{11, 12, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, months)
}
