package lunisolar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignMonthNamesNonLeapWindow(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	spacing := 29 * 24 * time.Hour
	spans := makeSpans(12, start, spacing)

	var terms []PrincipalTerm
	deg := 270.0
	for _, s := range spans {
		terms = append(terms, PrincipalTerm{Deg: deg, InstantUTC: s.StartUTC.Add(10 * time.Hour)})
		deg += 30
		if deg >= 360 {
			deg -= 360
		}
	}

	named, err := AssignMonthNames(context.Background(), spans, terms, -1, ModeWSFirst)
	require.NoError(t, err)
	require.Len(t, named, 12)
	assert.Equal(t, 11, named[0].MonthNo)
	assert.False(t, named[0].IsLeap)
	assert.Equal(t, 12, named[1].MonthNo)
}

func TestAssignMonthNamesLeapSpanInheritsPriorMonth(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	spacing := 29 * 24 * time.Hour
	spans := makeSpans(13, start, spacing)
	leapPos := 5

	var terms []PrincipalTerm
	deg := 270.0
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

	named, err := AssignMonthNames(context.Background(), spans, terms, leapPos, ModeWSFirst)
	require.NoError(t, err)
	require.Len(t, named, 13)
	assert.True(t, named[leapPos].IsLeap)
	assert.Equal(t, named[leapPos-1].MonthNo, named[leapPos].MonthNo)
	assert.Nil(t, named[leapPos].ZhongqiDeg)
}

func TestAssignMonthNamesRejectsLeapSpanWithTerm(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	spacing := 29 * 24 * time.Hour
	spans := makeSpans(13, start, spacing)
	leapPos := 5

	var terms []PrincipalTerm
	deg := 270.0
	for _, s := range spans {
		terms = append(terms, PrincipalTerm{Deg: deg, InstantUTC: s.StartUTC.Add(10 * time.Hour)})
		deg += 30
		if deg >= 360 {
			deg -= 360
		}
	}

	_, err := AssignMonthNames(context.Background(), spans, terms, leapPos, ModeWSFirst)
	assert.Error(t, err)
}
