package lunisolar

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/amaranthustech/jcal/astronomy/ephemeris"
	"github.com/amaranthustech/jcal/observability"
	"github.com/amaranthustech/jcal/timeutil"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/exp/slices"
)

// minCachePadDays is the minimum padding applied before the requested
// start date so gregorianToLunar's year-determination step can always
// reach a month-1 new moon.
const minCachePadDays = 400

// BuildRangeCache builds a RangeCache covering [startDate, endDate],
// padded per the documented window-padding rules, by constructing
// SaisjitsuWindows for every Gregorian year in [start.Year-1, end.Year+1]
// and assigning month names within each.
func BuildRangeCache(ctx context.Context, provider ephemeris.Provider, startDate, endDate time.Time, cfg Config) (*RangeCache, error) {
	observer := observability.Observer()
	ctx, span := observer.CreateSpan(ctx, "lunisolar.BuildRangeCache")
	defer span.End()

	if err := timeutil.RequireUTCRange(startDate, endDate); err != nil {
		span.RecordError(err)
		return nil, err
	}

	y1 := startDate.Year() - 1
	y2 := endDate.Year() + 1
	span.SetAttributes(attribute.Int("y1", y1), attribute.Int("y2", y2))

	anchors, err := SolsticeAnchorsForYears(ctx, provider, y1, y2+1, cfg)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var allMonths []NamedMonth
	for i := 0; i < len(anchors)-1; i++ {
		window, spans, err := BuildSaisjitsuWindow(ctx, provider, anchors[i], anchors[i+1], cfg)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("lunisolar: saisjitsu window for year %d failed: %w", y1+i, err)
		}

		terms, err := PrincipalTermsPaddedAroundWindow(ctx, provider, window, cfg)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}

		decision, err := DecideLeapMonth(window, spans, terms, cfg)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}

		named, err := AssignMonthNames(ctx, spans, terms, decision.LeapSpanPos, cfg.namingMode())
		if err != nil {
			span.RecordError(err)
			return nil, err
		}

		allMonths = append(allMonths, named...)
	}

	sort.Slice(allMonths, func(i, j int) bool { return allMonths[i].NewMoonUTC.Before(allMonths[j].NewMoonUTC) })
	allMonths = dedupeNamedMonthsByNewMoon(allMonths)

	newMoonUTCs := make([]time.Time, len(allMonths))
	for i, m := range allMonths {
		newMoonUTCs[i] = m.NewMoonUTC
	}

	span.SetAttributes(attribute.Int("month_count", len(allMonths)))

	return &RangeCache{Months: allMonths, NewMoonUTCs: newMoonUTCs}, nil
}

func dedupeNamedMonthsByNewMoon(months []NamedMonth) []NamedMonth {
	if len(months) == 0 {
		return months
	}
	out := []NamedMonth{months[0]}
	for _, m := range months[1:] {
		last := out[len(out)-1]
		if m.NewMoonUTC.Equal(last.NewMoonUTC) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// GregorianToLunar resolves a JST calendar date to a LunarYMD using the
// given RangeCache. Sampling is end-of-day JST (23:59:59) converted to UTC,
// which avoids ambiguity when a new-moon instant falls within the queried
// calendar day.
func GregorianToLunar(dateJST time.Time, cache *RangeCache) (LunarYMD, error) {
	ymd, _, err := GregorianToLunarMonth(dateJST, cache)
	return ymd, err
}

// GregorianToLunarMonth is GregorianToLunar's expanded form, additionally
// returning the matched NamedMonth span so callers building display strings
// (month label, rokuyo, zhongqi) do not need to re-search the cache.
func GregorianToLunarMonth(dateJST time.Time, cache *RangeCache) (LunarYMD, NamedMonth, error) {
	jstDate := timeutil.JSTDate(dateJST)
	sampleJST := time.Date(jstDate.Year(), jstDate.Month(), jstDate.Day(), 23, 59, 59, 0, timeutil.JST())
	t := sampleJST.UTC()

	i, found := slices.BinarySearchFunc(cache.NewMoonUTCs, t, func(a, b time.Time) int {
		if a.Before(b) {
			return -1
		}
		if a.After(b) {
			return 1
		}
		return 0
	})
	if !found {
		i--
	}
	if i < 0 || i >= len(cache.Months) {
		return LunarYMD{}, NamedMonth{}, &OutOfCachedRangeError{Date: dateJST}
	}

	month := cache.Months[i]
	if !t.Before(month.NextNewMoonUTC) {
		return LunarYMD{}, NamedMonth{}, &OutOfCachedRangeError{Date: dateJST}
	}
	newMoonJSTDate := timeutil.JSTDate(month.NewMoonUTC)
	day := int(jstDate.Sub(newMoonJSTDate).Hours()/24) + 1

	year, err := yearForDate(cache, jstDate)
	if err != nil {
		return LunarYMD{}, NamedMonth{}, err
	}

	return LunarYMD{Year: year, Month: month.MonthNo, Day: day, IsLeap: month.IsLeap}, month, nil
}

// yearForDate determines the Gregorian (JST) year of the nearest preceding
// non-leap month-1 new moon at or before jstDate.
func yearForDate(cache *RangeCache, jstDate time.Time) (int, error) {
	year := 0
	found := false
	for _, m := range cache.Months {
		if m.IsLeap || m.MonthNo != 1 {
			continue
		}
		nmJST := timeutil.JSTDate(m.NewMoonUTC)
		if nmJST.After(jstDate) {
			continue
		}
		year = nmJST.Year()
		found = true
	}
	if !found {
		return 0, &OutOfCachedRangeError{Date: jstDate}
	}
	return year, nil
}
