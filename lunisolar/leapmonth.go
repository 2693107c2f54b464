package lunisolar

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/amaranthustech/jcal/astronomy/ephemeris"
	"github.com/amaranthustech/jcal/newmoon"
	"github.com/amaranthustech/jcal/observability"
	"github.com/amaranthustech/jcal/solarterm"
	"github.com/amaranthustech/jcal/timeutil"
	"go.opentelemetry.io/otel/attribute"
)

// BuildSaisjitsuWindow re-enumerates new moons across [startAnchor,
// endAnchor] to produce a locally consistent span numbering for the window,
// and reports whether it carries 12 or 13 lunar months.
func BuildSaisjitsuWindow(ctx context.Context, provider ephemeris.Provider, startAnchor, endAnchor SolsticeAnchor, cfg Config) (SaisjitsuWindow, []LunarSpan, error) {
	observer := observability.Observer()
	ctx, span := observer.CreateSpan(ctx, "lunisolar.BuildSaisjitsuWindow")
	defer span.End()

	windowStart := startAnchor.NewMoonUTC
	windowEnd := endAnchor.NewMoonUTC.Add(24 * time.Hour) // include the end boundary exactly

	moons, err := newmoon.NewMoonsBetween(ctx, provider, windowStart, windowEnd, newmoon.Config{
		ScanStep: cfg.scanStep(), TolSeconds: cfg.tolSeconds(),
	})
	if err != nil {
		span.RecordError(err)
		return SaisjitsuWindow{}, nil, fmt.Errorf("lunisolar: failed to enumerate new moons for saisjitsu window: %w", err)
	}

	full := append([]time.Time{windowStart}, moons...)
	full = append(full, endAnchor.NewMoonUTC)
	full = dedupeSortedClose(full, time.Hour)

	if len(full) < 2 {
		err := fmt.Errorf("lunisolar: saisjitsu window degenerate, only %d new moon boundaries found", len(full))
		span.RecordError(err)
		return SaisjitsuWindow{}, nil, err
	}

	spans := make([]LunarSpan, 0, len(full)-1)
	for i := 0; i < len(full)-1; i++ {
		spans = append(spans, LunarSpan{Index: i, StartUTC: full[i], EndUTC: full[i+1]})
	}

	monthCount := len(spans)
	window := SaisjitsuWindow{
		StartAnchor: startAnchor,
		EndAnchor:   endAnchor,
		MonthCount:  monthCount,
		IsLeapYear:  monthCount == 13,
	}

	span.SetAttributes(attribute.Int("month_count", monthCount), attribute.Bool("is_leap_year", window.IsLeapYear))

	if monthCount != 12 && monthCount != 13 {
		err := fmt.Errorf("lunisolar: saisjitsu window has %d months, expected 12 or 13", monthCount)
		span.RecordError(err)
		return SaisjitsuWindow{}, nil, err
	}

	return window, spans, nil
}

func dedupeSortedClose(times []time.Time, window time.Duration) []time.Time {
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	out := []time.Time{times[0]}
	for _, t := range times[1:] {
		if t.Sub(out[len(out)-1]) <= window {
			continue
		}
		out = append(out, t)
	}
	return out
}

// hasZhongqiPerSpan reports, per span, whether any principal term's JST day lies
// within that span's JST-day range.
func hasZhongqiPerSpan(spans []LunarSpan, terms []PrincipalTerm) []bool {
	result := make([]bool, len(spans))
	for i, s := range spans {
		for _, term := range terms {
			if timeutil.JSTDayBasisContains(s.StartUTC, s.EndUTC, term.InstantUTC) {
				result[i] = true
				break
			}
		}
	}
	return result
}

// DecideLeapMonth implements the leap-month decision rule over the given
// principal terms (used as passed in, without further filtering): compute
// no-zhongqi positions, and branch per the |no_zh| cases documented for
// 12- and 13-month windows.
func DecideLeapMonth(window SaisjitsuWindow, spans []LunarSpan, terms []PrincipalTerm, cfg Config) (LeapDecision, error) {
	hasZh := hasZhongqiPerSpan(spans, terms)

	var noZh []int
	for i, has := range hasZh {
		if !has {
			noZh = append(noZh, i)
		}
	}

	if window.MonthCount == 12 {
		return LeapDecision{LeapSpanPos: -1, NoZhongqiPositions: noZh}, nil
	}

	if window.MonthCount != 13 {
		return LeapDecision{}, fmt.Errorf("lunisolar: cannot decide leap month for a %d-month window", window.MonthCount)
	}

	// Special rule: |no_zh| == 3, locate the span containing the 270-degree
	// principal term; candidate leap position is the next span, provided it
	// itself has no zhongqi.
	if len(noZh) == 3 {
		for i, s := range spans {
			for _, term := range terms {
				if term.Deg != 270 {
					continue
				}
				if timeutil.JSTDayBasisContains(s.StartUTC, s.EndUTC, term.InstantUTC) {
					p := i
					if p+1 < len(spans) && !hasZh[p+1] {
						return LeapDecision{LeapSpanPos: p + 1, NoZhongqiPositions: noZh}, nil
					}
				}
			}
		}
	}

	if len(noZh) == 1 {
		return LeapDecision{LeapSpanPos: noZh[0], NoZhongqiPositions: noZh}, nil
	}

	if len(noZh) >= 2 {
		for _, c := range noZh {
			if checkCandidateKeyTerms(spans, terms, c) {
				return LeapDecision{LeapSpanPos: c, NoZhongqiPositions: noZh}, nil
			}
		}
		// No candidate satisfied all four key terms: fall back to the
		// smallest no-zhongqi position.
		return LeapDecision{LeapSpanPos: noZh[0], NoZhongqiPositions: noZh}, nil
	}

	// |no_zh| == 0 with 13 spans: brute-force all positions, score by
	// key-term agreement, pick the smallest position with the highest score.
	bestPos, bestScore := -1, -1
	for c := 0; c < len(spans); c++ {
		score := scoreCandidateKeyTerms(spans, terms, c)
		if score > bestScore {
			bestScore, bestPos = score, c
		}
	}
	return LeapDecision{LeapSpanPos: bestPos, NoZhongqiPositions: noZh}, nil
}

// keyTermDegToMonth maps the four key principal-term degrees to the month
// number their containing span must carry for a leap-position candidate to
// be accepted.
var keyTermDegToMonth = map[float64]int{0: 2, 90: 5, 180: 8, 270: 11}

func checkCandidateKeyTerms(spans []LunarSpan, terms []PrincipalTerm, leapPos int) bool {
	months := AssignMonthNumbers(len(spans), leapPos, 11)
	for _, term := range terms {
		wantMonth, isKey := keyTermDegToMonth[term.Deg]
		if !isKey {
			continue
		}
		spanPos := spanContainingJSTDay(spans, term.InstantUTC)
		if spanPos < 0 || months[spanPos] != wantMonth {
			return false
		}
	}
	return true
}

func scoreCandidateKeyTerms(spans []LunarSpan, terms []PrincipalTerm, leapPos int) int {
	months := AssignMonthNumbers(len(spans), leapPos, 11)
	score := 0
	for _, term := range terms {
		wantMonth, isKey := keyTermDegToMonth[term.Deg]
		if !isKey {
			continue
		}
		spanPos := spanContainingJSTDay(spans, term.InstantUTC)
		if spanPos >= 0 && months[spanPos] == wantMonth {
			score++
		}
	}
	return score
}

func spanContainingJSTDay(spans []LunarSpan, t time.Time) int {
	for i, s := range spans {
		if timeutil.JSTDayBasisContains(s.StartUTC, s.EndUTC, t) {
			return i
		}
	}
	return -1
}

// AssignMonthNumbers walks span positions 0..spanCount-1, labeling position
// 0 with anchorMonth (non-leap), advancing the month cyclically
// 11->12->1->... at each subsequent position, except leapSpanPos (if >= 0)
// which repeats the previous position's month and does not advance.
func AssignMonthNumbers(spanCount, leapSpanPos, anchorMonth int) []int {
	months := make([]int, spanCount)
	if spanCount == 0 {
		return months
	}
	months[0] = anchorMonth
	for i := 1; i < spanCount; i++ {
		if i == leapSpanPos {
			months[i] = months[i-1]
			continue
		}
		months[i] = nextMonth(months[i-1])
	}
	return months
}

func nextMonth(m int) int {
	if m == 12 {
		return 1
	}
	return m + 1
}

// PrincipalTermsPaddedAroundWindow returns principal terms in a window
// padded by at least termPadDays() on each side, matching the "generous
// padding" requirement for leap-month decision input.
func PrincipalTermsPaddedAroundWindow(ctx context.Context, provider ephemeris.Provider, window SaisjitsuWindow, cfg Config) ([]PrincipalTerm, error) {
	pad := time.Duration(cfg.termPadDays()) * 24 * time.Hour
	start := window.StartAnchor.NewMoonUTC.Add(-pad)
	end := window.EndAnchor.NewMoonUTC.Add(pad)

	stCfg := solarterm.Config{
		ScanStep:      cfg.scanStep(),
		RebracketStep: cfg.rebracketStep(),
		TolSeconds:    cfg.tolSeconds(),
		MergeWindow:   cfg.mergeWindow(),
	}

	instants, err := solarterm.PrincipalTermsBetween(ctx, provider, start, end, stCfg)
	if err != nil {
		return nil, err
	}

	terms := make([]PrincipalTerm, 0, len(instants))
	for _, t := range instants {
		deg, err := nearestSolarLongitudeAt(ctx, provider, t)
		if err != nil {
			continue
		}
		terms = append(terms, PrincipalTerm{Deg: deg, InstantUTC: t})
	}
	return terms, nil
}

func nearestSolarLongitudeAt(ctx context.Context, provider ephemeris.Provider, t time.Time) (float64, error) {
	jd := ephemeris.TimeToJulianDay(t)
	lon, err := provider.ApparentSunLongitude(ctx, jd)
	if err != nil {
		return 0, err
	}
	// Snap to the nearest multiple of 30 to label the principal term's
	// nominal degree (the instant itself was already solved to within
	// verify tolerance of the true crossing).
	nearest := 30.0 * roundFloat(lon/30.0)
	if nearest >= 360 {
		nearest -= 360
	}
	return nearest, nil
}

func roundFloat(x float64) float64 {
	if x < 0 {
		return -roundFloat(-x)
	}
	frac := x - float64(int(x))
	if frac >= 0.5 {
		return float64(int(x) + 1)
	}
	return float64(int(x))
}
