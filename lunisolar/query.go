package lunisolar

import (
	"context"
	"fmt"
	"time"

	"github.com/amaranthustech/jcal/astronomy/ephemeris"
	"github.com/amaranthustech/jcal/features"
	"github.com/amaranthustech/jcal/newmoon"
	"github.com/amaranthustech/jcal/observability"
	"github.com/amaranthustech/jcal/solarterm"
	"github.com/amaranthustech/jcal/timeutil"
	"go.opentelemetry.io/otel/attribute"
)

// maxRangeDays is the published day-count limit for RangeOf, matching the
// HTTP gateway's advertised limit_days ceiling.
const maxRangeDays = 2000

// LunisolarDate is the lunisolar{} sub-object of a DayResult/day within a
// RangeResult.
type LunisolarDate struct {
	Year       int    `json:"year"`
	Month      int    `json:"month"`
	Day        int    `json:"day"`
	IsLeap     bool   `json:"is_leap"`
	MonthLabel string `json:"month_label"`
	DayLabel   string `json:"day_label"`
	MonthName  string `json:"month_name"`
}

// SekkiInfo is the sekki{} sub-object: the primary (most recent) sekki name
// for the day plus every sekki instant that falls within the day.
type SekkiInfo struct {
	Primary string      `json:"primary,omitempty"`
	Events  []SekkiEvent `json:"events"`
}

// AstronomyInfo is the astronomy{} sub-object.
type AstronomyInfo struct {
	MoonAgeDays float64    `json:"moon_age_days"`
	PhaseEvent  string     `json:"phase_event,omitempty"`
	Sunrise     *time.Time `json:"sunrise,omitempty"`
	Sunset      *time.Time `json:"sunset,omitempty"`
}

// DayResult is the day_of response shape.
type DayResult struct {
	Date      string        `json:"date"`
	TZ        string        `json:"tz"`
	Lunisolar LunisolarDate `json:"lunisolar"`
	Rokuyo    string        `json:"rokuyo"`
	Sekki     SekkiInfo     `json:"sekki"`
	Astronomy AstronomyInfo `json:"astronomy"`
}

// RangeEvents is the events{} sub-object of a RangeResult.
type RangeEvents struct {
	Sekki      []SekkiEvent `json:"sekki"`
	MoonPhases []time.Time  `json:"moon_phases"`
}

// RangeResult is the range_of response shape.
type RangeResult struct {
	Range  [2]string   `json:"range"`
	Days   []DayResult `json:"days"`
	Events RangeEvents `json:"events"`
}

var monthKanji = [...]string{"", "一", "二", "三", "四", "五", "六", "七", "八", "九", "十", "十一", "十二"}

func monthLabel(m NamedMonth) string {
	if m.IsLeap {
		return fmt.Sprintf("閏%s月", monthKanji[m.MonthNo])
	}
	return fmt.Sprintf("%s月", monthKanji[m.MonthNo])
}

func monthName(m NamedMonth) string {
	if m.IsLeap {
		return fmt.Sprintf("leap-month-%d", m.MonthNo)
	}
	return fmt.Sprintf("month-%d", m.MonthNo)
}

// DayOf resolves a single JST calendar date into its full lunisolar, rokuyo,
// sekki, and astronomy description, building a RangeCache padded around the
// requested date by cfg's instant_window_days.
func DayOf(ctx context.Context, provider ephemeris.Provider, dateJST time.Time, lat, lon float64, tz string, cfg Config) (*DayResult, error) {
	observer := observability.Observer()
	ctx, span := observer.CreateSpan(ctx, "lunisolar.DayOf")
	defer span.End()

	pad := cfg.InstantWindowDays
	if pad <= 0 {
		pad = 40
	}
	windowStart := dateJST.AddDate(0, 0, -pad-minCachePadDays)
	windowEnd := dateJST.AddDate(0, 0, pad)

	cache, err := BuildRangeCache(ctx, provider, windowStart.UTC(), windowEnd.UTC(), cfg)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	result, err := dayOfWithCache(ctx, provider, dateJST, lat, lon, tz, cache)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("date", result.Date))
	return result, nil
}

// dayOfWithCache is DayOf's core, reusing a RangeCache the caller already
// built (RangeOf shares one cache across its whole window instead of
// rebuilding it per day).
func dayOfWithCache(ctx context.Context, provider ephemeris.Provider, dateJST time.Time, lat, lon float64, tz string, cache *RangeCache) (*DayResult, error) {
	ymd, month, err := GregorianToLunarMonth(dateJST, cache)
	if err != nil {
		return nil, err
	}

	label, err := features.Rokuyo(month.MonthNo, ymd.Day)
	if err != nil {
		return nil, err
	}

	dayStartJST := time.Date(dateJST.Year(), dateJST.Month(), dateJST.Day(), 0, 0, 0, 0, timeutil.JST())
	dayEndJST := dayStartJST.AddDate(0, 0, 1)

	sekkiEvents, primary, err := sekkiForDay(ctx, provider, dayStartJST, dayEndJST)
	if err != nil {
		return nil, err
	}

	astro, err := astronomyForDay(ctx, provider, dayStartJST, dayEndJST, lat, lon, tz)
	if err != nil {
		return nil, err
	}

	return &DayResult{
		Date: dateJST.Format("2006-01-02"),
		TZ:   tz,
		Lunisolar: LunisolarDate{
			Year:       ymd.Year,
			Month:      ymd.Month,
			Day:        ymd.Day,
			IsLeap:     ymd.IsLeap,
			MonthLabel: monthLabel(month),
			DayLabel:   fmt.Sprintf("%d日", ymd.Day),
			MonthName:  monthName(month),
		},
		Rokuyo:    label,
		Sekki:     SekkiInfo{Primary: primary, Events: sekkiEvents},
		Astronomy: astro,
	}, nil
}

// TODO: RangeOf already computes PrincipalTerm coverage for its whole window
// via BuildRangeCache; sekkiForDay re-scans all 24 degrees per day instead of
// slicing that result, which is wasteful for large ranges.
func sekkiForDay(ctx context.Context, provider ephemeris.Provider, dayStartJST, dayEndJST time.Time) ([]SekkiEvent, string, error) {
	scanStart := dayStartJST.AddDate(0, 0, -17).UTC()
	scanEnd := dayEndJST.AddDate(0, 0, 2).UTC()

	stCfg := solarterm.Config{}
	var events []SekkiEvent
	var seen []SekkiEvent
	for deg := 0.0; deg < 360; deg += 15 {
		crossings, err := solarterm.SolarLongitudeCrossings(ctx, provider, scanStart, scanEnd, deg, stCfg)
		if err != nil {
			return nil, "", err
		}
		for _, c := range crossings {
			if !c.Before(dayEndJST.UTC()) {
				continue
			}
			seen = append(seen, SekkiEvent{Deg: deg, InstantUTC: c})
			if !c.Before(dayStartJST.UTC()) {
				events = append(events, SekkiEvent{Deg: deg, InstantUTC: c})
			}
		}
	}

	var primary string
	var latest time.Time
	for _, e := range seen {
		if e.InstantUTC.After(latest) || latest.IsZero() {
			latest = e.InstantUTC
			name, err := features.SekkiName(e.Deg)
			if err == nil {
				primary = name
			}
		}
	}
	return events, primary, nil
}

func astronomyForDay(ctx context.Context, provider ephemeris.Provider, dayStartJST, dayEndJST time.Time, lat, lon float64, tz string) (AstronomyInfo, error) {
	jd := ephemeris.TimeToJulianDay(dayStartJST.UTC())
	sunLon, err := provider.ApparentSunLongitude(ctx, jd)
	if err != nil {
		return AstronomyInfo{}, err
	}
	moonLon, err := provider.ApparentMoonLongitude(ctx, jd)
	if err != nil {
		return AstronomyInfo{}, err
	}

	phase := moonLon - sunLon
	for phase < 0 {
		phase += 360
	}
	moonAgeDays := phase / 360.0 * 29.530588853

	ss, err := provider.SunriseSunset(ctx, dayStartJST, tz, lat, lon)
	if err != nil {
		return AstronomyInfo{}, err
	}

	return AstronomyInfo{
		MoonAgeDays: moonAgeDays,
		Sunrise:     ss.Sunrise,
		Sunset:      ss.Sunset,
	}, nil
}

func newMoonsInRange(ctx context.Context, provider ephemeris.Provider, startUTC, endUTC time.Time, cfg Config) ([]time.Time, error) {
	nmCfg := newmoon.Config{ScanStep: cfg.scanStep(), TolSeconds: cfg.tolSeconds()}
	return newmoon.NewMoonsBetween(ctx, provider, startUTC, endUTC, nmCfg)
}

// RangeOf resolves a JST [start,end] calendar range, inclusive, into a
// per-day lunisolar/rokuyo description plus the sekki and moon-phase events
// falling within the range. end must not precede start, and the day count
// must not exceed the published limit.
func RangeOf(ctx context.Context, provider ephemeris.Provider, startJST, endJST time.Time, lat, lon float64, tz string, limitDays int, cfg Config) (*RangeResult, error) {
	observer := observability.Observer()
	ctx, span := observer.CreateSpan(ctx, "lunisolar.RangeOf")
	defer span.End()

	if endJST.Before(startJST) {
		err := &InvalidInputRangeError{Reason: "end precedes start"}
		span.RecordError(err)
		return nil, err
	}

	limit := limitDays
	if limit <= 0 || limit > maxRangeDays {
		limit = maxRangeDays
	}
	dayCount := int(endJST.Sub(startJST).Hours()/24) + 1
	if dayCount > limit {
		err := &InvalidInputRangeError{Reason: fmt.Sprintf("range spans %d days, exceeds limit %d", dayCount, limit)}
		span.RecordError(err)
		return nil, err
	}

	pad := cfg.InstantWindowDays
	if pad <= 0 {
		pad = 40
	}
	cacheStart := startJST.AddDate(0, 0, -pad-minCachePadDays)
	cacheEnd := endJST.AddDate(0, 0, pad)
	cache, err := BuildRangeCache(ctx, provider, cacheStart.UTC(), cacheEnd.UTC(), cfg)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	days := make([]DayResult, 0, dayCount)
	var allSekki []SekkiEvent
	var allMoonPhases []time.Time

	for d := startJST; !d.After(endJST); d = d.AddDate(0, 0, 1) {
		dr, err := dayOfWithCache(ctx, provider, d, lat, lon, tz, cache)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		days = append(days, *dr)
		allSekki = append(allSekki, dr.Sekki.Events...)
	}

	moons, err := newMoonsInRange(ctx, provider, startJST.UTC(), endJST.AddDate(0, 0, 1).UTC(), cfg)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	allMoonPhases = moons

	span.SetAttributes(attribute.Int("day_count", len(days)))

	return &RangeResult{
		Range: [2]string{startJST.Format("2006-01-02"), endJST.Format("2006-01-02")},
		Days:  days,
		Events: RangeEvents{
			Sekki:      allSekki,
			MoonPhases: allMoonPhases,
		},
	}, nil
}
