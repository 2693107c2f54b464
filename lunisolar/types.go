// Package lunisolar implements the Japanese lunisolar calendar rule engine:
// winter-solstice anchoring, leap-month decision, month naming, and the
// date-to-lunar-date resolver backed by a precomputed range cache.
package lunisolar

import "time"

// LunarSpan is the half-open interval [StartUTC, EndUTC) between two
// consecutive new moons. EndUTC equals the next span's StartUTC.
type LunarSpan struct {
	Index    int
	StartUTC time.Time
	EndUTC   time.Time
}

// PrincipalTerm is a zhongqi (中気): an instant at which apparent solar
// longitude equals a multiple of 30 degrees.
type PrincipalTerm struct {
	Deg        float64
	InstantUTC time.Time
}

// SekkiEvent is one of the 24 sekki: an instant at which apparent solar
// longitude equals a multiple of 15 degrees. PrincipalTerms are the
// even-indexed subset.
type SekkiEvent struct {
	Deg        float64   `json:"deg"`
	InstantUTC time.Time `json:"instant_utc"`
}

// SolsticeAnchor is the lunar span containing the winter solstice
// (lambda_sun = 270 degrees) instant. This span is always month 11,
// non-leap.
type SolsticeAnchor struct {
	SolsticeUTC    time.Time `json:"solstice_utc"`
	SpanIndex      int       `json:"span_index"`
	NewMoonUTC     time.Time `json:"new_moon_utc"`
	NextNewMoonUTC time.Time `json:"next_new_moon_utc"`
}

// SaisjitsuWindow is the span of lunar months between one winter solstice's
// anchor span and the next year's, used to decide whether the intervening
// year carries a leap month.
type SaisjitsuWindow struct {
	StartAnchor SolsticeAnchor
	EndAnchor   SolsticeAnchor
	MonthCount  int
	IsLeapYear  bool
}

// LeapDecision names which span (if any) within a SaisjitsuWindow carries
// the leap-month mark.
type LeapDecision struct {
	LeapSpanPos       int // -1 means no leap span (12-month year)
	NoZhongqiPositions []int
}

// NamedMonth is a lunar-month span with its assigned month number and leap
// flag.
type NamedMonth struct {
	Pos                int
	MonthNo            int
	IsLeap             bool
	NewMoonUTC         time.Time
	NextNewMoonUTC     time.Time
	ZhongqiDeg         *float64
	ZhongqiInstantUTC  *time.Time
}

// LunarYMD is a resolved lunar calendar date.
type LunarYMD struct {
	Year    int
	Month   int
	Day     int
	IsLeap  bool
}

// RangeCache is a time-sorted sequence of NamedMonth plus a parallel sorted
// sequence of new-moon instants for O(log n) lookup.
type RangeCache struct {
	Months       []NamedMonth
	NewMoonUTCs  []time.Time
}
