package lunisolar

import "time"

// MonthNamingMode selects how the month-namer resolves a span with more
// than one principal term.
type MonthNamingMode string

const (
	// ModeStrict requires exactly one principal term per non-leap span;
	// two or more is a hard failure.
	ModeStrict MonthNamingMode = "strict"
	// ModeWSFirst prefers the 270-degree (winter solstice) term when more
	// than one principal term falls in a span, else the earliest.
	ModeWSFirst MonthNamingMode = "ws_first"
)

// Policy2033 is a reserved hook for the disputed 2033 lunisolar leap-month
// resolution. It is never consulted by the current algorithm; see
// DESIGN.md's Open Question decisions.
type Policy2033 string

const (
	Policy2033Auto   Policy2033 = "auto"
	Policy2033Leap11 Policy2033 = "leap11"
	Policy2033Leap7  Policy2033 = "leap7"
	Policy2033Leap12 Policy2033 = "leap12"
	Policy2033Leap1  Policy2033 = "leap1"
)

// SamplePolicy selects the within-day sampling instant used when resolving
// a JST calendar date to a UTC query instant.
type SamplePolicy string

const (
	SamplePolicyNoon SamplePolicy = "noon"
	SamplePolicyEnd  SamplePolicy = "end"
)

// Config holds every tunable named in the core's recognized configuration
// options. Zero-valued fields are replaced by DefaultConfig()'s defaults
// wherever a component accepts a partial Config.
type Config struct {
	ScanStepHours         int
	TolSeconds            float64
	TermRebracketHours    int // rebracket_window_hours for solar terms (default 2)
	NewMoonRebracketHours int // rebracket_window_hours for new moons (default 36)
	RebracketStepMinutes  int
	MergeSeconds          int
	SeriesPadDays         int
	TermPadDays           int
	InstantWindowDays     int
	SamplePolicy          SamplePolicy
	AnchorMonthNo         int
	MonthNamingMode       MonthNamingMode
	Policy2033            Policy2033
}

// DefaultConfig returns the documented defaults for every recognized
// configuration option.
func DefaultConfig() Config {
	return Config{
		ScanStepHours:         6,
		TolSeconds:            0.5,
		TermRebracketHours:    2,
		NewMoonRebracketHours: 36,
		RebracketStepMinutes:  10,
		MergeSeconds:          60,
		SeriesPadDays:         30,
		TermPadDays:           40,
		InstantWindowDays:     40,
		SamplePolicy:          SamplePolicyEnd,
		AnchorMonthNo:         11,
		MonthNamingMode:       ModeWSFirst,
		Policy2033:            Policy2033Leap11,
	}
}

func (c Config) scanStep() time.Duration {
	if c.ScanStepHours <= 0 {
		return 6 * time.Hour
	}
	return time.Duration(c.ScanStepHours) * time.Hour
}

func (c Config) tolSeconds() float64 {
	if c.TolSeconds <= 0 {
		return 0.5
	}
	return c.TolSeconds
}

func (c Config) rebracketStep() time.Duration {
	if c.RebracketStepMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.RebracketStepMinutes) * time.Minute
}

func (c Config) mergeWindow() time.Duration {
	if c.MergeSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.MergeSeconds) * time.Second
}

func (c Config) seriesPadDays() int {
	if c.SeriesPadDays <= 0 {
		return 30
	}
	return c.SeriesPadDays
}

func (c Config) termPadDays() int {
	if c.TermPadDays <= 0 {
		return 40
	}
	return c.TermPadDays
}

func (c Config) namingMode() MonthNamingMode {
	if c.MonthNamingMode == "" {
		return ModeWSFirst
	}
	return c.MonthNamingMode
}

func (c Config) anchorMonthNo() int {
	if c.AnchorMonthNo <= 0 {
		return 11
	}
	return c.AnchorMonthNo
}
