package lunisolar

import (
	"fmt"
	"time"
)

// SolsticeNotBracketedError is returned when the new-moon series padding
// was insufficient to bracket a winter solstice, even after the expanding
// padding ladder (30/60/90/120/180 days) was exhausted.
type SolsticeNotBracketedError struct {
	Year int
}

func (e *SolsticeNotBracketedError) Error() string {
	return fmt.Sprintf("lunisolar: winter solstice for year %d could not be bracketed by any new-moon span after exhausting padding retries", e.Year)
}

// InconsistentLeapDecisionError is returned when the month-namer detects a
// leap span containing a principal term, a non-leap span with none, or (in
// strict mode) a span with two or more principal terms.
type InconsistentLeapDecisionError struct {
	SpanPos int
	Reason  string
}

func (e *InconsistentLeapDecisionError) Error() string {
	return fmt.Sprintf("lunisolar: inconsistent leap decision at span %d: %s", e.SpanPos, e.Reason)
}

// OutOfCachedRangeError is returned when a date-to-lunar query reaches
// outside the cached window.
type OutOfCachedRangeError struct {
	Date time.Time
}

func (e *OutOfCachedRangeError) Error() string {
	return fmt.Sprintf("lunisolar: date %s is outside the cached range; widen the cache window", e.Date.Format("2006-01-02"))
}

// InvalidInputRangeError is returned when a requested range is malformed or
// exceeds the published day-count limit.
type InvalidInputRangeError struct {
	Reason string
}

func (e *InvalidInputRangeError) Error() string {
	return fmt.Sprintf("lunisolar: invalid input range: %s", e.Reason)
}
