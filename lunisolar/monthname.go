package lunisolar

import (
	"context"
	"fmt"
	"sort"

	"github.com/amaranthustech/jcal/observability"
	"github.com/amaranthustech/jcal/timeutil"
	"go.opentelemetry.io/otel/attribute"
)

// degToMonthNo maps a principal-term degree to the month number it names.
var degToMonthNo = map[float64]int{
	270: 11, 300: 12, 330: 1, 0: 2, 30: 3, 60: 4,
	90: 5, 120: 6, 150: 7, 180: 8, 210: 9, 240: 10,
}

// AssignMonthNames labels each span with a month number and leap flag,
// given the decided leap-span position and all principal terms. Re-verifies
// the leap decision against JST-day-basis attribution before naming.
func AssignMonthNames(ctx context.Context, spans []LunarSpan, terms []PrincipalTerm, leapSpanPos int, mode MonthNamingMode) ([]NamedMonth, error) {
	observer := observability.Observer()
	_, span := observer.CreateSpan(ctx, "lunisolar.AssignMonthNames")
	defer span.End()
	span.SetAttributes(attribute.Int("leap_span_pos", leapSpanPos), attribute.String("mode", string(mode)))

	termsBySpan := make([][]PrincipalTerm, len(spans))
	for _, t := range terms {
		for i, s := range spans {
			if timeutil.JSTDayBasisContains(s.StartUTC, s.EndUTC, t.InstantUTC) {
				termsBySpan[i] = append(termsBySpan[i], t)
			}
		}
	}

	zeroZhongqi := 0
	multiZhongqi := 0
	for i := range spans {
		switch {
		case len(termsBySpan[i]) == 0:
			zeroZhongqi++
		case len(termsBySpan[i]) >= 2:
			multiZhongqi++
		}
	}

	monthCount := len(spans)
	if monthCount == 13 {
		if zeroZhongqi != 1 {
			err := &InconsistentLeapDecisionError{SpanPos: leapSpanPos, Reason: fmt.Sprintf("13-month window must have exactly one zero-zhongqi span, found %d", zeroZhongqi)}
			span.RecordError(err)
			return nil, err
		}
	} else if monthCount == 12 {
		if zeroZhongqi != 0 {
			err := &InconsistentLeapDecisionError{SpanPos: leapSpanPos, Reason: fmt.Sprintf("12-month window must have zero zero-zhongqi spans, found %d", zeroZhongqi)}
			span.RecordError(err)
			return nil, err
		}
	}
	if mode == ModeStrict && multiZhongqi > 0 {
		err := &InconsistentLeapDecisionError{SpanPos: leapSpanPos, Reason: fmt.Sprintf("strict mode requires exactly one principal term per non-leap span, %d spans have >=2", multiZhongqi)}
		span.RecordError(err)
		return nil, err
	}

	named := make([]NamedMonth, len(spans))
	prevMonthNo := 0

	for i, s := range spans {
		if i == leapSpanPos {
			if len(termsBySpan[i]) != 0 {
				err := &InconsistentLeapDecisionError{SpanPos: i, Reason: "leap span must contain no principal term"}
				span.RecordError(err)
				return nil, err
			}
			named[i] = NamedMonth{
				Pos: i, MonthNo: prevMonthNo, IsLeap: true,
				NewMoonUTC: s.StartUTC, NextNewMoonUTC: s.EndUTC,
			}
			continue
		}

		if len(termsBySpan[i]) == 0 {
			err := &InconsistentLeapDecisionError{SpanPos: i, Reason: "non-leap span must contain at least one principal term"}
			span.RecordError(err)
			return nil, err
		}

		chosen, err := chooseTerm(termsBySpan[i], mode)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}

		monthNo, ok := degToMonthNo[chosen.Deg]
		if !ok {
			err := fmt.Errorf("lunisolar: principal term degree %.0f has no month mapping", chosen.Deg)
			span.RecordError(err)
			return nil, err
		}

		deg := chosen.Deg
		instant := chosen.InstantUTC
		named[i] = NamedMonth{
			Pos: i, MonthNo: monthNo, IsLeap: false,
			NewMoonUTC: s.StartUTC, NextNewMoonUTC: s.EndUTC,
			ZhongqiDeg: &deg, ZhongqiInstantUTC: &instant,
		}
		prevMonthNo = monthNo
	}

	return named, nil
}

func chooseTerm(candidates []PrincipalTerm, mode MonthNamingMode) (PrincipalTerm, error) {
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].InstantUTC.Before(candidates[j].InstantUTC) })

	if mode == ModeStrict {
		if len(candidates) != 1 {
			return PrincipalTerm{}, fmt.Errorf("lunisolar: strict mode requires exactly one principal term, found %d", len(candidates))
		}
		return candidates[0], nil
	}

	// ws_first: prefer the 270-degree term if present, else earliest.
	for _, c := range candidates {
		if c.Deg == 270 {
			return c, nil
		}
	}
	return candidates[0], nil
}
