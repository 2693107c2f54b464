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
	"go.opentelemetry.io/otel/attribute"
)

// paddingLadderDays is the expanding new-moon-series padding retried around
// a winter solstice search until the solstice is bracketed by a new-moon
// span, or the ladder is exhausted.
var paddingLadderDays = []int{30, 60, 90, 120, 180}

// FindWinterSolsticeUTCForYear locates the instant at which apparent solar
// longitude equals 270 degrees within [Dec 1 of year UTC, Feb 1 of year+1
// UTC), then locates the new-moon span containing it.
func FindWinterSolsticeUTCForYear(ctx context.Context, provider ephemeris.Provider, year int, cfg Config) (SolsticeAnchor, error) {
	observer := observability.Observer()
	ctx, span := observer.CreateSpan(ctx, "lunisolar.FindWinterSolsticeUTCForYear")
	defer span.End()
	span.SetAttributes(attribute.Int("year", year))

	searchStart := time.Date(year, time.December, 1, 0, 0, 0, 0, time.UTC)
	searchEnd := time.Date(year+1, time.February, 1, 0, 0, 0, 0, time.UTC)

	stCfg := solarterm.Config{
		ScanStep:      cfg.scanStep(),
		RebracketStep: cfg.rebracketStep(),
		TolSeconds:    cfg.tolSeconds(),
		MergeWindow:   cfg.mergeWindow(),
	}

	crossings, err := solarterm.SolarLongitudeCrossings(ctx, provider, searchStart, searchEnd, 270.0, stCfg)
	if err != nil {
		span.RecordError(err)
		return SolsticeAnchor{}, fmt.Errorf("lunisolar: winter solstice search for year %d failed: %w", year, err)
	}
	if len(crossings) == 0 {
		err := &SolsticeNotBracketedError{Year: year}
		span.RecordError(err)
		return SolsticeAnchor{}, err
	}

	solsticeUTC := crossings[0]
	span.SetAttributes(attribute.String("solstice_utc", solsticeUTC.Format(time.RFC3339)))

	for _, padDays := range paddingLadderDays {
		pad := time.Duration(padDays) * 24 * time.Hour
		moons, err := newmoon.NewMoonsBetween(ctx, provider, solsticeUTC.Add(-pad), solsticeUTC.Add(pad), newmoon.Config{
			ScanStep: cfg.scanStep(), TolSeconds: cfg.tolSeconds(),
		})
		if err != nil {
			continue
		}
		sort.Slice(moons, func(i, j int) bool { return moons[i].Before(moons[j]) })

		i := rightmostLE(moons, solsticeUTC)
		if i < 0 || i+1 >= len(moons) {
			continue
		}

		span.SetAttributes(attribute.Int("padding_days_used", padDays))
		return SolsticeAnchor{
			SolsticeUTC:    solsticeUTC,
			SpanIndex:      i,
			NewMoonUTC:     moons[i],
			NextNewMoonUTC: moons[i+1],
		}, nil
	}

	err = &SolsticeNotBracketedError{Year: year}
	span.RecordError(err)
	return SolsticeAnchor{}, err
}

// rightmostLE returns the largest index i such that sorted[i] <= t, or -1
// if no such index exists.
func rightmostLE(sorted []time.Time, t time.Time) int {
	lo, hi := 0, len(sorted)-1
	result := -1
	for lo <= hi {
		mid := (lo + hi) / 2
		if !sorted[mid].After(t) {
			result = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return result
}

// SolsticeAnchorsForYears builds SolsticeAnchor values for every year in
// [y1, y2] inclusive.
func SolsticeAnchorsForYears(ctx context.Context, provider ephemeris.Provider, y1, y2 int, cfg Config) ([]SolsticeAnchor, error) {
	observer := observability.Observer()
	ctx, span := observer.CreateSpan(ctx, "lunisolar.SolsticeAnchorsForYears")
	defer span.End()
	span.SetAttributes(attribute.Int("y1", y1), attribute.Int("y2", y2))

	var anchors []SolsticeAnchor
	for y := y1; y <= y2; y++ {
		anchor, err := FindWinterSolsticeUTCForYear(ctx, provider, y, cfg)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		anchors = append(anchors, anchor)
	}
	return anchors, nil
}
