// Package newmoon enumerates lunar conjunctions (new moons) against an
// astronomy provider.
package newmoon

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/amaranthustech/jcal/angle"
	"github.com/amaranthustech/jcal/astronomy/ephemeris"
	"github.com/amaranthustech/jcal/observability"
	"github.com/amaranthustech/jcal/rootfind"
	"go.opentelemetry.io/otel/attribute"
)

// Config tunes the new-moon detection pipeline; zero-valued fields fall
// back to the documented defaults.
type Config struct {
	ScanStep           time.Duration // default 6h
	TolSeconds         float64       // default 0.5s
	ValidationToleranceDeg float64   // default 0.01
}

// DefaultConfig returns the documented default tuning.
func DefaultConfig() Config {
	return Config{
		ScanStep:               6 * time.Hour,
		TolSeconds:             0.5,
		ValidationToleranceDeg: 0.01,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ScanStep <= 0 {
		c.ScanStep = d.ScanStep
	}
	if c.TolSeconds <= 0 {
		c.TolSeconds = d.TolSeconds
	}
	if c.ValidationToleranceDeg <= 0 {
		c.ValidationToleranceDeg = d.ValidationToleranceDeg
	}
	return c
}

// phase computes phi(t) = (lambda_moon - lambda_sun) mod 360 at instant t.
func phase(ctx context.Context, provider ephemeris.Provider, t time.Time) (float64, error) {
	jd := ephemeris.TimeToJulianDay(t)
	sunLon, err := provider.ApparentSunLongitude(ctx, jd)
	if err != nil {
		return 0, err
	}
	moonLon, err := provider.ApparentMoonLongitude(ctx, jd)
	if err != nil {
		return 0, err
	}
	return angle.Norm360(moonLon - sunLon), nil
}

// NewMoonsBetween returns every instant in [startUTC, endUTC) at which the
// Moon and Sun are in conjunction (phase == 0 mod 360), via phase-series
// unwrapping and root refinement.
func NewMoonsBetween(ctx context.Context, provider ephemeris.Provider, startUTC, endUTC time.Time, cfg Config) ([]time.Time, error) {
	observer := observability.Observer()
	ctx, span := observer.CreateSpan(ctx, "newmoon.NewMoonsBetween")
	defer span.End()

	cfg = cfg.withDefaults()

	if !endUTC.After(startUTC) {
		return nil, fmt.Errorf("newmoon: end %s must be after start %s", endUTC, startUTC)
	}

	span.SetAttributes(
		attribute.String("start", startUTC.Format(time.RFC3339)),
		attribute.String("end", endUTC.Format(time.RFC3339)),
	)

	var sampleTimes []time.Time
	for t := startUTC; !t.After(endUTC); t = t.Add(cfg.ScanStep) {
		sampleTimes = append(sampleTimes, t)
	}
	if sampleTimes[len(sampleTimes)-1].Before(endUTC) {
		sampleTimes = append(sampleTimes, endUTC)
	}

	phases := make([]float64, len(sampleTimes))
	for i, t := range sampleTimes {
		p, err := phase(ctx, provider, t)
		if err != nil {
			phases[i] = math.NaN()
			continue
		}
		phases[i] = p
	}

	unwrapped := angle.Unwrap(phases)

	g := func(t time.Time) float64 {
		p, err := phase(ctx, provider, t)
		if err != nil {
			return math.NaN()
		}
		return angle.AngDiff180(p)
	}

	var roots []time.Time
	for i := 1; i < len(unwrapped); i++ {
		if math.IsNaN(unwrapped[i-1]) || math.IsNaN(unwrapped[i]) {
			continue
		}

		prevMultiples := int(math.Floor(unwrapped[i-1] / 360.0))
		currMultiples := int(math.Floor(unwrapped[i] / 360.0))
		if prevMultiples == currMultiples {
			continue
		}

		root := rootfind.Solve(g, sampleTimes[i-1], sampleTimes[i], rootfind.Options{TolSeconds: cfg.TolSeconds, MaxIter: 100})

		p, err := phase(ctx, provider, root)
		if err != nil {
			continue
		}
		residual := math.Min(p, 360-p)
		if residual > cfg.ValidationToleranceDeg {
			continue
		}

		if !root.Before(startUTC) && root.Before(endUTC) {
			roots = append(roots, root)
		}
	}

	sort.Slice(roots, func(i, j int) bool { return roots[i].Before(roots[j]) })
	span.SetAttributes(attribute.Int("new_moons_found", len(roots)))
	return roots, nil
}
