// Package solarterm enumerates solar-longitude crossings (the 24 sekki and
// 12 principal terms/zhongqi) against an astronomy provider.
package solarterm

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

// Config tunes the crossing-detection pipeline; zero-valued fields fall
// back to the documented defaults.
type Config struct {
	ScanStep             time.Duration // default 6h
	RebracketWindow      time.Duration // default 2h
	RebracketStep        time.Duration // default 10m
	TolSeconds           float64       // default 0.5s
	VerifyToleranceDeg    float64      // default 0.01
	MergeWindow          time.Duration // default 60s
}

// DefaultConfig returns the documented default tuning.
func DefaultConfig() Config {
	return Config{
		ScanStep:           6 * time.Hour,
		RebracketWindow:    2 * time.Hour,
		RebracketStep:      10 * time.Minute,
		TolSeconds:         0.5,
		VerifyToleranceDeg: 0.01,
		MergeWindow:        60 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ScanStep <= 0 {
		c.ScanStep = d.ScanStep
	}
	if c.RebracketWindow <= 0 {
		c.RebracketWindow = d.RebracketWindow
	}
	if c.RebracketStep <= 0 {
		c.RebracketStep = d.RebracketStep
	}
	if c.TolSeconds <= 0 {
		c.TolSeconds = d.TolSeconds
	}
	if c.VerifyToleranceDeg <= 0 {
		c.VerifyToleranceDeg = d.VerifyToleranceDeg
	}
	if c.MergeWindow <= 0 {
		c.MergeWindow = d.MergeWindow
	}
	return c
}

// longitudeFunc evaluates a provider's apparent solar longitude, converting
// to/from Julian days and treating provider errors as non-finite (NaN),
// which BracketByScan/Solve treat as "skip this point".
func longitudeFunc(ctx context.Context, provider ephemeris.Provider, targetDeg float64) rootfind.Func {
	return func(t time.Time) float64 {
		jd := ephemeris.TimeToJulianDay(t)
		lon, err := provider.ApparentSunLongitude(ctx, jd)
		if err != nil {
			return math.NaN()
		}
		return angle.AngDiff180(lon - targetDeg)
	}
}

// SolarLongitudeCrossings returns every instant in [startUTC, endUTC) at
// which the Sun's apparent ecliptic longitude equals targetDeg (normalized
// to [0,360)), using the coarse-scan -> rebracket -> nudge -> solve ->
// verify -> merge pipeline.
func SolarLongitudeCrossings(ctx context.Context, provider ephemeris.Provider, startUTC, endUTC time.Time, targetDeg float64, cfg Config) ([]time.Time, error) {
	observer := observability.Observer()
	ctx, span := observer.CreateSpan(ctx, "solarterm.SolarLongitudeCrossings")
	defer span.End()

	cfg = cfg.withDefaults()
	targetDeg = angle.Norm360(targetDeg)

	span.SetAttributes(
		attribute.Float64("target_deg", targetDeg),
		attribute.String("start", startUTC.Format(time.RFC3339)),
		attribute.String("end", endUTC.Format(time.RFC3339)),
	)

	if !endUTC.After(startUTC) {
		return nil, fmt.Errorf("solarterm: end %s must be after start %s", endUTC, startUTC)
	}

	g := longitudeFunc(ctx, provider, targetDeg)

	coarse := rootfind.BracketByScan(g, startUTC, endUTC, cfg.ScanStep)
	span.SetAttributes(attribute.Int("coarse_brackets", len(coarse)))

	var roots []time.Time
	for _, br := range coarse {
		refined := br
		if !br.A.Before(br.B) {
			// Degenerate endpoint hit: rebracket locally for a proper sign change.
			windowStart := br.A.Add(-cfg.RebracketWindow)
			windowEnd := br.A.Add(cfg.RebracketWindow)
			local := rootfind.BracketByScan(g, windowStart, windowEnd, cfg.RebracketStep)
			if len(local) == 0 {
				continue
			}
			refined = local[0]
		}

		refined = nudgeIfZeroEndpoint(g, refined)

		root := rootfind.Solve(g, refined.A, refined.B, rootfind.Options{TolSeconds: cfg.TolSeconds, MaxIter: 100})

		if verifyErr := verifyRoot(g, root, cfg.VerifyToleranceDeg); verifyErr != nil {
			rescanStart := root.Add(-24 * time.Hour)
			rescanEnd := root.Add(24 * time.Hour)
			retryBrackets := rootfind.BracketByScan(g, rescanStart, rescanEnd, cfg.RebracketStep)
			found := false
			for _, rb := range retryBrackets {
				retryRoot := rootfind.Solve(g, rb.A, rb.B, rootfind.Options{TolSeconds: cfg.TolSeconds, MaxIter: 100})
				if verifyRoot(g, retryRoot, cfg.VerifyToleranceDeg) == nil {
					root = retryRoot
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}

		if !root.Before(startUTC) && root.Before(endUTC) {
			roots = append(roots, root)
		}
	}

	sort.Slice(roots, func(i, j int) bool { return roots[i].Before(roots[j]) })
	merged := mergeClose(roots, cfg.MergeWindow)

	span.SetAttributes(attribute.Int("crossings_found", len(merged)))
	return merged, nil
}

func nudgeIfZeroEndpoint(g rootfind.Func, br rootfind.Bracket) rootfind.Bracket {
	if g(br.A) == 0 {
		br.A = br.A.Add(time.Second)
	}
	if g(br.B) == 0 {
		br.B = br.B.Add(-time.Second)
	}
	return br
}

func verifyRoot(g rootfind.Func, root time.Time, toleranceDeg float64) error {
	residual := math.Abs(g(root))
	if residual > toleranceDeg {
		return fmt.Errorf("solarterm: root verification failed, residual %.4f deg exceeds tolerance %.4f", residual, toleranceDeg)
	}
	return nil
}

func mergeClose(roots []time.Time, window time.Duration) []time.Time {
	if len(roots) == 0 {
		return roots
	}
	merged := []time.Time{roots[0]}
	for _, r := range roots[1:] {
		last := merged[len(merged)-1]
		if r.Sub(last) <= window {
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// PrincipalTermsBetween returns every principal-term (zhongqi, deg%30==0,
// i.e. 0/30/60/.../330) crossing in [startUTC, endUTC).
func PrincipalTermsBetween(ctx context.Context, provider ephemeris.Provider, startUTC, endUTC time.Time, cfg Config) ([]time.Time, error) {
	var all []time.Time
	for deg := 0.0; deg < 360; deg += 30 {
		crossings, err := SolarLongitudeCrossings(ctx, provider, startUTC, endUTC, deg, cfg)
		if err != nil {
			return nil, err
		}
		all = append(all, crossings...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Before(all[j]) })
	return all, nil
}

// Sekki24Between returns every sekki (24 terms, every 15 degrees) crossing
// in [startUTC, endUTC), including both principal terms and sekki (setsu).
func Sekki24Between(ctx context.Context, provider ephemeris.Provider, startUTC, endUTC time.Time, cfg Config) ([]time.Time, error) {
	var all []time.Time
	for deg := 0.0; deg < 360; deg += 15 {
		crossings, err := SolarLongitudeCrossings(ctx, provider, startUTC, endUTC, deg, cfg)
		if err != nil {
			return nil, err
		}
		all = append(all, crossings...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Before(all[j]) })
	return all, nil
}
