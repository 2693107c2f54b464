package ephemeris

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// EphemerisSample is one row of a precomputed higher-precision ephemeris
// table: apparent Sun/Moon longitude at a Julian day, of the kind a
// JPL DE440/Swiss-Ephemeris-class binary kernel would be sampled down to
// for a deployment that wants more than series-level accuracy.
type EphemerisSample struct {
	JD            float64 `json:"jd"`
	SunLongitude  float64 `json:"sun_longitude"`
	MoonLongitude float64 `json:"moon_longitude"`
}

// defaultTableOrder is the Lagrange interpolation order used against a
// loaded sample table; the same order the donor's interpolation package
// recommended for planetary-position interpolation.
const defaultTableOrder = 5

// TableProvider is a higher-precision Provider implementation that
// interpolates apparent longitudes from a loaded table of precomputed
// samples instead of evaluating a truncated trigonometric series at query
// time. Any JSON file of EphemerisSample rows can back it, so it stands in
// for a binary ephemeris reader without this module carrying one.
type TableProvider struct {
	name    string
	version string
	path    string
	samples []EphemerisSample
	order   int
	startJD JulianDay
	endJD   JulianDay
}

// NewTableProviderFromFile loads an ephemeris sample table from path. The
// file must contain a JSON array of EphemerisSample rows; rows need not be
// pre-sorted. name/version identify the provider for health reporting and
// cache keys (e.g. "de440s").
func NewTableProviderFromFile(name, version, path string) (*TableProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ephemeris: failed to read table %q: %w", path, err)
	}

	var samples []EphemerisSample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("ephemeris: failed to parse table %q: %w", path, err)
	}
	if len(samples) < 2 {
		return nil, fmt.Errorf("ephemeris: table %q needs at least 2 samples, has %d", path, len(samples))
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i].JD < samples[j].JD })

	return &TableProvider{
		name:    name,
		version: version,
		path:    path,
		samples: samples,
		order:   defaultTableOrder,
		startJD: JulianDay(samples[0].JD),
		endJD:   JulianDay(samples[len(samples)-1].JD),
	}, nil
}

// ApparentSunLongitude interpolates the Sun's apparent ecliptic longitude.
func (p *TableProvider) ApparentSunLongitude(ctx context.Context, jd JulianDay) (float64, error) {
	return p.interpolate(jd, func(s EphemerisSample) float64 { return s.SunLongitude })
}

// ApparentMoonLongitude interpolates the Moon's apparent ecliptic longitude.
func (p *TableProvider) ApparentMoonLongitude(ctx context.Context, jd JulianDay) (float64, error) {
	return p.interpolate(jd, func(s EphemerisSample) float64 { return s.MoonLongitude })
}

// ApparentSunLongitudeMany is the vectorized form of ApparentSunLongitude.
func (p *TableProvider) ApparentSunLongitudeMany(ctx context.Context, jds []JulianDay) ([]float64, error) {
	out := make([]float64, len(jds))
	for i, jd := range jds {
		v, err := p.ApparentSunLongitude(ctx, jd)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ApparentMoonLongitudeMany is the vectorized form of ApparentMoonLongitude.
func (p *TableProvider) ApparentMoonLongitudeMany(ctx context.Context, jds []JulianDay) ([]float64, error) {
	out := make([]float64, len(jds))
	for i, jd := range jds {
		v, err := p.ApparentMoonLongitude(ctx, jd)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// SunriseSunset shares the series provider's hour-angle geometry, sourcing
// apparent solar longitude from the interpolated table instead of the
// trigonometric series.
func (p *TableProvider) SunriseSunset(ctx context.Context, day time.Time, tz string, lat, lon float64) (SunriseSunset, error) {
	return sunriseSunsetFromLongitude(day, tz, lat, lon, p.ApparentSunLongitude)
}

// IsAvailable reports whether a usable table is loaded.
func (p *TableProvider) IsAvailable(ctx context.Context) bool { return len(p.samples) >= 2 }

// GetDataRange returns the loaded table's Julian day coverage.
func (p *TableProvider) GetDataRange() (JulianDay, JulianDay) { return p.startJD, p.endJD }

// GetHealthStatus returns the table's coverage and loaded-path metadata.
func (p *TableProvider) GetHealthStatus(ctx context.Context) (*HealthStatus, error) {
	return &HealthStatus{
		Available:   p.IsAvailable(ctx),
		LastCheck:   time.Now(),
		DataStartJD: float64(p.startJD),
		DataEndJD:   float64(p.endJD),
		Version:     p.version,
		Source:      p.name,
	}, nil
}

// GetProviderName returns the provider's configured name.
func (p *TableProvider) GetProviderName() string { return p.name }

// GetVersion returns the provider's configured version.
func (p *TableProvider) GetVersion() string { return p.version }

// Close is a no-op; the loaded table is held entirely in memory.
func (p *TableProvider) Close() error { return nil }

// interpolate runs order-N Lagrange interpolation (N = p.order, clipped to
// the sample count) over the samples nearest jd, unwrapping longitude
// across the 0/360 seam before blending and renormalizing the result.
func (p *TableProvider) interpolate(jd JulianDay, value func(EphemerisSample) float64) (float64, error) {
	n := p.order
	if n > len(p.samples) {
		n = len(p.samples)
	}
	if n < 2 {
		return 0, fmt.Errorf("ephemeris: table %q has too few samples to interpolate", p.name)
	}

	lo := p.nearestIndex(jd) - n/2
	if lo < 0 {
		lo = 0
	}
	if lo+n > len(p.samples) {
		lo = len(p.samples) - n
	}
	window := p.samples[lo : lo+n]

	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, s := range window {
		xs[i] = s.JD
		v := value(s)
		if i > 0 {
			for v-ys[i-1] > 180 {
				v -= 360
			}
			for v-ys[i-1] < -180 {
				v += 360
			}
		}
		ys[i] = v
	}

	target := float64(jd)
	var result float64
	for j := 0; j < n; j++ {
		term := ys[j]
		for m := 0; m < n; m++ {
			if m != j {
				term *= (target - xs[m]) / (xs[j] - xs[m])
			}
		}
		result += term
	}

	return normDeg(result), nil
}

// nearestIndex returns the index of the sample whose JD is closest to jd.
func (p *TableProvider) nearestIndex(jd JulianDay) int {
	i := sort.Search(len(p.samples), func(i int) bool { return p.samples[i].JD >= float64(jd) })
	if i <= 0 {
		return 0
	}
	if i >= len(p.samples) {
		return len(p.samples) - 1
	}
	if float64(jd)-p.samples[i-1].JD < p.samples[i].JD-float64(jd) {
		return i - 1
	}
	return i
}
