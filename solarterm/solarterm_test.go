package solarterm

import (
	"context"
	"testing"
	"time"

	"github.com/amaranthustech/jcal/angle"
	"github.com/amaranthustech/jcal/astronomy/ephemeris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// linearSunProvider is a Provider stub whose apparent solar longitude
// advances linearly with time, letting tests pin down crossings exactly.
type linearSunProvider struct {
	epoch        time.Time
	degPerDay    float64
}

func (p *linearSunProvider) ApparentSunLongitude(ctx context.Context, jd ephemeris.JulianDay) (float64, error) {
	t := ephemeris.JulianDayToTime(jd)
	days := t.Sub(p.epoch).Hours() / 24.0
	return angle.Norm360(days * p.degPerDay), nil
}
func (p *linearSunProvider) ApparentMoonLongitude(ctx context.Context, jd ephemeris.JulianDay) (float64, error) {
	return 0, nil
}
func (p *linearSunProvider) ApparentSunLongitudeMany(ctx context.Context, jds []ephemeris.JulianDay) ([]float64, error) {
	out := make([]float64, len(jds))
	for i, jd := range jds {
		out[i], _ = p.ApparentSunLongitude(ctx, jd)
	}
	return out, nil
}
func (p *linearSunProvider) ApparentMoonLongitudeMany(ctx context.Context, jds []ephemeris.JulianDay) ([]float64, error) {
	return make([]float64, len(jds)), nil
}
func (p *linearSunProvider) SunriseSunset(ctx context.Context, day time.Time, tz string, lat, lon float64) (ephemeris.SunriseSunset, error) {
	return ephemeris.SunriseSunset{}, nil
}
func (p *linearSunProvider) IsAvailable(ctx context.Context) bool          { return true }
func (p *linearSunProvider) GetDataRange() (ephemeris.JulianDay, ephemeris.JulianDay) { return 0, 1e9 }
func (p *linearSunProvider) GetHealthStatus(ctx context.Context) (*ephemeris.HealthStatus, error) {
	return &ephemeris.HealthStatus{Available: true}, nil
}
func (p *linearSunProvider) GetProviderName() string { return "linear-test" }
func (p *linearSunProvider) GetVersion() string      { return "test-1.0" }
func (p *linearSunProvider) Close() error            { return nil }

func TestSolarLongitudeCrossingsFindsSingleCrossing(t *testing.T) {
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	provider := &linearSunProvider{epoch: epoch, degPerDay: 1.0} // 360 deg in 360 days

	start := epoch
	end := epoch.AddDate(0, 0, 100)

	crossings, err := SolarLongitudeCrossings(context.Background(), provider, start, end, 50.0, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, crossings, 1)

	expected := epoch.AddDate(0, 0, 50)
	assert.WithinDuration(t, expected, crossings[0], time.Minute)
}

func TestSolarLongitudeCrossingsHandlesSeam(t *testing.T) {
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	provider := &linearSunProvider{epoch: epoch, degPerDay: 1.0}

	start := epoch.AddDate(0, 0, 350)
	end := epoch.AddDate(0, 0, 370)

	crossings, err := SolarLongitudeCrossings(context.Background(), provider, start, end, 0.0, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, crossings, 1)

	expected := epoch.AddDate(0, 0, 360)
	assert.WithinDuration(t, expected, crossings[0], time.Minute)
}

func TestPrincipalTermsBetweenReturnsTwelve(t *testing.T) {
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	provider := &linearSunProvider{epoch: epoch, degPerDay: 360.0 / 365.25}

	start := epoch
	end := epoch.AddDate(0, 0, 365)

	terms, err := PrincipalTermsBetween(context.Background(), provider, start, end, DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, terms, 12)
}

func TestSekki24BetweenReturnsTwentyFour(t *testing.T) {
	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	provider := &linearSunProvider{epoch: epoch, degPerDay: 360.0 / 365.25}

	start := epoch
	end := epoch.AddDate(0, 0, 365)

	terms, err := Sekki24Between(context.Background(), provider, start, end, DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, terms, 24)
}
