package lunisolar

import (
	"context"
	"testing"
	"time"

	"github.com/amaranthustech/jcal/astronomy/ephemeris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name   string
	closed bool
}

func (p *stubProvider) ApparentSunLongitude(ctx context.Context, jd ephemeris.JulianDay) (float64, error) {
	return 0, nil
}
func (p *stubProvider) ApparentMoonLongitude(ctx context.Context, jd ephemeris.JulianDay) (float64, error) {
	return 0, nil
}
func (p *stubProvider) ApparentSunLongitudeMany(ctx context.Context, jds []ephemeris.JulianDay) ([]float64, error) {
	return nil, nil
}
func (p *stubProvider) ApparentMoonLongitudeMany(ctx context.Context, jds []ephemeris.JulianDay) ([]float64, error) {
	return nil, nil
}
func (p *stubProvider) SunriseSunset(ctx context.Context, day time.Time, tz string, lat, lon float64) (ephemeris.SunriseSunset, error) {
	return ephemeris.SunriseSunset{}, nil
}
func (p *stubProvider) IsAvailable(ctx context.Context) bool { return true }
func (p *stubProvider) GetDataRange() (ephemeris.JulianDay, ephemeris.JulianDay) {
	return 0, 0
}
func (p *stubProvider) GetHealthStatus(ctx context.Context) (*ephemeris.HealthStatus, error) {
	return &ephemeris.HealthStatus{Available: true}, nil
}
func (p *stubProvider) GetProviderName() string { return p.name }
func (p *stubProvider) GetVersion() string       { return "stub-1.0" }
func (p *stubProvider) Close() error             { p.closed = true; return nil }

func TestProviderRegistryResolveCaches(t *testing.T) {
	calls := 0
	registry := NewProviderRegistry(4, func(spec ProviderSpec) (ephemeris.Provider, error) {
		calls++
		return &stubProvider{name: spec.Name}, nil
	})

	p1, err := registry.Resolve(ProviderSpec{Name: "series"})
	require.NoError(t, err)
	p2, err := registry.Resolve(ProviderSpec{Name: "series"})
	require.NoError(t, err)

	assert.Same(t, p1, p2)
	assert.Equal(t, 1, calls)
}

func TestProviderRegistryEvictsOldestAtCapacity(t *testing.T) {
	registry := NewProviderRegistry(2, func(spec ProviderSpec) (ephemeris.Provider, error) {
		return &stubProvider{name: spec.Name}, nil
	})

	_, _ = registry.Resolve(ProviderSpec{Name: "a"})
	_, _ = registry.Resolve(ProviderSpec{Name: "b"})
	_, _ = registry.Resolve(ProviderSpec{Name: "c"})

	assert.Equal(t, 2, registry.Len())
}

func TestProviderRegistryEvict(t *testing.T) {
	registry := NewProviderRegistry(4, func(spec ProviderSpec) (ephemeris.Provider, error) {
		return &stubProvider{name: spec.Name}, nil
	})

	p, _ := registry.Resolve(ProviderSpec{Name: "a"})
	registry.Evict(ProviderSpec{Name: "a"})

	assert.Equal(t, 0, registry.Len())
	assert.True(t, p.(*stubProvider).closed)
}
