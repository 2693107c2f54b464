// Package ephemeris defines the astronomy provider capability set the
// lunisolar core depends on (apparent solar/lunar longitude, sunrise/sunset),
// and a Manager that composes a primary and fallback provider behind a
// shared TTL cache and background health checker.
package ephemeris

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/amaranthustech/jcal/observability"
	"go.opentelemetry.io/otel/attribute"
)

// JulianDay represents a Julian day number.
type JulianDay float64

// EphemerisOutOfRangeError is returned when a requested instant falls
// outside every available provider's loaded coverage window.
type EphemerisOutOfRangeError struct {
	JD             JulianDay
	ProviderName   string
	StartJD, EndJD JulianDay
}

func (e *EphemerisOutOfRangeError) Error() string {
	return fmt.Sprintf("ephemeris: julian day %f outside %s coverage [%f, %f]", e.JD, e.ProviderName, e.StartJD, e.EndJD)
}

// SunriseSunset holds the UTC instants of sunrise and sunset for a local day;
// either may be absent (polar day/night).
type SunriseSunset struct {
	Sunrise *time.Time `json:"sunrise,omitempty"`
	Sunset  *time.Time `json:"sunset,omitempty"`
}

// HealthStatus represents the health status of an ephemeris provider.
type HealthStatus struct {
	Available    bool          `json:"available"`
	LastCheck    time.Time     `json:"last_check"`
	DataStartJD  float64       `json:"data_start_jd"`
	DataEndJD    float64       `json:"data_end_jd"`
	ResponseTime time.Duration `json:"response_time"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Version      string        `json:"version,omitempty"`
	Source       string        `json:"source,omitempty"`
}

// Provider is the astronomy capability set the lunisolar core depends on.
// Any binary ephemeris implementation (or, by default, a truncated
// trigonometric series) satisfies this interface.
type Provider interface {
	// ApparentSunLongitude returns the Sun's apparent ecliptic longitude in
	// degrees, normalized to [0, 360), at the given instant.
	ApparentSunLongitude(ctx context.Context, jd JulianDay) (float64, error)

	// ApparentMoonLongitude returns the Moon's apparent ecliptic longitude
	// in degrees, normalized to [0, 360), at the given instant.
	ApparentMoonLongitude(ctx context.Context, jd JulianDay) (float64, error)

	// ApparentSunLongitudeMany is the vectorized form of ApparentSunLongitude.
	ApparentSunLongitudeMany(ctx context.Context, jds []JulianDay) ([]float64, error)

	// ApparentMoonLongitudeMany is the vectorized form of ApparentMoonLongitude.
	ApparentMoonLongitudeMany(ctx context.Context, jds []JulianDay) ([]float64, error)

	// SunriseSunset returns sunrise/sunset for the given local calendar day
	// at (lat, lon), in the named IANA timezone.
	SunriseSunset(ctx context.Context, day time.Time, tz string, lat, lon float64) (SunriseSunset, error)

	// IsAvailable reports whether the provider can currently serve requests.
	IsAvailable(ctx context.Context) bool

	// GetDataRange returns the valid Julian day coverage for this provider.
	GetDataRange() (startJD, endJD JulianDay)

	// GetHealthStatus returns the current health status.
	GetHealthStatus(ctx context.Context) (*HealthStatus, error)

	// GetProviderName returns the name of the provider.
	GetProviderName() string

	// GetVersion returns the version of the ephemeris data.
	GetVersion() string

	// Close releases any resources held by the provider.
	Close() error
}

// Manager composes a primary and fallback Provider behind a shared cache and
// background health checker. Manager itself satisfies Provider, so it can
// be handed to the lunisolar core or the HTTP gateway wherever a plain
// Provider is expected, with failover and caching transparent to the
// caller.
var _ Provider = (*Manager)(nil)

type Manager struct {
	primary       Provider
	fallback      Provider
	cache         Cache
	observer      observability.ObserverInterface
	healthChecker *HealthChecker
}

// NewManager creates a new ephemeris manager.
func NewManager(primary, fallback Provider, cache Cache) *Manager {
	m := &Manager{
		primary:  primary,
		fallback: fallback,
		cache:    cache,
		observer: observability.Observer(),
	}
	m.healthChecker = NewHealthChecker([]Provider{primary, fallback})
	m.healthChecker.Start()
	return m
}

// ApparentSunLongitude retrieves the Sun's apparent longitude with caching
// and primary/fallback failover.
func (m *Manager) ApparentSunLongitude(ctx context.Context, jd JulianDay) (float64, error) {
	return m.scalar(ctx, "sun_longitude", jd, func(p Provider) (float64, error) {
		return p.ApparentSunLongitude(ctx, jd)
	})
}

// ApparentMoonLongitude retrieves the Moon's apparent longitude with caching
// and primary/fallback failover.
func (m *Manager) ApparentMoonLongitude(ctx context.Context, jd JulianDay) (float64, error) {
	return m.scalar(ctx, "moon_longitude", jd, func(p Provider) (float64, error) {
		return p.ApparentMoonLongitude(ctx, jd)
	})
}

// ApparentSunLongitudeMany retrieves batched Sun longitudes via the primary
// provider, falling back to the fallback provider on failure. Batch results
// are not individually cached; callers that need caching should use the
// scalar form.
func (m *Manager) ApparentSunLongitudeMany(ctx context.Context, jds []JulianDay) ([]float64, error) {
	return m.batch(ctx, "sun_longitude_many", jds, func(p Provider) ([]float64, error) {
		return p.ApparentSunLongitudeMany(ctx, jds)
	})
}

// ApparentMoonLongitudeMany retrieves batched Moon longitudes via the
// primary provider, falling back on failure.
func (m *Manager) ApparentMoonLongitudeMany(ctx context.Context, jds []JulianDay) ([]float64, error) {
	return m.batch(ctx, "moon_longitude_many", jds, func(p Provider) ([]float64, error) {
		return p.ApparentMoonLongitudeMany(ctx, jds)
	})
}

// SunriseSunset retrieves sunrise/sunset with primary/fallback failover.
func (m *Manager) SunriseSunset(ctx context.Context, day time.Time, tz string, lat, lon float64) (SunriseSunset, error) {
	ctx, span := m.observer.CreateSpan(ctx, "ephemeris.SunriseSunset")
	defer span.End()

	span.SetAttributes(
		attribute.String("day", day.Format("2006-01-02")),
		attribute.String("tz", tz),
		attribute.Float64("lat", lat),
		attribute.Float64("lon", lon),
	)

	result, err := m.tryProvider(ctx, m.primary, "primary", func(p Provider) (interface{}, error) {
		return p.SunriseSunset(ctx, day, tz, lat, lon)
	})
	if err != nil {
		result, err = m.tryProvider(ctx, m.fallback, "fallback", func(p Provider) (interface{}, error) {
			return p.SunriseSunset(ctx, day, tz, lat, lon)
		})
	}
	if err != nil {
		span.RecordError(err)
		return SunriseSunset{}, fmt.Errorf("sunrise/sunset unavailable from all providers: %w", err)
	}
	return result.(SunriseSunset), nil
}

func (m *Manager) scalar(ctx context.Context, op string, jd JulianDay, call func(Provider) (float64, error)) (float64, error) {
	ctx, span := m.observer.CreateSpan(ctx, "ephemeris."+op)
	defer span.End()

	span.SetAttributes(
		attribute.Float64("julian_day", float64(jd)),
		attribute.String("operation", op),
	)

	cacheKey := fmt.Sprintf("%s_%f", op, jd)
	if cached, found := m.cache.Get(ctx, cacheKey); found {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		if v, ok := cached.(float64); ok {
			return v, nil
		}
	}
	span.SetAttributes(attribute.Bool("cache_hit", false))

	if outOfRange, rangeErr := m.checkCoverage(jd); outOfRange {
		span.RecordError(rangeErr)
		span.SetAttributes(attribute.Bool("success", false))
		return 0, rangeErr
	}

	result, err := m.tryProvider(ctx, m.primary, "primary", func(p Provider) (interface{}, error) {
		return call(p)
	})
	if err != nil {
		span.AddEvent("primary provider failed, trying fallback")
		result, err = m.tryProvider(ctx, m.fallback, "fallback", func(p Provider) (interface{}, error) {
			return call(p)
		})
	}
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return 0, fmt.Errorf("%s unavailable from all providers: %w", op, err)
	}

	value := result.(float64)
	m.cache.Set(ctx, cacheKey, value, time.Hour)
	span.SetAttributes(attribute.Bool("success", true), attribute.Float64("value", value))
	return value, nil
}

func (m *Manager) batch(ctx context.Context, op string, jds []JulianDay, call func(Provider) ([]float64, error)) ([]float64, error) {
	ctx, span := m.observer.CreateSpan(ctx, "ephemeris."+op)
	defer span.End()
	span.SetAttributes(attribute.Int("count", len(jds)))

	result, err := m.tryProvider(ctx, m.primary, "primary", func(p Provider) (interface{}, error) {
		return call(p)
	})
	if err != nil {
		result, err = m.tryProvider(ctx, m.fallback, "fallback", func(p Provider) (interface{}, error) {
			return call(p)
		})
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%s unavailable from all providers: %w", op, err)
	}
	return result.([]float64), nil
}

// checkCoverage reports whether jd falls outside every configured
// provider's declared coverage window. A provider declaring an empty or
// unbounded range (start >= end) is treated as covering everything.
func (m *Manager) checkCoverage(jd JulianDay) (bool, *EphemerisOutOfRangeError) {
	providers := []struct {
		p    Provider
		name string
	}{{m.primary, "primary"}, {m.fallback, "fallback"}}

	var lastErr *EphemerisOutOfRangeError
	checked := 0
	for _, entry := range providers {
		if entry.p == nil {
			continue
		}
		start, end := entry.p.GetDataRange()
		if start >= end {
			return false, nil
		}
		checked++
		if jd < start || jd > end {
			lastErr = &EphemerisOutOfRangeError{JD: jd, ProviderName: entry.name, StartJD: start, EndJD: end}
			continue
		}
		return false, nil
	}
	if checked == 0 {
		return false, nil
	}
	return lastErr != nil, lastErr
}

// tryProvider attempts an operation on a provider with span-level
// observability, matching the instrumented-failover idiom used throughout
// this package.
func (m *Manager) tryProvider(ctx context.Context, provider Provider, providerType string, operation func(Provider) (interface{}, error)) (interface{}, error) {
	if provider == nil {
		return nil, fmt.Errorf("%s provider is nil", providerType)
	}

	ctx, span := m.observer.CreateSpan(ctx, fmt.Sprintf("ephemeris.try_%s_provider", providerType))
	defer span.End()

	span.SetAttributes(
		attribute.String("provider_type", providerType),
		attribute.String("provider_name", provider.GetProviderName()),
		attribute.String("provider_version", provider.GetVersion()),
	)

	start := time.Now()
	result, err := operation(provider)
	duration := time.Since(start)

	span.SetAttributes(
		attribute.Int64("response_time_ms", duration.Milliseconds()),
		attribute.Bool("success", err == nil),
	)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result, nil
}

// GetHealthStatuses returns the health status of all configured providers,
// keyed "primary"/"fallback".
func (m *Manager) GetHealthStatuses(ctx context.Context) (map[string]*HealthStatus, error) {
	ctx, span := m.observer.CreateSpan(ctx, "ephemeris.GetHealthStatuses")
	defer span.End()

	status := make(map[string]*HealthStatus)
	if m.primary != nil {
		if health, err := m.primary.GetHealthStatus(ctx); err == nil {
			status["primary"] = health
		}
	}
	if m.fallback != nil {
		if health, err := m.fallback.GetHealthStatus(ctx); err == nil {
			status["fallback"] = health
		}
	}
	span.SetAttributes(attribute.Int("provider_count", len(status)))
	return status, nil
}

// GetHealthStatus satisfies Provider by reporting the primary provider's
// health, falling back to the fallback provider's if the primary errors.
// Callers that want both providers' status should use GetHealthStatuses.
func (m *Manager) GetHealthStatus(ctx context.Context) (*HealthStatus, error) {
	if m.primary != nil {
		if health, err := m.primary.GetHealthStatus(ctx); err == nil {
			return health, nil
		}
	}
	if m.fallback != nil {
		return m.fallback.GetHealthStatus(ctx)
	}
	return nil, fmt.Errorf("ephemeris: manager has no providers configured")
}

// IsAvailable reports whether the primary or fallback provider can
// currently serve requests.
func (m *Manager) IsAvailable(ctx context.Context) bool {
	if m.primary != nil && m.primary.IsAvailable(ctx) {
		return true
	}
	return m.fallback != nil && m.fallback.IsAvailable(ctx)
}

// GetDataRange returns the primary provider's coverage window, or the
// fallback's if there is no primary.
func (m *Manager) GetDataRange() (JulianDay, JulianDay) {
	if m.primary != nil {
		return m.primary.GetDataRange()
	}
	if m.fallback != nil {
		return m.fallback.GetDataRange()
	}
	return 0, 0
}

// GetProviderName reports the primary provider's name.
func (m *Manager) GetProviderName() string {
	if m.primary != nil {
		return m.primary.GetProviderName()
	}
	return "manager"
}

// GetVersion reports the primary provider's version.
func (m *Manager) GetVersion() string {
	if m.primary != nil {
		return m.primary.GetVersion()
	}
	return ""
}

// Close closes all providers and releases resources.
func (m *Manager) Close() error {
	var errs []error
	if m.primary != nil {
		if err := m.primary.Close(); err != nil {
			errs = append(errs, fmt.Errorf("primary provider close error: %w", err))
		}
	}
	if m.fallback != nil {
		if err := m.fallback.Close(); err != nil {
			errs = append(errs, fmt.Errorf("fallback provider close error: %w", err))
		}
	}
	if m.cache != nil {
		if err := m.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache close error: %w", err))
		}
	}
	if m.healthChecker != nil {
		m.healthChecker.Stop()
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}

// TimeToJulianDay converts a time.Time to a Julian day number.
func TimeToJulianDay(t time.Time) JulianDay {
	utc := t.UTC()
	year := utc.Year()
	month := int(utc.Month())
	day := utc.Day()

	if month <= 2 {
		year--
		month += 12
	}

	a := year / 100
	b := 2 - a + a/4

	jd := math.Floor(365.25*float64(year+4716)) +
		math.Floor(30.6001*float64(month+1)) +
		float64(day) + float64(b) - 1524.5

	hour := float64(utc.Hour())
	minute := float64(utc.Minute())
	second := float64(utc.Second())
	jd += hour/24.0 + minute/1440.0 + second/86400.0

	return JulianDay(jd)
}

// JulianDayToTime converts a Julian day number to a time.Time in UTC.
func JulianDayToTime(jd JulianDay) time.Time {
	z := math.Floor(float64(jd) + 0.5)
	f := float64(jd) + 0.5 - z

	var a float64
	if z < 2299161 {
		a = z
	} else {
		alpha := math.Floor((z - 1867216.25) / 36524.25)
		a = z + 1 + alpha - math.Floor(alpha/4)
	}

	b := a + 1524
	c := math.Floor((b - 122.1) / 365.25)
	d := math.Floor(365.25 * c)
	e := math.Floor((b - d) / 30.6001)

	day := int(b - d - math.Floor(30.6001*e) + f)
	var month int
	if e < 14 {
		month = int(e - 1)
	} else {
		month = int(e - 13)
	}

	var year int
	if month > 2 {
		year = int(c - 4716)
	} else {
		year = int(c - 4715)
	}

	hours := f * 24
	hour := int(hours)
	minutes := (hours - float64(hour)) * 60
	minute := int(minutes)
	seconds := (minutes - float64(minute)) * 60
	second := int(seconds)
	nanosecond := int((seconds - float64(second)) * 1e9)

	return time.Date(year, time.Month(month), day, hour, minute, second, nanosecond, time.UTC)
}
