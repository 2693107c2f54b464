package ephemeris

import (
	"context"
	"math"
	"time"
)

// SeriesProvider is a zero-dependency Provider implementation using
// truncated trigonometric series (VSOP87/ELP-2000-derived low-order terms)
// for the Sun's and Moon's apparent ecliptic longitude. It requires no
// external ephemeris files and is accurate to within a few arcminutes,
// which is ample margin for solar-term and new-moon boundary detection.
type SeriesProvider struct {
	version string
}

// NewSeriesProvider creates a new series-based ephemeris provider.
func NewSeriesProvider() *SeriesProvider {
	return &SeriesProvider{version: "series-1.0"}
}

// julianCenturiesSinceJ2000 converts a Julian day to Julian centuries since
// epoch J2000.0 (JD 2451545.0).
func julianCenturiesSinceJ2000(jd JulianDay) float64 {
	return (float64(jd) - 2451545.0) / 36525.0
}

func degToRad(d float64) float64 { return d * math.Pi / 180.0 }

func normDeg(d float64) float64 {
	d = math.Mod(d, 360.0)
	if d < 0 {
		d += 360.0
	}
	return d
}

// sunApparentLongitude computes the Sun's apparent ecliptic longitude in
// degrees using the low-order solar series (mean longitude + equation of
// center), including the nutation/aberration correction term.
func sunApparentLongitude(t float64) float64 {
	L := normDeg(280.4664567 + 36000.76982779*t + 0.0003032028*t*t)
	M := normDeg(357.5291092 + 35999.0502909*t - 0.0001536667*t*t)
	mRad := degToRad(M)

	c := (1.9146-0.004817*t-0.000014*t*t)*math.Sin(mRad) +
		(0.019993-0.000101*t)*math.Sin(2*mRad) +
		0.000290*math.Sin(3*mRad)

	trueLongitude := L + c

	omega := 125.04 - 1934.136*t
	apparentLongitude := trueLongitude - 0.00569 - 0.00478*math.Sin(degToRad(omega))

	return normDeg(apparentLongitude)
}

// moonApparentLongitude computes the Moon's apparent ecliptic longitude in
// degrees using the main ELP-2000-style periodic terms of mean longitude,
// mean anomaly, the Sun's mean anomaly, mean elongation, and argument of
// latitude.
func moonApparentLongitude(t float64) float64 {
	Lp := normDeg(218.3164477 + 481267.88123421*t - 0.0015786*t*t + t*t*t/538841.0 - t*t*t*t/65194000.0)
	D := normDeg(297.8501921 + 445267.1114034*t - 0.0018819*t*t + t*t*t/545868.0 - t*t*t*t/113065000.0)
	M := normDeg(357.5291092 + 35999.0502909*t - 0.0001536*t*t + t*t*t/24490000.0)
	Mp := normDeg(134.9633964 + 477198.8675055*t + 0.0087414*t*t + t*t*t/69699.0 - t*t*t*t/14712000.0)
	F := normDeg(93.2720950 + 483202.0175233*t - 0.0036539*t*t - t*t*t/3526000.0 + t*t*t*t/863310000.0)

	dRad := degToRad(D)
	mRad := degToRad(M)
	mpRad := degToRad(Mp)
	fRad := degToRad(F)

	deltaL := 6288.016*math.Sin(mpRad) +
		1274.0*math.Sin(2*dRad-mpRad) +
		658.314*math.Sin(2*dRad) +
		214.0*math.Sin(2*mpRad) -
		186.0*math.Sin(mRad) -
		114.0*math.Sin(2*fRad) +
		59.0*math.Sin(2*dRad-2*mpRad) +
		57.0*math.Sin(2*dRad-mRad-mpRad) +
		53.0*math.Sin(2*dRad+mpRad) +
		46.0*math.Sin(2*dRad-mRad) +
		38.0*math.Sin(mRad-mpRad) -
		35.0*math.Sin(dRad) -
		31.0*math.Sin(mRad+mpRad) -
		19.0*math.Sin(2*mpRad-2*dRad) +
		18.0*math.Sin(2*dRad+mRad-mpRad)

	longitude := Lp + deltaL/1000.0

	return normDeg(longitude)
}

// ApparentSunLongitude returns the Sun's apparent ecliptic longitude.
func (p *SeriesProvider) ApparentSunLongitude(ctx context.Context, jd JulianDay) (float64, error) {
	t := julianCenturiesSinceJ2000(jd)
	return sunApparentLongitude(t), nil
}

// ApparentMoonLongitude returns the Moon's apparent ecliptic longitude.
func (p *SeriesProvider) ApparentMoonLongitude(ctx context.Context, jd JulianDay) (float64, error) {
	t := julianCenturiesSinceJ2000(jd)
	return moonApparentLongitude(t), nil
}

// ApparentSunLongitudeMany computes batched Sun longitudes.
func (p *SeriesProvider) ApparentSunLongitudeMany(ctx context.Context, jds []JulianDay) ([]float64, error) {
	out := make([]float64, len(jds))
	for i, jd := range jds {
		out[i] = sunApparentLongitude(julianCenturiesSinceJ2000(jd))
	}
	return out, nil
}

// ApparentMoonLongitudeMany computes batched Moon longitudes.
func (p *SeriesProvider) ApparentMoonLongitudeMany(ctx context.Context, jds []JulianDay) ([]float64, error) {
	out := make([]float64, len(jds))
	for i, jd := range jds {
		out[i] = moonApparentLongitude(julianCenturiesSinceJ2000(jd))
	}
	return out, nil
}

// SunriseSunset computes sunrise and sunset for the given local calendar
// day at (lat, lon) using the standard hour-angle formula against the
// series-derived solar declination, with solar noon corrected for the
// equation of time in a single pass.
func (p *SeriesProvider) SunriseSunset(ctx context.Context, day time.Time, tz string, lat, lon float64) (SunriseSunset, error) {
	return sunriseSunsetFromLongitude(day, tz, lat, lon, func(jd JulianDay) (float64, error) {
		return sunApparentLongitude(julianCenturiesSinceJ2000(jd)), nil
	})
}

// sunriseSunsetFromLongitude computes sunrise/sunset for a local calendar
// day at (lat, lon) using the standard hour-angle formula, sourcing
// apparent solar longitude from sunLonAt so both the series and table
// providers share one geometry implementation.
func sunriseSunsetFromLongitude(day time.Time, tz string, lat, lon float64, sunLonAt func(JulianDay) (float64, error)) (SunriseSunset, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	localMidnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	noonUTC := localMidnight.Add(12 * time.Hour).UTC()
	jdNoon := TimeToJulianDay(noonUTC)
	t := julianCenturiesSinceJ2000(jdNoon)

	sunLon, err := sunLonAt(jdNoon)
	if err != nil {
		return SunriseSunset{}, err
	}

	eps := 23.439291 - 0.0130042*t
	decl := math.Asin(math.Sin(degToRad(eps)) * math.Sin(degToRad(sunLon)))

	latRad := degToRad(lat)
	cosH := (math.Sin(degToRad(-0.8333)) - math.Sin(latRad)*math.Sin(decl)) /
		(math.Cos(latRad) * math.Cos(decl))

	if cosH > 1 || cosH < -1 {
		// Polar day (cosH < -1) or polar night (cosH > 1): no sunrise/sunset.
		return SunriseSunset{}, nil
	}

	hourAngle := math.Acos(cosH) * 180.0 / math.Pi

	L0 := normDeg(280.46646 + 36000.76983*t)
	ra := normDeg(math.Atan2(math.Cos(degToRad(eps))*math.Sin(degToRad(sunLon)), math.Cos(degToRad(sunLon))) * 180.0 / math.Pi)
	eqDeg := normDeg(L0 - 0.0057183 - ra)
	if eqDeg > 180 {
		eqDeg -= 360
	}
	eqTime := 4 * eqDeg // minutes, approximate

	solarNoonUTC := 12.0 - lon/15.0 - eqTime/60.0
	sunriseUTCHours := solarNoonUTC - hourAngle/15.0
	sunsetUTCHours := solarNoonUTC + hourAngle/15.0

	base := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	sunrise := base.Add(time.Duration(sunriseUTCHours * float64(time.Hour)))
	sunset := base.Add(time.Duration(sunsetUTCHours * float64(time.Hour)))

	return SunriseSunset{Sunrise: &sunrise, Sunset: &sunset}, nil
}

// IsAvailable always returns true; the series provider has no external
// dependency that can go offline.
func (p *SeriesProvider) IsAvailable(ctx context.Context) bool {
	return true
}

// GetDataRange returns a generous validity range; the truncated series
// degrades gracefully (accuracy loss, not failure) far outside this window.
func (p *SeriesProvider) GetDataRange() (JulianDay, JulianDay) {
	return JulianDay(2305447.5), JulianDay(2597446.5) // roughly 1600-2400 CE
}

// GetHealthStatus returns a static healthy status.
func (p *SeriesProvider) GetHealthStatus(ctx context.Context) (*HealthStatus, error) {
	startJD, endJD := p.GetDataRange()
	return &HealthStatus{
		Available:   true,
		LastCheck:   time.Now(),
		DataStartJD: float64(startJD),
		DataEndJD:   float64(endJD),
		Version:     p.version,
		Source:      p.GetProviderName(),
	}, nil
}

// GetProviderName returns the provider's name.
func (p *SeriesProvider) GetProviderName() string {
	return "series"
}

// GetVersion returns the ephemeris series version.
func (p *SeriesProvider) GetVersion() string {
	return p.version
}

// Close is a no-op; the series provider holds no external resources.
func (p *SeriesProvider) Close() error {
	return nil
}
