// Package astrometry turns fixed J2000 grid samples into apparent positions for an
// observer on the ground.
//
// Precession follows the IAU 1976 model (Lieske et al.). It is the only correction
// applied: positions are mean place of date. Nutation and annual aberration are left
// out; together they stay under an arcminute, far below the grid spacing. Altitude is
// geometric, with no atmospheric refraction.
//
// The topocentric step reuses go-satellite's ECI look-angle reduction by placing the
// sample far enough away that the observer's offset from the geocentre no longer matters.
package astrometry

import (
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/skyscope/skyscope/internal/models"
)

const (
	// J2000 is the Julian date of the J2000.0 epoch.
	J2000 = 2451545.0
	// B1875 is the Julian date of the Besselian epoch B1875.0 used by the IAU boundary table.
	B1875 = 2405889.258550475

	// distance in km at which a grid sample is placed; parallax at this range is ~1e-9 rad
	farField = 1e12

	deg2rad    = math.Pi / 180
	rad2deg    = 180 / math.Pi
	arcsec2rad = deg2rad / 3600
)

// Provider computes apparent positions. The zero value is ready to use.
type Provider struct{}

// New returns a Provider
func New() *Provider {
	return &Provider{}
}

// Apparent precesses sample to the mean equinox of the observer's instant and
// reduces it to altitude/azimuth at the observer's location. Despite the name the
// result is a mean place; see the package doc for the corrections left out.
func (p *Provider) Apparent(observer models.ObserverPosition, sample models.CelestialSample) models.ApparentPosition {
	jd := JulianDate(observer.Timestamp)
	ra, dec := Precess(sample.RightAscensionHours, sample.DeclinationDegrees, J2000, jd)

	v := unitVector(ra, dec)
	eci := satellite.Vector3{X: v[0] * farField, Y: v[1] * farField, Z: v[2] * farField}
	site := satellite.LatLong{
		Latitude:  observer.Latitude * deg2rad,
		Longitude: observer.Longitude * deg2rad,
	}
	look := satellite.ECIToLookAngles(eci, site, 0, jd)

	return models.ApparentPosition{
		RightAscensionHours: ra,
		DeclinationDegrees:  dec,
		AltitudeDegrees:     look.El * rad2deg,
		AzimuthDegrees:      look.Az * rad2deg,
		JulianDate:          jd,
	}
}

// JulianDate converts t (any zone) to a UT Julian date with sub-second precision.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	return jd + float64(t.Nanosecond())/86400e9
}

// Precess moves equatorial coordinates from the mean equinox of fromJD to that of toJD.
// Right ascension is in hours, normalized to [0, 24); declination in degrees.
func Precess(raHours, decDeg, fromJD, toJD float64) (float64, float64) {
	v := unitVector(raHours, decDeg)
	if fromJD != J2000 {
		v = precessionMatrix(fromJD).transposeApply(v)
	}
	if toJD != J2000 {
		v = precessionMatrix(toJD).apply(v)
	}
	return spherical(v)
}

type matrix [3][3]float64

// precessionMatrix rotates J2000 mean coordinates to the mean equinox of jd.
func precessionMatrix(jd float64) matrix {
	t := (jd - J2000) / 36525
	t2, t3 := t*t, t*t*t

	zeta := (2306.2181*t + 0.30188*t2 + 0.017998*t3) * arcsec2rad
	z := (2306.2181*t + 1.09468*t2 + 0.018203*t3) * arcsec2rad
	theta := (2004.3109*t - 0.42665*t2 - 0.041833*t3) * arcsec2rad

	cZeta, sZeta := math.Cos(zeta), math.Sin(zeta)
	cZ, sZ := math.Cos(z), math.Sin(z)
	cTheta, sTheta := math.Cos(theta), math.Sin(theta)

	return matrix{
		{cZeta*cTheta*cZ - sZeta*sZ, -sZeta*cTheta*cZ - cZeta*sZ, -sTheta * cZ},
		{cZeta*cTheta*sZ + sZeta*cZ, -sZeta*cTheta*sZ + cZeta*cZ, -sTheta * sZ},
		{cZeta * sTheta, -sZeta * sTheta, cTheta},
	}
}

func (m matrix) apply(v [3]float64) [3]float64 {
	var out [3]float64
	for i := 0; i < 3; i++ {
		out[i] = m[i][0]*v[0] + m[i][1]*v[1] + m[i][2]*v[2]
	}
	return out
}

func (m matrix) transposeApply(v [3]float64) [3]float64 {
	var out [3]float64
	for i := 0; i < 3; i++ {
		out[i] = m[0][i]*v[0] + m[1][i]*v[1] + m[2][i]*v[2]
	}
	return out
}

func unitVector(raHours, decDeg float64) [3]float64 {
	ra := raHours * 15 * deg2rad
	dec := decDeg * deg2rad
	return [3]float64{
		math.Cos(dec) * math.Cos(ra),
		math.Cos(dec) * math.Sin(ra),
		math.Sin(dec),
	}
}

func spherical(v [3]float64) (float64, float64) {
	ra := math.Atan2(v[1], v[0]) * rad2deg / 15
	if ra < 0 {
		ra += 24
	}
	if ra >= 24 {
		ra -= 24
	}
	z := math.Max(-1, math.Min(1, v[2]))
	return ra, math.Asin(z) * rad2deg
}
