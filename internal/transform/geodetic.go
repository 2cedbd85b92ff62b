// Package transform turns inertial Cartesian state-vector positions into
// ground latitude/longitude/altitude.
//
// The chain is: parse the record's day-of-year epoch, compute GMST at that
// instant, rotate the J2000 position about the polar axis into the
// Earth-fixed frame, then solve the WGS-84 ellipsoid for geodetic
// coordinates. All distances are kilometers, matching the feed.
package transform

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ni-da-ba/iss-tracker/internal/epoch"
)

// ErrTransform indicates a position that cannot be expressed in geodetic
// coordinates: an unparseable epoch, a non-finite component, or a point on
// the polar axis (where longitude is undefined).
var ErrTransform = errors.New("geodetic transform failed")

// WGS-84 ellipsoid, in kilometers.
const (
	wgs84A  = 6378.137              // semi-major axis
	wgs84F  = 1.0 / 298.257223563   // flattening
	wgs84E2 = wgs84F * (2 - wgs84F) // first eccentricity squared
)

// Latitude iteration bounds. Bowring-style iteration converges in 2-3 rounds
// for any Earth orbit; the cap guarantees termination regardless of input.
const (
	latTolerance  = 1e-12 // radians
	maxIterations = 10
)

// Geodetic is a ground position relative to the WGS-84 ellipsoid.
type Geodetic struct {
	LatDeg float64 `json:"latitude_deg"`
	LonDeg float64 `json:"longitude_deg"`
	AltKm  float64 `json:"altitude_km"`
}

// ToGeodetic converts an inertial position (km) stamped with a day-of-year
// epoch into geodetic coordinates.
func ToGeodetic(x, y, z float64, epochStr string) (Geodetic, error) {
	t, err := epoch.ParseDataset(epochStr)
	if err != nil {
		return Geodetic{}, fmt.Errorf("%w: %v", ErrTransform, err)
	}
	return ToGeodeticAt(x, y, z, t)
}

// ToGeodeticAt is ToGeodetic with an already-parsed epoch.
func ToGeodeticAt(x, y, z float64, t time.Time) (Geodetic, error) {
	if !finite(x) || !finite(y) || !finite(z) {
		return Geodetic{}, fmt.Errorf("%w: non-finite position component", ErrTransform)
	}

	// Rotate the inertial frame into the Earth-fixed frame: R3(θ) with
	// θ = GMST. Z is the rotation axis and passes through unchanged.
	theta := gmst(t)
	sinT, cosT := math.Sin(theta), math.Cos(theta)
	xe := x*cosT + y*sinT
	ye := -x*sinT + y*cosT
	ze := z

	p := math.Hypot(xe, ye)
	if p == 0 {
		return Geodetic{}, fmt.Errorf("%w: position on polar axis, longitude undefined", ErrTransform)
	}
	lon := math.Atan2(ye, xe)

	// Successive approximation on geodetic latitude.
	lat := math.Atan2(ze, p*(1-wgs84E2))
	for i := 0; i < maxIterations; i++ {
		sinLat := math.Sin(lat)
		n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		next := math.Atan2(ze+wgs84E2*n*sinLat, p)
		if math.Abs(next-lat) < latTolerance {
			lat = next
			break
		}
		lat = next
	}

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	// Altitude from the normal distance; near the poles cosLat degenerates,
	// so fall back to the polar form.
	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = p/cosLat - n
	} else {
		alt = math.Abs(ze)/math.Abs(sinLat) - n*(1-wgs84E2)
	}

	return Geodetic{
		LatDeg: lat * 180.0 / math.Pi,
		LonDeg: lon * 180.0 / math.Pi,
		AltKm:  alt,
	}, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
