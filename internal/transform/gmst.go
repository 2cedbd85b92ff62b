package transform

import (
	"math"
	"time"
)

// j2000 is the Julian Date of the J2000.0 reference epoch.
const j2000 = 2451545.0

// julianDate converts a UTC time to Julian Date using the standard
// astronomical algorithm (valid for every date this feed can carry).
func julianDate(t time.Time) float64 {
	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())
	h := float64(t.Hour())
	min := float64(t.Minute())
	s := float64(t.Second()) + float64(t.Nanosecond())/1e9

	// January and February count as months 13/14 of the previous year.
	if m <= 2 {
		y -= 1
		m += 12
	}

	a := math.Floor(y / 100)
	b := 2 - a + math.Floor(a/4)

	jd := math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + b - 1524.5
	jd += (h + min/60.0 + s/3600.0) / 24.0

	return jd
}

// gmst returns Greenwich Mean Sidereal Time in radians at the given UTC
// instant, per the IAU-82 model (Vallado Eq 3-47). This is the rotation angle
// between the feed's inertial frame and the Earth-fixed frame, and the only
// Earth-orientation term the service models: precession, nutation and polar
// motion sit below the accuracy class of ground-track reporting.
func gmst(t time.Time) float64 {
	tUT1 := (julianDate(t.UTC()) - j2000) / 36525.0

	// Seconds of sidereal time; 876600 hours = 3155760000 seconds.
	sec := 67310.54841 +
		(3155760000.0+8640184.812866)*tUT1 +
		0.093104*tUT1*tUT1 -
		6.2e-6*tUT1*tUT1*tUT1

	sec = math.Mod(sec, 86400.0)
	if sec < 0 {
		sec += 86400.0
	}
	return sec / 86400.0 * 2.0 * math.Pi
}
