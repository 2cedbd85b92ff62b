package query

import (
	"errors"
	"fmt"
	"math"

	"github.com/ni-da-ba/iss-tracker/internal/ephem"
)

// ErrNonFinite indicates a velocity component that is NaN or infinite.
var ErrNonFinite = errors.New("non-finite velocity component")

// ErrNoValidRecords indicates an average over zero numerically valid records.
var ErrNoValidRecords = errors.New("no records with valid velocity")

// Speed reduces a velocity triple (km/s) to its Euclidean norm.
func Speed(vx, vy, vz float64) (float64, error) {
	for _, v := range [3]float64{vx, vy, vz} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: (%v, %v, %v)", ErrNonFinite, vx, vy, vz)
		}
	}
	return math.Sqrt(vx*vx + vy*vy + vz*vz), nil
}

// AverageSpeed returns the arithmetic mean speed across the dataset. Records
// with a non-finite velocity component are skipped, not treated as failures.
// When every record is skipped there is no mean to report and the result is
// ErrNoValidRecords.
func AverageSpeed(vectors []ephem.StateVector) (float64, error) {
	var sum float64
	var count int
	for i := range vectors {
		s, err := Speed(vectors[i].XDot, vectors[i].YDot, vectors[i].ZDot)
		if err != nil {
			continue
		}
		sum += s
		count++
	}
	if count == 0 {
		return 0, ErrNoValidRecords
	}
	return sum / float64(count), nil
}
