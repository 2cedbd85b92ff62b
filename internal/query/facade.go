package query

import (
	"fmt"

	"github.com/ni-da-ba/iss-tracker/internal/ephem"
	"github.com/ni-da-ba/iss-tracker/internal/epoch"
	"github.com/ni-da-ba/iss-tracker/internal/transform"
)

// Facade is the query surface the HTTP layer consumes. It owns no state
// beyond the timestamp codec policy; every call evaluates the dataset it is
// handed and retains nothing.
type Facade struct {
	Codec epoch.Codec
}

// NowResult is the matched record for the current wall-clock time, augmented
// with its derived speed and ground position.
type NowResult struct {
	QueriedEpoch string             `json:"queried_epoch"`
	Vector       ephem.StateVector  `json:"state_vector"`
	SpeedKmS     float64            `json:"speed_km_s"`
	Location     transform.Geodetic `json:"location"`
}

// EpochAt returns the record nearest the given epoch. A no-match is reported
// through the bool, not as an error.
func (f Facade) EpochAt(ds *ephem.Dataset, epochStr string) (*ephem.StateVector, bool, error) {
	return Match(ds.Vectors, epochStr)
}

// SpeedAt returns the scalar speed of the record nearest the given epoch.
func (f Facade) SpeedAt(ds *ephem.Dataset, epochStr string) (float64, bool, error) {
	sv, found, err := Match(ds.Vectors, epochStr)
	if err != nil || !found {
		return 0, found, err
	}
	s, err := Speed(sv.XDot, sv.YDot, sv.ZDot)
	if err != nil {
		return 0, true, fmt.Errorf("speed at %s: %w", sv.Epoch, err)
	}
	return s, true, nil
}

// LocationAt returns the ground position of the record nearest the given
// epoch.
func (f Facade) LocationAt(ds *ephem.Dataset, epochStr string) (transform.Geodetic, bool, error) {
	sv, found, err := Match(ds.Vectors, epochStr)
	if err != nil || !found {
		return transform.Geodetic{}, found, err
	}
	geo, err := transform.ToGeodetic(sv.X, sv.Y, sv.Z, sv.Epoch)
	if err != nil {
		return transform.Geodetic{}, true, fmt.Errorf("location at %s: %w", sv.Epoch, err)
	}
	return geo, true, nil
}

// Now converts the current wall-clock time into the dataset's epoch format,
// matches it, and derives both speed and ground position for the matched
// record. found is false when the dataset does not cover the present (stale
// feed or empty dataset).
func (f Facade) Now(ds *ephem.Dataset) (NowResult, bool, error) {
	nowEpoch, err := f.Codec.Now()
	if err != nil {
		return NowResult{}, false, fmt.Errorf("formatting current time: %w", err)
	}

	sv, found, err := Match(ds.Vectors, nowEpoch)
	if err != nil || !found {
		return NowResult{QueriedEpoch: nowEpoch}, found, err
	}

	speed, err := Speed(sv.XDot, sv.YDot, sv.ZDot)
	if err != nil {
		return NowResult{}, true, fmt.Errorf("speed at %s: %w", sv.Epoch, err)
	}
	geo, err := transform.ToGeodetic(sv.X, sv.Y, sv.Z, sv.Epoch)
	if err != nil {
		return NowResult{}, true, fmt.Errorf("location at %s: %w", sv.Epoch, err)
	}

	return NowResult{
		QueriedEpoch: nowEpoch,
		Vector:       *sv,
		SpeedKmS:     speed,
		Location:     geo,
	}, true, nil
}

// WindowOf resolves offset/limit against the dataset and returns the
// selected sub-sequence.
func (f Facade) WindowOf(ds *ephem.Dataset, rawOffset, rawLimit string) []ephem.StateVector {
	return SelectWindow(len(ds.Vectors), rawOffset, rawLimit).Apply(ds.Vectors)
}
