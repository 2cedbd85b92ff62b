package ephem

import "time"

// StateVector is one record of the ephemeris: where the station was and how
// fast it was moving at a given epoch.
//
// Velocity or position components that could not be parsed from the feed are
// stored as NaN; consumers skip or reject them explicitly.
type StateVector struct {
	Epoch string  `json:"epoch"` // day-of-year form, e.g. "2024-047T12:48:00.000Z"
	X     float64 `json:"x_km"`
	Y     float64 `json:"y_km"`
	Z     float64 `json:"z_km"`
	XDot  float64 `json:"x_dot_km_s"`
	YDot  float64 `json:"y_dot_km_s"`
	ZDot  float64 `json:"z_dot_km_s"`
}

// Coverage is the epoch span of a dataset: its first and last records.
type Coverage struct {
	First string `json:"first_epoch"`
	Last  string `json:"last_epoch"`
}

// Dataset is one materialized snapshot of the ephemeris feed. Record order is
// the feed's order, which is chronological. A Dataset is immutable after
// parsing and borrowed read-only by every query evaluated against it.
type Dataset struct {
	Source    string
	FetchedAt time.Time
	Comments  []string
	Vectors   []StateVector
}

// Coverage returns the first and last epochs of the dataset, or false if the
// dataset is empty.
func (d *Dataset) Coverage() (Coverage, bool) {
	if len(d.Vectors) == 0 {
		return Coverage{}, false
	}
	return Coverage{
		First: d.Vectors[0].Epoch,
		Last:  d.Vectors[len(d.Vectors)-1].Epoch,
	}, true
}
