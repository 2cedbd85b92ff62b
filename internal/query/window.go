package query

import (
	"strconv"

	"github.com/ni-da-ba/iss-tracker/internal/ephem"
)

// Window is a resolved, clamped index range over a dataset: Start inclusive,
// End exclusive, both within [0, len].
type Window struct {
	Start int `json:"offset"`
	End   int `json:"end"`
}

// SelectWindow resolves raw offset/limit query parameters against a dataset
// of n records. The parameters are caller-supplied strings and may be absent
// or garbage; parsing failure degrades to the defaults (offset 0, limit n)
// rather than erroring. The limit is an absolute end index, not a count.
//
// This function is total: any input yields a valid window.
func SelectWindow(n int, rawOffset, rawLimit string) Window {
	offset, err := strconv.Atoi(rawOffset)
	if err != nil {
		offset = 0
	}
	limit, err := strconv.Atoi(rawLimit)
	if err != nil {
		limit = n
	}

	offset = clamp(offset, 0, n)
	limit = clamp(limit, 0, n)
	if limit < offset {
		limit = offset
	}
	return Window{Start: offset, End: limit}
}

// Apply returns the dataset slice the window describes. The result shares the
// dataset's backing array; callers treat it as read-only.
func (w Window) Apply(vectors []ephem.StateVector) []ephem.StateVector {
	return vectors[w.Start:w.End]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
