// Package query is the temporal query kernel: it locates state vectors by
// epoch, selects index windows, and derives speed and ground position from a
// matched record. Every function is stateless and reads its dataset argument
// as a borrowed, read-only view.
package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ni-da-ba/iss-tracker/internal/ephem"
)

// ErrBadEpoch indicates an epoch whose hour/minute/second fragments cannot be
// compared: a non-numeric minute or a fragment count other than three.
var ErrBadEpoch = errors.New("malformed epoch")

// minuteBound seeds the minute-distance minimization. It is a non-binding
// upper bound, not a real tolerance: any in-range minute difference (0-59)
// beats it, so the first eligible candidate always becomes the running best.
const minuteBound = 77

// Match finds the record nearest the query epoch.
//
// Eligibility is string equality of the coarse fragment (everything up to and
// including the hour); among eligible records the smallest absolute minute
// difference wins, with ties kept by the earliest record in sequence order.
// A record in a different hour is never considered, even if it is
// chronologically closer.
//
// Returns (nil, false, nil) when no record is eligible — a normal outcome,
// distinct from a malformed epoch, which returns ErrBadEpoch.
func Match(vectors []ephem.StateVector, queryEpoch string) (*ephem.StateVector, bool, error) {
	qf := strings.Split(queryEpoch, ":")
	if len(qf) != 3 {
		return nil, false, fmt.Errorf("%w: %q does not split into hour, minute and second fragments", ErrBadEpoch, queryEpoch)
	}
	qMinute, err := strconv.Atoi(qf[1])
	if err != nil {
		return nil, false, fmt.Errorf("%w: minute fragment %q of %q is not numeric", ErrBadEpoch, qf[1], queryEpoch)
	}

	best := minuteBound
	bestIdx := -1

	for i := range vectors {
		cf := strings.Split(vectors[i].Epoch, ":")
		if cf[0] != qf[0] {
			continue
		}
		// Fragment shape is only enforced for eligible records; a malformed
		// epoch in a different hour never participates in a comparison.
		if len(cf) != 3 {
			return nil, false, fmt.Errorf("%w: stored epoch %q does not split into hour, minute and second fragments", ErrBadEpoch, vectors[i].Epoch)
		}
		cMinute, err := strconv.Atoi(cf[1])
		if err != nil {
			return nil, false, fmt.Errorf("%w: minute fragment %q of stored epoch %q is not numeric", ErrBadEpoch, cf[1], vectors[i].Epoch)
		}

		diff := qMinute - cMinute
		if diff < 0 {
			diff = -diff
		}
		// Strict improvement only: an equal distance keeps the earlier record.
		if diff < best {
			best = diff
			bestIdx = i
		}
	}

	if bestIdx < 0 {
		return nil, false, nil
	}
	return &vectors[bestIdx], true, nil
}
