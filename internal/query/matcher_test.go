package query

import (
	"errors"
	"testing"

	"github.com/ni-da-ba/iss-tracker/internal/ephem"
)

func vectorsWithEpochs(epochs ...string) []ephem.StateVector {
	vs := make([]ephem.StateVector, len(epochs))
	for i, e := range epochs {
		vs[i] = ephem.StateVector{Epoch: e, X: float64(i)}
	}
	return vs
}

func TestMatchExactEpoch(t *testing.T) {
	vs := vectorsWithEpochs(
		"2024-047T12:32:00.000Z",
		"2024-047T12:36:00.000Z",
		"2024-047T12:40:00.000Z",
	)

	for i, e := range []string{"2024-047T12:32:00.000Z", "2024-047T12:36:00.000Z", "2024-047T12:40:00.000Z"} {
		sv, found, err := Match(vs, e)
		if err != nil {
			t.Fatalf("Match(%q) error: %v", e, err)
		}
		if !found {
			t.Fatalf("Match(%q) found no record", e)
		}
		if sv != &vs[i] {
			t.Errorf("Match(%q) returned record %v, want index %d", e, sv.X, i)
		}
	}
}

func TestMatchNearestMinute(t *testing.T) {
	vs := vectorsWithEpochs(
		"2024-047T12:00:00.000Z",
		"2024-047T12:20:00.000Z",
		"2024-047T12:40:00.000Z",
	)

	sv, found, err := Match(vs, "2024-047T12:27:13.000Z")
	if err != nil || !found {
		t.Fatalf("Match failed: found=%v err=%v", found, err)
	}
	if sv.Epoch != "2024-047T12:20:00.000Z" {
		t.Errorf("matched %q, want the :20 record", sv.Epoch)
	}
}

func TestMatchDifferentHourIsNoMatch(t *testing.T) {
	vs := vectorsWithEpochs(
		"2024-047T12:58:00.000Z",
		"2024-047T12:59:00.000Z",
	)

	// 13:01 is a minute away from 12:59 but in a different hour; the coarse
	// fragment gate excludes it.
	sv, found, err := Match(vs, "2024-047T13:01:00.000Z")
	if err != nil {
		t.Fatalf("Match error: %v", err)
	}
	if found || sv != nil {
		t.Errorf("expected no match across hour boundary, got %v", sv)
	}
}

func TestMatchTieBreakEarliest(t *testing.T) {
	// Both records are 2 minutes from the query; the earlier one must win.
	vs := vectorsWithEpochs(
		"2024-047T12:28:00.000Z",
		"2024-047T12:32:00.000Z",
	)

	sv, found, err := Match(vs, "2024-047T12:30:00.000Z")
	if err != nil || !found {
		t.Fatalf("Match failed: found=%v err=%v", found, err)
	}
	if sv != &vs[0] {
		t.Errorf("tie resolved to %q, want the earlier record", sv.Epoch)
	}
}

func TestMatchEmptyDataset(t *testing.T) {
	sv, found, err := Match(nil, "2024-047T12:00:00.000Z")
	if err != nil {
		t.Fatalf("Match error: %v", err)
	}
	if found || sv != nil {
		t.Error("empty dataset should yield no match")
	}
}

func TestMatchBorrowedView(t *testing.T) {
	vs := vectorsWithEpochs("2024-047T12:00:00.000Z")
	sv, _, _ := Match(vs, "2024-047T12:05:00.000Z")
	if sv != &vs[0] {
		t.Error("Match should return a view into the dataset, not a copy")
	}
}

func TestMatchMalformedEpochs(t *testing.T) {
	valid := vectorsWithEpochs("2024-047T12:00:00.000Z")

	tests := []struct {
		name    string
		vectors []ephem.StateVector
		query   string
	}{
		{"query without colons", valid, "2024-047T120000"},
		{"query with two fragments", valid, "2024-047T12:00"},
		{"query with non-numeric minute", valid, "2024-047T12:xx:00.000Z"},
		{
			"stored epoch with non-numeric minute in matching hour",
			vectorsWithEpochs("2024-047T12:aa:00.000Z"),
			"2024-047T12:00:00.000Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Match(tt.vectors, tt.query)
			if !errors.Is(err, ErrBadEpoch) {
				t.Errorf("Match error = %v, want ErrBadEpoch", err)
			}
		})
	}
}

func TestMatchMalformedEpochOutsideHourIgnored(t *testing.T) {
	// A malformed stored epoch only matters when its coarse fragment matches.
	vs := []ephem.StateVector{
		{Epoch: "garbage-no-colons"},
		{Epoch: "2024-047T12:04:00.000Z"},
	}

	sv, found, err := Match(vs, "2024-047T12:00:00.000Z")
	if err != nil || !found {
		t.Fatalf("Match failed: found=%v err=%v", found, err)
	}
	if sv.Epoch != "2024-047T12:04:00.000Z" {
		t.Errorf("matched %q, want the well-formed record", sv.Epoch)
	}
}
