package track

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/ni-da-ba/iss-tracker/internal/ephem"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, nil))

// orbitVectors builds n ISS-like records a minute apart, sweeping the orbit
// plane so each record lands at a distinct ground position.
func orbitVectors(n int) []ephem.StateVector {
	vs := make([]ephem.StateVector, n)
	const r = 6778.0
	for i := range vs {
		angle := float64(i) * 2 * math.Pi / 92 // ~92 minute orbit
		vs[i] = ephem.StateVector{
			Epoch: fmt.Sprintf("2024-047T12:%02d:00.000Z", i),
			X:     r * math.Cos(angle),
			Y:     r * math.Sin(angle) * math.Cos(51.6*math.Pi/180),
			Z:     r * math.Sin(angle) * math.Sin(51.6*math.Pi/180),
		}
	}
	return vs
}

func TestGroundTrack(t *testing.T) {
	vs := orbitVectors(30)
	c := NewComputer(4, testLogger)

	points, errs := c.GroundTrack(context.Background(), vs)
	if errs != 0 {
		t.Fatalf("got %d errors, want 0", errs)
	}
	if len(points) != len(vs) {
		t.Fatalf("got %d points, want %d", len(points), len(vs))
	}

	// Order must follow the window regardless of worker scheduling.
	for i, p := range points {
		if p.Epoch != vs[i].Epoch {
			t.Fatalf("point %d has epoch %q, want %q", i, p.Epoch, vs[i].Epoch)
		}
		if math.Abs(p.Location.LatDeg) > 52.5 {
			t.Errorf("point %d latitude %.2f exceeds the orbit inclination", i, p.Location.LatDeg)
		}
		if p.Location.AltKm < 300 || p.Location.AltKm > 500 {
			t.Errorf("point %d altitude %.1f km outside the LEO band", i, p.Location.AltKm)
		}
	}
}

func TestGroundTrackSkipsBadRecords(t *testing.T) {
	vs := orbitVectors(10)
	vs[3].Epoch = "not-an-epoch"
	vs[7].X = math.NaN()

	c := NewComputer(2, testLogger)
	points, errs := c.GroundTrack(context.Background(), vs)

	if errs != 2 {
		t.Errorf("got %d errors, want 2", errs)
	}
	if len(points) != 8 {
		t.Fatalf("got %d points, want 8", len(points))
	}
	for _, p := range points {
		if p.Epoch == "not-an-epoch" || p.Epoch == vs[7].Epoch {
			t.Errorf("failed record %q leaked into the track", p.Epoch)
		}
	}
}

func TestGroundTrackEmptyWindow(t *testing.T) {
	c := NewComputer(4, testLogger)
	points, errs := c.GroundTrack(context.Background(), nil)
	if points != nil || errs != 0 {
		t.Errorf("empty window: points=%v errs=%d", points, errs)
	}
}

func TestGroundTrackSingleWorker(t *testing.T) {
	// Worker count below 1 clamps rather than deadlocking.
	c := NewComputer(0, testLogger)
	points, errs := c.GroundTrack(context.Background(), orbitVectors(5))
	if errs != 0 || len(points) != 5 {
		t.Errorf("points=%d errs=%d, want 5 and 0", len(points), errs)
	}
}
