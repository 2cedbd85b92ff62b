package query

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/ni-da-ba/iss-tracker/internal/ephem"
	"github.com/ni-da-ba/iss-tracker/internal/epoch"
)

// testDataset covers 2024-047 12:00 to 12:08 at 4-minute spacing with
// ISS-like state vectors.
func testDataset() *ephem.Dataset {
	return &ephem.Dataset{
		Vectors: []ephem.StateVector{
			{
				Epoch: "2024-047T12:00:00.000Z",
				X:     -4945.2048, Y: -3625.9704, Z: -2944.7433,
				XDot: 1.1920, YDot: -5.6728, ZDot: 4.9959,
			},
			{
				Epoch: "2024-047T12:04:00.000Z",
				X:     -4391.9632, Y: -4859.1766, Z: -1619.5398,
				XDot: 3.3943, YDot: -4.5047, ZDot: 5.9896,
			},
			{
				Epoch: "2024-047T12:08:00.000Z",
				X:     -3475.1953, Y: -5772.2713, Z: -166.8976,
				XDot: 5.1859, YDot: -2.9227, ZDot: 6.0482,
			},
		},
	}
}

func TestFacadeEpochAt(t *testing.T) {
	f := Facade{}
	ds := testDataset()

	sv, found, err := f.EpochAt(ds, "2024-047T12:05:30.000Z")
	if err != nil || !found {
		t.Fatalf("EpochAt failed: found=%v err=%v", found, err)
	}
	if sv.Epoch != "2024-047T12:04:00.000Z" {
		t.Errorf("matched %q, want the :04 record", sv.Epoch)
	}

	if _, found, err := f.EpochAt(ds, "2024-047T13:00:00.000Z"); err != nil || found {
		t.Errorf("different hour: found=%v err=%v, want a clean no-match", found, err)
	}
}

func TestFacadeSpeedAt(t *testing.T) {
	f := Facade{}
	got, found, err := f.SpeedAt(testDataset(), "2024-047T12:00:00.000Z")
	if err != nil || !found {
		t.Fatalf("SpeedAt failed: found=%v err=%v", found, err)
	}
	want := math.Sqrt(1.1920*1.1920 + 5.6728*5.6728 + 4.9959*4.9959)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("SpeedAt = %v, want %v", got, want)
	}
}

func TestFacadeSpeedAtNonFinite(t *testing.T) {
	f := Facade{}
	ds := &ephem.Dataset{Vectors: []ephem.StateVector{{
		Epoch: "2024-047T12:00:00.000Z",
		XDot:  math.NaN(),
	}}}

	_, found, err := f.SpeedAt(ds, "2024-047T12:00:00.000Z")
	if !found {
		t.Fatal("record should match before the speed computation fails")
	}
	if !errors.Is(err, ErrNonFinite) {
		t.Errorf("error = %v, want ErrNonFinite", err)
	}
}

func TestFacadeLocationAt(t *testing.T) {
	f := Facade{}
	geo, found, err := f.LocationAt(testDataset(), "2024-047T12:00:00.000Z")
	if err != nil || !found {
		t.Fatalf("LocationAt failed: found=%v err=%v", found, err)
	}
	if geo.AltKm < 350 || geo.AltKm > 460 {
		t.Errorf("altitude = %.1f km, want a LEO value", geo.AltKm)
	}
	if math.Abs(geo.LatDeg) > 52 || math.Abs(geo.LonDeg) > 180 {
		t.Errorf("implausible ground position: %+v", geo)
	}
}

func TestFacadeWindowOf(t *testing.T) {
	f := Facade{}
	ds := testDataset()

	if got := f.WindowOf(ds, "", ""); len(got) != 3 {
		t.Errorf("default window returned %d records, want 3", len(got))
	}
	if got := f.WindowOf(ds, "1", "2"); len(got) != 1 || got[0].Epoch != ds.Vectors[1].Epoch {
		t.Errorf("window [1:2] returned %v", got)
	}
	if got := f.WindowOf(ds, "9999999", ""); len(got) != 0 {
		t.Errorf("out-of-range offset returned %d records, want 0", len(got))
	}
}

func TestFacadeNow(t *testing.T) {
	f := Facade{}

	// Build a dataset that covers every minute of the current and next local
	// hour in day-of-year form, so the wall-clock match cannot miss even if
	// the clock rolls over mid-test.
	var vectors []ephem.StateVector
	for _, base := range []time.Time{time.Now(), time.Now().Add(time.Hour)} {
		calendarHour := base.Format("2006-01-02T15")
		doyHour, err := (epoch.Codec{}).ToDayOfYear(calendarHour + ":00:00.000Z")
		if err != nil {
			t.Fatalf("converting test hour: %v", err)
		}
		coarse := doyHour[:len("2024-047T12")]
		for m := 0; m < 60; m++ {
			vectors = append(vectors, ephem.StateVector{
				Epoch: fmt.Sprintf("%s:%02d:00.000Z", coarse, m),
				X:     -4945.2048, Y: -3625.9704, Z: -2944.7433,
				XDot: 1.1920, YDot: -5.6728, ZDot: 4.9959,
			})
		}
	}
	ds := &ephem.Dataset{Vectors: vectors}

	res, found, err := f.Now(ds)
	if err != nil {
		t.Fatalf("Now error: %v", err)
	}
	if !found {
		t.Fatalf("Now found no record; queried epoch %q", res.QueriedEpoch)
	}
	if res.SpeedKmS <= 0 {
		t.Errorf("speed = %v, want positive", res.SpeedKmS)
	}
	if res.Location.AltKm < 350 || res.Location.AltKm > 460 {
		t.Errorf("altitude = %.1f km, want a LEO value", res.Location.AltKm)
	}
	if res.QueriedEpoch == "" {
		t.Error("QueriedEpoch not populated")
	}
}

func TestFacadeNowEmptyDataset(t *testing.T) {
	f := Facade{}
	res, found, err := f.Now(&ephem.Dataset{})
	if err != nil {
		t.Fatalf("Now error: %v", err)
	}
	if found {
		t.Error("empty dataset should yield no match")
	}
	if res.QueriedEpoch == "" {
		t.Error("QueriedEpoch should be reported even without a match")
	}
}
