package epoch

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestToDayOfYear(t *testing.T) {
	c := Codec{}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"V-J day", "1945-09-02T10:30:17.003Z", "1945-245T10:30:17.003Z"},
		{"october", "2004-10-07T00:07:04.123Z", "2004-280T00:07:04.123Z"},
		{"january 1", "2024-01-01T00:00:00.000Z", "2024-001T00:00:00.000Z"},
		{"december 31 non-leap table", "2023-12-31T23:59:59.999Z", "2023-365T23:59:59.999Z"},
		// Feb 29 in a leap year still counts February as 28 days:
		// the non-leap table is the documented default behavior.
		{"march 1 of leap year", "2024-03-01T12:00:00.000Z", "2024-060T12:00:00.000Z"},
		// Day-of-month is not validated against month length.
		{"overlong day accepted", "2023-02-31T00:00:00.000Z", "2023-062T00:00:00.000Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.ToDayOfYear(tt.in)
			if err != nil {
				t.Fatalf("ToDayOfYear(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ToDayOfYear(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestToDayOfYearLeapAware(t *testing.T) {
	c := Codec{LeapAware: true}

	tests := []struct {
		in   string
		want string
	}{
		// February gains a day in years divisible by 4.
		{"2024-03-01T12:00:00.000Z", "2024-061T12:00:00.000Z"},
		{"2023-03-01T12:00:00.000Z", "2023-060T12:00:00.000Z"},
		// Dates before March are unaffected by the policy.
		{"2024-02-15T00:00:00.000Z", "2024-046T00:00:00.000Z"},
	}

	for _, tt := range tests {
		got, err := c.ToDayOfYear(tt.in)
		if err != nil {
			t.Fatalf("ToDayOfYear(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ToDayOfYear(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToDayOfYearErrors(t *testing.T) {
	c := Codec{}

	tests := []struct {
		name string
		in   string
	}{
		{"no separator", "2024-01-01 00:00:00"},
		{"two date fields", "2024-01T00:00:00.000Z"},
		{"four date fields", "2024-01-01-05T00:00:00.000Z"},
		{"non-numeric month", "2024-xx-01T00:00:00.000Z"},
		{"non-numeric day", "2024-01-ddT00:00:00.000Z"},
		{"month zero", "2024-00-15T00:00:00.000Z"},
		{"month thirteen", "2024-13-15T00:00:00.000Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.ToDayOfYear(tt.in)
			if !errors.Is(err, ErrFormat) {
				t.Errorf("ToDayOfYear(%q) error = %v, want ErrFormat", tt.in, err)
			}
		})
	}
}

// TestToDayOfYearRoundTrip checks that every calendar date of a non-leap year
// maps to a distinct in-range day-of-year that parses back to the same date.
func TestToDayOfYearRoundTrip(t *testing.T) {
	c := Codec{}
	seen := make(map[string]string)

	for d := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC); d.Year() == 2023; d = d.AddDate(0, 0, 1) {
		in := d.Format("2006-01-02") + "T00:00:00.000Z"
		out, err := c.ToDayOfYear(in)
		if err != nil {
			t.Fatalf("ToDayOfYear(%q) error: %v", in, err)
		}

		doy := out[5:8]
		if doy < "001" || doy > "365" {
			t.Fatalf("day-of-year %q out of range for %q", doy, in)
		}
		if prev, dup := seen[out]; dup {
			t.Fatalf("dates %q and %q both map to %q", prev, in, out)
		}
		seen[out] = in

		back, err := ParseDataset(out)
		if err != nil {
			t.Fatalf("ParseDataset(%q) error: %v", out, err)
		}
		if !back.Equal(d) {
			t.Errorf("round trip of %q: got %v, want %v", in, back, d)
		}
	}
}

func TestNow(t *testing.T) {
	got, err := Codec{}.Now()
	if err != nil {
		t.Fatalf("Now() error: %v", err)
	}
	// YYYY-DDDThh:mm:ss.sssZ
	if len(got) != len("2024-047T12:48:00.000Z") || !strings.Contains(got, "T") {
		t.Errorf("Now() = %q, not in day-of-year form", got)
	}
}

func TestParseDataset(t *testing.T) {
	got, err := ParseDataset("2024-047T12:48:00.000Z")
	if err != nil {
		t.Fatalf("ParseDataset error: %v", err)
	}
	want := time.Date(2024, 2, 16, 12, 48, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseDataset = %v, want %v", got, want)
	}

	if _, err := ParseDataset("2024-02-16T12:48:00.000Z"); !errors.Is(err, ErrFormat) {
		t.Errorf("calendar-form input should fail with ErrFormat, got %v", err)
	}
}
