package digest

import (
	"errors"
	"testing"
	"time"
)

func mustLocation(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("tz database unavailable: %v", err)
	}
	return loc
}

func TestResolveAutomaticCoversYesterday(t *testing.T) {
	loc := mustLocation(t, "America/New_York")
	r := NewResolver(loc)

	// 2024-03-05 02:30 UTC is still March 4 in New York.
	now := time.Date(2024, 3, 5, 2, 30, 0, 0, time.UTC)
	w, err := r.Resolve(Automatic(), now)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	wantStart := time.Date(2024, 3, 3, 0, 0, 0, 0, loc)
	wantEnd := time.Date(2024, 3, 4, 0, 0, 0, 0, loc)
	if !w.Start.Equal(wantStart) || !w.End.Equal(wantEnd) {
		t.Fatalf("unexpected window: %s .. %s", w.Start, w.End)
	}
	if w.Days() != 1 {
		t.Fatalf("expected 1 day, got %d", w.Days())
	}
}

func TestResolveManualIsInclusiveOfEndDate(t *testing.T) {
	r := NewResolver(time.UTC)
	start, _ := ParseDate("2024-01-01")
	end, _ := ParseDate("2024-01-03")

	w, err := r.Resolve(Manual(start, end), time.Now())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !w.Start.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start: %s", w.Start)
	}
	if !w.End.Equal(time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end: %s", w.End)
	}
	lastMoment := time.Date(2024, 1, 3, 23, 59, 59, 999, time.UTC)
	if !w.Contains(lastMoment) {
		t.Fatalf("expected window to contain the last instant of Jan 3")
	}
	if w.Contains(w.End) {
		t.Fatalf("window end must be exclusive")
	}
	if w.Days() != 3 {
		t.Fatalf("expected 3 days, got %d", w.Days())
	}
}

func TestResolveManualUsesConfiguredZone(t *testing.T) {
	loc := mustLocation(t, "America/New_York")
	r := NewResolver(loc)
	d, _ := ParseDate("2024-07-04")

	w, err := r.Resolve(Manual(d, d), time.Now())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !w.Start.Equal(time.Date(2024, 7, 4, 0, 0, 0, 0, loc)) {
		t.Fatalf("unexpected start: %s", w.Start)
	}
	if got := w.End.Sub(w.Start); got != 24*time.Hour {
		t.Fatalf("expected one day window, got %s", got)
	}
}

func TestResolveManualRejectsInvertedRange(t *testing.T) {
	r := NewResolver(time.UTC)
	start, _ := ParseDate("2024-02-10")
	end, _ := ParseDate("2024-02-01")

	_, err := r.Resolve(Manual(start, end), time.Now())
	var rangeErr *InvalidRangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("expected InvalidRangeError, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "2024-01-02", want: "2024-01-02"},
		{in: " 2024-01-02 ", want: "2024-01-02"},
		{in: "2024-01-02T18:30:00Z", want: "2024-01-02"},
		{in: "01/02/2024", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseDate(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseDate(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseDate(%q): %v", tc.in, err)
		}
		if got.Format(DateLayout) != tc.want {
			t.Fatalf("ParseDate(%q) = %s, want %s", tc.in, got.Format(DateLayout), tc.want)
		}
	}
}

func TestPresetRange(t *testing.T) {
	r := NewResolver(time.UTC)
	now := time.Date(2024, 5, 20, 15, 0, 0, 0, time.UTC)

	start, end, err := r.PresetRange("last7days", now)
	if err != nil {
		t.Fatalf("PresetRange: %v", err)
	}
	if start.Format(DateLayout) != "2024-05-13" || end.Format(DateLayout) != "2024-05-19" {
		t.Fatalf("unexpected last7days: %s .. %s", start.Format(DateLayout), end.Format(DateLayout))
	}
	if _, _, err := r.PresetRange("fortnight", now); err == nil {
		t.Fatalf("expected unknown timeframe error")
	}
}

func TestDescribePeriod(t *testing.T) {
	d1, _ := ParseDate("2024-01-02")
	d2, _ := ParseDate("2024-01-05")
	if got := DescribePeriod(Automatic()); got != "yesterday" {
		t.Fatalf("unexpected automatic period: %q", got)
	}
	if got := DescribePeriod(Manual(d1, d1)); got != "on January 2, 2024" {
		t.Fatalf("unexpected single-day period: %q", got)
	}
	if got := DescribePeriod(Manual(d1, d2)); got != "from January 2, 2024 to January 5, 2024" {
		t.Fatalf("unexpected range period: %q", got)
	}
}
