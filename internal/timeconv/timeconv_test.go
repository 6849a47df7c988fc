package timeconv

import (
	"testing"
	"time"

	"rbkoracle/internal/errs"
)

func TestToEpochMillisUTCSuffix(t *testing.T) {
	got, err := ToEpochMillis("2019-01-01T00:00:00Z", "America/Chicago")
	if err != nil {
		t.Fatalf("ToEpochMillis() error = %v", err)
	}
	if want := int64(1546300800000); got != want {
		t.Errorf("ToEpochMillis() = %d, want %d", got, want)
	}
}

func TestToEpochMillisClusterWallClock(t *testing.T) {
	// Chicago is UTC-6 in January.
	got, err := ToEpochMillis("2019-01-01T00:00:00", "America/Chicago")
	if err != nil {
		t.Fatalf("ToEpochMillis() error = %v", err)
	}
	if want := int64(1546300800000 + 6*3600*1000); got != want {
		t.Errorf("ToEpochMillis() = %d, want %d", got, want)
	}
}

func TestToEpochMillisTruncatesFraction(t *testing.T) {
	got, err := ToEpochMillis("2019-01-01T00:00:00.999Z", "UTC")
	if err != nil {
		t.Fatal(err)
	}
	if got != 1546300800000 {
		t.Errorf("ToEpochMillis() = %d, want whole seconds", got)
	}
}

func TestToEpochMillisAcceptedLayouts(t *testing.T) {
	for _, in := range []string{
		"2023-05-01T10:00:00",
		"2023-05-01 10:00:00",
		"2023-05-01T10:00",
		"2023-05-01T10:00:00.000000",
		"2023-05-01T10:00:00+00:00",
	} {
		if _, err := ToEpochMillis(in, "UTC"); err != nil {
			t.Errorf("ToEpochMillis(%q) error = %v", in, err)
		}
	}
}

func TestToEpochMillisRejectsGarbage(t *testing.T) {
	_, err := ToEpochMillis("yesterday", "UTC")
	if !errs.Is(err, errs.KindValidation) {
		t.Errorf("expected ValidationError, got %v", err)
	}
	_, err = ToEpochMillis("2019-01-01T00:00:00", "Nowhere/Special")
	if !errs.Is(err, errs.KindConfig) {
		t.Errorf("expected ConfigError for bad zone, got %v", err)
	}
}

func TestToLocalDisplaySymmetry(t *testing.T) {
	got, err := ToLocalDisplay("2019-07-01T12:00:00Z", "America/Chicago")
	if err != nil {
		t.Fatalf("ToLocalDisplay() error = %v", err)
	}
	if want := "2019-07-01T07:00:00-05:00"; got != want {
		t.Errorf("ToLocalDisplay() = %q, want %q", got, want)
	}

	back, err := time.Parse(time.RFC3339, got)
	if err != nil {
		t.Fatal(err)
	}
	ms, _ := ToEpochMillis("2019-07-01T12:00:00Z", "America/Chicago")
	if back.UnixMilli() != ms {
		t.Errorf("display instant %v differs from %d", back, ms)
	}
}

func TestFormatMicroseconds(t *testing.T) {
	ts := time.Date(2020, 2, 3, 4, 5, 6, 123000000, time.UTC)
	if got := Format(ts); got != "2020-02-03T04:05:06.123000+00:00" {
		t.Errorf("Format() = %q", got)
	}
}

func TestWall(t *testing.T) {
	loc, _ := Location("America/Chicago")
	if got := Wall("2019-07-01T12:00:00.000Z", loc); got != "2019-07-01 07:00:00" {
		t.Errorf("Wall() = %q", got)
	}
	if got := Wall("", loc); got != "" {
		t.Errorf("Wall(\"\") = %q", got)
	}
}

func TestEpochRoundTripAcrossDST(t *testing.T) {
	loc, err := Location("America/Chicago")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		ms   int64
		want string
	}{
		{1710054000000, "2024-03-10T01:00:00-06:00"},
		{1710057599000, "2024-03-10T01:59:59-06:00"},
		{1710057600000, "2024-03-10T03:00:00-05:00"},
		{1730613600000, "2024-11-03T01:00:00-05:00"},
		{1730617199000, "2024-11-03T01:59:59-05:00"},
		{1730617200000, "2024-11-03T01:00:00-06:00"},
		{1730619000000, "2024-11-03T01:30:00-06:00"},
	}
	for _, tt := range tests {
		iso := FromEpochMillis(tt.ms, loc)
		if iso != tt.want {
			t.Errorf("FromEpochMillis(%d) = %q, want %q", tt.ms, iso, tt.want)
		}
		back, err := EpochMillisIn(iso, loc)
		if err != nil {
			t.Errorf("EpochMillisIn(%q) error = %v", iso, err)
			continue
		}
		if back != tt.ms {
			t.Errorf("round trip of %d through %q = %d", tt.ms, iso, back)
		}
	}
}

func TestWallClockOrderIsMonotonic(t *testing.T) {
	loc, err := Location("America/Chicago")
	if err != nil {
		t.Fatal(err)
	}
	days := [][]string{
		// forward transition: 02:00 to 02:59 does not exist
		{"2024-03-10T00:30:00", "2024-03-10T01:59:59", "2024-03-10T02:00:00", "2024-03-10T02:30:00", "2024-03-10T02:59:59", "2024-03-10T03:00:00", "2024-03-10T03:30:00"},
		// backward transition: 01:00 to 01:59 happens twice
		{"2024-11-03T00:30:00", "2024-11-03T01:00:00", "2024-11-03T01:30:00", "2024-11-03T01:59:59", "2024-11-03T02:00:00", "2024-11-03T02:30:00"},
	}
	for _, day := range days {
		var prev int64
		for i, iso := range day {
			ms, err := EpochMillisIn(iso, loc)
			if err != nil {
				t.Fatalf("EpochMillisIn(%q) error = %v", iso, err)
			}
			if i > 0 && ms < prev {
				t.Errorf("%s parsed to %d, before %s (%d)", iso, ms, day[i-1], prev)
			}
			prev = ms
		}
	}
}

func TestSkippedWallClockReadsAsTransition(t *testing.T) {
	got, err := ToEpochMillis("2024-03-10T02:30:00", "America/Chicago")
	if err != nil {
		t.Fatal(err)
	}
	if want := int64(1710057600000); got != want {
		t.Errorf("ToEpochMillis() = %d, want the 03:00 CDT transition %d", got, want)
	}
}

func TestExplicitOffsetIsAbsolute(t *testing.T) {
	// The offset wins over the cluster timezone.
	got, err := ToEpochMillis("2019-01-01T02:00:00+02:00", "America/Chicago")
	if err != nil {
		t.Fatal(err)
	}
	if want := int64(1546300800000); got != want {
		t.Errorf("ToEpochMillis() = %d, want %d", got, want)
	}
}
