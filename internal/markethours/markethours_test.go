package markethours

import (
	"testing"
	"time"
)

func ist(month time.Month, day, hour, min int) time.Time {
	return time.Date(2026, month, day, hour, min, 0, 0, IST)
}

func TestIsMarketOpenSessionBounds(t *testing.T) {
	// Tuesday 2026-01-06, a regular trading day
	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before open", ist(time.January, 6, 9, 14), false},
		{"at open", ist(time.January, 6, 9, 15), true},
		{"mid session", ist(time.January, 6, 12, 0), true},
		{"last minute", ist(time.January, 6, 15, 29), true},
		{"at close", ist(time.January, 6, 15, 30), false},
		{"saturday", ist(time.January, 3, 12, 0), false},
		{"sunday", ist(time.January, 4, 12, 0), false},
		{"republic day", ist(time.January, 26, 12, 0), false},
	}
	for _, tc := range cases {
		if got := IsMarketOpen(tc.at); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestIsMarketOpenConvertsToIST(t *testing.T) {
	// 06:00 UTC on a trading day is 11:30 IST
	utc := time.Date(2026, time.January, 6, 6, 0, 0, 0, time.UTC)
	if !IsMarketOpen(utc) {
		t.Error("06:00 UTC should be inside the IST session")
	}
}

func TestIsTradingDay(t *testing.T) {
	if IsTradingDay(ist(time.January, 4, 12, 0)) {
		t.Error("Sunday is not a trading day")
	}
	if IsTradingDay(ist(time.December, 25, 12, 0)) {
		t.Error("Christmas is not a trading day")
	}
	if !IsTradingDay(ist(time.January, 6, 3, 0)) {
		t.Error("a regular weekday is a trading day regardless of hour")
	}
}

func TestMinutesOfDay(t *testing.T) {
	if got := MinutesOfDay(ist(time.January, 6, 14, 45)); got != 885 {
		t.Errorf("14:45: got %d, want 885", got)
	}
	if got := MinutesOfDay(ist(time.January, 6, 0, 0)); got != 0 {
		t.Errorf("midnight: got %d, want 0", got)
	}
}

func TestTodayClose(t *testing.T) {
	c := TodayClose(ist(time.January, 6, 10, 0))
	if c.Hour() != 15 || c.Minute() != 30 {
		t.Errorf("close: got %02d:%02d, want 15:30", c.Hour(), c.Minute())
	}
}

func TestParseHHMM(t *testing.T) {
	cases := []struct {
		in       string
		fallback int
		want     int
	}{
		{"14:45", 0, 885},
		{"09:15", 0, 555},
		{" 15:15 ", 0, 915},
		{"24:00", 99, 99},
		{"12:60", 99, 99},
		{"nonsense", 99, 99},
		{"", 99, 99},
		{"12", 99, 99},
	}
	for _, tc := range cases {
		if got := ParseHHMM(tc.in, tc.fallback); got != tc.want {
			t.Errorf("ParseHHMM(%q): got %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestHolidayName(t *testing.T) {
	if name := HolidayName(ist(time.January, 26, 10, 0)); name != "Republic Day" {
		t.Errorf("Jan 26: got %q, want Republic Day", name)
	}
	if name := HolidayName(ist(time.December, 25, 10, 0)); name != "Christmas" {
		t.Errorf("Dec 25: got %q, want Christmas", name)
	}
	if name := HolidayName(ist(time.January, 6, 10, 0)); name != "" {
		t.Errorf("trading day: got %q, want empty", name)
	}
}
