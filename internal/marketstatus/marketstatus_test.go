package marketstatus

import (
	"testing"
	"time"
)

func tickAt(h, m int) time.Time {
	return time.Date(2026, 7, 31, h, m, 0, 0, time.Local) // 2026-07-31 is a Friday
}

func TestIsTradingDaySkipsWeekends(t *testing.T) {
	c := Default(time.Local)
	saturday := time.Date(2026, 8, 1, 10, 0, 0, 0, time.Local)
	if c.IsTradingDay(saturday) {
		t.Fatalf("expected Saturday to not be a trading day")
	}
	if !c.IsTradingDay(tickAt(10, 0)) {
		t.Fatalf("expected a weekday to be a trading day")
	}
}

func TestIsTradingDaySkipsHolidays(t *testing.T) {
	c := Default(time.Local)
	c.Holidays = map[string]bool{"2026-07-31": true}
	if c.IsTradingDay(tickAt(10, 0)) {
		t.Fatalf("expected the configured holiday to not be a trading day")
	}
}

func TestIsOpenEnforcesSessionWindow(t *testing.T) {
	c := Default(time.Local)
	if c.IsOpen(tickAt(8, 59)) {
		t.Fatalf("expected market closed before 09:00")
	}
	if !c.IsOpen(tickAt(9, 0)) {
		t.Fatalf("expected market open at 09:00")
	}
	if !c.IsOpen(tickAt(15, 20)) {
		t.Fatalf("expected market open at 15:20")
	}
	if c.IsOpen(tickAt(15, 21)) {
		t.Fatalf("expected market closed after 15:20")
	}
}

func TestInPreCloseWindow(t *testing.T) {
	c := Default(time.Local)
	if c.InPreCloseWindow(tickAt(14, 59)) {
		t.Fatalf("expected no pre-close carve-out before 15:00")
	}
	if !c.InPreCloseWindow(tickAt(15, 0)) {
		t.Fatalf("expected the pre-close carve-out to start at 15:00")
	}
}

func TestVolumeRatioMultiplierStepsByHour(t *testing.T) {
	c := Default(time.Local)
	cases := []struct {
		hour, minute int
		want         float64
	}{
		{9, 5, 0.10}, {10, 0, 0.30}, {11, 0, 0.50}, {12, 0, 0.70}, {13, 30, 0.70}, {14, 0, 1.00},
	}
	for _, tc := range cases {
		if got := c.VolumeRatioMultiplier(tickAt(tc.hour, tc.minute)); got != tc.want {
			t.Fatalf("VolumeRatioMultiplier(%02d:%02d) = %v, want %v", tc.hour, tc.minute, got, tc.want)
		}
	}
}

func TestIsOpenRespectsLiveHalt(t *testing.T) {
	c := Default(time.Local)
	live := &LiveFeed{status: VenueStatus{Halted: true, UpdatedAt: time.Now()}}
	c.Live = live
	if c.IsOpen(tickAt(10, 0)) {
		t.Fatalf("expected a fresh halt status to close the market even inside the session window")
	}
}

func TestIsOpenIgnoresStaleLiveHalt(t *testing.T) {
	c := Default(time.Local)
	live := &LiveFeed{status: VenueStatus{Halted: true, UpdatedAt: time.Now().Add(-10 * time.Minute)}}
	c.Live = live
	if !c.IsOpen(tickAt(10, 0)) {
		t.Fatalf("expected a stale halt status to be ignored in favor of the static window")
	}
}
