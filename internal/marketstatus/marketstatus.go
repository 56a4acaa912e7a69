// Package marketstatus tracks the single national market's trading
// calendar: weekday/holiday gating, the intraday session window, and the
// pre-close carve-out the policy evaluator enforces. Adapted from the
// multi-exchange ExchangeCalendar in the trader's market-hours service,
// collapsed to the one market this engine trades. LiveFeed supplements
// the static window with the venue's real-time halt status over a
// reconnecting WebSocket client.
package marketstatus

import "time"

// Window is a same-day open/close pair expressed in the market's local
// clock.
type Window struct {
	OpenHour, OpenMinute   int
	CloseHour, CloseMinute int
}

// Calendar describes the single market's trading hours and holiday set.
type Calendar struct {
	Location     *time.Location
	Session      Window // the full intraday session, e.g. 09:00-15:20
	PreOpen      Window // pre-market job window, e.g. the 08:50-09:00 lead-in
	PreCloseFrom Window // the carve-out start, e.g. 15:00; new buys blocked from here
	Holidays     map[string]bool // YYYY-MM-DD, in Location

	// Live optionally supplements the static Session window with the
	// venue's real-time halt status. Nil disables the check entirely; a
	// stale or never-populated feed is also ignored (IsOpen falls back to
	// the static window rather than trusting silence as "open").
	Live *LiveFeed
}

// Default is the KRX-shaped calendar the specification's worked examples
// assume: 09:00-15:20 session, an 08:50 pre-open lead-in, and a 15:00
// pre-close carve-out. Holidays are intentionally empty here; deployments
// load the current year's holiday set from configuration.
func Default(loc *time.Location) Calendar {
	return Calendar{
		Location:     loc,
		Session:      Window{9, 0, 15, 20},
		PreOpen:      Window{8, 50, 9, 0},
		PreCloseFrom: Window{15, 0, 15, 20},
		Holidays:     map[string]bool{},
	}
}

func minutesOf(h, m int) int { return h*60 + m }

// IsTradingDay reports whether t falls on a weekday that is not a
// configured holiday.
func (c Calendar) IsTradingDay(t time.Time) bool {
	t = t.In(c.Location)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !c.Holidays[t.Format("2006-01-02")]
}

// IsOpen reports whether t falls inside the intraday session on a trading
// day (§4.4: "Fires at every scheduler tick between 09:00 and 15:20 local
// time, weekdays only").
func (c Calendar) IsOpen(t time.Time) bool {
	if !c.IsTradingDay(t) {
		return false
	}
	t = t.In(c.Location)
	mins := minutesOf(t.Hour(), t.Minute())
	withinWindow := mins >= minutesOf(c.Session.OpenHour, c.Session.OpenMinute) &&
		mins <= minutesOf(c.Session.CloseHour, c.Session.CloseMinute)
	if !withinWindow {
		return false
	}
	if c.Live != nil && !c.Live.IsStale() {
		if st := c.Live.Status(); st.Halted {
			return false
		}
	}
	return true
}

// InPreOpenWindow reports whether t falls inside the pre-open lead-in used
// to trigger the single 07:00-ish pre-open scheduler pass (§4.11 describes
// a 07:00 run; the pre-open window here gates the universe-filter job, a
// separate, earlier trigger than the pre-open scheduler tick).
func (c Calendar) InPreOpenWindow(t time.Time) bool {
	if !c.IsTradingDay(t) {
		return false
	}
	t = t.In(c.Location)
	mins := minutesOf(t.Hour(), t.Minute())
	return mins >= minutesOf(c.PreOpen.OpenHour, c.PreOpen.OpenMinute) &&
		mins < minutesOf(c.PreOpen.CloseHour, c.PreOpen.CloseMinute)
}

// InPreCloseWindow reports whether t falls inside the 15:00-15:20
// pre-close carve-out: no new buys, and sell evaluation is tightened
// (§4.5, §4.6 EOD_CLEANUP).
func (c Calendar) InPreCloseWindow(t time.Time) bool {
	if !c.IsOpen(t) {
		return false
	}
	t = t.In(c.Location)
	mins := minutesOf(t.Hour(), t.Minute())
	return mins >= minutesOf(c.PreCloseFrom.OpenHour, c.PreCloseFrom.OpenMinute)
}

// VolumeRatioMultiplier returns the stepwise time-of-day multiplier applied
// to a ticker's raw volume ratio before it is compared against the policy
// floor (§4.5 hard filter 4): 09h=0.10x, 10h=0.30x, 11h=0.50x, 12-13h=0.70x,
// >=14h=1.00x.
func (c Calendar) VolumeRatioMultiplier(t time.Time) float64 {
	h := t.In(c.Location).Hour()
	switch {
	case h <= 9:
		return 0.10
	case h == 10:
		return 0.30
	case h == 11:
		return 0.50
	case h == 12 || h == 13:
		return 0.70
	default:
		return 1.00
	}
}
