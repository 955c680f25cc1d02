package utils

import (
	"strings"
	"time"

	"portfolio-dashboard/src/logger"

	"github.com/scmhub/calendar"
)

// TradingCalendar answers whether the portfolio's exchange is open, using
// scmhub/calendar. It only feeds status reporting: refreshes run regardless.
type TradingCalendar struct {
	MIC      string
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// NewTradingCalendar loads the calendar of an exchange by MIC code (ISO 10383),
// falling back to xnys and then to a Mon-Fri 09:30-16:00 New York schedule.
func NewTradingCalendar(mic string, log *logger.Logger) *TradingCalendar {
	mic = strings.ToLower(strings.TrimSpace(mic))
	if mic == "" {
		mic = "xnys"
	}

	cal := calendar.GetCalendar(mic)
	if cal == nil && mic != "xnys" {
		log.Warning("No calendar for MIC '%s', using xnys", mic)
		mic = "xnys"
		cal = calendar.GetCalendar(mic)
	}

	if cal == nil {
		log.Warning("Failed to load calendar for MIC '%s'. Using simple fallback (Mon-Fri 09:30-16:00 New York).", mic)
		nyLoc, _ := time.LoadLocation("America/New_York")
		if nyLoc == nil {
			nyLoc = time.UTC // Worst case
		}
		return &TradingCalendar{MIC: mic, Fallback: true, Timezone: nyLoc}
	}

	return &TradingCalendar{MIC: mic, Calendar: cal, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

func (tc *TradingCalendar) IsTradingDay(date time.Time) bool {
	if tc.Timezone != nil {
		date = date.In(tc.Timezone)
	}

	if tc.Fallback {
		weekday := date.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return tc.Calendar.IsBusinessDay(date)
}

// -----------------------------------------------------------------------------

// IsOpen reports whether the exchange is in session at t.
func (tc *TradingCalendar) IsOpen(t time.Time) bool {
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if tc.Fallback {
		if !tc.IsTradingDay(t) {
			return false
		}

		hour := t.Hour()
		minute := t.Minute()

		// 9:30 - 16:00 local time
		return (hour > 9 || (hour == 9 && minute >= 30)) && hour < 16
	}

	return tc.Calendar.IsOpen(t)
}
