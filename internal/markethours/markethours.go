// Package markethours knows the NSE trading calendar: session hours,
// weekends, exchange holidays, and HH:MM time-of-day parsing for the
// engine's cutoff and square-off settings.
package markethours

import (
	"strconv"
	"strings"
	"time"
)

// IST is the Indian Standard Time location (UTC+5:30).
var IST = time.FixedZone("IST", 5*3600+30*60)

// Market hours in IST.
const (
	OpenHour    = 9
	OpenMinute  = 15
	CloseHour   = 15
	CloseMinute = 30
)

// IsMarketOpen returns true if t falls within NSE trading hours
// (9:15 AM – 3:30 PM IST, Mon–Fri, excluding holidays).
func IsMarketOpen(t time.Time) bool {
	ist := t.In(IST)
	wd := ist.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	if IsHoliday(ist) {
		return false
	}
	hm := MinutesOfDay(ist)
	return hm >= OpenHour*60+OpenMinute && hm < CloseHour*60+CloseMinute
}

// IsTradingDay returns true if t is a weekday and not a holiday.
func IsTradingDay(t time.Time) bool {
	ist := t.In(IST)
	wd := ist.Weekday()
	return wd >= time.Monday && wd <= time.Friday && !IsHoliday(ist)
}

// MinutesOfDay returns the minute-of-day for t in IST (0-1439).
func MinutesOfDay(t time.Time) int {
	ist := t.In(IST)
	return ist.Hour()*60 + ist.Minute()
}

// TodayClose returns today's market close time (3:30 PM IST).
func TodayClose(t time.Time) time.Time {
	ist := t.In(IST)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), CloseHour, CloseMinute, 0, 0, IST)
}

// ParseHHMM parses a "HH:MM" string into minutes past midnight.
// Malformed or out-of-range strings defensively return fallback so a bad
// config value can never poison a time comparison.
func ParseHHMM(s string, fallback int) int {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return fallback
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return fallback
	}
	return h*60 + m
}
