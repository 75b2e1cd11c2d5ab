package utils

import (
	"strconv"
	"time"
)

// IndiaLocation is the timezone for Indian markets.
var IndiaLocation *time.Location

func init() {
	var err error
	IndiaLocation, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback to UTC+5:30
		IndiaLocation = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// TradingDay returns the IST calendar date of t, truncated to midnight.
func TradingDay(t time.Time) time.Time {
	ist := t.In(IndiaLocation)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), 0, 0, 0, 0, IndiaLocation)
}

// SameTradingDay reports whether two times fall on the same IST calendar day.
func SameTradingDay(a, b time.Time) bool {
	return TradingDay(a).Equal(TradingDay(b))
}

// MarketOpenAt returns the regular session open (9:15 IST) on t's trading day.
func MarketOpenAt(t time.Time) time.Time {
	day := TradingDay(t)
	return day.Add(9*time.Hour + 15*time.Minute)
}

// MarketCloseAt returns the regular session close (15:30 IST) on t's trading day.
func MarketCloseAt(t time.Time) time.Time {
	day := TradingDay(t)
	return day.Add(15*time.Hour + 30*time.Minute)
}

// IsWeekend reports whether t falls on a Saturday or Sunday in IST.
func IsWeekend(t time.Time) bool {
	wd := t.In(IndiaLocation).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// FormatDuration renders a holding period compactly: 12m, 3h45m, 2d4h.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	switch {
	case d < time.Minute:
		return "<1m"
	case d < time.Hour:
		return formatUnits(int(d.Minutes()), "m", 0, "")
	case d < 24*time.Hour:
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		return formatUnits(h, "h", m, "m")
	default:
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		return formatUnits(days, "d", h, "h")
	}
}

func formatUnits(major int, majorUnit string, minor int, minorUnit string) string {
	s := strconv.Itoa(major) + majorUnit
	if minor > 0 && minorUnit != "" {
		s += strconv.Itoa(minor) + minorUnit
	}
	return s
}
