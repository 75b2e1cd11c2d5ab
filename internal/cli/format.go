// Package cli provides the command-line interface for the trade audit tool.
package cli

import (
	"time"

	"tradeaudit/pkg/utils"
)

// FormatTime formats a time in IST.
func FormatTime(t time.Time) string {
	return t.In(utils.IndiaLocation).Format("15:04:05")
}

// FormatDate formats a date.
func FormatDate(t time.Time) string {
	return t.In(utils.IndiaLocation).Format("02-Jan-2006")
}

// FormatDateTime formats a datetime.
func FormatDateTime(t time.Time) string {
	return t.In(utils.IndiaLocation).Format("02-Jan-2006 15:04:05")
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
