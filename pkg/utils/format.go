// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatDecimalCurrency formats an exact decimal amount in Indian currency
// format (lakh/crore digit grouping) without a float round trip.
func FormatDecimalCurrency(amount decimal.Decimal) string {
	negative := amount.IsNegative()
	str := amount.Abs().StringFixed(2)
	parts := strings.Split(str, ".")

	result := "₹" + formatIndianNumber(parts[0]) + "." + parts[1]
	if negative {
		result = "-" + result
	}
	return result
}

// formatIndianNumber formats an integer string in Indian numbering system.
// Indian system: 1,00,00,000 (1 crore) vs Western: 10,000,000
func formatIndianNumber(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	// First group of 3 from right
	result := s[n-3:]
	s = s[:n-3]

	// Then groups of 2
	for len(s) > 0 {
		if len(s) >= 2 {
			result = s[len(s)-2:] + "," + result
			s = s[:len(s)-2]
		} else {
			result = s + "," + result
			s = ""
		}
	}

	return result
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}

// FormatPnL formats P&L with a leading sign for gains.
func FormatPnL(pnl decimal.Decimal) string {
	formatted := FormatDecimalCurrency(pnl)
	if pnl.IsPositive() {
		return "+" + formatted
	}
	return formatted
}

// FormatQuantity formats a quantity with Indian digit grouping.
func FormatQuantity(qty int64) string {
	negative := qty < 0
	if negative {
		qty = -qty
	}
	s := formatIndianNumber(fmt.Sprintf("%d", qty))
	if negative {
		return "-" + s
	}
	return s
}

// FormatLakhs formats an amount in lakhs.
func FormatLakhs(amount decimal.Decimal) string {
	return amount.Shift(-5).StringFixed(2) + " L"
}

// FormatCrores formats an amount in crores.
func FormatCrores(amount decimal.Decimal) string {
	return amount.Shift(-7).StringFixed(2) + " Cr"
}

// FormatCompact formats an amount in compact form (L/Cr).
func FormatCompact(amount decimal.Decimal) string {
	abs := amount.Abs()

	if abs.GreaterThanOrEqual(decimal.New(1, 7)) { // 1 crore
		return FormatCrores(amount)
	} else if abs.GreaterThanOrEqual(decimal.New(1, 5)) { // 1 lakh
		return FormatLakhs(amount)
	}
	return FormatDecimalCurrency(amount)
}
