package models

import "time"

// FlagType identifies a detected behavioral pattern.
type FlagType string

const (
	FlagOvertrading     FlagType = "OVERTRADING"
	FlagRevengeTrade    FlagType = "REVENGE_TRADE"
	FlagNoStopLoss      FlagType = "NO_STOP_LOSS"
	FlagSizeEscalation  FlagType = "POSITION_SIZE_ESCALATION"
	FlagLossStreak      FlagType = "LOSS_STREAK"
	FlagWinRateMismatch FlagType = "WINRATE_PROFIT_MISMATCH"
)

// FlagTypes returns all pattern categories in stable rendering order.
func FlagTypes() []FlagType {
	return []FlagType{
		FlagOvertrading,
		FlagRevengeTrade,
		FlagNoStopLoss,
		FlagSizeEscalation,
		FlagLossStreak,
		FlagWinRateMismatch,
	}
}

// Title returns the category's human-readable name.
func (t FlagType) Title() string {
	switch t {
	case FlagOvertrading:
		return "Overtrading"
	case FlagRevengeTrade:
		return "Revenge Trade"
	case FlagNoStopLoss:
		return "No Stop Loss"
	case FlagSizeEscalation:
		return "Position Size Escalation"
	case FlagLossStreak:
		return "Losing Streak"
	case FlagWinRateMismatch:
		return "Cutting Winners, Letting Losers Run"
	}
	return string(t)
}

// Severity grades how serious a flag is.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// PatternFlag is one detected behavioral pattern attached to the trades
// that triggered it. Detail carries the numbers that fired the rule.
// WindowStart/WindowEnd are set only for time-windowed patterns.
type PatternFlag struct {
	Type        FlagType
	Severity    Severity
	TradeIDs    []string
	Detail      string
	WindowStart time.Time
	WindowEnd   time.Time
}
