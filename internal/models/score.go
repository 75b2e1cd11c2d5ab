package models

import "github.com/shopspring/decimal"

// DisciplineScore is the run-level 0-100 score with its breakdown.
// SubScores holds a 0-100 score per pattern category; Metrics holds the
// intermediate statistics the score was derived from.
type DisciplineScore struct {
	Composite float64
	Grade     string
	SubScores map[FlagType]float64
	Metrics   map[string]float64
}

// Summary holds portfolio-level statistics over the fully reconstructed
// trades of a run. Money fields are exact decimals.
type Summary struct {
	TotalTrades    int
	Wins           int
	Losses         int
	WinRate        float64
	GrossPnL       decimal.Decimal
	TotalCharges   decimal.Decimal
	NetPnL         decimal.Decimal
	AvgWin         decimal.Decimal
	AvgLoss        decimal.Decimal
	LargestWin     decimal.Decimal
	LargestLoss    decimal.Decimal
	ProfitFactor   float64
	Expectancy     decimal.Decimal
	TotalBrokerage decimal.Decimal
	TotalSTT       decimal.Decimal
	MaxLossStreak  int
	UnclosedCount  int
	FlagCount      int
}

// ChargesToNetRatio returns total charges relative to the absolute net
// P&L, zero when the net is zero. Used by the cost-related advice rule.
func (s Summary) ChargesToNetRatio() float64 {
	if s.NetPnL.IsZero() {
		return 0
	}
	r, _ := s.TotalCharges.Div(s.NetPnL.Abs()).Float64()
	return r
}
