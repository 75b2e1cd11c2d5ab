// Package discipline turns a run's trades and pattern flags into the
// 0-100 discipline score, per-trade scores, summary statistics and
// plain-language advice.
package discipline

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"tradeaudit/internal/config"
	"tradeaudit/internal/models"
)

// payoffRatioCap stands in for the payoff ratio when there are wins but
// no losses, putting the payoff component at 90.
const payoffRatioCap = 9.0

// Scorer computes discipline scores from trades and flags.
type Scorer struct {
	cfg config.ScorerConfig
}

// NewScorer creates a scorer with the given weights and penalties.
func NewScorer(cfg config.ScorerConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Evaluate scores the trades in place, then derives the summary statistics
// and the run-level score. Trades are expected to be the full-confidence
// set; unclosed positions only contribute their count.
func (s *Scorer) Evaluate(trades []models.Trade, unclosedCount int, flags []models.PatternFlag) (models.Summary, models.DisciplineScore) {
	avgTradeScore := s.ScoreTrades(trades)
	summary := s.Summarize(trades, unclosedCount, flags)
	score := s.Score(summary, flags, avgTradeScore)
	return summary, score
}

// Summarize computes portfolio-level statistics. The loss streak is taken
// over entry order; AvgLoss and ProfitFactor use loss magnitudes.
func (s *Scorer) Summarize(trades []models.Trade, unclosedCount int, flags []models.PatternFlag) models.Summary {
	ordered := make([]models.Trade, len(trades))
	copy(ordered, trades)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].EntryAt.Equal(ordered[j].EntryAt) {
			return ordered[i].EntryAt.Before(ordered[j].EntryAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	sum := models.Summary{
		TotalTrades:   len(ordered),
		UnclosedCount: unclosedCount,
		FlagCount:     len(flags),
	}

	winTotal := decimal.Zero
	lossTotal := decimal.Zero
	streak := 0
	for _, t := range ordered {
		sum.GrossPnL = sum.GrossPnL.Add(t.GrossPnL)
		sum.TotalCharges = sum.TotalCharges.Add(t.TotalCharges)
		sum.NetPnL = sum.NetPnL.Add(t.NetPnL)
		sum.TotalBrokerage = sum.TotalBrokerage.Add(t.Charges.Brokerage)
		sum.TotalSTT = sum.TotalSTT.Add(t.Charges.STT)

		switch {
		case t.NetPnL.IsPositive():
			sum.Wins++
			winTotal = winTotal.Add(t.NetPnL)
			if t.NetPnL.GreaterThan(sum.LargestWin) {
				sum.LargestWin = t.NetPnL
			}
			streak = 0
		case t.NetPnL.IsNegative():
			sum.Losses++
			lossTotal = lossTotal.Add(t.NetPnL.Abs())
			if t.NetPnL.LessThan(sum.LargestLoss) {
				sum.LargestLoss = t.NetPnL
			}
			streak++
			if streak > sum.MaxLossStreak {
				sum.MaxLossStreak = streak
			}
		default:
			streak = 0
		}
	}

	if sum.TotalTrades > 0 {
		sum.WinRate = float64(sum.Wins) / float64(sum.TotalTrades)
		sum.Expectancy = sum.NetPnL.DivRound(decimal.New(int64(sum.TotalTrades), 0), 2)
	}
	if sum.Wins > 0 {
		sum.AvgWin = winTotal.DivRound(decimal.New(int64(sum.Wins), 0), 2)
	}
	if sum.Losses > 0 {
		sum.AvgLoss = lossTotal.DivRound(decimal.New(int64(sum.Losses), 0), 2)
		pf, _ := winTotal.Div(lossTotal).Float64()
		sum.ProfitFactor = pf
	} else if sum.Wins > 0 {
		// No losses; keep the ratio finite for storage and export.
		sum.ProfitFactor = 99.99
	}
	return sum
}

// Score combines the summary and flags into the run-level score.
// avgTradeScore comes from ScoreTrades and only feeds Metrics.
func (s *Scorer) Score(sum models.Summary, flags []models.PatternFlag, avgTradeScore float64) models.DisciplineScore {
	winScore := 100 * sum.WinRate

	var payoffRatio float64
	switch {
	case sum.Losses > 0 && sum.AvgLoss.IsPositive():
		payoffRatio, _ = sum.AvgWin.Div(sum.AvgLoss).Float64()
	case sum.Wins > 0:
		payoffRatio = payoffRatioCap
	}
	payoffScore := 100 * payoffRatio / (1 + payoffRatio)

	streakRatio := 0.0
	if s.cfg.StreakCap > 0 {
		streakRatio = float64(sum.MaxLossStreak) / float64(s.cfg.StreakCap)
		if streakRatio > 1 {
			streakRatio = 1
		}
	}
	consistencyScore := 100 * (1 - streakRatio)

	base := s.cfg.Weights.WinRate*winScore +
		s.cfg.Weights.Payoff*payoffScore +
		s.cfg.Weights.Consistency*consistencyScore

	var penalty float64
	byCategory := make(map[models.FlagType]float64)
	for _, f := range flags {
		p := s.cfg.Penalties[categoryKey(f.Type)] * s.cfg.SeverityWeights[severityKey(f.Severity)]
		penalty += p
		byCategory[f.Type] += p
	}

	subScores := make(map[models.FlagType]float64, len(models.FlagTypes()))
	for _, ft := range models.FlagTypes() {
		subScores[ft] = clamp(100-byCategory[ft], 0, 100)
	}

	composite := clamp(base-penalty, 0, 100)
	return models.DisciplineScore{
		Composite: composite,
		Grade:     Grade(composite),
		SubScores: subScores,
		Metrics: map[string]float64{
			"win_rate":          sum.WinRate,
			"payoff_ratio":      payoffRatio,
			"profit_factor":     sum.ProfitFactor,
			"max_loss_streak":   float64(sum.MaxLossStreak),
			"win_rate_score":    winScore,
			"payoff_score":      payoffScore,
			"consistency_score": consistencyScore,
			"base_score":        base,
			"penalty":           penalty,
			"avg_trade_score":   avgTradeScore,
		},
	}
}

// Grade maps a 0-100 score to the report-card ladder.
func Grade(score float64) string {
	switch {
	case score >= 90:
		return "A+"
	case score >= 80:
		return "A"
	case score >= 70:
		return "B"
	case score >= 60:
		return "C"
	case score >= 50:
		return "D"
	}
	return "F"
}

func categoryKey(t models.FlagType) string {
	return strings.ToLower(string(t))
}

func severityKey(sev models.Severity) string {
	return strings.ToLower(string(sev))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
