package discipline

import "tradeaudit/internal/models"

// Advice returns the plain-language recommendations the report prints,
// derived from the same statistics the score uses.
func (s *Scorer) Advice(sum models.Summary, score models.DisciplineScore) []string {
	if sum.TotalTrades == 0 {
		return nil
	}
	var advice []string
	if sum.WinRate < 0.40 {
		advice = append(advice,
			"Win rate under 40%: review entry criteria and wait for confirmed setups instead of anticipating moves.")
	}
	if sum.ProfitFactor < 1 {
		advice = append(advice,
			"Losses outweigh profits: decide the stop loss before entry and exit mechanically when it hits.")
	}
	if score.Metrics["avg_trade_score"] < 60 {
		advice = append(advice,
			"Average trade score under 60: fewer, better-planned trades beat frequent impulsive ones.")
	}
	if sum.ChargesToNetRatio() > 0.50 {
		advice = append(advice,
			"Charges ate more than half of the net result: cut churn or size trades so costs amortize better.")
	}
	return advice
}
