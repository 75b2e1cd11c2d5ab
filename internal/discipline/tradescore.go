package discipline

import (
	"github.com/shopspring/decimal"

	"tradeaudit/internal/models"
)

var (
	sizeFloor = decimal.New(10000, 0)
	sizeCeil  = decimal.New(500000, 0)
)

// ScoreTrades assigns each trade its 0-100 score and grade in place and
// returns the average score, zero when there are no trades.
func (s *Scorer) ScoreTrades(trades []models.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	var total float64
	for i := range trades {
		score := s.TradeScore(trades[i])
		trades[i].Score = score
		trades[i].Grade = Grade(score)
		total += score
	}
	return total / float64(len(trades))
}

// TradeScore rates one trade from a neutral 50: profitability, a holding
// period that is neither panic nor drift, and a reasonable position size.
func (s *Scorer) TradeScore(t models.Trade) float64 {
	score := 50.0

	smallLoss := decimal.NewFromFloat(s.cfg.SmallLossFloor).Neg()
	switch {
	case t.NetPnL.IsPositive():
		score += 30
	case t.NetPnL.GreaterThan(smallLoss):
		score += 15
	}

	if minutes := t.HoldingPeriod.Minutes(); minutes > 0 {
		switch {
		case minutes < 5:
			// Sub-5-minute exits are usually panic, not plan.
			score -= 10
		case minutes >= 15 && minutes <= 240:
			score += 20
		default:
			score += 10
		}
	}

	value := t.EntryValue()
	switch {
	case value.GreaterThanOrEqual(sizeFloor) && value.LessThanOrEqual(sizeCeil):
		score += 20
	case value.GreaterThan(sizeCeil):
		score += 5
	default:
		score += 10
	}

	return clamp(score, 0, 100)
}
