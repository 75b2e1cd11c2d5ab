package patterns

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tradeaudit/internal/models"
	"tradeaudit/pkg/utils"
)

// overtrading flags every non-overlapping rolling 24h window holding more
// than the configured number of entries. The scan flags the maximal
// violating window and resumes after it.
func (d *Detector) overtrading(trades []models.Trade) []models.PatternFlag {
	limit := d.cfg.OvertradingMax
	if limit <= 0 {
		return nil
	}

	var flags []models.PatternFlag
	i := 0
	for i < len(trades) {
		windowEnd := trades[i].EntryAt.Add(24 * time.Hour)
		j := i
		for j+1 < len(trades) && trades[j+1].EntryAt.Before(windowEnd) {
			j++
		}
		count := j - i + 1
		if count > limit {
			severity := models.SeverityMedium
			if count >= 2*limit {
				severity = models.SeverityHigh
			}
			flags = append(flags, models.PatternFlag{
				Type:        models.FlagOvertrading,
				Severity:    severity,
				TradeIDs:    ids(trades[i : j+1]),
				Detail:      fmt.Sprintf("%d trades entered within 24h, limit is %d", count, limit),
				WindowStart: trades[i].EntryAt,
				WindowEnd:   trades[j].EntryAt,
			})
			i = j + 1
			continue
		}
		i++
	}
	return flags
}

// revengeTrades flags a loss followed by a larger re-entry on the same
// instrument within the configured gap.
func (d *Detector) revengeTrades(trades []models.Trade) []models.PatternFlag {
	gap := d.cfg.RevengeGap()
	var flags []models.PatternFlag
	for i, loss := range trades {
		if !loss.NetPnL.IsNegative() {
			continue
		}
		for j := i + 1; j < len(trades); j++ {
			next := trades[j]
			if next.Symbol != loss.Symbol || next.Segment != loss.Segment {
				continue
			}
			reentry := next.EntryAt.Sub(loss.ExitAt)
			if reentry >= 0 && reentry <= gap && next.Quantity > loss.Quantity {
				severity := models.SeverityMedium
				if next.Quantity >= 2*loss.Quantity {
					severity = models.SeverityHigh
				}
				flags = append(flags, models.PatternFlag{
					Type:     models.FlagRevengeTrade,
					Severity: severity,
					TradeIDs: []string{loss.ID, next.ID},
					Detail: fmt.Sprintf("re-entered %s within %s of a loss, size %d vs %d",
						loss.Symbol, utils.FormatDuration(reentry), next.Quantity, loss.Quantity),
					WindowStart: loss.ExitAt,
					WindowEnd:   next.EntryAt,
				})
			}
			break
		}
	}
	return flags
}

// noStopLoss flags losing trades that rode past the stop-loss threshold
// with no de-risking: the worst-priced exit is the first exit.
func (d *Detector) noStopLoss(trades []models.Trade) []models.PatternFlag {
	threshold := d.cfg.StopLossPct
	var flags []models.PatternFlag
	for _, t := range trades {
		if !t.NetPnL.IsNegative() || len(t.Exits) == 0 || t.AvgEntryPrice.IsZero() {
			continue
		}

		worstIdx := 0
		for i := 1; i < len(t.Exits); i++ {
			if priceWorse(t.Direction, t.Exits[i].Price, t.Exits[worstIdx].Price) {
				worstIdx = i
			}
		}
		worst := t.Exits[worstIdx].Price

		var excursion decimal.Decimal
		if t.Direction == models.DirectionLong {
			excursion = t.AvgEntryPrice.Sub(worst).Div(t.AvgEntryPrice)
		} else {
			excursion = worst.Sub(t.AvgEntryPrice).Div(t.AvgEntryPrice)
		}
		adverse, _ := excursion.Float64()

		if adverse > threshold && worstIdx == 0 {
			flags = append(flags, models.PatternFlag{
				Type:     models.FlagNoStopLoss,
				Severity: models.SeverityHigh,
				TradeIDs: []string{t.ID},
				Detail: fmt.Sprintf("%s moved %.1f%% against entry before the first exit, stop-loss threshold is %.1f%%",
					t.Symbol, adverse*100, threshold*100),
			})
		}
	}
	return flags
}

// priceWorse reports whether a is a worse exit price than b for the given
// trade direction.
func priceWorse(direction models.Direction, a, b decimal.Decimal) bool {
	if direction == models.DirectionShort {
		return a.GreaterThan(b)
	}
	return a.LessThan(b)
}

// sizeEscalation flags runs of same-instrument same-direction trades whose
// quantities keep growing by at least the configured ratio.
func (d *Detector) sizeEscalation(trades []models.Trade) []models.PatternFlag {
	minRun := d.cfg.EscalationMinRun
	ratio := d.cfg.EscalationRatio
	if minRun < 2 || ratio <= 0 {
		return nil
	}

	var flags []models.PatternFlag
	keys, groups := byInstrument(trades)
	for _, key := range keys {
		g := groups[key]
		i := 0
		for i < len(g) {
			j := i
			for j+1 < len(g) &&
				g[j+1].Direction == g[j].Direction &&
				float64(g[j+1].Quantity) >= ratio*float64(g[j].Quantity) {
				j++
			}
			if run := j - i + 1; run >= minRun {
				severity := models.SeverityMedium
				if g[j].NetPnL.IsNegative() {
					severity = models.SeverityHigh
				}
				flags = append(flags, models.PatternFlag{
					Type:     models.FlagSizeEscalation,
					Severity: severity,
					TradeIDs: ids(g[i : j+1]),
					Detail: fmt.Sprintf("%s %s size escalated %d to %d over %d consecutive trades",
						g[i].Symbol, strings.ToLower(string(g[i].Direction)), g[i].Quantity, g[j].Quantity, run),
					WindowStart: g[i].EntryAt,
					WindowEnd:   g[j].EntryAt,
				})
			}
			i = j + 1
		}
	}
	return flags
}

// lossStreaks flags every maximal run of consecutive losing trades at or
// beyond the configured length.
func (d *Detector) lossStreaks(trades []models.Trade) []models.PatternFlag {
	minStreak := d.cfg.LossStreak
	if minStreak <= 0 {
		return nil
	}

	var flags []models.PatternFlag
	i := 0
	for i < len(trades) {
		if !trades[i].NetPnL.IsNegative() {
			i++
			continue
		}
		j := i
		for j+1 < len(trades) && trades[j+1].NetPnL.IsNegative() {
			j++
		}
		if streak := j - i + 1; streak >= minStreak {
			flags = append(flags, models.PatternFlag{
				Type:        models.FlagLossStreak,
				Severity:    models.SeverityHigh,
				TradeIDs:    ids(trades[i : j+1]),
				Detail:      fmt.Sprintf("%d consecutive losing trades", streak),
				WindowStart: trades[i].EntryAt,
				WindowEnd:   trades[j].ExitAt,
			})
		}
		i = j + 1
	}
	return flags
}

// winRateMismatch flags the cutting-winners-letting-losers-run shape: a
// healthy win rate that still loses money. The flagged trades are the
// losses larger than the average win.
func (d *Detector) winRateMismatch(trades []models.Trade) []models.PatternFlag {
	var wins int
	grossProfit := decimal.Zero
	grossLoss := decimal.Zero
	for _, t := range trades {
		if t.NetPnL.IsPositive() {
			wins++
			grossProfit = grossProfit.Add(t.NetPnL)
		} else if t.NetPnL.IsNegative() {
			grossLoss = grossLoss.Add(t.NetPnL.Abs())
		}
	}
	if wins == 0 || grossLoss.IsZero() {
		return nil
	}

	winRate := float64(wins) / float64(len(trades))
	profitFactor, _ := grossProfit.Div(grossLoss).Float64()
	if winRate <= d.cfg.MismatchWinRate || profitFactor >= 1 {
		return nil
	}

	avgWin := grossProfit.Div(decimal.New(int64(wins), 0))
	var oversized []string
	for _, t := range trades {
		if t.NetPnL.IsNegative() && t.NetPnL.Abs().GreaterThan(avgWin) {
			oversized = append(oversized, t.ID)
		}
	}

	return []models.PatternFlag{{
		Type:     models.FlagWinRateMismatch,
		Severity: models.SeverityHigh,
		TradeIDs: oversized,
		Detail: fmt.Sprintf("win rate %.0f%% but profit factor %.2f; losses outweigh wins",
			winRate*100, profitFactor),
	}}
}
