package patterns

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tradeaudit/internal/config"
	"tradeaudit/internal/models"
	"tradeaudit/pkg/utils"
)

var day0 = time.Date(2025, 6, 2, 9, 30, 0, 0, utils.IndiaLocation)

func mkTrade(id, symbol string, entryAt time.Time, hold time.Duration, qty int64, netPnL string) models.Trade {
	return models.Trade{
		ID:            id,
		Symbol:        symbol,
		Segment:       models.SegmentEquity,
		Direction:     models.DirectionLong,
		Quantity:      qty,
		EntryAt:       entryAt,
		ExitAt:        entryAt.Add(hold),
		HoldingPeriod: hold,
		NetPnL:        decimal.RequireFromString(netPnL),
		Confidence:    models.ConfidenceFull,
	}
}

func flagsOf(flags []models.PatternFlag, ft models.FlagType) []models.PatternFlag {
	var out []models.PatternFlag
	for _, f := range flags {
		if f.Type == ft {
			out = append(out, f)
		}
	}
	return out
}

func TestMinTradesGate(t *testing.T) {
	d := NewDetector(config.Default().Detector)
	var trades []models.Trade
	for i := 0; i < 4; i++ {
		trades = append(trades, mkTrade(fmt.Sprintf("T%d", i), "SCALP", day0.Add(time.Duration(i)*time.Minute), time.Minute, 10, "-100"))
	}

	if flags := d.Detect(trades); flags != nil {
		t.Errorf("below min_trades no rule may fire, got %d flags", len(flags))
	}
}

func TestPartialConfidenceExcluded(t *testing.T) {
	d := NewDetector(config.Default().Detector)
	var trades []models.Trade
	for i := 0; i < 6; i++ {
		tr := mkTrade(fmt.Sprintf("T%d", i), "SCALP", day0.Add(time.Duration(i)*time.Minute), time.Minute, 10, "-100")
		if i >= 4 {
			tr.Confidence = models.ConfidencePartial
		}
		trades = append(trades, tr)
	}

	if flags := d.Detect(trades); flags != nil {
		t.Errorf("partial trades must not count toward detection, got %d flags", len(flags))
	}
}

func TestOvertrading(t *testing.T) {
	d := NewDetector(config.Default().Detector)

	hourly := func(n int, start time.Time) []models.Trade {
		var trades []models.Trade
		for i := 0; i < n; i++ {
			trades = append(trades, mkTrade(fmt.Sprintf("T%s-%d", start.Format("0102"), i), "SCALP",
				start.Add(time.Duration(i)*time.Hour), 10*time.Minute, 10, "100"))
		}
		return trades
	}

	t.Run("at the limit stays quiet", func(t *testing.T) {
		flags := flagsOf(d.Detect(hourly(10, day0)), models.FlagOvertrading)
		if len(flags) != 0 {
			t.Errorf("10 trades in 24h is within limit 10, got %d flags", len(flags))
		}
	})

	t.Run("over the limit flags one window", func(t *testing.T) {
		flags := flagsOf(d.Detect(hourly(12, day0)), models.FlagOvertrading)
		if len(flags) != 1 {
			t.Fatalf("expected one flag, got %d", len(flags))
		}
		if len(flags[0].TradeIDs) != 12 {
			t.Errorf("expected all 12 trades in the window, got %d", len(flags[0].TradeIDs))
		}
		if flags[0].Severity != models.SeverityMedium {
			t.Errorf("expected medium severity, got %s", flags[0].Severity)
		}
	})

	t.Run("double the limit is high severity", func(t *testing.T) {
		flags := flagsOf(d.Detect(hourly(20, day0)), models.FlagOvertrading)
		if len(flags) != 1 || flags[0].Severity != models.SeverityHigh {
			t.Errorf("20 trades in 24h must flag high, got %+v", flags)
		}
	})

	t.Run("separate days flag separately", func(t *testing.T) {
		trades := append(hourly(11, day0), hourly(11, day0.AddDate(0, 0, 40))...)
		flags := flagsOf(d.Detect(trades), models.FlagOvertrading)
		if len(flags) != 2 {
			t.Errorf("expected two non-overlapping windows, got %d", len(flags))
		}
	})
}

func TestRevengeTrade(t *testing.T) {
	d := NewDetector(config.Default().Detector)

	// Winning padding on other instruments, spaced across days.
	pad := func() []models.Trade {
		var trades []models.Trade
		for i := 0; i < 3; i++ {
			trades = append(trades, mkTrade(fmt.Sprintf("PAD%d", i), fmt.Sprintf("OTHER%d", i),
				day0.AddDate(0, 0, 10+i), time.Hour, 10, "1000"))
		}
		return trades
	}

	loss := mkTrade("LOSS", "SBIN", day0, 30*time.Minute, 10, "-500")

	t.Run("bigger re-entry within the gap", func(t *testing.T) {
		next := mkTrade("NEXT", "SBIN", loss.ExitAt.Add(15*time.Minute), time.Hour, 15, "200")
		flags := flagsOf(d.Detect(append(pad(), loss, next)), models.FlagRevengeTrade)
		if len(flags) != 1 {
			t.Fatalf("expected one revenge flag, got %d", len(flags))
		}
		if flags[0].Severity != models.SeverityMedium {
			t.Errorf("1.5x size is medium, got %s", flags[0].Severity)
		}
		want := []string{"LOSS", "NEXT"}
		for i, id := range want {
			if flags[0].TradeIDs[i] != id {
				t.Errorf("expected trade IDs %v, got %v", want, flags[0].TradeIDs)
			}
		}
	})

	t.Run("doubled size is high severity", func(t *testing.T) {
		next := mkTrade("NEXT", "SBIN", loss.ExitAt.Add(15*time.Minute), time.Hour, 20, "200")
		flags := flagsOf(d.Detect(append(pad(), loss, next)), models.FlagRevengeTrade)
		if len(flags) != 1 || flags[0].Severity != models.SeverityHigh {
			t.Errorf("2x size must flag high, got %+v", flags)
		}
	})

	t.Run("outside the gap stays quiet", func(t *testing.T) {
		next := mkTrade("NEXT", "SBIN", loss.ExitAt.Add(45*time.Minute), time.Hour, 20, "200")
		flags := flagsOf(d.Detect(append(pad(), loss, next)), models.FlagRevengeTrade)
		if len(flags) != 0 {
			t.Errorf("re-entry after the gap is not revenge, got %+v", flags)
		}
	})

	t.Run("same size stays quiet", func(t *testing.T) {
		next := mkTrade("NEXT", "SBIN", loss.ExitAt.Add(15*time.Minute), time.Hour, 10, "200")
		flags := flagsOf(d.Detect(append(pad(), loss, next)), models.FlagRevengeTrade)
		if len(flags) != 0 {
			t.Errorf("equal size is not revenge, got %+v", flags)
		}
	})

	t.Run("different instrument stays quiet", func(t *testing.T) {
		next := mkTrade("NEXT", "INFY", loss.ExitAt.Add(15*time.Minute), time.Hour, 20, "200")
		flags := flagsOf(d.Detect(append(pad(), loss, next)), models.FlagRevengeTrade)
		if len(flags) != 0 {
			t.Errorf("re-entry on another instrument is not revenge, got %+v", flags)
		}
	})
}

func TestNoStopLoss(t *testing.T) {
	d := NewDetector(config.Default().Detector)

	pad := func() []models.Trade {
		var trades []models.Trade
		for i := 0; i < 4; i++ {
			trades = append(trades, mkTrade(fmt.Sprintf("PAD%d", i), fmt.Sprintf("OTHER%d", i),
				day0.AddDate(0, 0, 10+i), time.Hour, 10, "1000"))
		}
		return trades
	}

	deepLoss := func(exitPrices ...string) models.Trade {
		tr := mkTrade("DEEP", "SBIN", day0, 2*time.Hour, 30, "-2400")
		tr.AvgEntryPrice = decimal.RequireFromString("100.00")
		for i, p := range exitPrices {
			tr.Exits = append(tr.Exits, models.TradeLeg{
				FillID:     fmt.Sprintf("X%d", i),
				Quantity:   10,
				Price:      decimal.RequireFromString(p),
				ExecutedAt: day0.Add(time.Duration(i+1) * 30 * time.Minute),
			})
		}
		return tr
	}

	t.Run("riding past the threshold flags high", func(t *testing.T) {
		flags := flagsOf(d.Detect(append(pad(), deepLoss("92.00", "93.00", "94.00"))), models.FlagNoStopLoss)
		if len(flags) != 1 || flags[0].Severity != models.SeverityHigh {
			t.Fatalf("an 8%% adverse move with no de-risking must flag high, got %+v", flags)
		}
		if flags[0].TradeIDs[0] != "DEEP" {
			t.Errorf("expected the deep loss flagged, got %v", flags[0].TradeIDs)
		}
	})

	t.Run("de-risking before the bottom stays quiet", func(t *testing.T) {
		flags := flagsOf(d.Detect(append(pad(), deepLoss("98.00", "92.00", "92.50"))), models.FlagNoStopLoss)
		if len(flags) != 0 {
			t.Errorf("a partial exit before the worst price is not flagged, got %+v", flags)
		}
	})

	t.Run("small adverse move stays quiet", func(t *testing.T) {
		flags := flagsOf(d.Detect(append(pad(), deepLoss("96.00", "97.00"))), models.FlagNoStopLoss)
		if len(flags) != 0 {
			t.Errorf("a 4%% move is inside the 5%% threshold, got %+v", flags)
		}
	})
}

func TestPositionSizeEscalation(t *testing.T) {
	d := NewDetector(config.Default().Detector)

	escalating := func(lastNet string, qtys ...int64) []models.Trade {
		var trades []models.Trade
		for i, q := range qtys {
			net := "500"
			if i == len(qtys)-1 {
				net = lastNet
			}
			trades = append(trades, mkTrade(fmt.Sprintf("ESC%d", i), "NIFTYTRADES",
				day0.AddDate(0, 0, i), time.Hour, q, net))
		}
		// Pad count over the gate on another instrument.
		for i := 0; i < 3; i++ {
			trades = append(trades, mkTrade(fmt.Sprintf("PAD%d", i), fmt.Sprintf("OTHER%d", i),
				day0.AddDate(0, 0, 20+i), time.Hour, 10, "1000"))
		}
		return trades
	}

	t.Run("three escalating trades flag medium", func(t *testing.T) {
		flags := flagsOf(d.Detect(escalating("500", 10, 15, 23)), models.FlagSizeEscalation)
		if len(flags) != 1 {
			t.Fatalf("expected one escalation flag, got %d", len(flags))
		}
		if flags[0].Severity != models.SeverityMedium {
			t.Errorf("a profitable run is medium, got %s", flags[0].Severity)
		}
		if len(flags[0].TradeIDs) != 3 {
			t.Errorf("expected 3 trades in the run, got %v", flags[0].TradeIDs)
		}
	})

	t.Run("run ending in a loss is high severity", func(t *testing.T) {
		flags := flagsOf(d.Detect(escalating("-2000", 10, 15, 23)), models.FlagSizeEscalation)
		if len(flags) != 1 || flags[0].Severity != models.SeverityHigh {
			t.Errorf("an escalation into a loss must flag high, got %+v", flags)
		}
	})

	t.Run("a sub-ratio step breaks the run", func(t *testing.T) {
		flags := flagsOf(d.Detect(escalating("500", 10, 14, 21)), models.FlagSizeEscalation)
		if len(flags) != 0 {
			t.Errorf("14 is under 1.5x10, no run, got %+v", flags)
		}
	})
}

func TestLossStreak(t *testing.T) {
	d := NewDetector(config.Default().Detector)

	streaky := func(nets ...string) []models.Trade {
		var trades []models.Trade
		for i, net := range nets {
			trades = append(trades, mkTrade(fmt.Sprintf("T%d", i), fmt.Sprintf("SYM%d", i),
				day0.AddDate(0, 0, i), time.Hour, 10, net))
		}
		return trades
	}

	t.Run("five consecutive losses flag", func(t *testing.T) {
		flags := flagsOf(d.Detect(streaky("9000", "-100", "-100", "-100", "-100", "-100", "9000")), models.FlagLossStreak)
		if len(flags) != 1 || flags[0].Severity != models.SeverityHigh {
			t.Fatalf("expected one high flag, got %+v", flags)
		}
		if len(flags[0].TradeIDs) != 5 {
			t.Errorf("expected the 5 losing trades, got %v", flags[0].TradeIDs)
		}
	})

	t.Run("a win resets the streak", func(t *testing.T) {
		flags := flagsOf(d.Detect(streaky("-100", "-100", "9000", "-100", "-100", "-100", "9000")), models.FlagLossStreak)
		if len(flags) != 0 {
			t.Errorf("no streak reaches 5, got %+v", flags)
		}
	})
}

func TestWinRateProfitMismatch(t *testing.T) {
	d := NewDetector(config.Default().Detector)

	mismatched := func(lossA, lossB string) []models.Trade {
		var trades []models.Trade
		for i := 0; i < 5; i++ {
			trades = append(trades, mkTrade(fmt.Sprintf("WIN%d", i), fmt.Sprintf("SYM%d", i),
				day0.AddDate(0, 0, i), time.Hour, 10, "100"))
		}
		trades = append(trades,
			mkTrade("LOSSA", "SYMA", day0.AddDate(0, 0, 6), time.Hour, 10, lossA),
			mkTrade("LOSSB", "SYMB", day0.AddDate(0, 0, 7), time.Hour, 10, lossB),
		)
		return trades
	}

	t.Run("good win rate losing money flags the big losses", func(t *testing.T) {
		flags := flagsOf(d.Detect(mismatched("-400", "-300")), models.FlagWinRateMismatch)
		if len(flags) != 1 || flags[0].Severity != models.SeverityHigh {
			t.Fatalf("expected one high flag, got %+v", flags)
		}
		if len(flags[0].TradeIDs) != 2 {
			t.Errorf("both oversized losses must be referenced, got %v", flags[0].TradeIDs)
		}
	})

	t.Run("profitable book stays quiet", func(t *testing.T) {
		flags := flagsOf(d.Detect(mismatched("-100", "-100")), models.FlagWinRateMismatch)
		if len(flags) != 0 {
			t.Errorf("profit factor above 1 is not a mismatch, got %+v", flags)
		}
	})
}
