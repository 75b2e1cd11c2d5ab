package reconstruct

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"tradeaudit/internal/models"
	"tradeaudit/pkg/utils"
)

// openLot is the unconsumed remainder of an opening fill plus the
// attribution needed when the lot closes.
type openLot struct {
	models.Lot
	broker   models.Broker
	exchange models.Exchange
}

// pendingTrade accumulates matched legs between a position opening and the
// zero-crossing that finalizes it. Entry legs are appended only as lots are
// consumed, so entry quantity equals exit quantity at every step.
type pendingTrade struct {
	direction models.Direction
	exchange  models.Exchange
	entries   []models.TradeLeg
	exits     []models.TradeLeg
	brokers   map[models.Broker]bool
}

func (p *pendingTrade) appendEntry(leg models.TradeLeg) {
	if n := len(p.entries); n > 0 && p.entries[n-1].FillID == leg.FillID {
		p.entries[n-1].Quantity += leg.Quantity
		p.entries[n-1].Charges = addCharges(p.entries[n-1].Charges, leg.Charges)
		return
	}
	p.entries = append(p.entries, leg)
}

func (p *pendingTrade) appendExit(leg models.TradeLeg) {
	if n := len(p.exits); n > 0 && p.exits[n-1].FillID == leg.FillID {
		p.exits[n-1].Quantity += leg.Quantity
		p.exits[n-1].Charges = addCharges(p.exits[n-1].Charges, leg.Charges)
		return
	}
	p.exits = append(p.exits, leg)
}

// instrumentState is the FIFO matcher for one instrument.
type instrumentState struct {
	symbol  string
	segment models.Segment
	lots    []openLot
	pending *pendingTrade
	partial bool
	tradeN  int

	trades []models.Trade
	diags  []models.Diagnostic
}

func (s *instrumentState) apply(f models.Fill) {
	if s.symbol == "" {
		s.symbol = f.Symbol
		s.segment = f.Segment
	}

	switch {
	case len(s.lots) == 0 && f.Side == models.SideSell:
		// A sell with nothing open references a holding this source never
		// saw. Record it and move on; no opening fill is fabricated.
		s.overClose(f, f.Quantity)
	case len(s.lots) == 0 || s.lots[0].Side == f.Side:
		s.open(f, f.Quantity, f.Charges)
	default:
		s.close(f)
	}
}

// open pushes a new lot for qty units of the fill, carrying the given
// charge share.
func (s *instrumentState) open(f models.Fill, qty int64, charges *models.FillCharges) {
	s.lots = append(s.lots, openLot{
		Lot: models.Lot{
			FillID:     f.ID,
			Side:       f.Side,
			Quantity:   qty,
			Price:      f.Price,
			ExecutedAt: f.ExecutedAt,
			Charges:    charges,
		},
		broker:   f.Broker,
		exchange: f.Exchange,
	})
}

// close consumes open lots oldest-first against an opposite-side fill.
// Quantity beyond the open position reverses: the trade finalizes at the
// crossing and the excess opens the opposite direction at the same fill.
func (s *instrumentState) close(f models.Fill) {
	if s.pending == nil {
		s.pending = &pendingTrade{
			direction: directionOf(s.lots[0].Side),
			exchange:  s.lots[0].exchange,
			brokers:   make(map[models.Broker]bool),
		}
	}

	remaining := f.Quantity
	for remaining > 0 && len(s.lots) > 0 {
		lot := &s.lots[0]
		take := lot.Quantity
		if remaining < take {
			take = remaining
		}

		entryCharges := lot.Charges
		if take < lot.Quantity && lot.Charges != nil {
			shares := lot.Charges.Split([]int64{take, lot.Quantity - take})
			entryCharges = &shares[0]
			rest := shares[1]
			lot.Charges = &rest
		}

		s.pending.appendEntry(models.TradeLeg{
			FillID:     lot.FillID,
			Quantity:   take,
			Price:      lot.Price,
			ExecutedAt: lot.ExecutedAt,
			Charges:    entryCharges,
		})
		s.pending.brokers[lot.broker] = true

		lot.Quantity -= take
		remaining -= take
		if lot.Quantity == 0 {
			s.lots = s.lots[1:]
		}
	}

	matched := f.Quantity - remaining
	exitCharges := f.Charges
	var reversalCharges *models.FillCharges
	if remaining > 0 && f.Charges != nil {
		shares := f.Charges.Split([]int64{matched, remaining})
		exitCharges = &shares[0]
		reversalCharges = &shares[1]
	}

	s.pending.appendExit(models.TradeLeg{
		FillID:     f.ID,
		Quantity:   matched,
		Price:      f.Price,
		ExecutedAt: f.ExecutedAt,
		Charges:    exitCharges,
	})
	s.pending.brokers[f.Broker] = true

	if len(s.lots) == 0 {
		s.finalize()
		if remaining > 0 {
			s.open(f, remaining, reversalCharges)
		}
	}
}

func (s *instrumentState) overClose(f models.Fill, excess int64) {
	s.partial = true
	s.diags = append(s.diags, models.Diagnostic{
		Stage:    models.StageReconstruct,
		Code:     models.DiagOverClose,
		Symbol:   f.Symbol,
		FillID:   f.ID,
		Quantity: excess,
		Detail:   fmt.Sprintf("sell of %d with no open position; opening fill missing from source", excess),
	})
}

// finalize turns the pending legs into a trade. Money fields stay zero
// until the charge calculator prices the trade.
func (s *instrumentState) finalize() {
	p := s.pending
	s.pending = nil
	s.tradeN++

	var qty int64
	for _, e := range p.entries {
		qty += e.Quantity
	}

	confidence := models.ConfidenceFull
	if s.partial {
		confidence = models.ConfidencePartial
	}

	entryAt := p.entries[0].ExecutedAt
	exitAt := p.exits[len(p.exits)-1].ExecutedAt

	s.trades = append(s.trades, models.Trade{
		ID:            fmt.Sprintf("%s-%s-T%d", s.symbol, s.segment, s.tradeN),
		Symbol:        s.symbol,
		Exchange:      p.exchange,
		Segment:       s.segment,
		Brokers:       sortedBrokers(p.brokers),
		Direction:     p.direction,
		Quantity:      qty,
		Entries:       p.entries,
		Exits:         p.exits,
		EntryAt:       entryAt,
		ExitAt:        exitAt,
		HoldingPeriod: exitAt.Sub(entryAt),
		Intraday:      utils.SameTradingDay(entryAt, exitAt),
		Confidence:    confidence,
	})
}

func (s *instrumentState) finish() InstrumentResult {
	// A pending trade here means the stream ended with the position still
	// open. Its matched legs are balanced, so flush them as a trade; the
	// open remainder is reported as unclosed rather than dropped.
	if s.pending != nil {
		s.finalize()
	}

	res := InstrumentResult{Trades: s.trades, Diagnostics: s.diags}
	if len(s.lots) > 0 {
		res.Unclosed = s.unclosed()
	}
	return res
}

func (s *instrumentState) unclosed() *models.UnclosedPosition {
	var qty int64
	value := decimal.Zero
	lots := make([]models.Lot, len(s.lots))
	for i, l := range s.lots {
		lots[i] = l.Lot
		qty += l.Quantity
		value = value.Add(l.Price.Mul(decimal.New(l.Quantity, 0)))
	}
	return &models.UnclosedPosition{
		Symbol:        s.symbol,
		Segment:       s.segment,
		Direction:     directionOf(s.lots[0].Side),
		Quantity:      qty,
		AvgEntryPrice: value.DivRound(decimal.New(qty, 0), 4),
		OpenedAt:      s.lots[0].ExecutedAt,
		Lots:          lots,
	}
}

func directionOf(opening models.Side) models.Direction {
	if opening == models.SideSell {
		return models.DirectionShort
	}
	return models.DirectionLong
}

func addCharges(a, b *models.FillCharges) *models.FillCharges {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	sum := a.Add(*b)
	return &sum
}

func sortedBrokers(set map[models.Broker]bool) []models.Broker {
	out := make([]models.Broker, 0, len(set))
	for b := range set {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
