package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is the unconsumed remainder of an opening fill held during
// reconstruction. Charges is the pro-rata share for the remaining quantity.
type Lot struct {
	FillID     string
	Side       Side
	Quantity   int64
	Price      decimal.Decimal
	ExecutedAt time.Time
	Charges    *FillCharges
}

// TradeLeg is the matched portion of one fill inside a trade.
type TradeLeg struct {
	FillID     string
	Quantity   int64
	Price      decimal.Decimal
	ExecutedAt time.Time
	Charges    *FillCharges
}

// Trade represents one reconstructed round trip: entry legs matched FIFO
// against exit legs until the position returned to zero.
type Trade struct {
	ID            string
	Symbol        string
	Exchange      Exchange
	Segment       Segment
	Brokers       []Broker
	Direction     Direction
	Quantity      int64
	Multiplier    int64
	Entries       []TradeLeg
	Exits         []TradeLeg
	EntryAt       time.Time
	ExitAt        time.Time
	AvgEntryPrice decimal.Decimal
	AvgExitPrice  decimal.Decimal
	GrossPnL      decimal.Decimal
	Charges       FillCharges
	TotalCharges  decimal.Decimal
	NetPnL        decimal.Decimal
	HoldingPeriod time.Duration
	Intraday      bool
	Confidence    Confidence
	Score         float64
	Grade         string
}

// Win reports whether the trade closed with a positive net P&L.
func (t Trade) Win() bool {
	return t.NetPnL.IsPositive()
}

// EntryValue returns the notional value at entry (price x qty x multiplier).
func (t Trade) EntryValue() decimal.Decimal {
	m := t.Multiplier
	if m <= 0 {
		m = 1
	}
	return t.AvgEntryPrice.Mul(decimal.New(t.Quantity, 0)).Mul(decimal.New(m, 0))
}

// ReturnPercent returns the price move from entry to exit as a signed
// percentage, zero when the entry price is zero.
func (t Trade) ReturnPercent() float64 {
	if t.AvgEntryPrice.IsZero() {
		return 0
	}
	diff := t.AvgExitPrice.Sub(t.AvgEntryPrice)
	if t.Direction == DirectionShort {
		diff = diff.Neg()
	}
	pct, _ := diff.Div(t.AvgEntryPrice).Mul(decimal.New(100, 0)).Round(2).Float64()
	return pct
}

// UnclosedPosition is what remains open at the end of the fill stream for
// one instrument. Excluded from P&L and discipline statistics.
type UnclosedPosition struct {
	Symbol        string
	Segment       Segment
	Direction     Direction
	Quantity      int64
	AvgEntryPrice decimal.Decimal
	OpenedAt      time.Time
	Lots          []Lot
}
