// Package models provides the canonical domain types for tradebook analysis.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Broker identifies a supported broker export format.
type Broker string

const (
	BrokerZerodha Broker = "zerodha"
	BrokerKotak   Broker = "kotak"
	BrokerICICI   Broker = "icici"
)

// DisplayName returns the broker's human-readable name.
func (b Broker) DisplayName() string {
	switch b {
	case BrokerZerodha:
		return "Zerodha"
	case BrokerKotak:
		return "Kotak Securities"
	case BrokerICICI:
		return "ICICI Direct"
	}
	return string(b)
}

// Exchange represents a stock exchange.
type Exchange string

const (
	NSE Exchange = "NSE"
	BSE Exchange = "BSE"
	NFO Exchange = "NFO" // F&O
)

// Segment classifies the instrument class of a fill.
type Segment string

const (
	SegmentEquity      Segment = "EQ"
	SegmentDerivatives Segment = "FO"
)

// Side represents the direction of a fill.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Direction represents the direction of a round-trip trade.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Sign returns +1 for long and -1 for short.
func (d Direction) Sign() int64 {
	if d == DirectionShort {
		return -1
	}
	return 1
}

// OpeningSide returns the side that opens a position in this direction.
func (d Direction) OpeningSide() Side {
	if d == DirectionShort {
		return SideSell
	}
	return SideBuy
}

// Confidence marks how complete the fill history behind a trade was.
type Confidence string

const (
	ConfidenceFull    Confidence = "FULL"
	ConfidencePartial Confidence = "PARTIAL"
)

// FillCharges is the per-execution charge breakdown in rupees.
// Total is authoritative: for exports that carry their own totals it is
// trusted as-is even when the components do not sum exactly.
type FillCharges struct {
	Brokerage    decimal.Decimal
	STT          decimal.Decimal
	ExchangeTxn  decimal.Decimal
	SEBITurnover decimal.Decimal
	StampDuty    decimal.Decimal
	GST          decimal.Decimal
	Other        decimal.Decimal
	Total        decimal.Decimal
}

// Sum returns the sum of the components, ignoring Total.
func (c FillCharges) Sum() decimal.Decimal {
	return c.Brokerage.
		Add(c.STT).
		Add(c.ExchangeTxn).
		Add(c.SEBITurnover).
		Add(c.StampDuty).
		Add(c.GST).
		Add(c.Other)
}

// Add returns the fieldwise sum of two breakdowns.
func (c FillCharges) Add(o FillCharges) FillCharges {
	return FillCharges{
		Brokerage:    c.Brokerage.Add(o.Brokerage),
		STT:          c.STT.Add(o.STT),
		ExchangeTxn:  c.ExchangeTxn.Add(o.ExchangeTxn),
		SEBITurnover: c.SEBITurnover.Add(o.SEBITurnover),
		StampDuty:    c.StampDuty.Add(o.StampDuty),
		GST:          c.GST.Add(o.GST),
		Other:        c.Other.Add(o.Other),
		Total:        c.Total.Add(o.Total),
	}
}

// Split divides the breakdown pro-rata across the given quantities.
// The last share takes the remainder on every field so the shares always
// sum back to the original amounts exactly.
func (c FillCharges) Split(quantities []int64) []FillCharges {
	if len(quantities) == 0 {
		return nil
	}
	if len(quantities) == 1 {
		return []FillCharges{c}
	}
	var total int64
	for _, q := range quantities {
		total += q
	}
	shares := make([]FillCharges, len(quantities))
	var used FillCharges
	for i, q := range quantities {
		if i == len(quantities)-1 {
			shares[i] = FillCharges{
				Brokerage:    c.Brokerage.Sub(used.Brokerage),
				STT:          c.STT.Sub(used.STT),
				ExchangeTxn:  c.ExchangeTxn.Sub(used.ExchangeTxn),
				SEBITurnover: c.SEBITurnover.Sub(used.SEBITurnover),
				StampDuty:    c.StampDuty.Sub(used.StampDuty),
				GST:          c.GST.Sub(used.GST),
				Other:        c.Other.Sub(used.Other),
				Total:        c.Total.Sub(used.Total),
			}
			break
		}
		ratio := decimal.New(q, 0).DivRound(decimal.New(total, 0), 10)
		shares[i] = FillCharges{
			Brokerage:    c.Brokerage.Mul(ratio).Round(4),
			STT:          c.STT.Mul(ratio).Round(4),
			ExchangeTxn:  c.ExchangeTxn.Mul(ratio).Round(4),
			SEBITurnover: c.SEBITurnover.Mul(ratio).Round(4),
			StampDuty:    c.StampDuty.Mul(ratio).Round(4),
			GST:          c.GST.Mul(ratio).Round(4),
			Other:        c.Other.Mul(ratio).Round(4),
			Total:        c.Total.Mul(ratio).Round(4),
		}
		used = used.Add(shares[i])
	}
	return shares
}

// Fill is one execution row from a broker export, normalized to the
// canonical schema. Seq is a global monotonic index assigned at parse time
// and breaks timestamp ties deterministically.
type Fill struct {
	ID         string
	Broker     Broker
	Symbol     string
	ISIN       string
	Exchange   Exchange
	Segment    Segment
	Side       Side
	Quantity   int64
	Price      decimal.Decimal
	ExecutedAt time.Time
	SourceFile string
	SourceRow  int
	Seq        int64
	Charges    *FillCharges // nil when the export carries no charges
}

// Turnover returns price x quantity for this fill.
func (f Fill) Turnover() decimal.Decimal {
	return f.Price.Mul(decimal.New(f.Quantity, 0))
}

// InstrumentKey groups fills belonging to the same instrument.
func (f Fill) InstrumentKey() string {
	return f.Symbol + "|" + string(f.Segment)
}
