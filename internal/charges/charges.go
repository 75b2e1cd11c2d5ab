// Package charges prices reconstructed trades. Charge amounts carried by
// the source export are trusted as-is; fills without charge columns are
// modeled from the configured rate schedule. All arithmetic is decimal so
// net P&L equals gross P&L minus total charges exactly.
package charges

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"tradeaudit/internal/config"
	apperrors "tradeaudit/internal/errors"
	"tradeaudit/internal/models"
)

// rates is a RateSchedule converted to decimal once at construction.
type rates struct {
	brokeragePct decimal.Decimal
	brokerageCap decimal.Decimal
	sttBuyPct    decimal.Decimal
	sttSellPct   decimal.Decimal
	exchangePct  decimal.Decimal
	sebiPct      decimal.Decimal
	stampBuyPct  decimal.Decimal
	gstPct       decimal.Decimal
}

func newRates(rs config.RateSchedule) rates {
	return rates{
		brokeragePct: decimal.NewFromFloat(rs.BrokeragePct),
		brokerageCap: decimal.NewFromFloat(rs.BrokerageCap),
		sttBuyPct:    decimal.NewFromFloat(rs.STTBuyPct),
		sttSellPct:   decimal.NewFromFloat(rs.STTSellPct),
		exchangePct:  decimal.NewFromFloat(rs.ExchangePct),
		sebiPct:      decimal.NewFromFloat(rs.SEBIPct),
		stampBuyPct:  decimal.NewFromFloat(rs.StampBuyPct),
		gstPct:       decimal.NewFromFloat(rs.GSTPct),
	}
}

type instrumentEntry struct {
	root string
	lot  int64
}

// Calculator prices trades against a charge model.
type Calculator struct {
	rounding       int32
	equityDelivery rates
	equityIntraday rates
	derivatives    rates
	instruments    []instrumentEntry
}

// NewCalculator builds a calculator from the charge configuration.
func NewCalculator(cfg config.ChargesConfig) *Calculator {
	c := &Calculator{
		rounding:       cfg.Rounding,
		equityDelivery: newRates(cfg.EquityDelivery),
		equityIntraday: newRates(cfg.EquityIntraday),
		derivatives:    newRates(cfg.Derivatives),
	}
	for root, lot := range cfg.Instruments {
		c.instruments = append(c.instruments, instrumentEntry{
			root: strings.ToUpper(strings.TrimSpace(root)),
			lot:  lot,
		})
	}
	// Longest roots first so NIFTY never shadows NIFTYNXT50.
	sort.Slice(c.instruments, func(i, j int) bool {
		if len(c.instruments[i].root) != len(c.instruments[j].root) {
			return len(c.instruments[i].root) > len(c.instruments[j].root)
		}
		return c.instruments[i].root < c.instruments[j].root
	})
	return c
}

// Multiplier resolves the contract multiplier for a symbol. Equity is
// always 1; derivatives resolve through the instrument table by longest
// symbol-root prefix. A derivative with no entry is an error, never an
// assumed 1.
func (c *Calculator) Multiplier(symbol string, segment models.Segment) (int64, error) {
	if segment != models.SegmentDerivatives {
		return 1, nil
	}
	upper := strings.ToUpper(symbol)
	for _, e := range c.instruments {
		if strings.HasPrefix(upper, e.root) {
			return e.lot, nil
		}
	}
	return 0, apperrors.NewChargeError(symbol,
		apperrors.Wrapf(apperrors.ErrUnknownMultiplier, "no lot size configured for %q", symbol))
}

// Price fills the money fields of a reconstructed trade in place:
// multiplier, gross P&L, charge breakdown, total charges, net P&L and the
// weighted average prices.
func (c *Calculator) Price(t *models.Trade) error {
	mult, err := c.Multiplier(t.Symbol, t.Segment)
	if err != nil {
		return err
	}
	t.Multiplier = mult
	m := decimal.New(mult, 0)

	sched := c.schedule(t.Segment, t.Intraday)
	opening := t.Direction.OpeningSide()

	var entryValue, exitValue decimal.Decimal
	var total models.FillCharges
	for _, leg := range t.Entries {
		entryValue = entryValue.Add(leg.Price.Mul(decimal.New(leg.Quantity, 0)))
		total = total.Add(c.legCharges(leg, opening, sched, m))
	}
	for _, leg := range t.Exits {
		exitValue = exitValue.Add(leg.Price.Mul(decimal.New(leg.Quantity, 0)))
		total = total.Add(c.legCharges(leg, opening.Opposite(), sched, m))
	}

	qty := decimal.New(t.Quantity, 0)
	t.AvgEntryPrice = entryValue.DivRound(qty, 4)
	t.AvgExitPrice = exitValue.DivRound(qty, 4)

	gross := exitValue.Sub(entryValue).Mul(m)
	if t.Direction == models.DirectionShort {
		gross = gross.Neg()
	}
	t.GrossPnL = gross
	t.Charges = total
	t.TotalCharges = total.Total
	t.NetPnL = gross.Sub(total.Total)
	return nil
}

// PriceAll prices every trade. A missing instrument multiplier fails only
// that trade; the rest proceed.
func (c *Calculator) PriceAll(trades []models.Trade) ([]models.Trade, []models.FailedTrade, []models.Diagnostic) {
	priced := make([]models.Trade, 0, len(trades))
	var failed []models.FailedTrade
	var diags []models.Diagnostic
	for _, t := range trades {
		if err := c.Price(&t); err != nil {
			failed = append(failed, models.FailedTrade{Trade: t, Reason: err.Error()})
			diags = append(diags, models.Diagnostic{
				Stage:  models.StageCharges,
				Code:   models.DiagUnknownMultiplier,
				Symbol: t.Symbol,
				Detail: err.Error(),
			})
			continue
		}
		priced = append(priced, t)
	}
	return priced, failed, diags
}

func (c *Calculator) schedule(segment models.Segment, intraday bool) rates {
	if segment == models.SegmentDerivatives {
		return c.derivatives
	}
	if intraday {
		return c.equityIntraday
	}
	return c.equityDelivery
}

// legCharges returns the charge share for one leg: the trusted source
// amounts when the fill carried them, the modeled schedule otherwise.
func (c *Calculator) legCharges(leg models.TradeLeg, side models.Side, r rates, mult decimal.Decimal) models.FillCharges {
	if leg.Charges != nil {
		return *leg.Charges
	}
	turnover := leg.Price.Mul(decimal.New(leg.Quantity, 0)).Mul(mult)
	return c.model(r, side, turnover)
}

// model computes the charge breakdown for one fill's turnover, rounding
// each component to the configured places the way a broker bills it.
func (c *Calculator) model(r rates, side models.Side, turnover decimal.Decimal) models.FillCharges {
	brokerage := turnover.Mul(r.brokeragePct)
	if brokerage.GreaterThan(r.brokerageCap) {
		brokerage = r.brokerageCap
	}
	brokerage = brokerage.Round(c.rounding)

	var stt decimal.Decimal
	if side == models.SideSell {
		stt = turnover.Mul(r.sttSellPct).Round(c.rounding)
	} else {
		stt = turnover.Mul(r.sttBuyPct).Round(c.rounding)
	}

	exchange := turnover.Mul(r.exchangePct).Round(c.rounding)
	sebi := turnover.Mul(r.sebiPct).Round(c.rounding)

	var stamp decimal.Decimal
	if side == models.SideBuy {
		stamp = turnover.Mul(r.stampBuyPct).Round(c.rounding)
	}

	gst := brokerage.Add(exchange).Mul(r.gstPct).Round(c.rounding)

	ch := models.FillCharges{
		Brokerage:    brokerage,
		STT:          stt,
		ExchangeTxn:  exchange,
		SEBITurnover: sebi,
		StampDuty:    stamp,
		GST:          gst,
	}
	ch.Total = ch.Sum()
	return ch
}
