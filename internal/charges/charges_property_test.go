package charges

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"tradeaudit/internal/config"
	"tradeaudit/internal/models"
)

// pricingSpec is the raw shape the generator fills in before mapping to
// a trade ready for pricing.
type pricingSpec struct {
	Qty        int64
	EntryPaise int64
	ExitPaise  int64
	Exits      int
	Short      bool
	Intraday   bool
	TrustEntry bool
	TrustExit  bool
}

// pricedTradeGen generates equity trades with one entry leg and up to
// three exit legs at slightly different prices. Trusted charge blocks
// are attached to a random subset of legs so both the trusted and the
// modeled paths run.
func pricedTradeGen() gopter.Gen {
	return gen.Struct(reflect.TypeOf(pricingSpec{}), map[string]gopter.Gen{
		"Qty":        gen.Int64Range(1, 300),
		"EntryPaise": gen.Int64Range(10000, 900000),
		"ExitPaise":  gen.Int64Range(10000, 900000),
		"Exits":      gen.IntRange(1, 3),
		"Short":      gen.Bool(),
		"Intraday":   gen.Bool(),
		"TrustEntry": gen.Bool(),
		"TrustExit":  gen.Bool(),
	}).Map(func(sp pricingSpec) models.Trade {
		direction := models.DirectionLong
		if sp.Short {
			direction = models.DirectionShort
		}

		entry := models.TradeLeg{
			FillID:     "E1",
			Quantity:   sp.Qty,
			Price:      decimal.New(sp.EntryPaise, -2),
			ExecutedAt: entryTime,
		}
		if sp.TrustEntry {
			total := decimal.New(sp.EntryPaise%5000+100, -2)
			entry.Charges = &models.FillCharges{Other: total, Total: total}
		}

		var quantities []int64
		per := sp.Qty / int64(sp.Exits)
		left := sp.Qty
		for i := 0; i < sp.Exits-1 && per > 0; i++ {
			quantities = append(quantities, per)
			left -= per
		}
		quantities = append(quantities, left)

		exits := make([]models.TradeLeg, len(quantities))
		for i, q := range quantities {
			exits[i] = models.TradeLeg{
				FillID:     fmt.Sprintf("X%d", i+1),
				Quantity:   q,
				Price:      decimal.New(sp.ExitPaise+int64(i)*7, -2),
				ExecutedAt: entryTime.Add(time.Duration(i+1) * time.Hour),
			}
			if sp.TrustExit {
				total := decimal.New(sp.ExitPaise%5000+100, -2)
				exits[i].Charges = &models.FillCharges{Other: total, Total: total}
			}
		}

		return models.Trade{
			ID:         "SBIN-T1",
			Symbol:     "SBIN",
			Exchange:   models.NSE,
			Segment:    models.SegmentEquity,
			Direction:  direction,
			Quantity:   sp.Qty,
			Entries:    []models.TradeLeg{entry},
			Exits:      exits,
			EntryAt:    entryTime,
			ExitAt:     exits[len(exits)-1].ExecutedAt,
			Intraday:   sp.Intraday,
			Confidence: models.ConfidenceFull,
		}
	})
}

// TestProperty_NetEqualsGrossMinusCharges tests the pricing identity on
// random trades: the net is exactly the gross minus the charge total,
// and the gross matches the leg values independently of the per-pair
// matching used internally.
func TestProperty_NetEqualsGrossMinusCharges(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0

	properties := gopter.NewProperties(parameters)
	calc := NewCalculator(config.Default().Charges)

	properties.Property("net is gross minus charges exactly", prop.ForAll(
		func(tr models.Trade) bool {
			if err := calc.Price(&tr); err != nil {
				return false
			}

			if !tr.NetPnL.Equal(tr.GrossPnL.Sub(tr.TotalCharges)) {
				return false
			}
			if !tr.TotalCharges.Equal(tr.Charges.Total) {
				return false
			}
			if tr.TotalCharges.IsNegative() {
				return false
			}

			var entryValue, exitValue decimal.Decimal
			for _, e := range tr.Entries {
				entryValue = entryValue.Add(e.Price.Mul(decimal.New(e.Quantity, 0)))
			}
			for _, x := range tr.Exits {
				exitValue = exitValue.Add(x.Price.Mul(decimal.New(x.Quantity, 0)))
			}
			want := exitValue.Sub(entryValue)
			if tr.Direction == models.DirectionShort {
				want = want.Neg()
			}
			return tr.GrossPnL.Equal(want)
		},
		pricedTradeGen(),
	))

	properties.TestingRun(t)
}
