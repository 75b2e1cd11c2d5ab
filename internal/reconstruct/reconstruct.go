// Package reconstruct rebuilds round-trip trades from raw fills using
// first-in-first-out lot matching. Fills for one instrument are consumed
// oldest-first; a trade finalizes when the open quantity returns to zero.
package reconstruct

import (
	"sort"

	"tradeaudit/internal/models"
)

// Result is the reconstruction output for a whole fill stream.
type Result struct {
	Trades      []models.Trade
	Unclosed    []models.UnclosedPosition
	Diagnostics []models.Diagnostic
}

// InstrumentResult is the reconstruction output for a single instrument.
type InstrumentResult struct {
	Trades      []models.Trade
	Unclosed    *models.UnclosedPosition
	Diagnostics []models.Diagnostic
}

// Reconstructor pairs fills into round-trip trades. Trades carry matched
// entry and exit legs with charge shares; all money fields are left for
// the charge calculator.
type Reconstructor struct{}

// New creates a reconstructor.
func New() *Reconstructor {
	return &Reconstructor{}
}

// Run reconstructs trades from a merged fill stream. Fills are grouped by
// instrument and each group is processed in (ExecutedAt, Seq) order, so
// the output is identical for any stable permutation of the input.
func (r *Reconstructor) Run(fills []models.Fill) Result {
	groups := make(map[string][]models.Fill)
	for _, f := range fills {
		key := f.InstrumentKey()
		groups[key] = append(groups[key], f)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var res Result
	for _, k := range keys {
		ir := r.Instrument(groups[k])
		res.Trades = append(res.Trades, ir.Trades...)
		if ir.Unclosed != nil {
			res.Unclosed = append(res.Unclosed, *ir.Unclosed)
		}
		res.Diagnostics = append(res.Diagnostics, ir.Diagnostics...)
	}

	// Instruments finalize independently; present one chronological tape.
	sort.SliceStable(res.Trades, func(i, j int) bool {
		a, b := res.Trades[i], res.Trades[j]
		if !a.ExitAt.Equal(b.ExitAt) {
			return a.ExitAt.Before(b.ExitAt)
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.Segment < b.Segment
	})
	return res
}

// Instrument reconstructs one instrument's fills. All fills must share a
// symbol and segment.
func (r *Reconstructor) Instrument(fills []models.Fill) InstrumentResult {
	ordered := make([]models.Fill, len(fills))
	copy(ordered, fills)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].ExecutedAt.Equal(ordered[j].ExecutedAt) {
			return ordered[i].ExecutedAt.Before(ordered[j].ExecutedAt)
		}
		return ordered[i].Seq < ordered[j].Seq
	})

	st := &instrumentState{}
	for _, f := range ordered {
		st.apply(f)
	}
	return st.finish()
}
