// Package patterns detects behavioral trading patterns over reconstructed
// trades. Every rule is a pure function of the trade sequence and its
// thresholds; when the data is too thin to judge, no flag is raised.
package patterns

import (
	"sort"

	"tradeaudit/internal/config"
	"tradeaudit/internal/models"
)

// Detector evaluates the pattern rules against a run's trades.
type Detector struct {
	cfg config.DetectorConfig
}

// NewDetector creates a detector with the given thresholds.
func NewDetector(cfg config.DetectorConfig) *Detector {
	return &Detector{cfg: cfg}
}

// Detect runs every rule over the fully reconstructed trades in entry
// order. Partial-confidence trades are excluded: their incomplete lot
// history would manufacture false patterns.
func (d *Detector) Detect(trades []models.Trade) []models.PatternFlag {
	eligible := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Confidence == models.ConfidenceFull {
			eligible = append(eligible, t)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		if !eligible[i].EntryAt.Equal(eligible[j].EntryAt) {
			return eligible[i].EntryAt.Before(eligible[j].EntryAt)
		}
		return eligible[i].ID < eligible[j].ID
	})

	if len(eligible) < d.cfg.MinTrades {
		return nil
	}

	var flags []models.PatternFlag
	flags = append(flags, d.overtrading(eligible)...)
	flags = append(flags, d.revengeTrades(eligible)...)
	flags = append(flags, d.noStopLoss(eligible)...)
	flags = append(flags, d.sizeEscalation(eligible)...)
	flags = append(flags, d.lossStreaks(eligible)...)
	flags = append(flags, d.winRateMismatch(eligible)...)
	return flags
}

func ids(trades []models.Trade) []string {
	out := make([]string, len(trades))
	for i, t := range trades {
		out[i] = t.ID
	}
	return out
}

// byInstrument groups trades preserving their order, with instrument keys
// returned sorted for deterministic iteration.
func byInstrument(trades []models.Trade) ([]string, map[string][]models.Trade) {
	groups := make(map[string][]models.Trade)
	for _, t := range trades {
		key := t.Symbol + "|" + string(t.Segment)
		groups[key] = append(groups[key], t)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, groups
}
