package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# tradeaudit configuration

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "02-Jan-2006"
# Time format
time_format = "15:04:05"

[logging]
# Log level: debug, info, warn, error
level = "info"
# Echo log lines to the console
console = false
# Write rotated log files under the config directory
file = true
max_size_mb = 100
max_backups = 7
max_age_days = 30

[store]
# SQLite database for saved runs. Empty uses the config directory.
path = ""

[audit]
# Worker goroutines for per-instrument reconstruction. 0 = number of CPUs.
workers = 0
# Continue past files that fail to parse instead of stopping the run
keep_going = false
`

const chargesTemplate = `# tradeaudit charge model
#
# Applied only to exports that carry no charge columns (Zerodha tradebooks).
# Kotak and ICICI statements include their own charges, which are trusted
# as-is. Rates are fractions of turnover: 0.0003 means 0.03%.

# Decimal places for modeled charge amounts (2 = paise)
rounding = 2

[equity_delivery]
brokerage_pct = 0.0003
brokerage_cap = 20.0
stt_buy_pct = 0.0
stt_sell_pct = 0.001
exchange_pct = 0.0000325
sebi_pct = 0.000001
stamp_buy_pct = 0.00015
gst_pct = 0.18

[equity_intraday]
brokerage_pct = 0.0003
brokerage_cap = 20.0
stt_buy_pct = 0.0
stt_sell_pct = 0.00025
exchange_pct = 0.0000325
sebi_pct = 0.000001
stamp_buy_pct = 0.00003
gst_pct = 0.18

[derivatives]
brokerage_pct = 0.0003
brokerage_cap = 20.0
stt_buy_pct = 0.0
stt_sell_pct = 0.0002
exchange_pct = 0.0000188
sebi_pct = 0.000001
stamp_buy_pct = 0.00002
gst_pct = 0.18

# Contract lot sizes, matched by symbol root. Required for derivative
# P&L; an unknown root fails that instrument's trades.
[instruments]
NIFTY = 75
BANKNIFTY = 30
FINNIFTY = 65
MIDCPNIFTY = 120
SENSEX = 20
`

const analysisTemplate = `# tradeaudit behavioral analysis thresholds

[detector]
# Detectors stay silent below this many closed trades
min_trades = 5
# Flag more than this many trades entered within any 24h window
overtrading_max = 10
# A bigger same-instrument trade within this many minutes of a loss
# counts as a revenge trade
revenge_gap_minutes = 30
# Adverse move from entry (fraction) that flags a missing stop loss
stop_loss_pct = 0.05
# Quantity growth ratio and run length for size escalation
escalation_ratio = 1.5
escalation_min_run = 3
# Consecutive losses that flag a losing streak
loss_streak = 5
# Win rate above this with profit factor below 1 flags
# "cutting winners, letting losers run"
mismatch_win_rate = 0.60

[scorer]
# Losing streak length that zeroes the consistency component
streak_cap = 8
# Losses smaller than this many rupees count as controlled in
# per-trade scores
small_loss_floor = 500.0

# Composite score component weights. Must sum to 1.
[scorer.weights]
win_rate = 0.40
payoff = 0.35
consistency = 0.25

# Multipliers applied to category penalties by flag severity
[scorer.severity_weights]
low = 1.0
medium = 2.0
high = 3.0

# Score points deducted per flag, before the severity multiplier
[scorer.penalties]
overtrading = 4.0
revenge_trade = 6.0
no_stop_loss = 8.0
position_size_escalation = 5.0
loss_streak = 8.0
winrate_profit_mismatch = 6.0
`

// InitTemplates writes editable template files for any config file that
// does not exist yet and returns the paths it created.
func InitTemplates(configDir string) ([]string, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	templates := []struct {
		name    string
		content string
	}{
		{"config.toml", configTemplate},
		{"charges.toml", chargesTemplate},
		{"analysis.toml", analysisTemplate},
	}

	var created []string
	for _, t := range templates {
		name, content := t.name, t.content
		path := filepath.Join(configDir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return created, fmt.Errorf("writing %s: %w", name, err)
		}
		created = append(created, path)
	}
	return created, nil
}
