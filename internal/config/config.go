// Package config provides configuration management for the analyzer.
package config

import (
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	apperrors "tradeaudit/internal/errors"
)

// Config holds all application configuration. The general settings live in
// config.toml; the charge model in charges.toml; detector and scorer
// thresholds in analysis.toml.
type Config struct {
	UI      UIConfig      `mapstructure:"ui"`
	Logging LoggingConfig `mapstructure:"logging"`
	Store   StoreConfig   `mapstructure:"store"`
	Audit   AuditConfig   `mapstructure:"audit"`

	Charges  ChargesConfig  `mapstructure:"-"` // Loaded from charges.toml
	Detector DetectorConfig `mapstructure:"-"` // Loaded from analysis.toml
	Scorer   ScorerConfig   `mapstructure:"-"` // Loaded from analysis.toml
}

// UIConfig holds output-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
	TimeFormat   string `mapstructure:"time_format"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// StoreConfig holds run persistence configuration.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// AuditConfig holds pipeline configuration.
type AuditConfig struct {
	Workers   int  `mapstructure:"workers"`    // 0 = GOMAXPROCS
	KeepGoing bool `mapstructure:"keep_going"` // continue past unparseable files
}

// RateSchedule holds the modeled charge rates for one instrument class.
// Rates are fractions of turnover (0.0003 = 0.03%); caps are rupees.
// Used only for exports that carry no charge columns.
type RateSchedule struct {
	BrokeragePct float64 `mapstructure:"brokerage_pct"`
	BrokerageCap float64 `mapstructure:"brokerage_cap"`
	STTBuyPct    float64 `mapstructure:"stt_buy_pct"`
	STTSellPct   float64 `mapstructure:"stt_sell_pct"`
	ExchangePct  float64 `mapstructure:"exchange_pct"`
	SEBIPct      float64 `mapstructure:"sebi_pct"`
	StampBuyPct  float64 `mapstructure:"stamp_buy_pct"`
	GSTPct       float64 `mapstructure:"gst_pct"`
}

// ChargesConfig holds the charge model and instrument metadata.
type ChargesConfig struct {
	Rounding       int32            `mapstructure:"rounding"`
	EquityDelivery RateSchedule     `mapstructure:"equity_delivery"`
	EquityIntraday RateSchedule     `mapstructure:"equity_intraday"`
	Derivatives    RateSchedule     `mapstructure:"derivatives"`
	Instruments    map[string]int64 `mapstructure:"instruments"` // symbol root -> lot size
}

// DetectorConfig holds behavioral pattern thresholds.
type DetectorConfig struct {
	MinTrades         int     `mapstructure:"min_trades"`
	OvertradingMax    int     `mapstructure:"overtrading_max"`
	RevengeGapMinutes int     `mapstructure:"revenge_gap_minutes"`
	StopLossPct       float64 `mapstructure:"stop_loss_pct"`
	EscalationRatio   float64 `mapstructure:"escalation_ratio"`
	EscalationMinRun  int     `mapstructure:"escalation_min_run"`
	LossStreak        int     `mapstructure:"loss_streak"`
	MismatchWinRate   float64 `mapstructure:"mismatch_win_rate"`
}

// RevengeGap returns the revenge-trade window as a duration.
func (c DetectorConfig) RevengeGap() time.Duration {
	return time.Duration(c.RevengeGapMinutes) * time.Minute
}

// ScoreWeights holds the composite score component weights. Must sum to 1.
type ScoreWeights struct {
	WinRate     float64 `mapstructure:"win_rate"`
	Payoff      float64 `mapstructure:"payoff"`
	Consistency float64 `mapstructure:"consistency"`
}

// ScorerConfig holds discipline scoring configuration.
type ScorerConfig struct {
	Weights         ScoreWeights       `mapstructure:"weights"`
	SeverityWeights map[string]float64 `mapstructure:"severity_weights"` // low/medium/high
	Penalties       map[string]float64 `mapstructure:"penalties"`        // per flag category
	StreakCap       int                `mapstructure:"streak_cap"`
	SmallLossFloor  float64            `mapstructure:"small_loss_floor"` // rupees
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/tradeaudit"
	}
	return filepath.Join(home, ".config", "tradeaudit")
}

// Default returns the built-in configuration. The charge rates follow the
// published discount-broker schedule for NSE; override them in charges.toml
// when they change.
func Default() *Config {
	return &Config{
		UI: UIConfig{
			ColorEnabled: true,
			DateFormat:   "02-Jan-2006",
			TimeFormat:   "15:04:05",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Console:    false,
			File:       true,
			MaxSizeMB:  100,
			MaxBackups: 7,
			MaxAgeDays: 30,
		},
		Store: StoreConfig{
			Path: filepath.Join(DefaultConfigDir(), "tradeaudit.db"),
		},
		Audit: AuditConfig{
			Workers:   0,
			KeepGoing: false,
		},
		Charges: ChargesConfig{
			Rounding: 2,
			EquityDelivery: RateSchedule{
				BrokeragePct: 0.0003,
				BrokerageCap: 20,
				STTSellPct:   0.001,
				ExchangePct:  0.0000325,
				SEBIPct:      0.000001,
				StampBuyPct:  0.00015,
				GSTPct:       0.18,
			},
			EquityIntraday: RateSchedule{
				BrokeragePct: 0.0003,
				BrokerageCap: 20,
				STTSellPct:   0.00025,
				ExchangePct:  0.0000325,
				SEBIPct:      0.000001,
				StampBuyPct:  0.00003,
				GSTPct:       0.18,
			},
			Derivatives: RateSchedule{
				BrokeragePct: 0.0003,
				BrokerageCap: 20,
				STTSellPct:   0.0002,
				ExchangePct:  0.0000188,
				SEBIPct:      0.000001,
				StampBuyPct:  0.00002,
				GSTPct:       0.18,
			},
			Instruments: map[string]int64{
				"NIFTY":      75,
				"BANKNIFTY":  30,
				"FINNIFTY":   65,
				"MIDCPNIFTY": 120,
				"SENSEX":     20,
			},
		},
		Detector: DetectorConfig{
			MinTrades:         5,
			OvertradingMax:    10,
			RevengeGapMinutes: 30,
			StopLossPct:       0.05,
			EscalationRatio:   1.5,
			EscalationMinRun:  3,
			LossStreak:        5,
			MismatchWinRate:   0.60,
		},
		Scorer: ScorerConfig{
			Weights: ScoreWeights{
				WinRate:     0.40,
				Payoff:      0.35,
				Consistency: 0.25,
			},
			SeverityWeights: map[string]float64{
				"low":    1,
				"medium": 2,
				"high":   3,
			},
			Penalties: map[string]float64{
				"overtrading":              4,
				"revenge_trade":            6,
				"no_stop_loss":             8,
				"position_size_escalation": 5,
				"loss_streak":              8,
				"winrate_profit_mismatch":  6,
			},
			StreakCap:      8,
			SmallLossFloor: 500,
		},
	}
}

// Load loads configuration from the specified directory, overlaying the
// built-in defaults. Missing files are fine; 'tradeaudit config init'
// writes editable templates. If configDir is empty, uses the default
// config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default()

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, apperrors.Wrap(err, "loading config.toml")
	}
	if err := loadConfigFile(configDir, "charges", &cfg.Charges); err != nil {
		return nil, apperrors.Wrap(err, "loading charges.toml")
	}
	if err := loadAnalysisConfig(configDir, cfg); err != nil {
		return nil, apperrors.Wrap(err, "loading analysis.toml")
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(configDir, "tradeaudit.db")
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.Wrap(err, "validating config")
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return err
	}

	return v.Unmarshal(target)
}

// analysisFile mirrors the layout of analysis.toml.
type analysisFile struct {
	Detector DetectorConfig `mapstructure:"detector"`
	Scorer   ScorerConfig   `mapstructure:"scorer"`
}

func loadAnalysisConfig(configDir string, cfg *Config) error {
	target := analysisFile{Detector: cfg.Detector, Scorer: cfg.Scorer}
	if err := loadConfigFile(configDir, "analysis", &target); err != nil {
		return err
	}
	cfg.Detector = target.Detector
	cfg.Scorer = target.Scorer
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRADEAUDIT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TRADEAUDIT_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if os.Getenv("TRADEAUDIT_NO_COLOR") != "" {
		cfg.UI.ColorEnabled = false
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Charges.Rounding < 0 || c.Charges.Rounding > 8 {
		return apperrors.NewValidationError("charges.rounding", c.Charges.Rounding, "must be between 0 and 8")
	}
	schedules := map[string]RateSchedule{
		"charges.equity_delivery": c.Charges.EquityDelivery,
		"charges.equity_intraday": c.Charges.EquityIntraday,
		"charges.derivatives":     c.Charges.Derivatives,
	}
	for name, s := range schedules {
		if err := validateSchedule(name, s); err != nil {
			return err
		}
	}
	for root, size := range c.Charges.Instruments {
		if size <= 0 {
			return apperrors.NewValidationError("charges.instruments."+root, size, "lot size must be positive")
		}
	}

	d := c.Detector
	if d.MinTrades < 0 {
		return apperrors.NewValidationError("detector.min_trades", d.MinTrades, "must be non-negative")
	}
	if d.OvertradingMax < 1 {
		return apperrors.NewValidationError("detector.overtrading_max", d.OvertradingMax, "must be at least 1")
	}
	if d.RevengeGapMinutes < 0 {
		return apperrors.NewValidationError("detector.revenge_gap_minutes", d.RevengeGapMinutes, "must be non-negative")
	}
	if d.StopLossPct <= 0 || d.StopLossPct >= 1 {
		return apperrors.NewValidationError("detector.stop_loss_pct", d.StopLossPct, "must be between 0 and 1 exclusive")
	}
	if d.EscalationRatio <= 1 {
		return apperrors.NewValidationError("detector.escalation_ratio", d.EscalationRatio, "must be greater than 1")
	}
	if d.EscalationMinRun < 2 {
		return apperrors.NewValidationError("detector.escalation_min_run", d.EscalationMinRun, "must be at least 2")
	}
	if d.LossStreak < 2 {
		return apperrors.NewValidationError("detector.loss_streak", d.LossStreak, "must be at least 2")
	}
	if d.MismatchWinRate <= 0 || d.MismatchWinRate >= 1 {
		return apperrors.NewValidationError("detector.mismatch_win_rate", d.MismatchWinRate, "must be between 0 and 1 exclusive")
	}

	s := c.Scorer
	if s.Weights.WinRate < 0 || s.Weights.Payoff < 0 || s.Weights.Consistency < 0 {
		return apperrors.NewValidationError("scorer.weights", s.Weights, "weights must be non-negative")
	}
	sum := s.Weights.WinRate + s.Weights.Payoff + s.Weights.Consistency
	if math.Abs(sum-1) > 1e-9 {
		return apperrors.NewValidationError("scorer.weights", sum, "weights must sum to 1")
	}
	for name, w := range s.SeverityWeights {
		if w <= 0 {
			return apperrors.NewValidationError("scorer.severity_weights."+name, w, "must be positive")
		}
	}
	for name, p := range s.Penalties {
		if p < 0 {
			return apperrors.NewValidationError("scorer.penalties."+name, p, "must be non-negative")
		}
	}
	if s.StreakCap < 1 {
		return apperrors.NewValidationError("scorer.streak_cap", s.StreakCap, "must be at least 1")
	}
	if s.SmallLossFloor < 0 {
		return apperrors.NewValidationError("scorer.small_loss_floor", s.SmallLossFloor, "must be non-negative")
	}

	if c.Audit.Workers < 0 {
		return apperrors.NewValidationError("audit.workers", c.Audit.Workers, "must be non-negative")
	}

	return nil
}

func validateSchedule(name string, s RateSchedule) error {
	pcts := map[string]float64{
		name + ".brokerage_pct": s.BrokeragePct,
		name + ".stt_buy_pct":   s.STTBuyPct,
		name + ".stt_sell_pct":  s.STTSellPct,
		name + ".exchange_pct":  s.ExchangePct,
		name + ".sebi_pct":      s.SEBIPct,
		name + ".stamp_buy_pct": s.StampBuyPct,
		name + ".gst_pct":       s.GSTPct,
	}
	for field, pct := range pcts {
		if pct < 0 || pct >= 1 {
			return apperrors.NewValidationError(field, pct, "must be a fraction in [0, 1)")
		}
	}
	if s.BrokerageCap < 0 {
		return apperrors.NewValidationError(name+".brokerage_cap", s.BrokerageCap, "must be non-negative")
	}
	return nil
}
