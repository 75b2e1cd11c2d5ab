// Package cli provides the command-line interface for the trade audit tool.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"tradeaudit/internal/config"
	apperrors "tradeaudit/internal/errors"
	"tradeaudit/internal/logging"
	"tradeaudit/internal/store"
	"tradeaudit/pkg/utils"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2024-01-01"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.Store
}

// OpenStore opens the run store on first use. Commands that never touch
// stored runs stay clear of the database entirely.
func (a *App) OpenStore() (store.Store, error) {
	if a.Store != nil {
		return a.Store, nil
	}
	s, err := store.NewSQLiteStore(a.Config.Store.Path)
	if err != nil {
		return nil, err
	}
	a.Store = s
	a.Logger.Debug().Str("path", a.Config.Store.Path).Msg("SQLite store opened")
	return s, nil
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "tradeaudit",
		Short: "Trade discipline auditor for Indian broker exports",
		Long: `Tradeaudit reads trade exports from Indian brokers and audits the
discipline behind them.

It reconstructs FIFO round trips from raw fills, verifies charges and
P&L in exact decimals, detects behavioral patterns such as revenge
trading and overtrading, and grades the book with a 0-100 discipline
score.

Use 'tradeaudit analyze <files>' to audit one or more exports.
Use 'tradeaudit examples' to see common workflows.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Handle debug flag
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Flag misuse exits with a distinct code
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return apperrors.Wrap(apperrors.ErrUsage, err.Error())
	})

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/tradeaudit)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	// Add all command groups
	addCoreCommands(rootCmd, app)
	addAnalyzeCommands(rootCmd, app)
	addHistoryCommands(rootCmd, app)
	addHelpCommands(rootCmd, app)

	return rootCmd
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("tradeaudit v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			return showConfig(output, app.Config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write editable config templates",
		Long:  "Write config.toml, charges.toml and analysis.toml templates for any file not already present.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			configDir, _ := cmd.Flags().GetString("config")
			if configDir == "" {
				configDir = config.DefaultConfigDir()
			}
			written, err := config.InitTemplates(configDir)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"dir": configDir, "written": written})
			}
			if len(written) == 0 {
				output.Info("All config files already present in %s", configDir)
				return nil
			}
			for _, f := range written {
				output.Success("✓ wrote %s", f)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("✓ Configuration is valid")
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "edit",
		Short: "Open configuration file in editor",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			configPath := config.DefaultConfigDir() + "/config.toml"
			output.Info("Configuration file: %s", configPath)
			output.Println("Edit this file to change settings.")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) error {
	output.Bold("Audit Pipeline")
	output.Printf("  Workers:          %d\n", cfg.Audit.Workers)
	output.Printf("  Keep Going:       %v\n", cfg.Audit.KeepGoing)
	output.Printf("  Store Path:       %s\n", cfg.Store.Path)
	output.Println()

	output.Bold("Detector Thresholds")
	output.Printf("  Min Trades:       %d\n", cfg.Detector.MinTrades)
	output.Printf("  Overtrading Max:  %d trades/day\n", cfg.Detector.OvertradingMax)
	output.Printf("  Revenge Gap:      %s\n", cfg.Detector.RevengeGap())
	output.Printf("  Stop Loss %%:      %.1f%%\n", cfg.Detector.StopLossPct*100)
	output.Printf("  Escalation:       %.1fx over %d trades\n", cfg.Detector.EscalationRatio, cfg.Detector.EscalationMinRun)
	output.Printf("  Loss Streak:      %d\n", cfg.Detector.LossStreak)
	output.Printf("  Mismatch WinRate: %.0f%%\n", cfg.Detector.MismatchWinRate*100)
	output.Println()

	output.Bold("Discipline Scorer")
	output.Printf("  Win Rate Weight:  %.2f\n", cfg.Scorer.Weights.WinRate)
	output.Printf("  Payoff Weight:    %.2f\n", cfg.Scorer.Weights.Payoff)
	output.Printf("  Consistency Wt:   %.2f\n", cfg.Scorer.Weights.Consistency)
	output.Printf("  Streak Cap:       %d\n", cfg.Scorer.StreakCap)
	output.Printf("  Small Loss Floor: %s\n", utils.FormatDecimalCurrency(decimal.NewFromFloat(cfg.Scorer.SmallLossFloor)))
	output.Println()

	output.Bold("Charge Model")
	output.Printf("  Rounding:         %d decimals\n", cfg.Charges.Rounding)
	output.Printf("  Intraday Brkg:    %.3f%% (cap %.0f)\n", cfg.Charges.EquityIntraday.BrokeragePct*100, cfg.Charges.EquityIntraday.BrokerageCap)
	output.Printf("  Delivery Brkg:    %.3f%%\n", cfg.Charges.EquityDelivery.BrokeragePct*100)
	output.Printf("  Instruments:      %d lot sizes\n", len(cfg.Charges.Instruments))
	output.Println()

	output.Bold("Logging")
	output.Printf("  Level:            %s\n", cfg.Logging.Level)
	output.Printf("  Console:          %v\n", cfg.Logging.Console)
	output.Printf("  File:             %v\n", cfg.Logging.File)

	return nil
}
