// Command tradeaudit audits the trading discipline behind broker trade
// exports: it reconstructs round trips, verifies P&L, detects behavioral
// patterns and grades the book.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"tradeaudit/internal/cli"
	"tradeaudit/internal/config"
	apperrors "tradeaudit/internal/errors"
	"tradeaudit/internal/logging"
)

func main() {
	configDir := configDirFromArgs(os.Args[1:])

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if configDir == "" {
		configDir = config.DefaultConfigDir()
	}
	logger := logging.NewLoggerWithConfig(logging.LogConfig{
		Level:      cfg.Logging.Level,
		Console:    cfg.Logging.Console,
		File:       cfg.Logging.File,
		FilePath:   filepath.Join(configDir, "logs", "tradeaudit.log"),
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAgeDays,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if apperrors.Is(err, apperrors.ErrUsage) || apperrors.Is(err, apperrors.ErrInvalidConfig) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// configDirFromArgs pre-scans for --config so the directory applies to
// config loading itself, before cobra parses flags.
func configDirFromArgs(args []string) string {
	for i, a := range args {
		if a == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(a, "--config=") {
			return strings.TrimPrefix(a, "--config=")
		}
	}
	return ""
}
