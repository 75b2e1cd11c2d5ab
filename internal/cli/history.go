// Package cli provides the command-line interface for the trade audit tool.
package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tradeaudit/internal/models"
)

// addHistoryCommands adds the stored-run commands.
func addHistoryCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newHistoryCmd(app))
	rootCmd.AddCommand(newShowCmd(app))
	rootCmd.AddCommand(newDeleteCmd(app))
	rootCmd.AddCommand(newExportCmd(app))
}

func newHistoryCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved audit runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			limit, _ := cmd.Flags().GetInt("limit")

			s, err := app.OpenStore()
			if err != nil {
				output.Error("Could not open run store: %v", err)
				return err
			}
			runs, err := s.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(runs)
			}
			if len(runs) == 0 {
				output.Info("No saved runs. Use 'analyze --save' to keep one.")
				return nil
			}

			table := NewTable(output, "RUN", "GENERATED", "FILES", "TRADES", "FLAGS", "NET P&L", "SCORE")
			for _, r := range runs {
				score := output.DimText("unscored")
				if r.Grade != "" {
					score = fmt.Sprintf("%.1f %s", r.Score, output.GradeColor(r.Grade))
				}
				table.AddRow(
					r.RunID,
					FormatDateTime(r.GeneratedAt),
					strconv.Itoa(len(r.SourceFiles)),
					strconv.Itoa(r.Trades),
					strconv.Itoa(r.Flags),
					output.FormatPnL(r.NetPnL),
					score,
				)
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "number of runs to list (0 = all)")
	return cmd
}

func newShowCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Re-render a saved audit run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			full, _ := cmd.Flags().GetBool("full")

			s, err := app.OpenStore()
			if err != nil {
				output.Error("Could not open run store: %v", err)
				return err
			}
			report, err := s.GetReport(cmd.Context(), args[0])
			if err != nil {
				output.Error("Could not load run: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(report)
			}
			renderReport(output, report, full)
			return nil
		},
	}
	cmd.Flags().Bool("full", false, "list every trade instead of the largest moves")
	return cmd
}

func newDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a saved audit run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			s, err := app.OpenStore()
			if err != nil {
				output.Error("Could not open run store: %v", err)
				return err
			}
			if err := s.DeleteRun(cmd.Context(), args[0]); err != nil {
				output.Error("Could not delete run: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": args[0]})
			}
			output.Success("✓ Deleted %s", args[0])
			return nil
		},
	}
}

func newExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export a saved run's trades as CSV",
		Example: `  tradeaudit export run-20250602-153000-a1b2 --out trades.csv
  tradeaudit export run-20250602-153000-a1b2 > trades.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			outPath, _ := cmd.Flags().GetString("out")

			s, err := app.OpenStore()
			if err != nil {
				output.Error("Could not open run store: %v", err)
				return err
			}
			report, err := s.GetReport(cmd.Context(), args[0])
			if err != nil {
				output.Error("Could not load run: %v", err)
				return err
			}

			w := io.Writer(cmd.OutOrStdout())
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := writeTradesCSV(w, report.Trades); err != nil {
				return err
			}
			if outPath != "" {
				color.Green("✓ Wrote %d trades to %s", len(report.Trades), outPath)
			}
			return nil
		},
	}
	cmd.Flags().String("out", "", "write CSV to a file instead of stdout")
	return cmd
}

// writeTradesCSV writes the trade table in a spreadsheet-friendly layout.
func writeTradesCSV(w io.Writer, trades []models.Trade) error {
	cw := csv.NewWriter(w)
	header := []string{
		"trade_id", "symbol", "exchange", "segment", "direction", "quantity",
		"multiplier", "entry_at", "exit_at", "avg_entry_price", "avg_exit_price",
		"gross_pnl", "total_charges", "net_pnl", "holding", "intraday",
		"confidence", "score", "grade", "brokers",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, t := range trades {
		brokers := make([]string, 0, len(t.Brokers))
		for _, b := range t.Brokers {
			brokers = append(brokers, string(b))
		}
		row := []string{
			t.ID,
			t.Symbol,
			string(t.Exchange),
			string(t.Segment),
			string(t.Direction),
			strconv.FormatInt(t.Quantity, 10),
			strconv.FormatInt(t.Multiplier, 10),
			t.EntryAt.Format(time.RFC3339),
			t.ExitAt.Format(time.RFC3339),
			t.AvgEntryPrice.String(),
			t.AvgExitPrice.String(),
			t.GrossPnL.String(),
			t.TotalCharges.String(),
			t.NetPnL.String(),
			t.HoldingPeriod.String(),
			strconv.FormatBool(t.Intraday),
			string(t.Confidence),
			strconv.FormatFloat(t.Score, 'f', 1, 64),
			t.Grade,
			strings.Join(brokers, "|"),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
