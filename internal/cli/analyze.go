// Package cli provides the command-line interface for the trade audit tool.
package cli

import (
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tradeaudit/internal/adapter"
	"tradeaudit/internal/audit"
)

// addAnalyzeCommands adds the audit pipeline commands.
func addAnalyzeCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newDetectCmd())
	rootCmd.AddCommand(newBrokersCmd())
}

func newAnalyzeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <file>...",
		Short: "Audit broker export files",
		Long: `Parse broker trade exports, reconstruct FIFO round trips, verify
charges and P&L in exact decimals, detect behavioral patterns and
grade the book with a discipline score.

The broker format is detected from each file's header row; pass
--broker to force one. Files from different brokers can be mixed in
a single run.`,
		Example: `  tradeaudit analyze tradebook.csv
  tradeaudit analyze jan.csv feb.csv mar.csv --save
  tradeaudit analyze kotak-export.csv --broker kotak
  tradeaudit analyze tradebook.csv --json > report.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			brokerName, _ := cmd.Flags().GetString("broker")
			save, _ := cmd.Flags().GetBool("save")
			keepGoing, _ := cmd.Flags().GetBool("keep-going")
			full, _ := cmd.Flags().GetBool("full")

			if keepGoing {
				app.Config.Audit.KeepGoing = true
			}

			runner := audit.NewRunner(app.Config, app.Logger)
			report, err := runner.Run(cmd.Context(), audit.Request{
				Paths:  args,
				Broker: brokerName,
			})
			if err != nil {
				output.Error("Audit failed: %v", err)
				return err
			}

			if save {
				s, err := app.OpenStore()
				if err != nil {
					output.Error("Could not open run store: %v", err)
					return err
				}
				if err := s.SaveReport(cmd.Context(), report); err != nil {
					output.Error("Could not save run: %v", err)
					return err
				}
				if !output.IsJSON() {
					output.Success("✓ Saved as %s", report.RunID)
					output.Println()
				}
			}

			if output.IsJSON() {
				return output.JSON(report)
			}
			renderReport(output, report, full)
			return nil
		},
	}

	cmd.Flags().String("broker", "", "force a broker adapter (zerodha, kotak, icici)")
	cmd.Flags().Bool("save", false, "persist the run for later review")
	cmd.Flags().Bool("keep-going", false, "skip files that fail to parse")
	cmd.Flags().Bool("full", false, "list every trade instead of the largest moves")
	return cmd
}

func newDetectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "detect <file>",
		Short: "Identify the broker format of an export file",
		Example: `  tradeaudit detect tradebook.csv
  tradeaudit detect export.csv --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			headers, _, err := adapter.SniffFile(args[0])
			if err != nil {
				output.Error("Could not read header row: %v", err)
				return err
			}
			a, err := adapter.Detect(args[0], headers)
			if err != nil {
				output.Error("No adapter matches: %v", err)
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"file":     args[0],
					"broker":   string(a.Broker()),
					"variants": a.Variants(),
				})
			}
			color.Green("✓ %s: %s format", args[0], a.Broker())
			output.Dim("Variants: %s", strings.Join(a.Variants(), ", "))
			return nil
		},
	}
}

func newBrokersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "brokers",
		Short: "List supported broker export formats",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			adapters := adapter.Registered()

			if output.IsJSON() {
				type brokerInfo struct {
					Broker      string   `json:"broker"`
					Variants    []string `json:"variants"`
					Fingerprint []string `json:"fingerprint"`
				}
				infos := make([]brokerInfo, 0, len(adapters))
				for _, a := range adapters {
					infos = append(infos, brokerInfo{
						Broker:      string(a.Broker()),
						Variants:    a.Variants(),
						Fingerprint: a.Fingerprint(),
					})
				}
				output.JSON(infos)
				return
			}

			table := NewTable(output, "BROKER", "VARIANTS", "FINGERPRINT COLUMNS")
			for _, a := range adapters {
				table.AddRow(
					string(a.Broker()),
					strings.Join(a.Variants(), ", "),
					TruncateString(strings.Join(a.Fingerprint(), ", "), 60),
				)
			}
			table.Render()
		},
	}
}
