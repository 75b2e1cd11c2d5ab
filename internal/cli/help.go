// Package cli provides the command-line interface for the trade audit tool.
package cli

import (
	"github.com/spf13/cobra"
)

// addHelpCommands adds help and documentation commands.
func addHelpCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newExamplesCmd(app))
}

func newExamplesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "Show common workflow examples",
		Long:  "Display examples of common audit workflows.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			output.Bold("Common Workflow Examples")
			output.Println()

			examples := []struct {
				title    string
				commands []string
			}{
				{
					title: "Audit a Tradebook",
					commands: []string{
						"tradeaudit detect tradebook.csv        # Check the format is recognized",
						"tradeaudit analyze tradebook.csv       # Run the full audit",
						"tradeaudit analyze tradebook.csv --full # Show every trade",
					},
				},
				{
					title: "Audit a Whole Quarter",
					commands: []string{
						"tradeaudit analyze jan.csv feb.csv mar.csv --save",
						"tradeaudit analyze *.csv --keep-going  # Skip files that fail to parse",
					},
				},
				{
					title: "Mix Brokers in One Run",
					commands: []string{
						"tradeaudit brokers                     # List supported formats",
						"tradeaudit analyze zerodha.csv kotak.csv",
						"tradeaudit analyze icici.csv --broker icici # Force an adapter",
					},
				},
				{
					title: "Review Saved Runs",
					commands: []string{
						"tradeaudit history                     # List saved runs",
						"tradeaudit show run-20250602-153000-a1b2",
						"tradeaudit export run-20250602-153000-a1b2 --out trades.csv",
						"tradeaudit delete run-20250602-153000-a1b2",
					},
				},
				{
					title: "Machine-Readable Output",
					commands: []string{
						"tradeaudit analyze tradebook.csv --json > report.json",
						"tradeaudit history --json | jq '.[0].RunID'",
					},
				},
				{
					title: "Tune the Analysis",
					commands: []string{
						"tradeaudit config init                 # Write editable templates",
						"tradeaudit config path                 # Where the config lives",
						"tradeaudit config show                 # Effective settings",
					},
				},
			}

			for _, ex := range examples {
				output.Info(ex.title)
				for _, c := range ex.commands {
					output.Printf("  %s\n", c)
				}
				output.Println()
			}

			return nil
		},
	}
}
