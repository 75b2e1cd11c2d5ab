// Package cli provides the command-line interface for the trade audit tool.
package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"tradeaudit/internal/models"
	"tradeaudit/pkg/utils"
)

// maxTradeRows bounds the trade table unless --full is passed.
const maxTradeRows = 20

// renderReport renders the full audit dashboard.
func renderReport(output *Output, report *models.Report, full bool) {
	renderRunHeader(output, report)
	renderScore(output, report)
	renderSummary(output, report.Summary)
	renderFlags(output, report.Flags)
	renderTrades(output, report.Trades, full)
	renderUnclosed(output, report.Unclosed)
	renderProblems(output, report)
	renderAdvice(output, report.Advice)
}

func renderRunHeader(output *Output, report *models.Report) {
	color.Cyan("📋 Trade Audit %s", report.RunID)
	brokers := make([]string, 0, len(report.Brokers))
	for _, b := range report.Brokers {
		brokers = append(brokers, b.DisplayName())
	}
	output.Dim("%d file(s) via %s, generated %s",
		len(report.SourceFiles), strings.Join(brokers, ", "), FormatDateTime(report.GeneratedAt))
	output.Println()
}

func renderScore(output *Output, report *models.Report) {
	score := report.Score
	if score.Grade == "" {
		output.Warning("⚠️ No fully reconstructed trades; discipline score not computed")
		output.Println()
		return
	}

	output.Box("Discipline Score", []string{
		fmt.Sprintf("Composite  %.1f / 100", score.Composite),
		fmt.Sprintf("Grade      %s", output.GradeColor(score.Grade)),
	})
	output.Println()

	color.Cyan("📊 Category Scores")
	table := NewTable(output, "CATEGORY", "SCORE")
	for _, ft := range models.FlagTypes() {
		v, ok := score.SubScores[ft]
		if !ok {
			continue
		}
		table.AddRow(ft.Title(), scoreCell(output, v))
	}
	table.Render()
}

// scoreCell colors a 0-100 category score.
func scoreCell(output *Output, v float64) string {
	s := fmt.Sprintf("%5.1f", v)
	switch {
	case v >= 90:
		return output.Green(s)
	case v >= 70:
		return output.Yellow(s)
	}
	return output.Red(s)
}

func renderSummary(output *Output, s models.Summary) {
	output.Println()
	color.Cyan("📈 Performance")
	if s.TotalTrades == 0 {
		output.Dim("  No closed trades in this run.")
		return
	}

	output.Printf("  Trades:          %d  (%d wins / %d losses)\n", s.TotalTrades, s.Wins, s.Losses)
	output.Printf("  Win Rate:        %.1f%%\n", s.WinRate*100)
	output.Printf("  Gross P&L:       %s\n", output.FormatPnL(s.GrossPnL))
	output.Printf("  Total Charges:   %s\n", utils.FormatDecimalCurrency(s.TotalCharges))
	output.Printf("  Net P&L:         %s\n", output.FormatPnL(s.NetPnL))
	output.Printf("  Avg Win / Loss:  %s / %s\n",
		utils.FormatDecimalCurrency(s.AvgWin), utils.FormatDecimalCurrency(s.AvgLoss))
	output.Printf("  Largest Win:     %s\n", output.FormatPnL(s.LargestWin))
	output.Printf("  Largest Loss:    %s\n", output.FormatPnL(s.LargestLoss))
	output.Printf("  Profit Factor:   %.2f\n", s.ProfitFactor)
	output.Printf("  Expectancy:      %s per trade\n", output.FormatPnL(s.Expectancy))
	output.Printf("  Max Loss Streak: %d\n", s.MaxLossStreak)
	if s.TotalBrokerage.Sign() > 0 || s.TotalSTT.Sign() > 0 {
		output.Dim("  Brokerage %s, STT %s",
			utils.FormatDecimalCurrency(s.TotalBrokerage), utils.FormatDecimalCurrency(s.TotalSTT))
	}
}

func renderFlags(output *Output, flags []models.PatternFlag) {
	output.Println()
	if len(flags) == 0 {
		color.Green("✓ No behavioral patterns detected")
		return
	}

	color.Cyan("🚩 Behavioral Patterns (%d)", len(flags))
	for _, f := range flags {
		output.Printf("  [%s] %s\n", output.SeverityTag(string(f.Severity)), output.BoldText(f.Type.Title()))
		output.Printf("          %s\n", f.Detail)
		if !f.WindowStart.IsZero() {
			output.Dim("          window %s to %s", FormatDateTime(f.WindowStart), FormatDateTime(f.WindowEnd))
		}
		if len(f.TradeIDs) > 0 {
			output.Dim("          trades: %s", TruncateString(strings.Join(f.TradeIDs, ", "), 70))
		}
	}
}

func renderTrades(output *Output, trades []models.Trade, full bool) {
	output.Println()
	color.Cyan("📒 Trades (%d)", len(trades))
	if len(trades) == 0 {
		return
	}

	rows := trades
	trimmed := false
	if !full && len(trades) > maxTradeRows {
		rows = largestMoves(trades, maxTradeRows)
		trimmed = true
	}

	table := NewTable(output, "SYMBOL", "SEG", "DIR", "QTY", "ENTRY", "EXIT", "HOLD", "NET P&L", "RET", "SCORE")
	for _, t := range rows {
		table.AddRow(
			t.Symbol,
			string(t.Segment),
			string(t.Direction),
			utils.FormatQuantity(t.Quantity),
			t.AvgEntryPrice.StringFixed(2),
			t.AvgExitPrice.StringFixed(2),
			utils.FormatDuration(t.HoldingPeriod),
			output.FormatPnL(t.NetPnL),
			output.FormatPercent(t.ReturnPercent()),
			tradeScoreCell(output, t),
		)
	}
	table.Render()
	if trimmed {
		output.Dim("Showing the %d largest moves of %d trades; use --full for all.", maxTradeRows, len(trades))
	}
}

// largestMoves returns the n trades with the biggest absolute net P&L,
// back in chronological order.
func largestMoves(trades []models.Trade, n int) []models.Trade {
	byMove := make([]models.Trade, len(trades))
	copy(byMove, trades)
	sort.SliceStable(byMove, func(i, j int) bool {
		return byMove[i].NetPnL.Abs().GreaterThan(byMove[j].NetPnL.Abs())
	})
	byMove = byMove[:n]
	sort.SliceStable(byMove, func(i, j int) bool {
		return byMove[i].ExitAt.Before(byMove[j].ExitAt)
	})
	return byMove
}

func tradeScoreCell(output *Output, t models.Trade) string {
	if t.Confidence == models.ConfidencePartial {
		return output.DimText("partial")
	}
	return fmt.Sprintf("%.0f %s", t.Score, output.GradeColor(t.Grade))
}

func renderUnclosed(output *Output, unclosed []models.UnclosedPosition) {
	if len(unclosed) == 0 {
		return
	}
	output.Println()
	color.Yellow("⚠️ Open Positions (%d)", len(unclosed))
	table := NewTable(output, "SYMBOL", "SEG", "DIR", "QTY", "AVG ENTRY", "OPENED")
	for _, u := range unclosed {
		table.AddRow(
			u.Symbol,
			string(u.Segment),
			string(u.Direction),
			utils.FormatQuantity(u.Quantity),
			u.AvgEntryPrice.StringFixed(2),
			FormatDateTime(u.OpenedAt),
		)
	}
	table.Render()
	output.Dim("Open positions are excluded from P&L and scoring.")
}

func renderProblems(output *Output, report *models.Report) {
	if len(report.Diagnostics) == 0 && len(report.Failed) == 0 {
		return
	}
	output.Println()
	color.Yellow("⚠️ Review Needed")
	for _, d := range report.Diagnostics {
		detail := d.Detail
		if detail == "" {
			detail = fmt.Sprintf("%d unmatched", d.Quantity)
		}
		output.Warning("  [%s] %s: %s", d.Code, d.Symbol, detail)
	}
	for _, ft := range report.Failed {
		output.Warning("  [UNPRICED] %s: %s", ft.Trade.Symbol, ft.Reason)
	}
}

func renderAdvice(output *Output, advice []string) {
	if len(advice) == 0 {
		return
	}
	output.Println()
	color.Cyan("💡 Advice")
	for i, a := range advice {
		output.Printf("  %d. %s\n", i+1, a)
	}
}
