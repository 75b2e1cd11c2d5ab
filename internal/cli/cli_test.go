package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tradeaudit/internal/config"
	apperrors "tradeaudit/internal/errors"
	"tradeaudit/internal/models"
	"tradeaudit/internal/store"
	"tradeaudit/pkg/utils"
)

const zerodhaHeader = "symbol,isin,trade_date,exchange,segment,series,trade_type,auction,quantity,price,trade_id,order_id,order_execution_time"

var tradingDay = time.Date(2025, 6, 2, 9, 30, 0, 0, utils.IndiaLocation)

var fillCounter int

func zRow(symbol, side string, qty int64, price string, at time.Time) string {
	fillCounter++
	return fmt.Sprintf("%s,INE002A01018,%s,NSE,EQ,EQ,%s,false,%d,%s,3001%06d,1200%06d,%s",
		symbol, at.Format("2006-01-02"), side, qty, price,
		fillCounter, fillCounter, at.Format("2006-01-02T15:04:05"))
}

func writeExport(t *testing.T, dir string, rows []string) string {
	t.Helper()
	content := zerodhaHeader + "\n" + strings.Join(rows, "\n") + "\n"
	path := filepath.Join(dir, "tradebook.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing export: %v", err)
	}
	return path
}

// runCommand executes the CLI against a fresh command tree, capturing output.
func runCommand(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(cfg, zerolog.Nop())
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

// roundTripExport writes a small two-round-trip export file.
func roundTripExport(t *testing.T, dir string) string {
	t.Helper()
	rows := []string{
		zRow("RELIANCE", "buy", 10, "2500.00", tradingDay),
		zRow("RELIANCE", "sell", 10, "2510.00", tradingDay.Add(5*time.Minute)),
		zRow("INFY", "buy", 20, "1500.00", tradingDay.Add(10*time.Minute)),
		zRow("INFY", "sell", 20, "1495.00", tradingDay.Add(40*time.Minute)),
	}
	return writeExport(t, dir, rows)
}

func TestAnalyzeJSON(t *testing.T) {
	path := roundTripExport(t, t.TempDir())

	out, err := runCommand(t, config.Default(), "analyze", path, "--json")
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	var report models.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if !strings.HasPrefix(report.RunID, "run-") {
		t.Errorf("unexpected run ID %q", report.RunID)
	}
	if len(report.Trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(report.Trades))
	}
	if len(report.Brokers) != 1 || report.Brokers[0] != models.BrokerZerodha {
		t.Errorf("expected zerodha broker, got %v", report.Brokers)
	}
	if report.Summary.TotalTrades != 2 || report.Summary.Wins != 1 || report.Summary.Losses != 1 {
		t.Errorf("unexpected summary: %+v", report.Summary)
	}
	for _, tr := range report.Trades {
		if !tr.NetPnL.Equal(tr.GrossPnL.Sub(tr.TotalCharges)) {
			t.Errorf("trade %s: net %s != gross %s - charges %s",
				tr.ID, tr.NetPnL, tr.GrossPnL, tr.TotalCharges)
		}
	}
}

func TestAnalyzeHumanReadable(t *testing.T) {
	path := roundTripExport(t, t.TempDir())

	out, err := runCommand(t, config.Default(), "analyze", path)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	for _, want := range []string{"RELIANCE", "INFY", "Win Rate", "Net P&L", "₹"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAnalyzeMissingFileFails(t *testing.T) {
	_, err := runCommand(t, config.Default(), "analyze", "/does/not/exist.csv")
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestSavedRunLifecycle(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(dir, "audit.db")
	path := roundTripExport(t, dir)

	// analyze --save
	out, err := runCommand(t, cfg, "analyze", path, "--save", "--json")
	if err != nil {
		t.Fatalf("analyze --save failed: %v", err)
	}
	var report models.Report
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	runID := report.RunID

	// history
	out, err = runCommand(t, cfg, "history", "--json")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	var runs []store.RunMeta
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("invalid history JSON: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != runID {
		t.Fatalf("expected saved run %s in history, got %+v", runID, runs)
	}
	if runs[0].Trades != 2 {
		t.Errorf("expected 2 trades in run meta, got %d", runs[0].Trades)
	}

	// show
	out, err = runCommand(t, cfg, "show", runID, "--json")
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	var loaded models.Report
	if err := json.Unmarshal([]byte(out), &loaded); err != nil {
		t.Fatalf("invalid show JSON: %v", err)
	}
	if loaded.RunID != runID || len(loaded.Trades) != 2 {
		t.Errorf("show returned wrong report: %s with %d trades", loaded.RunID, len(loaded.Trades))
	}

	// export
	csvPath := filepath.Join(dir, "trades.csv")
	if _, err = runCommand(t, cfg, "export", runID, "--out", csvPath); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatalf("opening exported CSV: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("reading exported CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header + 2 trades, got %d rows", len(records))
	}
	if records[0][0] != "trade_id" || records[0][1] != "symbol" {
		t.Errorf("unexpected CSV header: %v", records[0])
	}
	if records[1][1] != "RELIANCE" {
		t.Errorf("expected RELIANCE first, got %v", records[1])
	}

	// delete, then the run must be gone
	if _, err = runCommand(t, cfg, "delete", runID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	_, err = runCommand(t, cfg, "show", runID, "--json")
	if !apperrors.Is(err, apperrors.ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound after delete, got %v", err)
	}
}

func TestDetectJSON(t *testing.T) {
	path := roundTripExport(t, t.TempDir())

	out, err := runCommand(t, config.Default(), "detect", path, "--json")
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	var result struct {
		Broker   string   `json:"broker"`
		Variants []string `json:"variants"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if result.Broker != "zerodha" {
		t.Errorf("expected zerodha, got %s", result.Broker)
	}
}

func TestBrokersJSON(t *testing.T) {
	out, err := runCommand(t, config.Default(), "brokers", "--json")
	if err != nil {
		t.Fatalf("brokers failed: %v", err)
	}
	var infos []struct {
		Broker      string   `json:"broker"`
		Fingerprint []string `json:"fingerprint"`
	}
	if err := json.Unmarshal([]byte(out), &infos); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("expected 3 brokers, got %d", len(infos))
	}
	names := map[string]bool{}
	for _, info := range infos {
		names[info.Broker] = true
		if len(info.Fingerprint) == 0 {
			t.Errorf("broker %s has no fingerprint", info.Broker)
		}
	}
	for _, want := range []string{"zerodha", "kotak", "icici"} {
		if !names[want] {
			t.Errorf("missing broker %s", want)
		}
	}
}

func TestVersionJSON(t *testing.T) {
	out, err := runCommand(t, config.Default(), "version", "--json")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	var v map[string]string
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if v["version"] != Version {
		t.Errorf("expected version %s, got %s", Version, v["version"])
	}
}

func TestConfigInitWritesTemplates(t *testing.T) {
	dir := t.TempDir()

	out, err := runCommand(t, config.Default(), "config", "init", "--config", dir, "--json")
	if err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	var result struct {
		Dir     string   `json:"dir"`
		Written []string `json:"written"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if len(result.Written) != 3 {
		t.Fatalf("expected 3 templates written, got %v", result.Written)
	}
	for _, name := range []string{"config.toml", "charges.toml", "analysis.toml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("template %s not written: %v", name, err)
		}
	}
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	_, err := runCommand(t, config.Default(), "brokers", "--no-such-flag")
	if !apperrors.Is(err, apperrors.ErrUsage) {
		t.Errorf("expected ErrUsage, got %v", err)
	}
}

func TestTableRender(t *testing.T) {
	var buf bytes.Buffer
	out := &Output{writer: &buf}

	table := NewTable(out, "SYMBOL", "QTY")
	table.AddRow("RELIANCE", "10")
	table.AddRow("INFY", "2,000")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "SYMBOL") {
		t.Errorf("unexpected header line %q", lines[0])
	}
	// Columns align on the widest cell
	if !strings.Contains(lines[2], "RELIANCE  10") {
		t.Errorf("unexpected row %q", lines[2])
	}
	if !strings.Contains(lines[3], "INFY      2,000") {
		t.Errorf("unexpected row %q", lines[3])
	}
}

func TestTruncateString(t *testing.T) {
	if got := TruncateString("short", 10); got != "short" {
		t.Errorf("expected unchanged, got %q", got)
	}
	if got := TruncateString("a much longer detail line", 10); got != "a much ..." {
		t.Errorf("unexpected truncation %q", got)
	}
	if len(TruncateString("abcdef", 3)) != 3 {
		t.Errorf("expected hard cut at 3")
	}
}
