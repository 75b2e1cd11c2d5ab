package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	apperrors "tradeaudit/internal/errors"
	"tradeaudit/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and if needed creates) the run database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- One row per analysis run. Summary, score breakdown and advice are
	-- stored as JSON; the flat columns exist for the run list.
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		generated_at TEXT NOT NULL,
		source_files TEXT NOT NULL,
		brokers TEXT NOT NULL,
		trade_count INTEGER NOT NULL,
		flag_count INTEGER NOT NULL,
		net_pnl TEXT NOT NULL,
		score REAL NOT NULL,
		grade TEXT NOT NULL,
		summary TEXT NOT NULL,
		score_detail TEXT NOT NULL,
		advice TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Reconstructed trades. Money columns are decimal strings; entry and
	-- exit legs are JSON arrays.
	CREATE TABLE IF NOT EXISTS trades (
		run_id TEXT NOT NULL,
		id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		exchange TEXT,
		segment TEXT NOT NULL,
		brokers TEXT,
		direction TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		multiplier INTEGER NOT NULL,
		entries TEXT NOT NULL,
		exits TEXT NOT NULL,
		entry_at TEXT NOT NULL,
		exit_at TEXT NOT NULL,
		avg_entry_price TEXT NOT NULL,
		avg_exit_price TEXT NOT NULL,
		gross_pnl TEXT NOT NULL,
		charges TEXT NOT NULL,
		total_charges TEXT NOT NULL,
		net_pnl TEXT NOT NULL,
		holding_ns INTEGER NOT NULL,
		intraday INTEGER NOT NULL,
		confidence TEXT NOT NULL,
		score REAL NOT NULL,
		grade TEXT,
		PRIMARY KEY (run_id, id)
	);

	-- Behavioral pattern flags.
	CREATE TABLE IF NOT EXISTS flags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		type TEXT NOT NULL,
		severity TEXT NOT NULL,
		trade_ids TEXT NOT NULL,
		detail TEXT,
		window_start TEXT,
		window_end TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_flags_run ON flags(run_id);

	-- Positions still open at the end of the fill stream.
	CREATE TABLE IF NOT EXISTS unclosed (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		symbol TEXT NOT NULL,
		segment TEXT NOT NULL,
		direction TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		avg_entry_price TEXT NOT NULL,
		opened_at TEXT NOT NULL,
		lots TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_unclosed_run ON unclosed(run_id);

	-- Non-fatal anomalies recorded during a run.
	CREATE TABLE IF NOT EXISTS diagnostics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		stage TEXT NOT NULL,
		code TEXT NOT NULL,
		symbol TEXT,
		fill_id TEXT,
		quantity INTEGER,
		detail TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_diagnostics_run ON diagnostics(run_id);

	-- Trades that could not be priced, kept verbatim for review.
	CREATE TABLE IF NOT EXISTS failed_trades (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		trade TEXT NOT NULL,
		reason TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveReport stores a full report in one transaction.
func (s *SQLiteStore) SaveReport(ctx context.Context, report *models.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	summaryJSON, _ := json.Marshal(report.Summary)
	scoreJSON, _ := json.Marshal(report.Score)
	adviceJSON, _ := json.Marshal(report.Advice)
	filesJSON, _ := json.Marshal(report.SourceFiles)
	brokersJSON, _ := json.Marshal(report.Brokers)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, generated_at, source_files, brokers, trade_count, flag_count, net_pnl, score, grade, summary, score_detail, advice)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, report.RunID, timeToDB(report.GeneratedAt), string(filesJSON), string(brokersJSON),
		len(report.Trades), len(report.Flags), report.Summary.NetPnL.String(),
		report.Score.Composite, report.Score.Grade, string(summaryJSON), string(scoreJSON), string(adviceJSON))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i := range report.Trades {
		if err := insertTrade(ctx, tx, report.RunID, &report.Trades[i]); err != nil {
			return err
		}
	}
	for _, flag := range report.Flags {
		tradeIDs, _ := json.Marshal(flag.TradeIDs)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO flags (run_id, type, severity, trade_ids, detail, window_start, window_end)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, report.RunID, string(flag.Type), string(flag.Severity), string(tradeIDs),
			flag.Detail, timeToDB(flag.WindowStart), timeToDB(flag.WindowEnd))
		if err != nil {
			return fmt.Errorf("failed to insert flag: %w", err)
		}
	}
	for _, u := range report.Unclosed {
		lotsJSON, _ := json.Marshal(u.Lots)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO unclosed (run_id, symbol, segment, direction, quantity, avg_entry_price, opened_at, lots)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, report.RunID, u.Symbol, string(u.Segment), string(u.Direction), u.Quantity,
			u.AvgEntryPrice.String(), timeToDB(u.OpenedAt), string(lotsJSON))
		if err != nil {
			return fmt.Errorf("failed to insert unclosed position: %w", err)
		}
	}
	for _, d := range report.Diagnostics {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO diagnostics (run_id, stage, code, symbol, fill_id, quantity, detail)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, report.RunID, string(d.Stage), string(d.Code), d.Symbol, d.FillID, d.Quantity, d.Detail)
		if err != nil {
			return fmt.Errorf("failed to insert diagnostic: %w", err)
		}
	}
	for _, f := range report.Failed {
		tradeJSON, _ := json.Marshal(f.Trade)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO failed_trades (run_id, trade, reason) VALUES (?, ?, ?)
		`, report.RunID, string(tradeJSON), f.Reason)
		if err != nil {
			return fmt.Errorf("failed to insert failed trade: %w", err)
		}
	}

	return tx.Commit()
}

func insertTrade(ctx context.Context, tx *sql.Tx, runID string, t *models.Trade) error {
	entriesJSON, _ := json.Marshal(t.Entries)
	exitsJSON, _ := json.Marshal(t.Exits)
	brokersJSON, _ := json.Marshal(t.Brokers)
	chargesJSON, _ := json.Marshal(t.Charges)
	intraday := 0
	if t.Intraday {
		intraday = 1
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO trades (run_id, id, symbol, exchange, segment, brokers, direction, quantity, multiplier,
			entries, exits, entry_at, exit_at, avg_entry_price, avg_exit_price,
			gross_pnl, charges, total_charges, net_pnl, holding_ns, intraday, confidence, score, grade)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, t.ID, t.Symbol, string(t.Exchange), string(t.Segment), string(brokersJSON),
		string(t.Direction), t.Quantity, t.Multiplier,
		string(entriesJSON), string(exitsJSON), timeToDB(t.EntryAt), timeToDB(t.ExitAt),
		t.AvgEntryPrice.String(), t.AvgExitPrice.String(),
		t.GrossPnL.String(), string(chargesJSON), t.TotalCharges.String(), t.NetPnL.String(),
		t.HoldingPeriod.Nanoseconds(), intraday, string(t.Confidence), t.Score, t.Grade)
	if err != nil {
		return fmt.Errorf("failed to insert trade %s: %w", t.ID, err)
	}
	return nil
}

// ListRuns returns stored runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunMeta, error) {
	query := `
		SELECT run_id, generated_at, source_files, brokers, trade_count, flag_count, net_pnl, score, grade
		FROM runs ORDER BY generated_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunMeta
	for rows.Next() {
		var meta RunMeta
		var generatedAt, files, brokers, netPnL string
		if err := rows.Scan(&meta.RunID, &generatedAt, &files, &brokers,
			&meta.Trades, &meta.Flags, &netPnL, &meta.Score, &meta.Grade); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if meta.GeneratedAt, err = timeFromDB(generatedAt); err != nil {
			return nil, err
		}
		if meta.NetPnL, err = decimalFromDB("net_pnl", netPnL); err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(files), &meta.SourceFiles)
		json.Unmarshal([]byte(brokers), &meta.Brokers)
		runs = append(runs, meta)
	}
	return runs, rows.Err()
}

// GetReport loads a full report by run ID.
func (s *SQLiteStore) GetReport(ctx context.Context, runID string) (*models.Report, error) {
	report := &models.Report{RunID: runID}

	var generatedAt, files, brokers, summaryJSON, scoreJSON string
	var adviceJSON sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT generated_at, source_files, brokers, summary, score_detail, advice
		FROM runs WHERE run_id = ?
	`, runID).Scan(&generatedAt, &files, &brokers, &summaryJSON, &scoreJSON, &adviceJSON)
	if err == sql.ErrNoRows {
		return nil, apperrors.Wrapf(apperrors.ErrRunNotFound, "run %s", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	if report.GeneratedAt, err = timeFromDB(generatedAt); err != nil {
		return nil, err
	}
	json.Unmarshal([]byte(files), &report.SourceFiles)
	json.Unmarshal([]byte(brokers), &report.Brokers)
	if err := json.Unmarshal([]byte(summaryJSON), &report.Summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}
	if err := json.Unmarshal([]byte(scoreJSON), &report.Score); err != nil {
		return nil, fmt.Errorf("failed to decode score: %w", err)
	}
	if adviceJSON.Valid {
		json.Unmarshal([]byte(adviceJSON.String), &report.Advice)
	}

	if report.Trades, err = s.loadTrades(ctx, runID); err != nil {
		return nil, err
	}
	if report.Flags, err = s.loadFlags(ctx, runID); err != nil {
		return nil, err
	}
	if report.Unclosed, err = s.loadUnclosed(ctx, runID); err != nil {
		return nil, err
	}
	if report.Diagnostics, err = s.loadDiagnostics(ctx, runID); err != nil {
		return nil, err
	}
	if report.Failed, err = s.loadFailed(ctx, runID); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *SQLiteStore) loadTrades(ctx context.Context, runID string) ([]models.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, exchange, segment, brokers, direction, quantity, multiplier,
			entries, exits, entry_at, exit_at, avg_entry_price, avg_exit_price,
			gross_pnl, charges, total_charges, net_pnl, holding_ns, intraday, confidence, score, grade
		FROM trades WHERE run_id = ? ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		var exchange, segment, brokers, direction, entries, exits string
		var entryAt, exitAt, avgEntry, avgExit, gross, charges, totalCharges, net, confidence string
		var holdingNs int64
		var intraday int
		var grade sql.NullString
		if err := rows.Scan(&t.ID, &t.Symbol, &exchange, &segment, &brokers, &direction,
			&t.Quantity, &t.Multiplier, &entries, &exits, &entryAt, &exitAt,
			&avgEntry, &avgExit, &gross, &charges, &totalCharges, &net,
			&holdingNs, &intraday, &confidence, &t.Score, &grade); err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}

		t.Exchange = models.Exchange(exchange)
		t.Segment = models.Segment(segment)
		t.Direction = models.Direction(direction)
		t.Confidence = models.Confidence(confidence)
		t.HoldingPeriod = time.Duration(holdingNs)
		t.Intraday = intraday != 0
		t.Grade = grade.String
		json.Unmarshal([]byte(brokers), &t.Brokers)
		if err := json.Unmarshal([]byte(entries), &t.Entries); err != nil {
			return nil, fmt.Errorf("failed to decode entry legs: %w", err)
		}
		if err := json.Unmarshal([]byte(exits), &t.Exits); err != nil {
			return nil, fmt.Errorf("failed to decode exit legs: %w", err)
		}
		if err := json.Unmarshal([]byte(charges), &t.Charges); err != nil {
			return nil, fmt.Errorf("failed to decode charges: %w", err)
		}
		if t.EntryAt, err = timeFromDB(entryAt); err != nil {
			return nil, err
		}
		if t.ExitAt, err = timeFromDB(exitAt); err != nil {
			return nil, err
		}
		if t.AvgEntryPrice, err = decimalFromDB("avg_entry_price", avgEntry); err != nil {
			return nil, err
		}
		if t.AvgExitPrice, err = decimalFromDB("avg_exit_price", avgExit); err != nil {
			return nil, err
		}
		if t.GrossPnL, err = decimalFromDB("gross_pnl", gross); err != nil {
			return nil, err
		}
		if t.TotalCharges, err = decimalFromDB("total_charges", totalCharges); err != nil {
			return nil, err
		}
		if t.NetPnL, err = decimalFromDB("net_pnl", net); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (s *SQLiteStore) loadFlags(ctx context.Context, runID string) ([]models.PatternFlag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, severity, trade_ids, detail, window_start, window_end
		FROM flags WHERE run_id = ? ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query flags: %w", err)
	}
	defer rows.Close()

	var flags []models.PatternFlag
	for rows.Next() {
		var f models.PatternFlag
		var typ, severity, tradeIDs string
		var detail, windowStart, windowEnd sql.NullString
		if err := rows.Scan(&typ, &severity, &tradeIDs, &detail, &windowStart, &windowEnd); err != nil {
			return nil, fmt.Errorf("failed to scan flag: %w", err)
		}
		f.Type = models.FlagType(typ)
		f.Severity = models.Severity(severity)
		f.Detail = detail.String
		json.Unmarshal([]byte(tradeIDs), &f.TradeIDs)
		if f.WindowStart, err = timeFromDB(windowStart.String); err != nil {
			return nil, err
		}
		if f.WindowEnd, err = timeFromDB(windowEnd.String); err != nil {
			return nil, err
		}
		flags = append(flags, f)
	}
	return flags, rows.Err()
}

func (s *SQLiteStore) loadUnclosed(ctx context.Context, runID string) ([]models.UnclosedPosition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, segment, direction, quantity, avg_entry_price, opened_at, lots
		FROM unclosed WHERE run_id = ? ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unclosed positions: %w", err)
	}
	defer rows.Close()

	var positions []models.UnclosedPosition
	for rows.Next() {
		var u models.UnclosedPosition
		var segment, direction, avgEntry, openedAt, lots string
		if err := rows.Scan(&u.Symbol, &segment, &direction, &u.Quantity, &avgEntry, &openedAt, &lots); err != nil {
			return nil, fmt.Errorf("failed to scan unclosed position: %w", err)
		}
		u.Segment = models.Segment(segment)
		u.Direction = models.Direction(direction)
		if u.AvgEntryPrice, err = decimalFromDB("avg_entry_price", avgEntry); err != nil {
			return nil, err
		}
		if u.OpenedAt, err = timeFromDB(openedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(lots), &u.Lots); err != nil {
			return nil, fmt.Errorf("failed to decode lots: %w", err)
		}
		positions = append(positions, u)
	}
	return positions, rows.Err()
}

func (s *SQLiteStore) loadDiagnostics(ctx context.Context, runID string) ([]models.Diagnostic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT stage, code, symbol, fill_id, quantity, detail
		FROM diagnostics WHERE run_id = ? ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query diagnostics: %w", err)
	}
	defer rows.Close()

	var diags []models.Diagnostic
	for rows.Next() {
		var d models.Diagnostic
		var stage, code string
		var symbol, fillID, detail sql.NullString
		if err := rows.Scan(&stage, &code, &symbol, &fillID, &d.Quantity, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan diagnostic: %w", err)
		}
		d.Stage = models.Stage(stage)
		d.Code = models.DiagnosticCode(code)
		d.Symbol = symbol.String
		d.FillID = fillID.String
		d.Detail = detail.String
		diags = append(diags, d)
	}
	return diags, rows.Err()
}

func (s *SQLiteStore) loadFailed(ctx context.Context, runID string) ([]models.FailedTrade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT trade, reason FROM failed_trades WHERE run_id = ? ORDER BY rowid
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed trades: %w", err)
	}
	defer rows.Close()

	var failed []models.FailedTrade
	for rows.Next() {
		var f models.FailedTrade
		var tradeJSON string
		if err := rows.Scan(&tradeJSON, &f.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan failed trade: %w", err)
		}
		if err := json.Unmarshal([]byte(tradeJSON), &f.Trade); err != nil {
			return nil, fmt.Errorf("failed to decode failed trade: %w", err)
		}
		failed = append(failed, f)
	}
	return failed, rows.Err()
}

// DeleteRun removes a run and everything attached to it.
func (s *SQLiteStore) DeleteRun(ctx context.Context, runID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.Wrapf(apperrors.ErrRunNotFound, "run %s", runID)
	}

	for _, table := range []string{"trades", "flags", "unclosed", "diagnostics", "failed_trades"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ?`, runID); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// timeToDB stores timestamps as RFC3339 text, keeping the IST offset.
// The zero time maps to the empty string.
func timeToDB(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func timeFromDB(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored time %q: %w", s, err)
	}
	return t, nil
}

func decimalFromDB(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to parse stored %s %q: %w", field, s, err)
	}
	return d, nil
}
