// Package audit orchestrates one analysis run: parse export files into
// fills, reconstruct round trips, price them, detect behavior patterns
// and score the result.
package audit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"tradeaudit/internal/adapter"
	"tradeaudit/internal/charges"
	"tradeaudit/internal/config"
	"tradeaudit/internal/discipline"
	apperrors "tradeaudit/internal/errors"
	"tradeaudit/internal/logging"
	"tradeaudit/internal/models"
	"tradeaudit/internal/patterns"
	"tradeaudit/internal/performance"
	"tradeaudit/internal/reconstruct"
	"tradeaudit/pkg/utils"
)

// Request describes one analysis run.
type Request struct {
	// Paths lists the export files. Fill sequence numbers follow this
	// order, so it decides ties between same-timestamp fills across files.
	Paths []string
	// Broker forces a specific adapter. Empty or "auto" detects per file.
	Broker string
}

// Runner wires the pipeline stages together.
type Runner struct {
	cfg    *config.Config
	logger zerolog.Logger
	recon  *reconstruct.Reconstructor
	calc   *charges.Calculator
	det    *patterns.Detector
	scorer *discipline.Scorer
}

// NewRunner builds a runner from the loaded configuration.
func NewRunner(cfg *config.Config, logger zerolog.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		logger: logger,
		recon:  reconstruct.New(),
		calc:   charges.NewCalculator(cfg.Charges),
		det:    patterns.NewDetector(cfg.Detector),
		scorer: discipline.NewScorer(cfg.Scorer),
	}
}

// Run executes the full pipeline over the requested files and returns
// the report. Partial-confidence trades appear in the report but are
// excluded from pattern detection and scoring.
func (r *Runner) Run(ctx context.Context, req Request) (*models.Report, error) {
	if len(req.Paths) == 0 {
		return nil, apperrors.New("no input files given")
	}

	runID := newRunID(time.Now())
	logger := logging.WithRun(r.logger, runID)

	fills, files, brokers, err := r.parse(ctx, logger, req)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, apperrors.New("no input file could be parsed")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	res := r.recon.Run(fills)
	logging.LogStage(logger, "reconstruct", time.Since(start), len(res.Trades))

	start = time.Now()
	priced, failed, chargeDiags := r.calc.PriceAll(res.Trades)
	logging.LogStage(logger, "charges", time.Since(start), len(priced))
	diagnostics := append(res.Diagnostics, chargeDiags...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full := fullConfidence(priced)

	start = time.Now()
	flags := r.det.Detect(full)
	logging.LogStage(logger, "patterns", time.Since(start), len(flags))

	var summary models.Summary
	var score models.DisciplineScore
	var advice []string
	if len(full) > 0 {
		summary, score = r.scorer.Evaluate(full, len(res.Unclosed), flags)
		advice = r.scorer.Advice(summary, score)
		mergeScored(priced, full)
	} else {
		summary = r.scorer.Summarize(nil, len(res.Unclosed), flags)
	}

	report := &models.Report{
		RunID:       runID,
		GeneratedAt: time.Now().In(utils.IndiaLocation),
		SourceFiles: files,
		Brokers:     brokers,
		Trades:      priced,
		Unclosed:    res.Unclosed,
		Failed:      failed,
		Flags:       flags,
		Score:       score,
		Summary:     summary,
		Diagnostics: diagnostics,
		Advice:      advice,
	}

	logging.LogRun(logger, runID, len(priced), len(flags), score.Composite)
	return report, nil
}

type parsedFile struct {
	fills  []models.Fill
	broker models.Broker
	err    error
}

// parse reads every requested file, fanning out across the worker pool,
// then stitches the results back together in request order. Sequence
// numbers are assigned here, globally across files.
func (r *Runner) parse(ctx context.Context, logger zerolog.Logger, req Request) ([]models.Fill, []string, []models.Broker, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, nil, err
	}

	pool := performance.NewWorkerPool(r.cfg.Audit.Workers)
	pool.Start()
	defer pool.Stop()

	start := time.Now()
	results := performance.Map(pool, len(req.Paths), func(i int) parsedFile {
		fills, broker, err := adapter.ParseFile(req.Paths[i], req.Broker)
		return parsedFile{fills: fills, broker: broker, err: err}
	})

	var fills []models.Fill
	var files []string
	brokerSet := make(map[models.Broker]bool)
	var seq int64
	for i, res := range results {
		if res.err != nil {
			if r.cfg.Audit.KeepGoing {
				logger.Warn().
					Str("file", req.Paths[i]).
					Err(res.err).
					Msg("Skipping file")
				continue
			}
			return nil, nil, nil, res.err
		}
		for j := range res.fills {
			res.fills[j].Seq = seq
			seq++
		}
		fills = append(fills, res.fills...)
		files = append(files, req.Paths[i])
		brokerSet[res.broker] = true
		logging.LogFileParsed(logger, req.Paths[i], string(res.broker), len(res.fills))
	}
	logging.LogStage(logger, "parse", time.Since(start), len(fills))

	brokers := make([]models.Broker, 0, len(brokerSet))
	for b := range brokerSet {
		brokers = append(brokers, b)
	}
	sort.Slice(brokers, func(i, j int) bool { return brokers[i] < brokers[j] })

	return fills, files, brokers, nil
}

// fullConfidence returns the trades eligible for detection and scoring.
func fullConfidence(trades []models.Trade) []models.Trade {
	full := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.Confidence == models.ConfidenceFull {
			full = append(full, t)
		}
	}
	return full
}

// mergeScored copies per-trade scores back onto the report's trade list.
// Partial-confidence trades keep a zero score and empty grade.
func mergeScored(trades, scored []models.Trade) {
	byID := make(map[string]models.Trade, len(scored))
	for _, t := range scored {
		byID[t.ID] = t
	}
	for i := range trades {
		if t, ok := byID[trades[i].ID]; ok {
			trades[i] = t
		}
	}
}

func newRunID(now time.Time) string {
	var b [2]byte
	rand.Read(b[:])
	return fmt.Sprintf("run-%s-%s", now.In(utils.IndiaLocation).Format("20060102-150405"), hex.EncodeToString(b[:]))
}
