package models

import "time"

// Stage identifies the pipeline stage that produced a diagnostic.
type Stage string

const (
	StageAdapter     Stage = "ADAPTER"
	StageReconstruct Stage = "RECONSTRUCT"
	StageCharges     Stage = "CHARGES"
)

// DiagnosticCode classifies a non-fatal anomaly recorded during a run.
type DiagnosticCode string

const (
	DiagOverClose         DiagnosticCode = "OVER_CLOSE"
	DiagUnknownMultiplier DiagnosticCode = "UNKNOWN_MULTIPLIER"
)

// Diagnostic records an anomaly that did not stop the run but needs
// manual review. Quantity carries the unmatched excess for over-closes.
type Diagnostic struct {
	Stage    Stage
	Code     DiagnosticCode
	Symbol   string
	FillID   string
	Quantity int64
	Detail   string
}

// FailedTrade is a reconstructed trade that could not be fully priced.
type FailedTrade struct {
	Trade  Trade
	Reason string
}

// Report is the complete output of one analysis run.
type Report struct {
	RunID       string
	GeneratedAt time.Time
	SourceFiles []string
	Brokers     []Broker
	Trades      []Trade
	Unclosed    []UnclosedPosition
	Failed      []FailedTrade
	Flags       []PatternFlag
	Score       DisciplineScore
	Summary     Summary
	Diagnostics []Diagnostic
	Advice      []string
}
