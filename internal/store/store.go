// Package store persists analysis runs in SQLite so past reports can be
// listed, reopened and compared. Money fields are stored as decimal
// strings, never floats; timestamps keep their IST offset.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tradeaudit/internal/models"
)

// Store is the persistence interface for analysis runs.
type Store interface {
	// SaveReport stores a full report under its run ID.
	SaveReport(ctx context.Context, report *models.Report) error
	// ListRuns returns stored runs, newest first. limit <= 0 means all.
	ListRuns(ctx context.Context, limit int) ([]RunMeta, error)
	// GetReport loads a full report. Returns ErrRunNotFound for unknown IDs.
	GetReport(ctx context.Context, runID string) (*models.Report, error)
	// DeleteRun removes a run and everything attached to it.
	DeleteRun(ctx context.Context, runID string) error
	// Close releases the underlying database.
	Close() error
}

// RunMeta is the run-list view of a stored report.
type RunMeta struct {
	RunID       string
	GeneratedAt time.Time
	SourceFiles []string
	Brokers     []models.Broker
	Trades      int
	Flags       int
	NetPnL      decimal.Decimal
	Score       float64
	Grade       string
}
