// Package store defines storage interfaces for daily bar data and finished
// backtest runs, with Parquet and SQLite implementations.
package store

import (
	"context"
	"time"

	"marlin/internal/domain"
)

// BarStore persists and retrieves daily OHLCV bars.
type BarStore interface {
	// WriteBars persists a batch of bars, merging with existing data.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol within [start, end].
	ReadBars(ctx context.Context, symbol domain.SymbolID, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols with stored bars.
	ListSymbols(ctx context.Context) ([]domain.SymbolID, error)
}

// RunMeta identifies one persisted backtest run.
type RunMeta struct {
	ID          string
	CreatedAt   time.Time
	Source      string // signal source name
	InitialCash float64
}

// ResultStore persists and retrieves finished backtest runs: the trade log
// and the account ledger, keyed by run ID.
type ResultStore interface {
	// SaveRun persists a complete run. Saving an existing ID fails.
	SaveRun(ctx context.Context, meta RunMeta, trades []domain.Trade, ledger []domain.LedgerEntry) error

	// GetRun retrieves a run's metadata by ID.
	GetRun(ctx context.Context, id string) (RunMeta, error)

	// LoadTrades returns a run's trade log in original order.
	LoadTrades(ctx context.Context, id string) ([]domain.Trade, error)

	// LoadLedger returns a run's ledger in date order, slots included.
	LoadLedger(ctx context.Context, id string) ([]domain.LedgerEntry, error)

	// ListRuns returns all persisted runs, newest first.
	ListRuns(ctx context.Context) ([]RunMeta, error)
}
