// Package domain defines the shared typed records that flow between the
// instrument table, the simulation engine, and the analytics layer.
package domain

import "time"

// SymbolID identifies one tradable instrument.
type SymbolID string

// Bar is one daily OHLCV bar for a single symbol. Immutable once loaded.
type Bar struct {
	Symbol SymbolID
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// SignalKind is the direction of a trading signal.
type SignalKind string

const (
	SignalBuy  SignalKind = "buy"
	SignalSell SignalKind = "sell"
)

// Signal is one externally supplied trading signal. TargetPrice of zero means
// a market-style entry at the day's open.
type Signal struct {
	Date        time.Time
	Symbol      SymbolID
	Kind        SignalKind
	TargetPrice float64
	Confidence  float64
}

// Side is the direction of an executed trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ExitReason records why a position was closed. Empty for buy trades.
type ExitReason string

const (
	ExitStopLoss   ExitReason = "stop_loss"
	ExitTakeProfit ExitReason = "take_profit"
	ExitSignal     ExitReason = "signal"
)

// Trade is one immutable trade-log record, appended when a position opens
// (SideBuy, RealizedPnL 0) or closes (SideSell, RealizedPnL realized against
// the position's cost basis). GrossAmount is the cash effect of the fill:
// total cost paid for buys, net proceeds received for sells.
type Trade struct {
	Date        time.Time
	Symbol      SymbolID
	Side        Side
	FillPrice   float64
	Shares      int64
	GrossAmount float64
	RealizedPnL float64
	ExitReason  ExitReason
}

// Position is one open holding inside an asset slot. AvgEntryPrice is the
// effective per-share cost basis including entry slippage and commission.
// MarketValue is the most recent mark-to-market balance.
type Position struct {
	Symbol        SymbolID
	Shares        int64
	AvgEntryPrice float64
	EntryDate     time.Time
	StopLoss      float64
	TakeProfit    float64
	GainFactor    float64
	HoldingDays   int
	MarketValue   float64
}

// Account is the cash and equity state of the simulated account. The engine
// maintains TotalBalance == Cash + StockValue after every daily step.
type Account struct {
	Cash         float64
	StockValue   float64
	TotalBalance float64
	WinCount     int
	LossCount    int
}

// SlotBalance is the per-slot portion of a ledger snapshot.
type SlotBalance struct {
	Slot        int
	Symbol      SymbolID
	MarketValue float64
}

// LedgerEntry is one immutable end-of-day snapshot of the account plus the
// occupied slots' balances. The full ledger is an append-only, date-ordered
// sequence and the sole input to the analytics layer.
type LedgerEntry struct {
	Date         time.Time
	Cash         float64
	StockValue   float64
	TotalBalance float64
	WinCount     int
	LossCount    int
	Slots        []SlotBalance
}
