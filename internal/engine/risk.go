package engine

import "marlin/internal/domain"

// PositionSize returns the cash amount to commit to a new entry. The base
// size is a fraction of total balance, shrunk for high-volatility symbols and
// clamped by both the per-position cap and the available-cash cap. Zero is a
// valid "skip this entry" outcome; the result is never negative.
func PositionSize(account domain.Account, volatility float64, cfg Config) float64 {
	size := account.TotalBalance * cfg.SizeBaseFraction
	if cfg.VolAdjustThreshold > 0 && volatility >= cfg.VolAdjustThreshold {
		size *= cfg.VolAdjustFactor
	}
	if limit := account.TotalBalance * cfg.MaxPositionFraction; size > limit {
		size = limit
	}
	if limit := account.Cash * cfg.MaxCashFraction; size > limit {
		size = limit
	}
	if size < 0 {
		return 0
	}
	return size
}

// StopLossPrice returns the fixed stop for a position entered at entryPrice.
// Computed once at entry and held for the life of the position.
func StopLossPrice(entryPrice float64, cfg Config) float64 {
	return entryPrice * (1 - cfg.StopLossPct)
}

// TakeProfitPrice returns the fixed take-profit target for a position entered
// at entryPrice.
func TakeProfitPrice(entryPrice float64, cfg Config) float64 {
	return entryPrice * (1 + cfg.TakeProfitPct)
}
