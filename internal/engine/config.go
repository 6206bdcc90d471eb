// Package engine implements the day-stepped portfolio simulation: a fixed
// capacity position book driven by daily bars and external signals, producing
// the trade log and account ledger consumed by the analytics layer.
package engine

import (
	"fmt"

	"marlin/internal/domain"
)

// Config holds every parameter of a simulation run. It is immutable for the
// duration of the run; there is no ambient or process-wide configuration.
type Config struct {
	InitialCash    float64
	MaxPositions   int
	SlippageRate   float64
	CommissionRate float64
	StopLossPct    float64
	TakeProfitPct  float64

	// Position sizing.
	SizeBaseFraction    float64 // base size as fraction of total balance
	MaxPositionFraction float64 // cap as fraction of total balance
	MaxCashFraction     float64 // cap as fraction of available cash

	// Volatility sizing adjustment. Heuristic knobs with no derived "correct"
	// value; see DefaultConfig for the stock settings.
	VolAdjustThreshold float64 // daily return stddev at which sizing shrinks
	VolAdjustFactor    float64 // multiplier applied above the threshold
	VolWindow          int     // trailing bars for the volatility proxy
}

// DefaultConfig returns a Config with the stock risk parameters. InitialCash
// must still be set by the caller.
func DefaultConfig() Config {
	return Config{
		MaxPositions:        5,
		SlippageRate:        0.001,
		CommissionRate:      0.0005,
		StopLossPct:         0.08,
		TakeProfitPct:       0.20,
		SizeBaseFraction:    0.10,
		MaxPositionFraction: 0.25,
		MaxCashFraction:     0.95,
		VolAdjustThreshold:  0.04,
		VolAdjustFactor:     0.5,
		VolWindow:           20,
	}
}

// Validate checks the config before a run starts. Every violation wraps
// domain.ErrInvalidConfig so callers can test with errors.Is.
func (c Config) Validate() error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if c.InitialCash <= 0 {
		return fail("initial cash %v must be positive", c.InitialCash)
	}
	if c.MaxPositions < 1 {
		return fail("max positions %d must be at least 1", c.MaxPositions)
	}
	rates := map[string]float64{
		"slippage rate":   c.SlippageRate,
		"commission rate": c.CommissionRate,
		"stop loss pct":   c.StopLossPct,
		"take profit pct": c.TakeProfitPct,
	}
	for name, v := range rates {
		if v < 0 || v >= 1 {
			return fail("%s %v must be in [0, 1)", name, v)
		}
	}
	fractions := map[string]float64{
		"size base fraction":    c.SizeBaseFraction,
		"max position fraction": c.MaxPositionFraction,
		"max cash fraction":     c.MaxCashFraction,
	}
	for name, v := range fractions {
		if v <= 0 || v > 1 {
			return fail("%s %v must be in (0, 1]", name, v)
		}
	}
	if c.VolAdjustThreshold < 0 {
		return fail("vol adjust threshold %v must not be negative", c.VolAdjustThreshold)
	}
	if c.VolAdjustFactor < 0 || c.VolAdjustFactor > 1 {
		return fail("vol adjust factor %v must be in [0, 1]", c.VolAdjustFactor)
	}
	if c.VolWindow < 0 {
		return fail("vol window %d must not be negative", c.VolWindow)
	}
	return nil
}
