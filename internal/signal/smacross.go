package signal

import (
	"fmt"

	"marlin/internal/domain"
	"marlin/internal/market"
)

// Compile-time interface check.
var _ Source = (*SMACross)(nil)

// SMACross generates a buy signal when the short-period simple moving
// average of closes crosses above the long-period one, and a sell signal
// when it crosses below. Ships as the built-in example source.
type SMACross struct {
	shortPeriod int
	longPeriod  int
}

// NewSMACross creates an SMACross source with the given periods.
func NewSMACross(short, long int) *SMACross {
	return &SMACross{shortPeriod: short, longPeriod: long}
}

// Name returns "sma-cross".
func (s *SMACross) Name() string { return "sma-cross" }

// Signals scans each symbol's close series for crossovers. Signal order is
// deterministic: symbols in table order, dates ascending.
func (s *SMACross) Signals(table *market.Table) ([]domain.Signal, error) {
	if s.shortPeriod < 1 || s.longPeriod <= s.shortPeriod {
		return nil, fmt.Errorf("bad sma periods short=%d long=%d", s.shortPeriod, s.longPeriod)
	}

	var signals []domain.Signal
	for _, sym := range table.Symbols() {
		dates := table.Dates(sym)
		closes := make([]float64, len(dates))
		for i, d := range dates {
			bar, _ := table.Bar(sym, d)
			closes[i] = bar.Close
		}

		prevDiff := 0.0
		for i := s.longPeriod - 1; i < len(closes); i++ {
			diff := sma(closes, i, s.shortPeriod) - sma(closes, i, s.longPeriod)
			if i > s.longPeriod-1 {
				switch {
				case prevDiff <= 0 && diff > 0:
					signals = append(signals, domain.Signal{
						Date:       dates[i],
						Symbol:     sym,
						Kind:       domain.SignalBuy,
						Confidence: 1,
					})
				case prevDiff >= 0 && diff < 0:
					signals = append(signals, domain.Signal{
						Date:       dates[i],
						Symbol:     sym,
						Kind:       domain.SignalSell,
						Confidence: 1,
					})
				}
			}
			prevDiff = diff
		}
	}
	return signals, nil
}

// sma averages the n closes ending at index i.
func sma(closes []float64, i, n int) float64 {
	var sum float64
	for j := i - n + 1; j <= i; j++ {
		sum += closes[j]
	}
	return sum / float64(n)
}
