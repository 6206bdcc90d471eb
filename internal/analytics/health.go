package analytics

import "marlin/internal/domain"

// healthTrendWindow is the balance moving-average window used by the trend
// component of the health score.
const healthTrendWindow = 20

// HealthScore condenses the ledger into a 0-100 heuristic: cash cushion,
// balance trend versus its moving average, and distance from the peak
// balance. Informational only; nothing downstream treats it as an invariant.
func HealthScore(ledger []domain.LedgerEntry) int {
	if len(ledger) == 0 {
		return 0
	}
	last := ledger[len(ledger)-1]
	if last.TotalBalance <= 0 {
		return 0
	}

	// Cash cushion: fraction of equity held in cash (40 points).
	cushion := last.Cash / last.TotalBalance
	if cushion > 1 {
		cushion = 1
	}
	if cushion < 0 {
		cushion = 0
	}

	// Trend: last balance vs trailing moving average (30 points).
	start := len(ledger) - healthTrendWindow
	if start < 0 {
		start = 0
	}
	var sum float64
	for _, e := range ledger[start:] {
		sum += e.TotalBalance
	}
	ma := sum / float64(len(ledger)-start)
	trend := 0.5
	if ma > 0 {
		// Map ±5% around the moving average onto [0, 1].
		trend = 0.5 + (last.TotalBalance/ma-1)*10
		if trend > 1 {
			trend = 1
		}
		if trend < 0 {
			trend = 0
		}
	}

	// Peak distance: how close the balance sits to its all-time mark (30 points).
	var peak float64
	for _, e := range ledger {
		if e.TotalBalance > peak {
			peak = e.TotalBalance
		}
	}
	peakDist := 1.0
	if peak > 0 {
		peakDist = last.TotalBalance / peak
		if peakDist > 1 {
			peakDist = 1
		}
	}

	score := int(cushion*40 + trend*30 + peakDist*30 + 0.5)
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}
