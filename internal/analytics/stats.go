package analytics

import "math"

// Summary aggregates win/loss statistics over closed positions.
// ProfitFactor is +Inf when there are no losing trades.
type Summary struct {
	Trades       int
	Wins         int
	Losses       int
	WinRate      float64
	AvgWin       float64
	AvgLoss      float64 // negative
	ProfitFactor float64
	Expectancy   float64
	BestTrade    float64
	WorstTrade   float64
}

// Summarize computes the Summary over a set of closed positions. A zero
// NetPnL counts as a loss, matching the engine's win/loss accounting.
func Summarize(closed []ClosedPosition) Summary {
	s := Summary{Trades: len(closed)}
	if len(closed) == 0 {
		return s
	}

	var sumWins, sumLosses, total float64
	s.BestTrade = closed[0].NetPnL
	s.WorstTrade = closed[0].NetPnL
	for _, cp := range closed {
		pnl := cp.NetPnL
		total += pnl
		if pnl > 0 {
			s.Wins++
			sumWins += pnl
		} else {
			s.Losses++
			sumLosses += pnl
		}
		if pnl > s.BestTrade {
			s.BestTrade = pnl
		}
		if pnl < s.WorstTrade {
			s.WorstTrade = pnl
		}
	}

	s.WinRate = float64(s.Wins) / float64(s.Trades)
	if s.Wins > 0 {
		s.AvgWin = sumWins / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = sumLosses / float64(s.Losses)
	}
	if sumLosses < 0 {
		s.ProfitFactor = sumWins / math.Abs(sumLosses)
	} else {
		s.ProfitFactor = math.Inf(1)
	}
	s.Expectancy = total / float64(s.Trades)
	return s
}

// StreakReport tracks consecutive win/loss runs over the chronological order
// of closes. Current is signed: positive means the run in progress is wins.
type StreakReport struct {
	MaxWins   int
	MaxLosses int
	Current   int
}

// Streaks computes win/loss streaks over closed positions in close order.
func Streaks(closed []ClosedPosition) StreakReport {
	var r StreakReport
	for _, cp := range closed {
		if cp.NetPnL > 0 {
			if r.Current > 0 {
				r.Current++
			} else {
				r.Current = 1
			}
			if r.Current > r.MaxWins {
				r.MaxWins = r.Current
			}
		} else {
			if r.Current < 0 {
				r.Current--
			} else {
				r.Current = -1
			}
			if -r.Current > r.MaxLosses {
				r.MaxLosses = -r.Current
			}
		}
	}
	return r
}
