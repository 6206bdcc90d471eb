// Package analytics consumes the finished trade log and account ledger and
// computes closed-position P/L, summary statistics, drawdown, streaks, and
// the account health score. It never mutates its inputs.
package analytics

import (
	"time"

	"marlin/internal/domain"
)

// ClosedPosition is one FIFO-matched round trip. A partially closed buy lot
// is split across the sells that consumed it.
type ClosedPosition struct {
	Symbol     domain.SymbolID
	EntryDate  time.Time
	ExitDate   time.Time
	Shares     int64
	EntryPrice float64 // effective fill price, slippage included
	ExitPrice  float64
	GrossPnL   float64 // shares * (exit fill - entry fill)
	Commission float64
	NetPnL     float64 // cash-effect P/L, commissions included
	HoldingDays int
	ReturnPct  float64
	ExitReason domain.ExitReason
}

// openLot is an unmatched remainder of a buy trade.
type openLot struct {
	date      time.Time
	shares    int64
	fillPrice float64
	cost      float64 // remaining total cost including commission
}

// MatchTradesFIFO pairs each sell with the oldest unmatched buys of the same
// symbol, in trade-log order. The trade log is produced chronologically by
// the engine, so the output is ordered by exit date.
func MatchTradesFIFO(trades []domain.Trade) []ClosedPosition {
	open := make(map[domain.SymbolID][]openLot)
	var closed []ClosedPosition

	for _, t := range trades {
		switch t.Side {
		case domain.SideBuy:
			open[t.Symbol] = append(open[t.Symbol], openLot{
				date:      t.Date,
				shares:    t.Shares,
				fillPrice: t.FillPrice,
				cost:      t.GrossAmount,
			})

		case domain.SideSell:
			remaining := t.Shares
			// Per-share sell economics, used when splitting across lots.
			sellFill := t.FillPrice
			sellNetPerShare := t.GrossAmount / float64(t.Shares)

			lots := open[t.Symbol]
			for remaining > 0 && len(lots) > 0 {
				lot := &lots[0]
				matched := lot.shares
				if matched > remaining {
					matched = remaining
				}

				costShare := lot.cost * float64(matched) / float64(lot.shares)
				gross := float64(matched) * (sellFill - lot.fillPrice)
				net := float64(matched)*sellNetPerShare - costShare

				cp := ClosedPosition{
					Symbol:      t.Symbol,
					EntryDate:   lot.date,
					ExitDate:    t.Date,
					Shares:      matched,
					EntryPrice:  lot.fillPrice,
					ExitPrice:   sellFill,
					GrossPnL:    gross,
					Commission:  gross - net,
					NetPnL:      net,
					HoldingDays: calendarDays(lot.date, t.Date),
					ExitReason:  t.ExitReason,
				}
				if costShare > 0 {
					cp.ReturnPct = net / costShare
				}
				closed = append(closed, cp)

				lot.shares -= matched
				lot.cost -= costShare
				remaining -= matched
				if lot.shares == 0 {
					lots = lots[1:]
				}
			}
			open[t.Symbol] = lots
		}
	}
	return closed
}

func calendarDays(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
