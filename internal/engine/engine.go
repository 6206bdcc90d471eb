package engine

import (
	"context"
	"log/slog"
	"math"
	"time"

	"marlin/internal/domain"
	"marlin/internal/market"
)

// Result is the complete output of a simulation run: one ledger entry per
// trading date plus the ordered trade log. Both are append-only during the
// run and immutable afterwards.
type Result struct {
	Ledger []domain.LedgerEntry
	Trades []domain.Trade
}

// Engine owns the position book and account for the duration of a run. It is
// strictly single-threaded: day t depends only on day t-1 plus day t's
// inputs, and within a day the exit pass always runs before the entry pass so
// that sells free capacity for same-day buys.
type Engine struct {
	table *market.Table
	cfg   Config
	log   *slog.Logger
}

// New creates an Engine over the given instrument table. The config is
// validated up front; an invalid config never starts a run.
func New(table *market.Table, cfg Config, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		table: table,
		cfg:   cfg,
		log:   logger.With("component", "engine"),
	}, nil
}

// daySignals is the per-date signal view: buy signals in their original
// order (first per symbol wins) and the set of symbols with a sell signal.
type daySignals struct {
	buys  []domain.Signal
	sells map[domain.SymbolID]bool
}

func groupSignals(signals []domain.Signal) map[int64]*daySignals {
	out := make(map[int64]*daySignals)
	for _, s := range signals {
		key := dayKey(s.Date)
		ds := out[key]
		if ds == nil {
			ds = &daySignals{sells: make(map[domain.SymbolID]bool)}
			out[key] = ds
		}
		switch s.Kind {
		case domain.SignalBuy:
			ds.buys = append(ds.buys, s)
		case domain.SignalSell:
			ds.sells[s.Symbol] = true
		}
	}
	return out
}

func dayKey(t time.Time) int64 {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
}

// Run simulates the strategy over the calendar and returns the finished
// ledger and trade log. A fatal error (context cancellation between days, or
// a ledger invariant violation) returns the partial result alongside the
// error; per-symbol missing data is logged and skipped, never fatal.
func (e *Engine) Run(ctx context.Context, signals []domain.Signal, calendar []time.Time) (*Result, error) {
	res := &Result{}
	book := NewBook(e.cfg.MaxPositions)
	acct := domain.Account{
		Cash:         e.cfg.InitialCash,
		TotalBalance: e.cfg.InitialCash,
	}
	byDay := groupSignals(signals)

	for _, day := range calendar {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		book = book.Clone()
		ds := byDay[dayKey(day)]

		e.exitPass(book, &acct, day, ds, res)
		e.entryPass(book, &acct, day, ds, res)

		// Recompute equity from the slots and cross-check the incrementally
		// tracked value; a mismatch means the engine itself is broken.
		recomputed := book.StockValue()
		if diff := math.Abs(recomputed - acct.StockValue); diff > tolerance(recomputed) {
			return res, &domain.InvariantError{
				Date:   day,
				Detail: "stock value drifted from slot balances",
			}
		}
		if detail := book.checkInvariants(); detail != "" {
			return res, &domain.InvariantError{Date: day, Detail: detail}
		}
		if acct.Cash < -tolerance(e.cfg.InitialCash) {
			return res, &domain.InvariantError{Date: day, Detail: "cash went negative"}
		}

		acct.StockValue = recomputed
		acct.TotalBalance = acct.Cash + acct.StockValue
		res.Ledger = append(res.Ledger, snapshot(day, acct, book))
	}
	return res, nil
}

func tolerance(v float64) float64 {
	if v < 0 {
		v = -v
	}
	if v < 1 {
		v = 1
	}
	return v * 1e-9
}

// exitPass walks every occupied slot and applies exactly one of stop-exit,
// take-profit exit, signal-exit, or mark-to-market.
func (e *Engine) exitPass(book *Book, acct *domain.Account, day time.Time, ds *daySignals, res *Result) {
	for _, slot := range book.Occupied() {
		pos := book.Position(slot)
		bar, ok := e.table.Bar(pos.Symbol, day)
		if !ok {
			e.log.Warn("missing price data, holding position",
				"symbol", pos.Symbol, "date", day.Format("2006-01-02"))
			continue
		}

		switch {
		case bar.Low <= pos.StopLoss:
			// Gap-down days fill below the stop.
			fill := math.Min(bar.Open, pos.StopLoss)
			e.closePosition(book, acct, slot, fill, day, domain.ExitStopLoss, res)

		case pos.TakeProfit > 0 && bar.High >= pos.TakeProfit:
			fill := math.Max(bar.Open, pos.TakeProfit)
			e.closePosition(book, acct, slot, fill, day, domain.ExitTakeProfit, res)

		case ds != nil && ds.sells[pos.Symbol]:
			e.closePosition(book, acct, slot, bar.Open, day, domain.ExitSignal, res)

		default:
			e.markToMarket(acct, pos, bar)
		}
	}
}

// markToMarket revalues an open position at today's close and ages it one day.
func (e *Engine) markToMarket(acct *domain.Account, pos *domain.Position, bar domain.Bar) {
	prevMark := pos.MarketValue / float64(pos.Shares)
	if prevMark > 0 {
		pos.GainFactor *= bar.Close / prevMark
	}
	newValue := float64(pos.Shares) * bar.Close
	acct.StockValue += newValue - pos.MarketValue
	pos.MarketValue = newValue
	pos.HoldingDays++
}

func (e *Engine) closePosition(book *Book, acct *domain.Account, slot int, price float64, day time.Time, reason domain.ExitReason, res *Result) {
	pos := book.Position(slot)
	proceeds := FillSell(pos.Shares, price, e.cfg.SlippageRate, e.cfg.CommissionRate)
	realized := proceeds - float64(pos.Shares)*pos.AvgEntryPrice

	acct.Cash += proceeds
	acct.StockValue -= pos.MarketValue
	if realized > 0 {
		acct.WinCount++
	} else {
		acct.LossCount++
	}
	book.Close(slot)

	res.Trades = append(res.Trades, domain.Trade{
		Date:        day,
		Symbol:      pos.Symbol,
		Side:        domain.SideSell,
		FillPrice:   price * (1 - e.cfg.SlippageRate),
		Shares:      pos.Shares,
		GrossAmount: proceeds,
		RealizedPnL: realized,
		ExitReason:  reason,
	})
}

// entryPass fills buy signals in signal order into the lowest-indexed free
// slots. Insufficient cash and zero-share sizings are normal skips; the pass
// stops only when the book is full.
func (e *Engine) entryPass(book *Book, acct *domain.Account, day time.Time, ds *daySignals, res *Result) {
	if ds == nil {
		return
	}
	seen := make(map[domain.SymbolID]bool)
	for _, sig := range ds.buys {
		if seen[sig.Symbol] {
			continue
		}
		seen[sig.Symbol] = true
		if book.Find(sig.Symbol) >= 0 {
			continue
		}
		slot := book.FreeSlot()
		if slot < 0 {
			return
		}

		bar, ok := e.table.Bar(sig.Symbol, day)
		if !ok {
			e.log.Warn("missing price data, skipping buy signal",
				"symbol", sig.Symbol, "date", day.Format("2006-01-02"))
			continue
		}

		price := bar.Open
		if sig.TargetPrice > 0 {
			// Limit-style entry: fills only when the day trades through the
			// target, at the better of open and target.
			if bar.Low > sig.TargetPrice {
				continue
			}
			price = math.Min(bar.Open, sig.TargetPrice)
		}

		vol := e.table.Volatility(sig.Symbol, day, e.cfg.VolWindow)
		budget := PositionSize(*acct, vol, e.cfg)
		shares, cost := FillBuy(price, budget, e.cfg.SlippageRate, e.cfg.CommissionRate)
		if shares == 0 || cost > acct.Cash {
			e.log.Debug("skipping entry", "symbol", sig.Symbol, "budget", budget, "shares", shares)
			continue
		}

		pos := &domain.Position{
			Symbol:        sig.Symbol,
			Shares:        shares,
			AvgEntryPrice: cost / float64(shares),
			EntryDate:     day,
			StopLoss:      StopLossPrice(price, e.cfg),
			TakeProfit:    TakeProfitPrice(price, e.cfg),
			GainFactor:    1,
			MarketValue:   float64(shares) * bar.Close,
		}
		if err := book.Open(slot, pos); err != nil {
			// Unreachable given the Find check above; treated as corruption.
			e.log.Error("slot open failed", "error", err)
			continue
		}
		acct.Cash -= cost
		acct.StockValue += pos.MarketValue

		res.Trades = append(res.Trades, domain.Trade{
			Date:        day,
			Symbol:      sig.Symbol,
			Side:        domain.SideBuy,
			FillPrice:   price * (1 + e.cfg.SlippageRate),
			Shares:      shares,
			GrossAmount: cost,
		})
	}
}

func snapshot(day time.Time, acct domain.Account, book *Book) domain.LedgerEntry {
	entry := domain.LedgerEntry{
		Date:         day,
		Cash:         acct.Cash,
		StockValue:   acct.StockValue,
		TotalBalance: acct.TotalBalance,
		WinCount:     acct.WinCount,
		LossCount:    acct.LossCount,
	}
	for _, slot := range book.Occupied() {
		pos := book.Position(slot)
		entry.Slots = append(entry.Slots, domain.SlotBalance{
			Slot:        slot,
			Symbol:      pos.Symbol,
			MarketValue: pos.MarketValue,
		})
	}
	return entry
}
