package engine

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"marlin/internal/analytics"
	"marlin/internal/domain"
	"marlin/internal/market"
)

func day(n int) time.Time {
	return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC)
}

func bar(sym string, n int, o, h, l, c float64) domain.Bar {
	return domain.Bar{Symbol: domain.SymbolID(sym), Date: day(n), Open: o, High: h, Low: l, Close: c, Volume: 1000}
}

// flatBar is a bar trading at a single price all day.
func flatBar(sym string, n int, price float64) domain.Bar {
	return bar(sym, n, price, price, price, price)
}

func testTable(t *testing.T, bars []domain.Bar) *market.Table {
	t.Helper()
	table, err := market.NewTable(bars)
	if err != nil {
		t.Fatalf("NewTable returned error: %v", err)
	}
	return table
}

// frictionlessConfig removes slippage, commission, and sizing caps so fills
// are exact, and parks stop/take-profit far away from the test prices.
func frictionlessConfig(initialCash float64, maxPositions int) Config {
	cfg := DefaultConfig()
	cfg.InitialCash = initialCash
	cfg.MaxPositions = maxPositions
	cfg.SlippageRate = 0
	cfg.CommissionRate = 0
	cfg.StopLossPct = 0.5
	cfg.TakeProfitPct = 0.99
	cfg.SizeBaseFraction = 1
	cfg.MaxPositionFraction = 1
	cfg.MaxCashFraction = 1
	return cfg
}

func mustRun(t *testing.T, table *market.Table, cfg Config, signals []domain.Signal, calendar []time.Time) *Result {
	t.Helper()
	eng, err := New(table, cfg, nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	res, err := eng.Run(context.Background(), signals, calendar)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	return res
}

func TestRunBuySellScenario(t *testing.T) {
	// One symbol, closes [100, 105, 95, 110], buy day 1, sell day 3.
	table := testTable(t, []domain.Bar{
		flatBar("AAPL", 1, 100),
		flatBar("AAPL", 2, 105),
		flatBar("AAPL", 3, 95),
		flatBar("AAPL", 4, 110),
	})
	signals := []domain.Signal{
		{Date: day(1), Symbol: "AAPL", Kind: domain.SignalBuy, Confidence: 1},
		{Date: day(3), Symbol: "AAPL", Kind: domain.SignalSell, Confidence: 1},
	}

	res := mustRun(t, table, frictionlessConfig(100000, 1), signals, table.Calendar())

	if len(res.Trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(res.Trades))
	}
	buy, sell := res.Trades[0], res.Trades[1]
	if buy.Side != domain.SideBuy || buy.FillPrice != 100 || buy.Shares != 1000 {
		t.Errorf("buy trade = %+v, want fill 100 x 1000 shares", buy)
	}
	if sell.Side != domain.SideSell || sell.FillPrice != 95 || sell.Shares != 1000 {
		t.Errorf("sell trade = %+v, want fill 95 x 1000 shares", sell)
	}
	if sell.RealizedPnL != -5000 {
		t.Errorf("realized pnl = %v, want -5000", sell.RealizedPnL)
	}
	if sell.ExitReason != domain.ExitSignal {
		t.Errorf("exit reason = %q, want %q", sell.ExitReason, domain.ExitSignal)
	}

	if len(res.Ledger) != 4 {
		t.Fatalf("got %d ledger entries, want 4", len(res.Ledger))
	}
	final := res.Ledger[len(res.Ledger)-1]
	if final.Cash != 95000 {
		t.Errorf("final cash = %v, want 95000", final.Cash)
	}
	if final.TotalBalance != 95000 {
		t.Errorf("final balance = %v, want 95000", final.TotalBalance)
	}
	if final.LossCount != 1 || final.WinCount != 0 {
		t.Errorf("win/loss = %d/%d, want 0/1", final.WinCount, final.LossCount)
	}

	// Day 2 held the position marked at 105.
	if got := res.Ledger[1].StockValue; got != 105000 {
		t.Errorf("day-2 stock value = %v, want 105000", got)
	}
}

func TestRunStopLossTrigger(t *testing.T) {
	// Entry at 100 with an 8% stop sets the stop at 92. A day with low 90
	// triggers an exit at min(open, 92) regardless of the close.
	table := testTable(t, []domain.Bar{
		flatBar("TSLA", 1, 100),
		bar("TSLA", 2, 95, 101, 90, 100),
	})
	cfg := frictionlessConfig(100000, 1)
	cfg.StopLossPct = 0.08
	signals := []domain.Signal{
		{Date: day(1), Symbol: "TSLA", Kind: domain.SignalBuy, Confidence: 1},
	}

	res := mustRun(t, table, cfg, signals, table.Calendar())

	if len(res.Trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(res.Trades))
	}
	sell := res.Trades[1]
	if sell.ExitReason != domain.ExitStopLoss {
		t.Fatalf("exit reason = %q, want %q", sell.ExitReason, domain.ExitStopLoss)
	}
	if sell.FillPrice != 92 {
		t.Errorf("stop fill price = %v, want 92", sell.FillPrice)
	}
	if sell.RealizedPnL != -8000 {
		t.Errorf("realized pnl = %v, want -8000", sell.RealizedPnL)
	}
}

func TestRunStopLossGapDown(t *testing.T) {
	// Opening below the stop fills at the open, not the stop.
	table := testTable(t, []domain.Bar{
		flatBar("NVDA", 1, 100),
		bar("NVDA", 2, 85, 95, 84, 94),
	})
	cfg := frictionlessConfig(100000, 1)
	cfg.StopLossPct = 0.08
	signals := []domain.Signal{
		{Date: day(1), Symbol: "NVDA", Kind: domain.SignalBuy, Confidence: 1},
	}

	res := mustRun(t, table, cfg, signals, table.Calendar())
	sell := res.Trades[1]
	if sell.FillPrice != 85 {
		t.Errorf("gap-down fill = %v, want open 85", sell.FillPrice)
	}
}

func TestRunTakeProfitTrigger(t *testing.T) {
	table := testTable(t, []domain.Bar{
		flatBar("AMD", 1, 100),
		bar("AMD", 2, 105, 125, 104, 118),
	})
	cfg := frictionlessConfig(100000, 1)
	cfg.TakeProfitPct = 0.20
	signals := []domain.Signal{
		{Date: day(1), Symbol: "AMD", Kind: domain.SignalBuy, Confidence: 1},
	}

	res := mustRun(t, table, cfg, signals, table.Calendar())
	sell := res.Trades[1]
	if sell.ExitReason != domain.ExitTakeProfit {
		t.Fatalf("exit reason = %q, want %q", sell.ExitReason, domain.ExitTakeProfit)
	}
	if sell.FillPrice != 120 {
		t.Errorf("take-profit fill = %v, want 120", sell.FillPrice)
	}
	final := res.Ledger[len(res.Ledger)-1]
	if final.WinCount != 1 {
		t.Errorf("win count = %d, want 1", final.WinCount)
	}
}

func TestRunSellFreesSlotForSameDayBuy(t *testing.T) {
	// With one slot, a sell signal and a buy signal on the same day must
	// both fill: the exit pass frees capacity before the entry pass runs.
	table := testTable(t, []domain.Bar{
		flatBar("AAA", 1, 50),
		flatBar("AAA", 2, 52),
		flatBar("BBB", 1, 20),
		flatBar("BBB", 2, 21),
	})
	signals := []domain.Signal{
		{Date: day(1), Symbol: "AAA", Kind: domain.SignalBuy, Confidence: 1},
		{Date: day(2), Symbol: "AAA", Kind: domain.SignalSell, Confidence: 1},
		{Date: day(2), Symbol: "BBB", Kind: domain.SignalBuy, Confidence: 1},
	}

	res := mustRun(t, table, frictionlessConfig(10000, 1), signals, table.Calendar())

	if len(res.Trades) != 3 {
		t.Fatalf("got %d trades, want 3 (buy, sell, buy)", len(res.Trades))
	}
	if res.Trades[1].Symbol != "AAA" || res.Trades[1].Side != domain.SideSell {
		t.Errorf("second trade = %+v, want AAA sell", res.Trades[1])
	}
	if res.Trades[2].Symbol != "BBB" || res.Trades[2].Side != domain.SideBuy {
		t.Errorf("third trade = %+v, want BBB buy", res.Trades[2])
	}

	final := res.Ledger[len(res.Ledger)-1]
	if len(final.Slots) != 1 || final.Slots[0].Symbol != "BBB" {
		t.Errorf("final slots = %+v, want one BBB position", final.Slots)
	}
}

func TestRunLedgerInvariants(t *testing.T) {
	// Multi-symbol run with partial sizing: every ledger entry must satisfy
	// total == cash + stock, hold at most MaxPositions slots, and never
	// reference a symbol twice.
	table := testTable(t, []domain.Bar{
		flatBar("AAA", 1, 100), flatBar("AAA", 2, 110), flatBar("AAA", 3, 104), flatBar("AAA", 4, 112),
		flatBar("BBB", 1, 50), flatBar("BBB", 2, 48), flatBar("BBB", 3, 51), flatBar("BBB", 4, 55),
		flatBar("CCC", 2, 30), flatBar("CCC", 3, 33), flatBar("CCC", 4, 29),
	})
	cfg := frictionlessConfig(100000, 2)
	cfg.SizeBaseFraction = 0.3
	signals := []domain.Signal{
		{Date: day(1), Symbol: "AAA", Kind: domain.SignalBuy, Confidence: 1},
		{Date: day(1), Symbol: "BBB", Kind: domain.SignalBuy, Confidence: 1},
		{Date: day(2), Symbol: "CCC", Kind: domain.SignalBuy, Confidence: 1}, // book full, dropped
		{Date: day(3), Symbol: "AAA", Kind: domain.SignalSell, Confidence: 1},
		{Date: day(3), Symbol: "CCC", Kind: domain.SignalBuy, Confidence: 1},
	}

	res := mustRun(t, table, cfg, signals, table.Calendar())

	for _, entry := range res.Ledger {
		if diff := math.Abs(entry.TotalBalance - (entry.Cash + entry.StockValue)); diff > 1e-6 {
			t.Errorf("%s: total %v != cash %v + stock %v",
				entry.Date.Format("2006-01-02"), entry.TotalBalance, entry.Cash, entry.StockValue)
		}
		if len(entry.Slots) > cfg.MaxPositions {
			t.Errorf("%s: %d occupied slots exceeds max %d",
				entry.Date.Format("2006-01-02"), len(entry.Slots), cfg.MaxPositions)
		}
		seen := make(map[domain.SymbolID]bool)
		for _, sb := range entry.Slots {
			if seen[sb.Symbol] {
				t.Errorf("%s: symbol %s appears in two slots", entry.Date.Format("2006-01-02"), sb.Symbol)
			}
			seen[sb.Symbol] = true
		}
	}

	// The day-2 CCC buy must have been dropped: the book was full.
	for _, tr := range res.Trades {
		if tr.Symbol == "CCC" && tr.Date.Equal(day(2)) {
			t.Errorf("CCC bought on day 2 despite full book")
		}
	}
}

func TestRunMissingPriceDataSkipsSymbol(t *testing.T) {
	// AAA has no bar on day 2 (BBB keeps the date in the calendar). The
	// position is held, not exited, and the run completes.
	table := testTable(t, []domain.Bar{
		flatBar("AAA", 1, 100), flatBar("AAA", 3, 108),
		flatBar("BBB", 1, 10), flatBar("BBB", 2, 10), flatBar("BBB", 3, 10),
	})
	cfg := frictionlessConfig(50000, 1)
	cfg.SizeBaseFraction = 0.5
	signals := []domain.Signal{
		{Date: day(1), Symbol: "AAA", Kind: domain.SignalBuy, Confidence: 1},
		{Date: day(3), Symbol: "AAA", Kind: domain.SignalSell, Confidence: 1},
	}

	res := mustRun(t, table, cfg, signals, table.Calendar())

	if len(res.Ledger) != 3 {
		t.Fatalf("got %d ledger entries, want 3", len(res.Ledger))
	}
	// Day 2 carries day 1's mark unchanged.
	if res.Ledger[1].StockValue != res.Ledger[0].StockValue {
		t.Errorf("day-2 stock value %v changed despite missing bar (day-1 %v)",
			res.Ledger[1].StockValue, res.Ledger[0].StockValue)
	}
	if res.Trades[len(res.Trades)-1].FillPrice != 108 {
		t.Errorf("exit fill = %v, want 108", res.Trades[len(res.Trades)-1].FillPrice)
	}
}

func TestRunReplayDeterminism(t *testing.T) {
	table := testTable(t, []domain.Bar{
		flatBar("AAA", 1, 100), flatBar("AAA", 2, 103), flatBar("AAA", 3, 99), flatBar("AAA", 4, 106),
		flatBar("BBB", 1, 40), flatBar("BBB", 2, 43), flatBar("BBB", 3, 44), flatBar("BBB", 4, 39),
	})
	cfg := DefaultConfig()
	cfg.InitialCash = 250000
	signals := []domain.Signal{
		{Date: day(1), Symbol: "AAA", Kind: domain.SignalBuy, Confidence: 1},
		{Date: day(1), Symbol: "BBB", Kind: domain.SignalBuy, Confidence: 1},
		{Date: day(4), Symbol: "AAA", Kind: domain.SignalSell, Confidence: 1},
	}

	first := mustRun(t, table, cfg, signals, table.Calendar())
	second := mustRun(t, table, cfg, signals, table.Calendar())

	if !reflect.DeepEqual(first, second) {
		t.Error("two runs over identical inputs produced different results")
	}
}

func TestRunFIFOTotalsMatchLedger(t *testing.T) {
	// With every position closed by the end of the run, the FIFO-matched
	// NetPnL total must equal the ledger's overall balance change.
	table := testTable(t, []domain.Bar{
		flatBar("AAA", 1, 100), flatBar("AAA", 2, 108), flatBar("AAA", 3, 97), flatBar("AAA", 4, 102),
		flatBar("BBB", 1, 50), flatBar("BBB", 2, 47), flatBar("BBB", 3, 52), flatBar("BBB", 4, 54),
	})
	cfg := DefaultConfig()
	cfg.InitialCash = 200000
	cfg.StopLossPct = 0.40
	cfg.TakeProfitPct = 0.90
	signals := []domain.Signal{
		{Date: day(1), Symbol: "AAA", Kind: domain.SignalBuy, Confidence: 1},
		{Date: day(2), Symbol: "BBB", Kind: domain.SignalBuy, Confidence: 1},
		{Date: day(3), Symbol: "AAA", Kind: domain.SignalSell, Confidence: 1},
		{Date: day(4), Symbol: "BBB", Kind: domain.SignalSell, Confidence: 1},
	}

	res := mustRun(t, table, cfg, signals, table.Calendar())

	final := res.Ledger[len(res.Ledger)-1]
	if len(final.Slots) != 0 {
		t.Fatalf("positions still open at end of run: %+v", final.Slots)
	}

	var netSum float64
	for _, cp := range analytics.MatchTradesFIFO(res.Trades) {
		netSum += cp.NetPnL
	}
	if diff := math.Abs(netSum - (final.TotalBalance - cfg.InitialCash)); diff > 1e-6 {
		t.Errorf("FIFO NetPnL total %v differs from balance change %v",
			netSum, final.TotalBalance-cfg.InitialCash)
	}
}

func TestRunInsufficientCashSkips(t *testing.T) {
	// Budget sized to less than one share: the signal is skipped, not an error.
	table := testTable(t, []domain.Bar{
		flatBar("BRK", 1, 5000),
		flatBar("BRK", 2, 5100),
	})
	cfg := frictionlessConfig(1000, 1)
	signals := []domain.Signal{
		{Date: day(1), Symbol: "BRK", Kind: domain.SignalBuy, Confidence: 1},
	}

	res := mustRun(t, table, cfg, signals, table.Calendar())
	if len(res.Trades) != 0 {
		t.Errorf("got %d trades, want 0", len(res.Trades))
	}
	final := res.Ledger[len(res.Ledger)-1]
	if final.Cash != 1000 {
		t.Errorf("cash = %v, want untouched 1000", final.Cash)
	}
}

func TestRunContextCancelled(t *testing.T) {
	table := testTable(t, []domain.Bar{flatBar("AAA", 1, 10)})
	eng, err := New(table, frictionlessConfig(1000, 1), nil)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := eng.Run(ctx, nil, table.Calendar())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}
	if res == nil {
		t.Error("Run should return the partial result on cancellation")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	table := testTable(t, []domain.Bar{flatBar("AAA", 1, 10)})
	cfg := DefaultConfig() // InitialCash unset
	if _, err := New(table, cfg, nil); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("New returned %v, want ErrInvalidConfig", err)
	}
}
