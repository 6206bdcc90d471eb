package signal

import (
	"testing"
	"time"

	"marlin/internal/domain"
	"marlin/internal/market"
)

func smaTable(t *testing.T, closes map[string][]float64) *market.Table {
	t.Helper()
	var bars []domain.Bar
	for sym, cs := range closes {
		for i, c := range cs {
			bars = append(bars, domain.Bar{
				Symbol: domain.SymbolID(sym),
				Date:   time.Date(2024, 2, i+1, 0, 0, 0, 0, time.UTC),
				Open:   c, High: c, Low: c, Close: c, Volume: 100,
			})
		}
	}
	table, err := market.NewTable(bars)
	if err != nil {
		t.Fatal(err)
	}
	return table
}

func TestSMACrossSignals(t *testing.T) {
	// Flat, then a spike crossing the short average above the long one, then
	// a slide crossing it back below.
	table := smaTable(t, map[string][]float64{
		"AAA": {10, 10, 10, 13, 7, 5},
	})

	got, err := NewSMACross(2, 3).Signals(table)
	if err != nil {
		t.Fatalf("Signals returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d signals, want 2: %+v", len(got), got)
	}
	if got[0].Kind != domain.SignalBuy || !got[0].Date.Equal(time.Date(2024, 2, 4, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first signal = %+v, want buy on Feb 4", got[0])
	}
	if got[1].Kind != domain.SignalSell || !got[1].Date.Equal(time.Date(2024, 2, 6, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("second signal = %+v, want sell on Feb 6", got[1])
	}
}

func TestSMACrossNoSignalsOnFlatSeries(t *testing.T) {
	table := smaTable(t, map[string][]float64{
		"AAA": {10, 10, 10, 10, 10, 10},
	})
	got, err := NewSMACross(2, 3).Signals(table)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("flat series produced %d signals, want 0", len(got))
	}
}

func TestSMACrossShortHistory(t *testing.T) {
	table := smaTable(t, map[string][]float64{
		"AAA": {10, 12},
	})
	got, err := NewSMACross(2, 3).Signals(table)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("two-bar series produced %d signals, want 0", len(got))
	}
}

func TestSMACrossRejectsBadPeriods(t *testing.T) {
	table := smaTable(t, map[string][]float64{"AAA": {10, 11, 12}})
	if _, err := NewSMACross(0, 3).Signals(table); err == nil {
		t.Error("short period 0 should error")
	}
	if _, err := NewSMACross(5, 5).Signals(table); err == nil {
		t.Error("long period equal to short should error")
	}
}

func TestSMACrossDeterministicOrder(t *testing.T) {
	closes := map[string][]float64{
		"BBB": {10, 10, 10, 13, 7, 5},
		"AAA": {10, 10, 10, 13, 7, 5},
	}
	first, err := NewSMACross(2, 3).Signals(smaTable(t, closes))
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewSMACross(2, 3).Signals(smaTable(t, closes))
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 4 || len(second) != 4 {
		t.Fatalf("got %d/%d signals, want 4 each", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("signal %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
	if first[0].Symbol != "AAA" {
		t.Errorf("first signal symbol = %s, want AAA (table order)", first[0].Symbol)
	}
}
