// Package market provides the read-only inputs the simulation engine iterates
// over: the date-aligned instrument table and the trading calendar derived
// from it.
package market

import (
	"fmt"
	"math"
	"sort"
	"time"

	"marlin/internal/domain"
)

// Table is a per-symbol, per-date view of daily bars, validated once at load
// time. It is immutable after construction.
type Table struct {
	series  map[domain.SymbolID][]domain.Bar     // sorted by date
	byDate  map[domain.SymbolID]map[int64]int    // unix day -> index into series
	symbols []domain.SymbolID                    // sorted
}

// NewTable builds a Table from a flat slice of bars. Bars are grouped by
// symbol, sorted by date, and deduplicated (last bar wins for a duplicate
// date). Every bar is validated; a corrupted bar fails construction.
func NewTable(bars []domain.Bar) (*Table, error) {
	series := make(map[domain.SymbolID][]domain.Bar)
	for i := range bars {
		b := normalize(bars[i])
		if err := validateBar(b); err != nil {
			return nil, err
		}
		series[b.Symbol] = append(series[b.Symbol], b)
	}

	t := &Table{
		series: series,
		byDate: make(map[domain.SymbolID]map[int64]int, len(series)),
	}
	for sym, bs := range series {
		sort.Slice(bs, func(i, j int) bool { return bs[i].Date.Before(bs[j].Date) })

		// Dedup by date, keeping the later occurrence.
		dedup := bs[:0]
		for _, b := range bs {
			if n := len(dedup); n > 0 && dedup[n-1].Date.Equal(b.Date) {
				dedup[n-1] = b
				continue
			}
			dedup = append(dedup, b)
		}
		series[sym] = dedup

		idx := make(map[int64]int, len(dedup))
		for i, b := range dedup {
			idx[b.Date.Unix()] = i
		}
		t.byDate[sym] = idx
		t.symbols = append(t.symbols, sym)
	}
	sort.Slice(t.symbols, func(i, j int) bool { return t.symbols[i] < t.symbols[j] })
	return t, nil
}

func normalize(b domain.Bar) domain.Bar {
	y, m, d := b.Date.UTC().Date()
	b.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return b
}

func validateBar(b domain.Bar) error {
	if b.Symbol == "" {
		return fmt.Errorf("bar on %s has empty symbol", b.Date.Format("2006-01-02"))
	}
	vals := [...]float64{b.Open, b.High, b.Low, b.Close}
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("%s %s: bad price %v", b.Symbol, b.Date.Format("2006-01-02"), v)
		}
	}
	if b.High < b.Low {
		return fmt.Errorf("%s %s: high %v below low %v", b.Symbol, b.Date.Format("2006-01-02"), b.High, b.Low)
	}
	if b.Volume < 0 {
		return fmt.Errorf("%s %s: negative volume %d", b.Symbol, b.Date.Format("2006-01-02"), b.Volume)
	}
	return nil
}

// Symbols returns the sorted list of symbols in the table.
func (t *Table) Symbols() []domain.SymbolID {
	out := make([]domain.SymbolID, len(t.symbols))
	copy(out, t.symbols)
	return out
}

// Bar returns the bar for a symbol on a date. The second return value is
// false when no bar exists for that date.
func (t *Table) Bar(sym domain.SymbolID, date time.Time) (domain.Bar, bool) {
	idx, ok := t.byDate[sym]
	if !ok {
		return domain.Bar{}, false
	}
	i, ok := idx[dayKey(date)]
	if !ok {
		return domain.Bar{}, false
	}
	return t.series[sym][i], true
}

// PrevClose returns the close of the last bar strictly before date, for
// mark-to-market against the prior session. False when no earlier bar exists.
func (t *Table) PrevClose(sym domain.SymbolID, date time.Time) (float64, bool) {
	bs := t.series[sym]
	i := sort.Search(len(bs), func(i int) bool { return !bs[i].Date.Before(dayStart(date)) })
	if i == 0 {
		return 0, false
	}
	return bs[i-1].Close, true
}

// Dates returns the sorted trading dates available for a symbol.
func (t *Table) Dates(sym domain.SymbolID) []time.Time {
	bs := t.series[sym]
	out := make([]time.Time, len(bs))
	for i, b := range bs {
		out[i] = b.Date
	}
	return out
}

// Volatility returns the standard deviation of daily close-to-close returns
// over the trailing window of bars ending at date. It returns 0 when fewer
// than two returns are available; the risk manager treats that as "no
// adjustment".
func (t *Table) Volatility(sym domain.SymbolID, date time.Time, window int) float64 {
	bs := t.series[sym]
	end := sort.Search(len(bs), func(i int) bool { return bs[i].Date.After(dayStart(date)) })
	start := end - window
	if start < 0 {
		start = 0
	}
	var rets []float64
	for i := start + 1; i < end; i++ {
		if bs[i-1].Close > 0 {
			rets = append(rets, bs[i].Close/bs[i-1].Close-1)
		}
	}
	if len(rets) < 2 {
		return 0
	}
	var mean float64
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))
	var ss float64
	for _, r := range rets {
		d := r - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(rets)-1))
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayKey(t time.Time) int64 {
	return dayStart(t).Unix()
}
