package gather

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"marlin/internal/domain"
	"marlin/internal/store"
	"marlin/internal/util"
)

// Compile-time interface check.
var _ Gatherer = (*DailyBarGatherer)(nil)

// batchSize is the number of symbols per GetMultiBars call.
const batchSize = 100

// DailyBarGatherer fetches daily OHLCV bars for a fixed symbol universe via
// the Alpaca market-data API and writes them to a BarStore.
type DailyBarGatherer struct {
	client     *marketdata.Client
	store      store.BarStore
	symbols    []string
	window     DateRange
	maxWorkers int
	limiter    *util.RateLimiter
	log        *slog.Logger

	// fetch is swapped out in tests.
	fetch func(ctx context.Context, symbols []string) ([]domain.Bar, error)
}

// NewDailyBarGatherer creates a DailyBarGatherer for the given symbols and
// date range. ratePerMin throttles API calls across all workers.
func NewDailyBarGatherer(apiKey, apiSecret, dataURL string, s store.BarStore, symbols []string, window DateRange, maxWorkers, ratePerMin int) *DailyBarGatherer {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if ratePerMin < 1 {
		ratePerMin = 200
	}

	g := &DailyBarGatherer{
		client:     marketdata.NewClient(opts),
		store:      s,
		symbols:    symbols,
		window:     window,
		maxWorkers: maxWorkers,
		limiter:    util.NewRateLimiter(ratePerMin),
		log:        slog.Default().With("gatherer", "daily-bars"),
	}
	g.fetch = g.fetchBatch
	return g
}

// Name returns the gatherer identifier.
func (g *DailyBarGatherer) Name() string { return "daily-bars" }

// Run fetches bars for every configured symbol and writes them to the store.
// Batches fan out across a worker pool; the first error cancels the rest.
func (g *DailyBarGatherer) Run(ctx context.Context) error {
	if len(g.symbols) == 0 {
		return fmt.Errorf("no symbols configured")
	}

	var batches [][]string
	for i := 0; i < len(g.symbols); i += batchSize {
		end := i + batchSize
		if end > len(g.symbols) {
			end = len(g.symbols)
		}
		batches = append(batches, g.symbols[i:end])
	}

	runStart := time.Now()
	g.log.Info("starting daily bar fetch",
		"symbols", len(g.symbols),
		"batches", len(batches),
		"start", g.window.Start.Format("2006-01-02"),
		"end", g.window.End.Format("2006-01-02"))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	work := make(chan []string)
	errs := make(chan error, g.maxWorkers)
	var totalBars atomic.Int64

	var wg sync.WaitGroup
	for w := 0; w < g.maxWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range work {
				bars, err := g.fetch(ctx, batch)
				if err == nil {
					err = g.store.WriteBars(ctx, bars)
				}
				if err != nil {
					select {
					case errs <- err:
					default:
					}
					cancel()
					return
				}
				totalBars.Add(int64(len(bars)))
			}
		}()
	}

feed:
	for _, batch := range batches {
		select {
		case work <- batch:
		case <-ctx.Done():
			break feed
		}
	}
	close(work)
	wg.Wait()

	select {
	case err := <-errs:
		return err
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	g.log.Info("daily bar fetch complete",
		"bars", totalBars.Load(),
		"elapsed", time.Since(runStart).Round(time.Second))
	return nil
}

// fetchBatch fetches daily bars for one batch of symbols, retrying transient
// API failures.
func (g *DailyBarGatherer) fetchBatch(ctx context.Context, symbols []string) ([]domain.Bar, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var multiBars map[string][]marketdata.Bar
	err := util.Retry(ctx, 3, time.Second, func() error {
		var err error
		multiBars, err = g.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     g.window.Start,
			End:       g.window.End,
			Feed:      "sip",
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("GetMultiBars: %w", err)
	}

	var bars []domain.Bar
	for symbol, alpacaBars := range multiBars {
		for _, ab := range alpacaBars {
			bars = append(bars, domain.Bar{
				Symbol: domain.SymbolID(strings.ToUpper(symbol)),
				Date:   ab.Timestamp,
				Open:   ab.Open,
				High:   ab.High,
				Low:    ab.Low,
				Close:  ab.Close,
				Volume: int64(ab.Volume),
			})
		}
	}
	return bars, nil
}
