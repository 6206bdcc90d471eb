package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"marlin/internal/analytics"
	"marlin/internal/config"
	"marlin/internal/domain"
	"marlin/internal/engine"
	"marlin/internal/market"
	"marlin/internal/signal"
	"marlin/internal/store"
	"marlin/internal/util"
)

func main() {
	var (
		cfgPath    = flag.String("config", "config/marlin.yaml", "path to config file")
		source     = flag.String("source", "sma-cross", "signal source name, or 'file'")
		signalPath = flag.String("signals", "", "signal CSV path (required for -source file)")
		startStr   = flag.String("start", "", "backtest start date (YYYY-MM-DD, default: all data)")
		endStr     = flag.String("end", "", "backtest end date (YYYY-MM-DD, default: all data)")
		smaShort   = flag.Int("sma-short", 20, "short period for the sma-cross source")
		smaLong    = flag.Int("sma-long", 50, "long period for the sma-cross source")
		save       = flag.Bool("save", false, "persist the run to the results database")
		runID      = flag.String("run-id", "", "run ID for -save (default: timestamp)")
	)
	flag.Parse()

	if p := os.Getenv("MARLIN_CONFIG"); p != "" && !flagWasSet("config") {
		*cfgPath = p
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	util.SetDefault(util.NewLogger(cfg.Logging.Level))

	start, end, err := parseRange(*startStr, *endStr)
	if err != nil {
		log.Fatalf("bad date range: %v", err)
	}

	ctx := context.Background()

	// Load every stored symbol's bars into the instrument table.
	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	table, calendar, err := loadTable(ctx, pstore, start, end)
	if err != nil {
		log.Fatalf("failed to load instrument table: %v", err)
	}
	if len(calendar) == 0 {
		log.Fatalf("no trading dates in range; run marlin-gather first")
	}

	registry := signal.NewRegistry()
	registry.Register(signal.NewSMACross(*smaShort, *smaLong))
	if *signalPath != "" {
		registry.Register(signal.NewFileSource(*signalPath))
	}
	src, ok := registry.Get(*source)
	if !ok {
		log.Fatalf("unknown signal source %q (have %v)", *source, registry.List())
	}

	signals, err := src.Signals(table)
	if err != nil {
		log.Fatalf("signal source %s failed: %v", src.Name(), err)
	}
	slog.Info("signals generated", "source", src.Name(), "count", len(signals))

	eng, err := engine.New(table, cfg.Backtest.EngineConfig(), slog.Default())
	if err != nil {
		log.Fatalf("engine setup failed: %v", err)
	}

	result, err := eng.Run(ctx, signals, calendar)
	if err != nil {
		// The partial ledger is still printed below for diagnosis.
		slog.Error("run aborted", "error", err, "ledgerDays", len(result.Ledger))
	}

	report := analytics.BuildReport(cfg.Backtest.InitialCash, result.Trades, result.Ledger)
	fmt.Print(report.Render())

	if *save {
		id := *runID
		if id == "" {
			id = time.Now().UTC().Format("20060102-150405")
		}
		if err := saveRun(ctx, cfg, id, src.Name(), result); err != nil {
			log.Fatalf("failed to save run: %v", err)
		}
		fmt.Printf("saved run %s\n", id)
	}
	if err != nil {
		os.Exit(1)
	}
}

func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func parseRange(startStr, endStr string) (start, end time.Time, err error) {
	if startStr != "" {
		start, err = time.Parse("2006-01-02", startStr)
		if err != nil {
			return
		}
	}
	if endStr != "" {
		end, err = time.Parse("2006-01-02", endStr)
		if err != nil {
			return
		}
	}
	return
}

func loadTable(ctx context.Context, bs store.BarStore, start, end time.Time) (*market.Table, []time.Time, error) {
	symbols, err := bs.ListSymbols(ctx)
	if err != nil {
		return nil, nil, err
	}

	readStart, readEnd := start, end
	if readStart.IsZero() {
		readStart = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if readEnd.IsZero() {
		readEnd = time.Now().UTC()
	}

	var all []domain.Bar
	for _, sym := range symbols {
		bars, err := bs.ReadBars(ctx, sym, readStart, readEnd)
		if err != nil {
			return nil, nil, fmt.Errorf("reading bars for %s: %w", sym, err)
		}
		all = append(all, bars...)
	}

	table, err := market.NewTable(all)
	if err != nil {
		return nil, nil, err
	}
	return table, table.CalendarRange(start, end), nil
}

func saveRun(ctx context.Context, cfg *config.Config, id, source string, result *engine.Result) error {
	rstore, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer rstore.Close()

	meta := store.RunMeta{
		ID:          id,
		CreatedAt:   time.Now().UTC(),
		Source:      source,
		InitialCash: cfg.Backtest.InitialCash,
	}
	return rstore.SaveRun(ctx, meta, result.Trades, result.Ledger)
}
