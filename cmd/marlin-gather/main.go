package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"marlin/internal/config"
	"marlin/internal/gather"
	"marlin/internal/store"
	"marlin/internal/util"
)

func main() {
	var (
		cfgPath  = flag.String("config", "config/marlin.yaml", "path to config file")
		symbols  = flag.String("symbols", "", "comma-separated symbols (default: gather.symbols from config)")
		startStr = flag.String("start", "", "fetch start date (YYYY-MM-DD, default: gather.start_date)")
	)
	flag.Parse()

	if p := os.Getenv("MARLIN_CONFIG"); p != "" {
		*cfgPath = p
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	util.SetDefault(util.NewLogger(cfg.Logging.Level))

	syms := cfg.Gather.Symbols
	if *symbols != "" {
		syms = nil
		for _, s := range strings.Split(*symbols, ",") {
			if s = strings.TrimSpace(s); s != "" {
				syms = append(syms, strings.ToUpper(s))
			}
		}
	}

	startDate := cfg.Gather.StartDate
	if *startStr != "" {
		startDate = *startStr
	}
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		log.Fatalf("bad start date %q: %v", startDate, err)
	}

	pstore := store.NewParquetStore(cfg.Storage.DataDir)
	g := gather.NewDailyBarGatherer(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL,
		pstore,
		syms,
		gather.DateRange{Start: start, End: time.Now().UTC()},
		cfg.Gather.MaxWorkers,
		cfg.Gather.RateLimitPerMin,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("starting gatherer", "name", g.Name(), "symbols", len(syms))
	if err := g.Run(ctx); err != nil {
		log.Fatalf("gather error: %v", err)
	}
}
