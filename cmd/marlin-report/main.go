package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"marlin/internal/analytics"
	"marlin/internal/config"
	"marlin/internal/store"
	"marlin/internal/util"
)

func main() {
	var (
		cfgPath = flag.String("config", "config/marlin.yaml", "path to config file")
		runID   = flag.String("run", "", "run ID to report on (default: list runs)")
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

	rstore, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open results database: %v", err)
	}
	defer rstore.Close()

	ctx := context.Background()

	if *runID == "" {
		runs, err := rstore.ListRuns(ctx)
		if err != nil {
			log.Fatalf("failed to list runs: %v", err)
		}
		if len(runs) == 0 {
			fmt.Println("no saved runs")
			return
		}
		for _, r := range runs {
			fmt.Printf("%-20s %-12s %12s  %s\n",
				r.ID, r.Source, analytics.FormatMoney(r.InitialCash),
				r.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return
	}

	meta, err := rstore.GetRun(ctx, *runID)
	if err != nil {
		log.Fatalf("failed to load run %s: %v", *runID, err)
	}
	trades, err := rstore.LoadTrades(ctx, *runID)
	if err != nil {
		log.Fatalf("failed to load trades: %v", err)
	}
	ledger, err := rstore.LoadLedger(ctx, *runID)
	if err != nil {
		log.Fatalf("failed to load ledger: %v", err)
	}

	report := analytics.BuildReport(meta.InitialCash, trades, ledger)
	fmt.Printf("run %s  (source %s, created %s)\n\n",
		meta.ID, meta.Source, meta.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Print(report.Render())
}
