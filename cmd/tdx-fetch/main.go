package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tdxtools/internal/config"
	"tdxtools/internal/provider"
	"tdxtools/internal/store"
	"tdxtools/internal/util"
)

func main() {
	var (
		cfgPath     = flag.String("config", "", "path to YAML config (optional)")
		symbolsFlag = flag.String("symbols", "", "comma-separated symbol list (required)")
		startFlag   = flag.String("start", "", "start date YYYY-MM-DD (default from config)")
		endFlag     = flag.String("end", "", "end date YYYY-MM-DD (default today)")
		source      = flag.String("provider", "alpaca", "data provider: alpaca or synthetic")
		target      = flag.String("store", "parquet", "storage backend: parquet or sqlite")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tdx-fetch -symbols SYM[,SYM...] [options]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := loadConfig(*cfgPath)
	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

	if *symbolsFlag == "" {
		flag.Usage()
		os.Exit(1)
	}
	symbols := strings.Split(*symbolsFlag, ",")

	startStr := *startFlag
	if startStr == "" {
		startStr = cfg.Fetch.StartDate
	}
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		log.Fatalf("invalid start date %q: %v", startStr, err)
	}
	end := time.Now().UTC()
	if *endFlag != "" {
		if end, err = time.Parse("2006-01-02", *endFlag); err != nil {
			log.Fatalf("invalid -end: %v", err)
		}
	}

	var src provider.Provider
	switch *source {
	case "alpaca":
		src = provider.NewAlpacaProvider(
			cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL,
			cfg.Fetch.RateLimitPerMin, cfg.Fetch.MaxAttempts,
		)
	case "synthetic":
		src = provider.NewSyntheticProvider(42)
	default:
		log.Fatalf("unknown provider %q", *source)
	}

	var dst store.BarStore
	switch *target {
	case "parquet":
		dst = store.NewParquetStore(cfg.Storage.DataDir)
	case "sqlite":
		db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("opening sqlite: %v", err)
		}
		defer db.Close()
		dst = db
	default:
		log.Fatalf("unknown store %q", *target)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	for _, sym := range symbols {
		sym = strings.TrimSpace(sym)
		bars, err := src.DailyBars(ctx, sym, start, end)
		if err != nil {
			log.Fatalf("fetching %s: %v", sym, err)
		}
		if len(bars) == 0 {
			fmt.Fprintf(os.Stderr, "warning: no bars for %s\n", sym)
			continue
		}
		if err := dst.WriteBars(ctx, bars); err != nil {
			log.Fatalf("writing %s: %v", sym, err)
		}
		fmt.Printf("%s: %d bars\n", sym, len(bars))
	}
}

func loadConfig(path string) *config.Config {
	if path == "" {
		if p := os.Getenv("TDXTOOLS_CONFIG"); p != "" {
			path = p
		}
	}
	if path == "" {
		return config.Default()
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}
