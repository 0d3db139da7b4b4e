package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"tdxtools/internal/backtest"
	"tdxtools/internal/config"
	"tdxtools/internal/domain"
	"tdxtools/internal/formula"
	"tdxtools/internal/provider"
	"tdxtools/internal/store"
	"tdxtools/internal/strategy"
	"tdxtools/internal/strategy/builtins"
	"tdxtools/internal/util"
)

func main() {
	var (
		cfgPath     = flag.String("config", "", "path to YAML config (optional)")
		formulaPath = flag.String("formula", "", "path to a TDX formula file")
		stratName   = flag.String("strategy", "", "built-in strategy, e.g. ma-cross-5-20")
		symbolsFlag = flag.String("symbols", "", "comma-separated symbol list (required)")
		startFlag   = flag.String("start", "", "start date YYYY-MM-DD")
		endFlag     = flag.String("end", "", "end date YYYY-MM-DD")
		source      = flag.String("source", "parquet", "bar source: parquet, sqlite, or synthetic")
		save        = flag.Bool("save", false, "persist results to the SQLite database")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tdx-backtest -symbols SYM[,SYM...] (-formula <file> | -strategy <name>) [options]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := loadConfig(*cfgPath)
	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

	if *symbolsFlag == "" || (*formulaPath == "" && *stratName == "") {
		flag.Usage()
		os.Exit(1)
	}
	symbols := strings.Split(*symbolsFlag, ",")

	start, end := parseRange(*startFlag, *endFlag)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	strat := buildStrategy(*formulaPath, *stratName)
	data := loadBars(ctx, cfg, *source, symbols, start, end)

	engine := backtest.New(backtest.Config{
		InitialCapital: cfg.Backtest.InitialCapital,
		CommissionRate: cfg.Backtest.CommissionRate,
		Slippage:       cfg.Backtest.Slippage,
		SellLevy:       cfg.Backtest.SellLevy,
		LotSize:        cfg.Backtest.LotSize,
	})
	results, err := engine.Run(ctx, data, strat, start, end)
	if err != nil {
		log.Fatalf("backtest: %v", err)
	}

	fmt.Print(results.Summary())

	if *save {
		db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			log.Fatalf("opening sqlite: %v", err)
		}
		defer db.Close()

		runID, err := db.SaveResult(ctx, strat.Name(), results)
		if err != nil {
			log.Fatalf("saving results: %v", err)
		}
		fmt.Printf("saved run %d to %s\n", runID, cfg.Storage.SQLitePath)
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

func parseRange(startFlag, endFlag string) (time.Time, time.Time) {
	var start, end time.Time
	var err error
	if startFlag != "" {
		if start, err = time.Parse("2006-01-02", startFlag); err != nil {
			log.Fatalf("invalid -start: %v", err)
		}
	}
	if endFlag != "" {
		if end, err = time.Parse("2006-01-02", endFlag); err != nil {
			log.Fatalf("invalid -end: %v", err)
		}
	}
	return start, end
}

// buildStrategy resolves either a TDX formula file or a built-in strategy
// name of the form ma-cross-<short>-<long>.
func buildStrategy(formulaPath, name string) strategy.Strategy {
	if formulaPath != "" {
		src, err := os.ReadFile(formulaPath)
		if err != nil {
			log.Fatalf("reading formula: %v", err)
		}
		f := formula.Parse(string(src))
		for _, d := range f.Diagnostics {
			fmt.Fprintf(os.Stderr, "warning: unrecognised statement %q: %s\n", d.Stmt, d.Msg)
		}
		strat, err := formula.NewStrategy(f, nil)
		if err != nil {
			log.Fatalf("building strategy from formula: %v", err)
		}
		return strat
	}

	parts := strings.Split(name, "-")
	if len(parts) == 4 && parts[0] == "ma" && parts[1] == "cross" {
		short, err1 := strconv.Atoi(parts[2])
		long, err2 := strconv.Atoi(parts[3])
		if err1 == nil && err2 == nil {
			return builtins.NewMovingAverageCrossover(short, long)
		}
	}
	log.Fatalf("unknown strategy %q", name)
	return nil
}

// loadBars assembles per-symbol frames from the chosen bar source.
func loadBars(ctx context.Context, cfg *config.Config, source string, symbols []string, start, end time.Time) map[string]*domain.Frame {
	if start.IsZero() {
		start = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}

	read := func(ctx context.Context, symbol string) ([]domain.Bar, error) {
		switch source {
		case "parquet":
			return store.NewParquetStore(cfg.Storage.DataDir).ReadBars(ctx, symbol, start, end)
		case "sqlite":
			db, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
			if err != nil {
				return nil, err
			}
			defer db.Close()
			return db.ReadBars(ctx, symbol, start, end)
		case "synthetic":
			return provider.NewSyntheticProvider(42).DailyBars(ctx, symbol, start, end)
		default:
			return nil, fmt.Errorf("unknown source %q", source)
		}
	}

	data := make(map[string]*domain.Frame)
	for _, sym := range symbols {
		sym = strings.TrimSpace(sym)
		bars, err := read(ctx, sym)
		if err != nil {
			log.Fatalf("loading bars for %s: %v", sym, err)
		}
		if len(bars) == 0 {
			fmt.Fprintf(os.Stderr, "warning: no bars for %s, skipping\n", sym)
			continue
		}
		frame, err := domain.FrameFromBars(bars)
		if err != nil {
			log.Fatalf("building frame for %s: %v", sym, err)
		}
		data[sym] = frame
	}
	return data
}
