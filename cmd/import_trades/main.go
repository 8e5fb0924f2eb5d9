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

	"tradejournal/config"
	"tradejournal/internal/adapters/binanceclient"
	"tradejournal/internal/adapters/logger"
	"tradejournal/internal/adapters/sqlite"
	"tradejournal/internal/app"
	"tradejournal/internal/domain"
	"tradejournal/internal/importer"
)

func main() {
	os.Exit(run())
}

func run() int {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
		return 1
	}
	if err := cfg.RequireExchangeCredentials(); err != nil {
		log.Printf("FATAL: %v", err)
		return 1
	}

	account := flag.String("account", cfg.AccountID, "account to journal the trades under")
	symbols := flag.String("symbol", "ETHUSDT", "comma-separated futures symbols")
	days := flag.Int("days", cfg.ImportLookbackDays, "how many days back to import")
	interval := flag.String("interval", cfg.ImportKlineInterval, "kline interval used for max possible P/L")
	flag.Parse()
	if *days <= 0 {
		log.Printf("FATAL: -days must be positive")
		return 1
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		log.Printf("FATAL: Failed to initialize database repository: %v", err)
		return 1
	}
	defer repo.Close()

	// 4. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
		log.Printf("FATAL: Failed to initialize Binance client: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := binanceClient.Ping(ctx); err != nil {
		appLogger.Error(ctx, err, "FATAL: Binance API unreachable")
		log.Printf("FATAL: Binance API unreachable: %v", err)
		return 1
	}

	// 5. Wire the importer into the journal service
	imp, err := importer.New(importer.Config{
		Source:        binanceClient,
		Logger:        appLogger,
		Origin:        domain.SourceBinance,
		KlineInterval: *interval,
	})
	if err != nil {
		log.Printf("FATAL: Failed to initialize importer: %v", err)
		return 1
	}
	journal, err := app.NewJournalService(cfg, appLogger, repo, imp, nil)
	if err != nil {
		log.Printf("FATAL: Failed to initialize journal service: %v", err)
		return 1
	}

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -*days)

	failed := false
	for _, symbol := range strings.Split(*symbols, ",") {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		fmt.Printf("Importing %s fills from %s to %s...\n", symbol, start.Format(time.RFC3339), end.Format(time.RFC3339))
		res, err := journal.ImportTrades(ctx, *account, symbol, start, end)
		if err != nil {
			appLogger.Error(ctx, err, "Import failed", map[string]interface{}{"symbol": symbol})
			fmt.Printf("  %s: import failed: %v\n", symbol, err)
			failed = true
			continue
		}
		fmt.Printf("  %s: %d round trips, %d new, %d updated, %d already journaled, %d invalid\n",
			symbol, res.Fetched, res.Created, res.Updated, res.Skipped, res.Invalid)
	}
	if failed {
		return 1
	}
	return 0
}
