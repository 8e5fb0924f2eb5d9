package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"tradejournal/config"
	"tradejournal/internal/adapters/logger"
	"tradejournal/internal/adapters/sqlite"
	"tradejournal/internal/app"
	"tradejournal/internal/presets"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run wires the journal and executes one command. It returns the process exit
// code: 0 on success, 2 on usage errors, 1 on any other failure.
func run(args []string, stdout, stderr io.Writer) int {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: Failed to load configuration: %v\n", err) // logger is not ready yet
		return 1
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Debug(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		fmt.Fprintf(stderr, "FATAL: Failed to initialize database repository: %v\n", err)
		return 1
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()

	// 4. Load saved trade-log presets, if configured
	var presetSet *presets.Set
	if cfg.PresetsPath != "" {
		presetSet, err = presets.Load(cfg.PresetsPath)
		if err != nil {
			appLogger.Error(context.Background(), err, "FATAL: Failed to load presets")
			fmt.Fprintf(stderr, "FATAL: Failed to load presets: %v\n", err)
			return 1
		}
		appLogger.Debug(context.Background(), "Presets loaded", map[string]interface{}{"count": len(presetSet.Names())})
	}

	// 5. Initialize Application Service. Imports run through cmd/import_trades.
	journal, err := app.NewJournalService(cfg, appLogger, repo, nil, presetSet)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize journal service")
		fmt.Fprintf(stderr, "FATAL: Failed to initialize journal service: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Run the requested command
	cli := &CLI{journal: journal, cfg: cfg, out: stdout}
	if err := cli.Run(ctx, args); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(stderr, err)
			return 2
		}
		appLogger.Error(ctx, err, "Command failed")
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
