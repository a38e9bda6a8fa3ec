// Command council runs one query through the tool gate and a quorum-bounded
// multi-model stage, then prints each model's answer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/quorumlabs/council/pkg/backend"
	"github.com/quorumlabs/council/pkg/engine"
	"github.com/quorumlabs/council/pkg/toon"
)

func main() {
	configPath := flag.String("config", "council.yaml", "path to configuration file")
	envFile := flag.String("env", ".env", "path to .env file (ignored if missing)")
	routerID := flag.String("router", "", "router to use (overrides default_router in config)")
	doExport := flag.Bool("export", false, "upload the session to the configured export endpoint")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if err := run(*configPath, *envFile, *routerID, *doExport, *verbose, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "council:", err)
		os.Exit(1)
	}
}

func run(configPath, envFile, routerID string, doExport, verbose bool, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: council [flags] <query>")
	}
	query := strings.Join(args, " ")

	if err := loadDotEnv(envFile); err != nil {
		return fmt.Errorf("load env: %w", err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := engine.LoadConfig(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := engine.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	round, err := e.Run(ctx, routerID, query, nil)
	if err != nil {
		return err
	}

	for _, inv := range round.Invocations {
		if inv.Err != nil {
			fmt.Printf("[tool %s] error: %v\n\n", inv.Tool, inv.Err)
			continue
		}
		fmt.Printf("[tool %s]\n%s\n\n", inv.Tool, inv.Output)
	}

	round.Results.Each(func(model string, r backend.Result) bool {
		if !r.OK {
			fmt.Printf("=== %s ===\n(no response)\n\n", model)
			return true
		}
		fmt.Printf("=== %s ===\n%s\n\n", model, r.Content)
		return true
	})

	printSavings(round.Results)

	if doExport {
		info, err := e.Export(ctx, round)
		if err != nil {
			return err
		}
		if info == nil {
			log.Warn("export requested but no export endpoint is configured")
		} else {
			fmt.Printf("exported: %s\n", info.WebViewLink)
		}
	}

	return nil
}

// printSavings reports what feeding these answers into a follow-up prompt
// would cost in compact notation versus JSON.
func printSavings(set *backend.ResultSet) {
	stats, err := toon.SavingsStats(resultRows(set))
	if err != nil {
		return
	}
	fmt.Printf("token cost of this round as prompt context: %d (json) vs %d (compact), %.1f%% saved\n",
		stats.JSONTokens, stats.TOONTokens, stats.SavedPercent)
}

func resultRows(set *backend.ResultSet) []map[string]any {
	var rows []map[string]any
	set.Each(func(model string, r backend.Result) bool {
		if r.OK {
			rows = append(rows, map[string]any{"model": model, "response": r.Content})
		}
		return true
	})
	return rows
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
