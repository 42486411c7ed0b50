package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	backtest "github.com/0x5487/backtest-engine"
	"github.com/0x5487/backtest-engine/feed"
	"github.com/0x5487/backtest-engine/internal/config"
	"github.com/0x5487/backtest-engine/protocol"
	"github.com/0x5487/backtest-engine/strategy"
)

func main() {
	ticksPath := flag.String("ticks", "", "Tick file to replay (.csv or .jsonl)")
	contractsPath := flag.String("contracts", "", "Contract definitions (JSON)")
	symbol := flag.String("symbol", "", "Symbol to quote")
	outPath := flag.String("out", "", "Report output file (default stdout)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Logs go to stderr so the report can be written to stdout.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
	backtest.SetLogger(logger)

	if *ticksPath == "" || *contractsPath == "" || *symbol == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(cfg, *ticksPath, *contractsPath, *symbol, *outPath); err != nil {
		logger.Error("backtest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, ticksPath, contractsPath, symbol, outPath string) error {
	serializer := &protocol.DefaultJSONSerializer{}

	contractsFile, err := os.Open(contractsPath)
	if err != nil {
		return err
	}
	defer contractsFile.Close()

	contracts, err := backtest.LoadContracts(contractsFile, serializer)
	if err != nil {
		return fmt.Errorf("load contracts: %w", err)
	}

	format, err := feed.DetectFormat(ticksPath)
	if err != nil {
		return err
	}
	ticksFile, err := os.Open(ticksPath)
	if err != nil {
		return err
	}
	defer ticksFile.Close()

	src, err := feed.NewSource(format, ticksFile)
	if err != nil {
		return err
	}

	quoter, err := strategy.NewQuoter(strategy.QuoterConfig{
		Symbol:          symbol,
		Size:            cfg.QuoteSize,
		MaxPosition:     cfg.MaxPosition,
		RequoteDistance: cfg.RequoteDistance,
	})
	if err != nil {
		return err
	}

	engine, err := backtest.NewTickEngine(contracts, quoter,
		backtest.WithQueueParam(cfg.QueueParam),
		backtest.WithFillParam(cfg.FillParam),
		backtest.WithInitialCash(cfg.InitialCash),
	)
	if err != nil {
		return err
	}

	var report *backtest.Report
	if cfg.PipelineCapacity > 0 {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
		report, err = engine.StartPipelined(ctx, src, cfg.PipelineCapacity)
	} else {
		report, err = engine.Start(src)
	}
	if err != nil {
		return err
	}

	return writeReport(report, outPath)
}

func writeReport(report *backtest.Report, outPath string) error {
	var w io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
