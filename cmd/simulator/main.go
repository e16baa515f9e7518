package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tachyon/config"
	"tachyon/fixed"
	"tachyon/pipeline"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to JSON config (defaults used when absent)")
		csvPath    = flag.String("csv", "", "dump per-stage latency percentiles to this CSV file")
	)
	flag.Parse()
	if flag.NArg() > 0 && *configPath == "" {
		*configPath = flag.Arg(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tachyon: %v\n", err)
		os.Exit(1)
	}

	logger, flushLogs := newLogger(cfg.EnableLogging)
	defer flushLogs()

	fmt.Println("=== Ultra-Low Latency Trading Pipeline Simulator ===")
	if *configPath != "" {
		fmt.Printf("    config: %s\n", *configPath)
	} else {
		fmt.Println("    config: defaults")
	}
	fmt.Printf("    venues: %d, instruments: %d, duration: %dms\n\n",
		cfg.NumExchanges, cfg.NumInstruments, cfg.SimulationDurationMs)

	p := pipeline.New(cfg, logger)

	// SIGINT/SIGTERM flip the stop flag; the orchestrator polls it and
	// finishes the current iteration before winding down.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("signal received, stopping", zap.String("signal", sig.String()))
		p.RequestStop()
	}()

	start := time.Now()
	p.Run()
	elapsed := time.Since(start).Seconds()

	printReports(p, cfg, elapsed)

	if *csvPath != "" {
		if err := p.Collector().DumpCSV(*csvPath); err != nil {
			logger.Warn("csv dump failed", zap.Error(err))
		} else {
			fmt.Printf("\nLatency CSV written to %s\n", *csvPath)
		}
	}

	logger.Info("simulation complete", zap.Float64("elapsed_s", elapsed))
}

// newLogger builds the zap production logger over a buffered stderr
// sink, so logging is asynchronous to the threads that emit it. The
// returned flush stops the flush loop and drains the buffer.
func newLogger(enabled bool) (*zap.Logger, func()) {
	if !enabled {
		return zap.NewNop(), func() {}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	sink := &zapcore.BufferedWriteSyncer{
		WS:            zapcore.Lock(os.Stderr),
		FlushInterval: 100 * time.Millisecond,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), sink, zap.InfoLevel)
	logger := zap.New(core)

	return logger, func() {
		_ = logger.Sync()
		_ = sink.Stop()
	}
}

func printReports(p *pipeline.Pipeline, cfg config.Config, elapsed float64) {
	c := p.Collector()
	c.PrintSummary(os.Stdout, elapsed)
	c.TickToTradeHist.WriteReport(os.Stdout, "Tick-to-Trade Latency")

	gate := p.Gate()
	positions := gate.Positions()

	fmt.Println("--- Position Summary ---")
	for i := uint32(0); i < cfg.NumInstruments && i < fixed.MaxInstruments; i++ {
		fmt.Printf("  instrument %d: position %d, avg %.2f, pnl %.2f\n",
			i, positions.Position(i), positions.AvgPrice(i), positions.InstrumentPnL(i))
	}
	fmt.Printf("  Realized P&L:  $%.2f\n", positions.RealizedPnL())
	fmt.Printf("  Total P&L:     $%.2f\n", positions.TotalPnL())
	fmt.Printf("  Risk checks:   %d (rejected: %d)\n", gate.ChecksPerformed(), gate.ChecksRejected())

	fmt.Println("\n--- Venue Summary ---")
	for _, v := range p.Engine().Venues() {
		fmt.Printf("  %-12s orders=%d fills=%d rejects=%d\n",
			v.Name(), v.OrdersProcessed(), v.Fills(), v.Rejects())
	}
	fmt.Printf("  Throttled: %d, reports dropped: %d\n",
		p.Engine().OrdersThrottled(), p.Engine().ReportsDropped())

	if gate.KillSwitchOn() {
		fmt.Println("\n  WARNING: kill switch was activated during the run")
	}
}
