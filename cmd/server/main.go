package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"rwaledger/internal/core"
	"rwaledger/internal/events"
	"rwaledger/internal/platform/config"
	"rwaledger/internal/platform/httpserver"
	"rwaledger/internal/platform/logger"
	"rwaledger/internal/platform/metrics"
	httptransport "rwaledger/internal/transport/http"
)

// main wires config, the ledger, the event relay and the ops server, and keeps
// the process lifecycle small. Ledger rules live in the internal packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if err := run(cfg, log); err != nil {
		log.Error("rwaledger stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	deployer, genesis, err := cfg.Ledger.Accounts()
	if err != nil {
		return err
	}
	ledger := core.New(core.Options{
		Logger:    log,
		Metrics:   m,
		TxTimeout: cfg.Ledger.TxTimeout,
	})
	if err := ledger.Deploy(ctx, deployer, genesis); err != nil {
		return fmt.Errorf("deploy ledger: %w", err)
	}
	log.Info("ledger deployed",
		"deployer", deployer.String(),
		"genesis_accounts", len(genesis),
	)

	conns, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer conns.Close()

	relayOpts := []events.RelayOption{
		events.WithBatchSize(cfg.Relay.BatchSize),
		events.WithPollInterval(cfg.Relay.PollInterval),
		events.WithBackoff(cfg.Relay.Backoff, cfg.Relay.MaxBackoff),
		events.WithRelayLogger(log),
		events.WithRelayMetrics(m),
	}
	if cfg.Relay.Compact {
		relayOpts = append(relayOpts, events.WithCompaction())
	}
	relay, err := events.NewRelay(ledger.Events, conns.sinks, relayOpts...)
	if err != nil {
		return fmt.Errorf("build relay: %w", err)
	}

	handler := httptransport.NewHandler(ledger.Assets, ledger.Verification, ledger.Breaker, ledger.Events, log)
	router := httptransport.NewRouter(handler, httptransport.NewHealth(2*time.Second, conns.checkers...), reg)
	srv := httpserver.New(cfg.Server.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return relay.Run(gctx)
	})
	g.Go(func() error {
		log.Info("starting ops server", "addr", cfg.Server.Addr)
		return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout)
	})
	err = g.Wait()

	// Deliver whatever committed before shutdown.
	flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if ferr := relay.Flush(flushCtx); ferr != nil {
		log.Warn("final event flush incomplete", "error", ferr, "last_seq", ledger.Events.LastSeq())
	}
	log.Info("rwaledger stopped")
	return err
}
