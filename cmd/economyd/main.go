// economyd runs the dynamic NPC market engine: it ingests trade volume,
// recomputes item prices on a fixed cycle, and serves the read/admin HTTP
// surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Bo-sung/mineconomy/internal/catalog"
	"github.com/Bo-sung/mineconomy/internal/config"
	"github.com/Bo-sung/mineconomy/internal/economy"
	"github.com/Bo-sung/mineconomy/internal/keys"
	"github.com/Bo-sung/mineconomy/internal/presence"
	"github.com/Bo-sung/mineconomy/internal/server"
	"github.com/Bo-sung/mineconomy/internal/store"
	"github.com/Bo-sung/mineconomy/pkg/logger"
	"github.com/shopspring/decimal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "economyd:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to yaml config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	st, err := store.NewRedisStore(cfg.Redis, log)
	if err != nil {
		return err
	}
	defer st.Close()

	cat, err := catalog.OpenGorm(cfg.Catalog.DSN)
	if err != nil {
		return err
	}

	schema := keys.NewSchema(cfg.Economy.KeyPrefix)
	tracker := presence.NewTracker(st, schema, log)
	settings := economy.NewSettingsCache(st, schema, cfg.Economy.ServerCapacity, log)
	window := economy.NewVolumeWindow(st, schema, log)
	factors := economy.NewCalculator(tracker, settings, log)
	engine := economy.NewEngine(window, tracker, log)
	limiter := economy.NewLimiter(log)
	book := economy.NewBook(st, schema)
	recorder := economy.NewTradeRecorder(window, factors, log)
	snapshots := economy.NewSnapshotBuilder(cat, book, window, factors, log)

	sched := economy.NewScheduler(economy.SchedulerConfig{
		Interval:         cfg.Scheduler.Interval,
		PreflightRetries: cfg.Scheduler.PreflightRetries,
		PreflightDelay:   cfg.Scheduler.PreflightDelay,
		Workers:          cfg.Scheduler.Workers,
		WriteEpsilon:     decimal.NewFromFloat(cfg.Scheduler.WriteEpsilon),
	}, st, cat, window, engine, limiter, factors, book, log)

	srv := server.New(cfg.HTTP.Addr, st, book, engine, sched, snapshots, recorder, tracker, cat, log)

	sched.Start()
	defer sched.Stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
