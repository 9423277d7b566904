package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/uhyunpark/bazaar/params"
	"github.com/uhyunpark/bazaar/pkg/api"
	"github.com/uhyunpark/bazaar/pkg/journal"
	"github.com/uhyunpark/bazaar/pkg/market"
	"github.com/uhyunpark/bazaar/pkg/sim"
	"github.com/uhyunpark/bazaar/pkg/util"
)

// Default goods catalogue for a fresh market. Prices in the smallest
// currency unit; volatility bounds per-tick pressure-driven moves.
var catalogue = []struct {
	id, name   string
	basePrice  int64
	volatility float64
}{
	{"wheat", "Wheat", 120, 0.05},
	{"timber", "Timber", 350, 0.04},
	{"iron", "Iron Ingot", 900, 0.06},
	{"salt", "Salt", 60, 0.03},
	{"wool", "Wool", 210, 0.08},
	{"spice", "Rare Spice", 4200, 0.10},
}

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile)

	// ---- Trade journal (optional audit sink) ----
	var jrnl market.Journal
	var pj *journal.PebbleJournal
	if cfg.Node.JournalPath != "" {
		pj, err = journal.Open(cfg.Node.JournalPath)
		if err != nil {
			sugar.Fatalw("journal_open_failed", "path", cfg.Node.JournalPath, "err", err)
		}
		defer pj.Close()
		jrnl = pj
		sugar.Infow("journal_open", "path", cfg.Node.JournalPath, "trades", pj.Len())
	}

	// ---- Engine ----
	prices := market.NewPriceModel(rand.New(rand.NewSource(time.Now().UnixNano())))
	engine := market.NewEngine(cfg.Market, util.RealClock{}, prices, logger, jrnl)

	for _, g := range catalogue {
		if err := engine.RegisterGood(g.id, g.name, g.basePrice, g.volatility); err != nil {
			sugar.Fatalw("register_good_failed", "good", g.id, "err", err)
		}
	}

	// ---- API (hooks are wired inside NewServer) ----
	server := api.NewServer(engine, logger)
	go func() {
		if err := server.Start(cfg.Node.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- Simulator (optional demo traffic) ----
	if cfg.Node.SimEnabled {
		pool, err := sim.NewPool(engine, cfg.Node.SimTraders, cfg.Node.SimSeed, logger)
		if err != nil {
			sugar.Fatalw("sim_pool_failed", "err", err)
		}
		go pool.Run(ctx, cfg.Node.SimInterval)
	}

	// ---- Tick loop ----
	go func() {
		ticker := time.NewTicker(cfg.Market.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				engine.Tick()
			}
		}
	}()

	sugar.Infow("bazaard_started", "api", cfg.Node.APIAddr, "goods", len(catalogue),
		"tick", cfg.Market.TickInterval.String())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	sugar.Infow("shutting_down")
}
