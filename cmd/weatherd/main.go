// Command weatherd runs the weather-market trading daemon: it scans every
// registered city's Kalshi temperature markets, blends forecasts into fair
// probabilities, checks settlement on open positions, and places trades
// (paper or live) on a fixed poll interval.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/config"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/ensemble"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/executor"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/logging"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/metrics"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/notify"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/scanner"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/settlement"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/internal/state"
	"github.com/Tyler-Irving/kalshi-weather-arbitrage-daemon/pkg/rest"
)

var (
	envFile      string
	pollInterval time.Duration
	demo         bool
)

func init() {
	flag.StringVar(&envFile, "env", ".env", "Path to .env file")
	flag.DurationVar(&pollInterval, "poll-interval", 5*time.Minute, "Scan/settle/execute cycle interval")
	flag.BoolVar(&demo, "demo", false, "Use the Kalshi demo environment")
}

func main() {
	flag.Parse()

	printBanner()

	cfg, err := config.Load(envFile)
	if err != nil {
		log.Fatalf("[Main] Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[Main] Invalid config: %v", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("[Main] Failed to create data directory: %v", err)
	}

	store, err := state.NewStore(cfg.DataDir)
	if err != nil {
		log.Fatalf("[Main] Failed to open state store: %v", err)
	}

	restoreLog := logging.Setup(store, config.MaxLogLines)
	defer restoreLog()

	venueOpts := []rest.Option{}
	if demo || cfg.BaseURL == rest.DemoBaseURL {
		venueOpts = append(venueOpts, rest.WithDemo())
	} else if cfg.BaseURL != "" {
		venueOpts = append(venueOpts, rest.WithBaseURL(cfg.BaseURL))
	}
	venue := rest.New(cfg.APIKeyID, cfg.PrivateKey, venueOpts...)

	balance, err := venue.GetBalance(context.Background())
	if err != nil {
		log.Fatalf("[Main] Failed to fetch account balance: %v", err)
	}
	log.Printf("[Main] Account balance: %s", formatCents(balance.Balance))

	if cfg.Paper {
		log.Println("[Main] Paper trading mode: orders are simulated against the real balance and positions")
	}

	ens := ensemble.BuildStandard(filepath.Join(cfg.DataDir, "accuracy.json"))

	scan := scanner.New(venue, ens, cfg.Paper, store)

	suppressPaperAlerts := !cfg.PaperTradingNotifications
	notifier := notify.NewNotifier(cfg.SlackWebhookURL, cfg.DiscordWebhookURL, cfg.TelegramBotToken, cfg.TelegramChatID, suppressPaperAlerts)

	mets := metrics.Default()

	exec := executor.New(venue, store, cfg.Paper, func(level, title, message string) {
		switch level {
		case "critical":
			mets.CircuitBreakerTrips.Inc()
			notifier.CircuitBreaker(message)
		default:
			notifier.Error(title, message)
		}
	}, notifier.TradeAlert)

	settler := settlement.New(venue, store, ens, func(ticker string, won bool, pnlCents, totalPnLCents int, actualTemp float64, haveActual, isPaper bool) {
		outcome := "loss"
		if won {
			outcome = "win"
		}
		mets.SettlementsTotal.WithLabelValues(outcome).Inc()
		mets.RealizedPnL.Add(absFloat(pnlCents))
		notifier.Settlement(ticker, won, pnlCents, totalPnLCents, actualTemp, haveActual, isPaper)
	})

	d := &daemon{
		cfg:      cfg,
		store:    store,
		scanner:  scan,
		executor: exec,
		settler:  settler,
		notifier: notifier,
		metrics:  mets,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpServer := startHTTPServer(cfg.HTTPPort, d, mets)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.run(ctx, pollInterval)
	}()

	if notifier.IsEnabled() {
		notifier.Startup(balance.Balance, fmt.Sprintf("paper=%v poll=%s", cfg.Paper, pollInterval))
	}

	log.Println("[Main] weatherd is running. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("[Main] Shutdown signal received...")

	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Main] HTTP server shutdown error: %v", err)
	}

	stats := d.stats()
	if notifier.IsEnabled() {
		notifier.Shutdown("signal received", stats)
	}
	log.Printf("[Main] Final stats: %+v", stats)
	log.Println("[Main] Goodbye!")
}

// daemon owns the long-running scan/settle/execute cycle and exposes the
// state read by the HTTP stats endpoint.
type daemon struct {
	cfg      *config.Config
	store    *state.Store
	scanner  *scanner.Scanner
	executor *executor.Executor
	settler  *settlement.Checker
	notifier *notify.Notifier
	metrics  *metrics.Metrics

	mu         sync.Mutex
	cyclesRun  int
	lastCycle  time.Time
	lastTrades int
	lastErr    error
}

func (d *daemon) run(ctx context.Context, interval time.Duration) {
	d.cycle(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.cycle(ctx)
		}
	}
}

func (d *daemon) cycle(ctx context.Context) {
	now := time.Now()

	if err := d.settler.CheckSettled(ctx, now); err != nil {
		log.Printf("[Cycle] settlement check failed: %v", err)
		d.notifier.Error("settlement", err.Error())
	}

	scanStart := time.Now()
	opportunities := d.scanner.FindOpportunities(ctx, now)
	d.metrics.ScanDuration.Observe(time.Since(scanStart).Seconds())

	for _, opp := range opportunities {
		d.metrics.OpportunitiesFound.WithLabelValues(opp.City, string(opp.Side)).Inc()
	}

	trades, err := d.executor.ExecuteTrades(ctx, opportunities, now)
	d.mu.Lock()
	d.cyclesRun++
	d.lastCycle = now
	d.lastTrades = trades
	d.lastErr = err
	d.mu.Unlock()

	if err != nil {
		log.Printf("[Cycle] execution failed: %v", err)
		d.notifier.Error("executor", err.Error())
		return
	}

	mode := "live"
	if d.cfg.Paper {
		mode = "paper"
	}
	for i := 0; i < trades && i < len(opportunities); i++ {
		opp := opportunities[i]
		d.metrics.TradesPlaced.WithLabelValues(opp.City, string(opp.Side), mode).Inc()
	}

	log.Printf("[Cycle] scanned %d opportunities, placed %d trades", len(opportunities), trades)
}

func (d *daemon) stats() map[string]interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()

	errStr := ""
	if d.lastErr != nil {
		errStr = d.lastErr.Error()
	}
	return map[string]interface{}{
		"cycles_run":  d.cyclesRun,
		"last_cycle":  d.lastCycle.Format(time.RFC3339),
		"last_trades": d.lastTrades,
		"last_error":  errStr,
	}
}

func printBanner() {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════════════════════╗")
	fmt.Println("║                          weatherd                                 ║")
	fmt.Println("║       Binary weather-outcome market trading daemon (Kalshi)       ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════════╝")
	fmt.Println()
}

func startHTTPServer(port int, d *daemon, mets *metrics.Metrics) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		stats := d.stats()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"cycles_run":%d,"last_cycle":%q,"last_trades":%d,"last_error":%q}`,
			stats["cycles_run"], stats["last_cycle"], stats["last_trades"], stats["last_error"])
	})

	mux.Handle("/metrics", promhttp.HandlerFor(mets.Registry(), promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		log.Printf("[HTTP] Server starting on :%d", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[HTTP] Server error: %v", err)
		}
	}()

	return server
}

func formatCents(cents int) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}

func absFloat(cents int) float64 {
	if cents < 0 {
		return float64(-cents)
	}
	return float64(cents)
}
