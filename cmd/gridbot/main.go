package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Julian6262/BingX/internal/alert"
	"github.com/Julian6262/BingX/internal/bootstrap"
	"github.com/Julian6262/BingX/internal/config"
	"github.com/Julian6262/BingX/internal/console"
	"github.com/Julian6262/BingX/internal/core"
	"github.com/Julian6262/BingX/internal/engine"
	"github.com/Julian6262/BingX/internal/exchange/bingx"
	"github.com/Julian6262/BingX/internal/indicator"
	"github.com/Julian6262/BingX/internal/orchestrator"
	"github.com/Julian6262/BingX/internal/storage"
	"github.com/Julian6262/BingX/internal/store"
	"github.com/Julian6262/BingX/pkg/concurrency"
	"github.com/Julian6262/BingX/pkg/logging"
	"github.com/Julian6262/BingX/pkg/telemetry"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// version is injected at build time via -ldflags.
var version = "dev"

var (
	configFile  = flag.String("config", "configs/gridbot.yaml", "Path to configuration file")
	versionFlag = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Println("gridbot", version)
		return
	}

	// .env is optional; real deployments export the variables directly.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	logger, err := logging.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("starting gridbot", "version", version)

	tel, err := telemetry.Setup("gridbot", version)
	if err != nil {
		logger.Fatal("failed to set up telemetry", "error", err)
	}

	mirror, err := storage.NewSQLiteMirror(cfg.Database.URL)
	if err != nil {
		logger.Fatal("failed to open ledger mirror", "error", err)
	}
	defer mirror.Close()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool := concurrency.NewWorkerPool(concurrency.PoolConfig{
		Name:        "tick_dispatch",
		MaxWorkers:  10,
		MaxCapacity: 1000,
		NonBlocking: true,
	}, logger)
	defer pool.Stop()

	exchange := bingx.New(cfg.Exchange, cfg.Timing, pool, logger)

	prices := store.NewPriceStore()
	account := store.NewAccountStore(decimal.NewFromFloat(cfg.Trading.MinQuoteBalance))
	ledger := store.NewLedger()
	configs := store.NewConfigStore()

	// The console and the telegram alert channel share one bot session.
	bot, err := tgbotapi.NewBotAPI(string(cfg.Telegram.Token))
	if err != nil {
		logger.Fatal("failed to init telegram bot", "error", err)
	}

	alerts := alert.NewAlertManager(logger)
	alerts.AddChannel(alert.NewTelegramChannel(bot, cfg.Telegram.AdminID))
	if url := string(cfg.Alerts.SlackWebhook); url != "" {
		alerts.AddChannel(alert.NewSlackChannel(url))
	}

	indicatorEngine := indicator.NewEngine(exchange, prices, account, ledger,
		configs, mirror, cfg.Trading, cfg.Timing, logger)
	tradingEngine := engine.New(exchange, prices, account, ledger, configs,
		mirror, cfg.Trading, cfg.Timing, logger).WithAlerts(alerts)
	orch := orchestrator.New(exchange, prices, indicatorEngine, tradingEngine,
		cfg.Timing.StreamStagger(), logger)

	restored, err := restore(rootCtx, mirror, ledger, configs)
	if err != nil {
		logger.Fatal("failed to restore ledger from mirror", "error", err)
	}

	commander := console.NewCommander(rootCtx, exchange, prices, ledger,
		configs, mirror, tradingEngine, orch, logger)
	operatorConsole := console.New(bot, cfg.Telegram.AdminID, commander, logger)

	// Symbols persisted in a non-stop state resume without operator input.
	for _, rec := range restored {
		if rec.State != core.StateStop {
			orch.StartSymbol(rootCtx, rec.Name)
		}
	}

	app := bootstrap.NewApp(logger, alerts)
	runErr := app.Run(rootCtx,
		bootstrap.NamedRunner{
			Name:   "listen_key",
			Runner: bingx.NewListenKeyKeeper(exchange, account, cfg.Timing.ListenKeyRefresh(), logger).WithAlerts(alerts),
		},
		bootstrap.NamedRunner{
			Name:   "account_stream",
			Runner: bingx.NewAccountStreamRunner(exchange, account, logger),
		},
		bootstrap.NamedRunner{Name: "console", Runner: operatorConsole},
		bootstrap.NamedRunner{
			Name:   "metrics",
			Runner: metricsServer(cfg.App.MetricsAddr, logger),
		},
	)

	orch.StopAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := tel.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown failed", "error", err)
	}

	if runErr != nil {
		logger.Error("gridbot stopped with error", "error", runErr)
		os.Exit(1)
	}
	logger.Info("gridbot stopped")
}

// restore rebuilds the in-memory stores from the mirror.
func restore(ctx context.Context, mirror *storage.SQLiteMirror, ledger *store.Ledger, configs *store.ConfigStore) ([]storage.SymbolRecord, error) {
	records, err := mirror.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		ledger.AddSymbol(rec.Name, rec.StepSize, rec.State, rec.Profit)
		for _, o := range rec.Orders {
			ledger.Append(rec.Name, o)
		}
		configs.Set(rec.Name, rec.Lot, rec.GridSize)
	}
	return records, nil
}

// metricsServer exposes prometheus metrics and a liveness endpoint.
func metricsServer(addr string, logger core.ILogger) bootstrap.Runner {
	return bootstrap.RunnerFunc(func(ctx context.Context) error {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})

		srv := &http.Server{Addr: addr, Handler: mux}
		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe() }()
		logger.Info("metrics server listening", "addr", addr)

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
			return ctx.Err()
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		}
	})
}
