package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rewired-gh/gemonitor/internal/api"
	"github.com/rewired-gh/gemonitor/internal/config"
	"github.com/rewired-gh/gemonitor/internal/datastore"
	"github.com/rewired-gh/gemonitor/internal/discord"
	"github.com/rewired-gh/gemonitor/internal/logger"
	"github.com/rewired-gh/gemonitor/internal/monitor"
	"github.com/rewired-gh/gemonitor/internal/notify"
	"github.com/rewired-gh/gemonitor/internal/osrs"
	"github.com/rewired-gh/gemonitor/internal/report"
	"github.com/rewired-gh/gemonitor/internal/storage"
	"github.com/rewired-gh/gemonitor/internal/telegram"
)

var (
	configPath  string
	testMessage string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the price monitor, notification workers and HTTP API",
	Run:   runServe,
}

var webhookTestCmd = &cobra.Command{
	Use:   "webhook-test",
	Short: "Sends one test message through the configured Discord webhook",
	RunE:  runWebhookTest,
}

func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	return cfg
}

func openStore(ctx context.Context, cfg *config.Config, n datastore.Notifier) (*storage.Storage, *datastore.Store) {
	db, err := storage.New(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	store := datastore.New(db, n, cfg.Settings.Normalize(), datastore.WithLogger(logger.L()))
	if err := store.Load(ctx); err != nil {
		logger.Fatal("Failed to restore state: %v", err)
	}
	return db, store
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := loadConfig()
	defer logger.Sync()
	logger.Info("Configuration loaded from %s", configPath)

	// One queue per sink so a throttled sink never delays the others.
	discordQueue := notify.NewQueue()
	queues := notify.Fanout{discordQueue}
	var telegramQueue *notify.Queue
	if cfg.Telegram.Enabled {
		telegramQueue = notify.NewQueue()
		queues = append(queues, telegramQueue)
	}

	db, store := openStore(ctx, cfg, queues)
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	feed := osrs.NewClient(osrs.Config{
		BaseURL:           cfg.Feed.BaseURL,
		Timeout:           cfg.Feed.Timeout,
		MaxRetries:        cfg.Feed.MaxRetries,
		RetryDelay:        cfg.Feed.RetryDelay,
		RequestsPerMinute: cfg.Feed.RequestsPerMinute,
		UserAgent:         func() string { return store.Config().UserAgent },
	}, logger.L().Named("osrs"), osrs.WithSeriesCache(db))
	catalog := osrs.NewCatalog(feed)

	var wg sync.WaitGroup
	workerCfg := notify.WorkerConfig{
		MinCooldown:     cfg.Notify.MinCooldown,
		DefaultCooldown: cfg.Notify.DefaultCooldown,
	}
	startWorker := func(q *notify.Queue, s notify.Sender) {
		w := notify.NewWorker(q, s, workerCfg, logger.L().Named("notify").With(zap.String("sink", s.Name())))
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx)
		}()
	}

	webhook, err := discord.NewWebhook(store.Config, logger.L().Named("discord"))
	if err != nil {
		logger.Fatal("Failed to initialize Discord webhook: %v", err)
	}
	startWorker(discordQueue, webhook)

	if cfg.Telegram.Enabled {
		tg, err := telegram.NewClient(telegram.Config{
			BotToken: cfg.Telegram.BotToken,
			ChatID:   cfg.Telegram.ChatID,
		}, logger.L().Named("telegram"))
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		tg.Summary = func() string { return datastore.SummaryReport(store.PositionSummary()) }
		tg.ListenForCommands(ctx)
		startWorker(telegramQueue, tg)
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	mon := monitor.New(store, feed, logger.L().Named("monitor"))
	wg.Add(1)
	go func() {
		defer wg.Done()
		mon.Run(ctx)
	}()

	scheduler, err := report.New(cfg.Report.Schedule, store, cfg.Location(), logger.L().Named("report"))
	if err != nil {
		logger.Fatal("Invalid report schedule: %v", err)
	}
	scheduler.Start()

	var e *echo.Echo
	if cfg.API.Enabled {
		e = api.NewServer(store, catalog, feed, logger.L().Named("api")).Echo()
		go func() {
			logger.Info("HTTP server starting on %s", cfg.API.Listen)
			if err := e.Start(cfg.API.Listen); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server failed to start: %v", err)
				stop() // trigger shutdown
			}
		}()
	}

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("Shutdown signal received, cleaning up...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if e != nil {
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown: %v", err)
		}
	}
	scheduler.Stop(shutdownCtx)
	wg.Wait()

	logger.Info("Service stopped")
}

func runWebhookTest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := loadConfig()
	defer logger.Sync()

	db, store := openStore(ctx, cfg, nil)
	defer func() { _ = db.Close() }()

	webhook, err := discord.NewWebhook(store.Config, logger.L().Named("discord"))
	if err != nil {
		return err
	}
	if !webhook.Ready() {
		return fmt.Errorf("discord notifications are disabled or the webhook url is not set")
	}
	if err := webhook.Send(ctx, notify.TestMessage(testMessage)); err != nil {
		return fmt.Errorf("failed to send test message: %w", err)
	}
	logger.Info("Test message delivered")
	return nil
}

func main() {
	rootCmd := &cobra.Command{Use: "gemonitor"}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "Path to the configuration file")
	webhookTestCmd.Flags().StringVarP(&testMessage, "message", "m", "", "Text of the test message")

	rootCmd.AddCommand(serveCmd, webhookTestCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing gemonitor CLI: %s\n", err)
		os.Exit(1)
	}
}
