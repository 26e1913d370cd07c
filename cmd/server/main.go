package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"resavox/internal/attempts"
	"resavox/internal/availability"
	"resavox/internal/booking"
	"resavox/internal/config"
	"resavox/internal/database"
	"resavox/internal/metrics"
	"resavox/internal/notify"
	"resavox/internal/report"
	"resavox/internal/waitlist"
	"resavox/internal/webhook"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("RESAVOX_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	var rdb *redis.Client
	var tracker booking.AttemptTracker
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		tracker = attempts.NewTracker(rdb)
	}

	var sms notify.SMSSender
	if cfg.SMS.Enabled {
		sms = notify.NewSMSClient(notify.SMSClientConfig{
			BaseURL:    cfg.SMS.BaseURL,
			APIKey:     cfg.SMS.APIKey,
			Sender:     cfg.SMS.Sender,
			RatePerSec: cfg.SMS.RatePerSec,
			Burst:      cfg.SMS.Burst,
		})
	}
	var owner notify.OwnerAlerter
	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		owner, err = notify.NewTelegramAlerter(cfg.Telegram.BotToken)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram init error")
		}
	}
	notifier := notify.NewNotifier(sms, owner, cfg.SMS.CancelLink, logger)

	resolver := availability.NewResolver(db)
	resolver.ScanDays = cfg.AlternativeScanDays()

	policy := booking.Policy{
		LargePartyThreshold: cfg.LargePartyThreshold(),
		MaxFailedAttempts:   cfg.MaxFailedAttempts(),
	}
	handlers := booking.NewHandlers(db, resolver, waitlist.NewService(db, logger), notifier, tracker, policy, logger)

	server := webhook.NewServer(handlers, db, notifier, policy, cfg.RequestTimeout(), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Database.Backup.Enabled {
		backup := database.NewBackupService(cfg.Database.Path, cfg.Database.Backup, logger)
		go backup.Start(ctx)
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.Reports.Enabled {
		reports, err := buildReportService(ctx, cfg, db, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("report service init error")
		}
		reports.Start()
		defer reports.Stop()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().Int("port", cfg.Server.Port).Msg("webhook server started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func buildReportService(ctx context.Context, cfg *config.Config, db *database.DB, logger zerolog.Logger) (*report.Service, error) {
	if err := os.MkdirAll(cfg.Reports.OutputDir, 0o755); err != nil {
		return nil, err
	}

	var sheets *report.SheetsSync
	if cfg.Reports.Sheets.Enabled {
		var err error
		sheets, err = report.NewSheetsSync(ctx, cfg.Reports.Sheets.CredentialsFile, cfg.Reports.Sheets.SpreadsheetID)
		if err != nil {
			return nil, err
		}
	}

	ids, err := db.ListRestaurantIDs(ctx)
	if err != nil {
		return nil, err
	}
	return report.NewService(db, sheets, ids, cfg.Reports.OutputDir, cfg.ReportInterval(), logger), nil
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
