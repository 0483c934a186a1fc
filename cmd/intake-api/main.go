package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/brightline-health/intake-voice-agent/cmd/mainconfig"
	"github.com/brightline-health/intake-voice-agent/internal/address"
	"github.com/brightline-health/intake-voice-agent/internal/api/router"
	appconfig "github.com/brightline-health/intake-voice-agent/internal/config"
	"github.com/brightline-health/intake-voice-agent/internal/host"
	"github.com/brightline-health/intake-voice-agent/internal/intake"
	"github.com/brightline-health/intake-voice-agent/internal/notify"
	"github.com/brightline-health/intake-voice-agent/internal/observability/metrics"
	"github.com/brightline-health/intake-voice-agent/internal/schedule"
	"github.com/brightline-health/intake-voice-agent/internal/session"
	"github.com/brightline-health/intake-voice-agent/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting intake-voice-agent API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// Appointment schedule
	slots := schedule.Default()
	if cfg.ScheduleFile != "" {
		loaded, err := schedule.LoadFile(cfg.ScheduleFile)
		if err != nil {
			logger.Error("failed to load schedule file", "path", cfg.ScheduleFile, "error", err)
			os.Exit(1)
		}
		slots = loaded
	}

	// Address validation
	validator := address.NewUSPSClient(address.USPSConfig{
		ClientID:     cfg.USPSClientID,
		ClientSecret: cfg.USPSClientSecret,
		UseTestEnv:   cfg.USPSUseTestEnv,
		Timeout:      cfg.USPSTimeout,
	}, logger)
	if !validator.Configured() {
		logger.Warn("USPS credentials not set, addresses will be committed as typed")
	}

	// Confirmation email
	notifier := notify.NewService(buildEmailSender(cfg, logger), cfg.ClinicName, logger)

	// Dialogue graph and engine
	flowMetrics := metrics.NewFlowMetrics(nil)
	registry, err := intake.NewIntakeGraph(intake.GraphConfig{
		Slots:     slots,
		Validator: validator,
		Notifier:  notifier,
		Metrics:   flowMetrics,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to build intake graph", "error", err)
		os.Exit(1)
	}
	engine := intake.NewEngine(registry, logger, flowMetrics)

	// Session store
	store := buildSessionStore(cfg, logger)

	sessionHandler := host.NewHandler(engine, store, flowMetrics, logger)
	r := router.New(&router.Config{
		Logger:         logger,
		SessionHandler: sessionHandler,
		MetricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func buildSessionStore(cfg *appconfig.Config, logger *logging.Logger) session.Store {
	if cfg.SessionStore != "redis" {
		logger.Info("using in-memory session store", "ttl", cfg.SessionTTL.String())
		return session.NewMemoryStore(cfg.SessionTTL)
	}

	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("redis unreachable", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	logger.Info("using redis session store", "addr", cfg.RedisAddr, "ttl", cfg.SessionTTL.String())
	return session.NewRedisStore(client, cfg.SessionTTL)
}

func buildEmailSender(cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger)
		if sender == nil {
			logger.Warn("sendgrid selected but no API key set, using stub sender")
			return notify.NewStubEmailSender(logger)
		}
		return sender

	case "ses":
		awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger)
		if sender == nil {
			return notify.NewStubEmailSender(logger)
		}
		return sender

	default:
		logger.Info("email confirmations disabled, using stub sender")
		return notify.NewStubEmailSender(logger)
	}
}
