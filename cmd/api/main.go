package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/microburbs/lead-intake/internal/api/router"
	appconfig "github.com/microburbs/lead-intake/internal/config"
	"github.com/microburbs/lead-intake/internal/crm"
	"github.com/microburbs/lead-intake/internal/health"
	"github.com/microburbs/lead-intake/internal/leads"
	"github.com/microburbs/lead-intake/internal/notify"
	"github.com/microburbs/lead-intake/internal/observability/metrics"
	"github.com/microburbs/lead-intake/internal/ratelimit"
	"github.com/microburbs/lead-intake/pkg/logging"
)

func main() {
	// .env is optional; real deployments configure the environment.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting lead-intake API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Lead storage: Postgres when configured, otherwise in-memory with
	// log-only durability.
	var repo leads.Repository
	var dbPinger health.Pinger
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to create pgx pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		pgRepo := leads.NewPostgresRepository(pool)
		repo = pgRepo
		dbPinger = pgRepo
	} else {
		logger.Warn("DATABASE_URL not set, leads held in memory only")
		repo = leads.NewInMemoryRepository()
	}

	// Rate limiting: per-IP fixed window, shared via Redis when the
	// service runs more than one instance.
	var limiter ratelimit.Store
	switch cfg.RateLimitStore {
	case "redis":
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		limiter = ratelimit.NewRedisStore(redis.NewClient(opts), cfg.RateLimitMaxRequests, cfg.RateLimitWindow)
		logger.Info("rate limiting via redis", "addr", cfg.RedisAddr)
	default:
		memStore := ratelimit.NewMemoryStore(cfg.RateLimitMaxRequests, cfg.RateLimitWindow)
		memStore.StartJanitor(ctx, time.Hour)
		limiter = memStore
	}

	var forwarder leads.Forwarder
	if cfg.CRMWebhookURL != "" {
		f, err := crm.NewWebhookForwarder(crm.Config{WebhookURL: cfg.CRMWebhookURL, Timeout: cfg.CRMWebhookTimeout})
		if err != nil {
			logger.Error("invalid CRM webhook config", "error", err)
			os.Exit(1)
		}
		forwarder = f
		logger.Info("CRM forwarding enabled")
	}

	var confirmer leads.ConfirmationSender
	sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.EmailFrom,
		FromName:  cfg.EmailFromName,
	}, logger)
	if sender != nil && cfg.EmailFrom != "" {
		confirmer = notify.NewLeadConfirmer(sender, logger)
		logger.Info("confirmation email enabled", "from", cfg.EmailFrom)
	}

	registry := prometheus.NewRegistry()
	leadMetrics := metrics.NewLeadMetrics(registry)

	service := leads.NewService(leads.ServiceConfig{
		Repo:          repo,
		Limiter:       limiter,
		Forwarder:     forwarder,
		Confirmer:     confirmer,
		Metrics:       leadMetrics,
		Logger:        logger,
		HoneypotField: cfg.HoneypotFieldName,
	})

	r := router.New(&router.Config{
		Logger:             logger,
		LeadsHandler:       leads.NewHandler(service, logger),
		HealthHandler:      health.NewHandler(dbPinger, logger),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
