package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"

	"github.com/Daytona2026/Warmano-webseite/internal/api/odoo"
	"github.com/Daytona2026/Warmano-webseite/internal/auth"
	"github.com/Daytona2026/Warmano-webseite/internal/booking"
	"github.com/Daytona2026/Warmano-webseite/internal/controlplane"
	"github.com/Daytona2026/Warmano-webseite/internal/crm"
	"github.com/Daytona2026/Warmano-webseite/internal/frontdoor"
	"github.com/Daytona2026/Warmano-webseite/internal/logging"
	"github.com/Daytona2026/Warmano-webseite/internal/pkg/config"
	"github.com/Daytona2026/Warmano-webseite/internal/server"
	"github.com/Daytona2026/Warmano-webseite/internal/storage"
	"github.com/Daytona2026/Warmano-webseite/internal/storage/memory"
	"github.com/Daytona2026/Warmano-webseite/internal/storage/sqlite"
	"github.com/Daytona2026/Warmano-webseite/internal/telemetry"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger := slog.New(logging.WrapHandler(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.Logging.Level),
	})))
	slog.SetDefault(logger)

	shutdownTracer, err := telemetry.InitTracer(telemetry.TracerConfig{
		ServiceName: cfg.Tracing.ServiceName,
		Enabled:     cfg.Tracing.Enabled,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	metrics := telemetry.NewMetrics()

	client := odoo.NewClient(odoo.Credentials{
		BaseURL:  cfg.Odoo.URL,
		Database: cfg.Odoo.DB,
		Username: cfg.Odoo.Username,
		APIKey:   cfg.Odoo.APIKey,
	},
		odoo.WithCallTimeout(cfg.Odoo.CallTimeout),
		odoo.WithSessionTTL(cfg.Odoo.SessionTTL),
		odoo.WithLogger(logger),
		odoo.WithMetrics(metrics),
	)

	crmOpts := []crm.Option{crm.WithLogger(logger), crm.WithMetrics(metrics)}
	if cfg.Booking.BatchRoleReads {
		crmOpts = append(crmOpts, crm.WithRoleResolver(crm.BatchRoleResolver{}))
	}
	svc := crm.NewService(client, crm.Config{
		BaseURL:          cfg.Odoo.URL,
		CountryID:        cfg.Booking.CountryID,
		PortalGroupID:    cfg.Booking.PortalGroupID,
		FallbackRoleID:   cfg.Booking.FallbackRoleID,
		ReferralSourceID: cfg.Booking.ReferralSourceID,
	}, crmOpts...)

	journal, err := openJournal(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open booking journal: %v", err)
	}
	defer journal.Close()

	orch := booking.NewOrchestrator(svc, booking.Config{
		AppointmentURL: cfg.Booking.AppointmentURL,
		TemplateName:   cfg.Booking.TemplateName,
		Deadline:       cfg.Booking.Deadline,
	},
		booking.WithLogger(logger),
		booking.WithMetrics(metrics),
		booking.WithJournal(journal),
		booking.WithTracer(otel.Tracer("warmano/booking")),
	)

	handler := frontdoor.NewHandler(frontdoor.Deps{
		Booker:  orch,
		Pinger:  client,
		CRM:     svc,
		Journal: journal,
		Metrics: metrics,
		Logger:  logger,
	})

	var limiter *server.RateLimiter
	if cfg.Server.RateLimit.Enabled {
		limiter = server.NewRateLimiter(cfg.Server.RateLimit.RequestsPerMinute, cfg.Server.RateLimit.Burst, 0)
	}
	authenticator := auth.NewAuthenticator(cfg.Server.AdminAPIKey)
	if authenticator == nil {
		logger.Warn("no admin API key configured, admin routes reject every request")
	}

	srv := server.New(server.Config{
		Port:           cfg.Server.Port,
		RequestTimeout: cfg.Server.RequestTimeout,
	}, logger)
	regs := append(handler.Registrations(), controlplane.NewServer(client, journal).Registrations()...)
	frontdoor.Mount(srv.Router, regs,
		server.RateLimitMiddleware(limiter, metrics),
		server.AdminAuthMiddleware(authenticator),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	case <-sigChan:
	}

	logger.Info("Shutdown signal received, stopping gateway...")

	// Bookings in flight get their full deadline to finish.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Booking.Deadline+5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Gateway shutdown complete")
}

func openJournal(cfg config.StorageConfig) (storage.JournalStore, error) {
	switch cfg.Driver {
	case "sqlite":
		return sqlite.New(cfg.DSN)
	case "memory", "":
		return memory.New(memory.DefaultCapacity), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
