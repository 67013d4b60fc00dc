package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/paybazaar/retailer-portal/internal/config"
	"github.com/paybazaar/retailer-portal/internal/handler"
	"github.com/paybazaar/retailer-portal/internal/integrations/backend"
	"github.com/paybazaar/retailer-portal/internal/integrations/geo"
	"github.com/paybazaar/retailer-portal/internal/integrations/rdservice"
	"github.com/paybazaar/retailer-portal/internal/logging"
	"github.com/paybazaar/retailer-portal/internal/repository"
	"github.com/paybazaar/retailer-portal/internal/scheduler"
	"github.com/paybazaar/retailer-portal/internal/service"
	"github.com/paybazaar/retailer-portal/internal/utils/email"
)

func main() {
	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Flow state: Redis when configured, process memory otherwise
	var flows service.FlowStore
	if cfg.RedisURL != "" {
		client, err := repository.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatalf("Failed to connect to redis: %v", err)
		}
		defer client.Close()
		flows = repository.NewFlowStore(client, cfg.FlowTTL)
	} else {
		logger.Warn("REDIS_URL not set, keeping flow state in memory")
		flows = repository.NewMemoryFlowStore(cfg.FlowTTL)
	}

	// Audit log: Postgres when configured
	var audit service.AuditLog
	if cfg.DBConn != "" {
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			logger.Fatalf("Failed to ping database: %v", err)
		}
		repo := repository.NewRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatalf("Failed to prepare database: %v", err)
		}
		audit = repo
	} else {
		logger.Warn("DB_CONN not set, keeping audit events in memory")
		audit = repository.NewMemoryAudit()
	}

	locator := geo.ChainLocator{}
	if cfg.GeoIPPath != "" {
		geoip, err := geo.NewGeoIPLocator(cfg.GeoIPPath, cfg.GeoTimeout)
		if err != nil {
			logger.Fatalf("Failed to open GeoIP database: %v", err)
		}
		defer geoip.Close()
		locator.Fallback = geoip
	}

	// Initialize layers
	svc := service.NewService(
		backend.NewClient(cfg, logger),
		rdservice.NewClient(cfg, logger),
		locator,
		flows,
		audit,
		logger,
		cfg,
	)
	h := handler.NewHandler(svc, logger)

	jobs := scheduler.New(svc, email.NewSender(cfg, logger), cfg, logger)
	if err := jobs.Start(); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}

	// Start server
	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           handler.NewRouter(h, logger, time.Now),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.BackendTimeout + 30*time.Second,
	}
	go func() {
		logger.Infof("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownWait)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown: %v", err)
	}
	select {
	case <-jobs.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn("Scheduled jobs still running at shutdown")
	}
}
