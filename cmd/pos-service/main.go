package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/vaidhya/pos-api/internal/appointments"
	"github.com/vaidhya/pos-api/internal/gateway"
	"github.com/vaidhya/pos-api/internal/patients"
	"github.com/vaidhya/pos-api/internal/sessions"
	"github.com/vaidhya/pos-api/internal/tasks"
	"github.com/vaidhya/pos-api/internal/users"
	"github.com/vaidhya/pos-api/pkg/config"
	"github.com/vaidhya/pos-api/pkg/database"
	"github.com/vaidhya/pos-api/pkg/logger"
	"github.com/vaidhya/pos-api/pkg/monitoring"
)

var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.NewWithConfig(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	db, err := database.NewConnection(&cfg.Database, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.CreateSchema(context.Background()); err != nil {
			appLogger.WithError(err).Fatal("Failed to create schema")
		}
	}

	deps := gateway.Dependencies{
		Sessions:     sessions.NewRepository(db, cfg.Session.MaxAge),
		Patients:     patients.NewRepository(db),
		Appointments: appointments.NewRepository(db),
		Tasks:        tasks.NewRepository(db),
		Users:        users.NewRepository(db),
		Passwords:    users.NewPasswordManager(cfg.Security.BcryptCost),
	}

	secret := cfg.Session.TokenSecret
	if secret == "" {
		appLogger.Warn("session.token_secret is not set; using a random secret, issued tokens will not survive a restart")
		secret = uuid.NewString()
	}
	deps.Tokens = sessions.NewTokenIssuer(secret, cfg.Session.Issuer, cfg.Session.MaxAge)

	mon := cfg.Monitoring
	if mon.Enabled {
		deps.Metrics = monitoring.NewMetricsCollector(mon.ServiceName)
		db.SetObserver(deps.Metrics)

		deps.Health = monitoring.NewHealthManager(mon.ServiceName, version)
		deps.Health.RegisterChecker("database", monitoring.NewDatabaseHealthChecker(db, deps.Metrics.RecordDBStats))
	}

	if mon.TracingEnabled {
		deps.Tracing, err = monitoring.NewTracingManager(monitoring.TracingConfig{
			ServiceName:    mon.ServiceName,
			ServiceVersion: version,
			Environment:    os.Getenv("APP_ENV"),
			Exporter:       mon.TracingExporter,
			SamplingRate:   mon.SamplingRate,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize tracing")
		}
		db.SetTracer(deps.Tracing)
	}

	service := gateway.NewService(cfg, deps, appLogger)

	// Start service in a goroutine
	go func() {
		if err := service.Start(); err != nil {
			appLogger.WithError(err).Fatal("Failed to start POS service")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down POS service...")
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := service.Stop(ctx); err != nil {
		appLogger.WithError(err).Error("Error during shutdown")
	}
	if deps.Tracing != nil {
		if err := deps.Tracing.Shutdown(ctx); err != nil {
			appLogger.WithError(err).Error("Error flushing traces")
		}
	}
	appLogger.Info("POS service stopped")
}
