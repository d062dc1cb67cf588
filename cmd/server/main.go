package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/example/ride-hailing/internal/auth"
	"github.com/example/ride-hailing/internal/config"
	"github.com/example/ride-hailing/internal/dispatch"
	"github.com/example/ride-hailing/internal/drivers"
	httpapi "github.com/example/ride-hailing/internal/http"
	"github.com/example/ride-hailing/internal/ingest"
	"github.com/example/ride-hailing/internal/logging"
	"github.com/example/ride-hailing/internal/payments"
	"github.com/example/ride-hailing/internal/rides"
	"github.com/example/ride-hailing/internal/storage"
	"github.com/example/ride-hailing/internal/trail"
)

func main() {
	cfg, err := config.LoadServerConfig()
	logger := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var store storage.Store
	if cfg.PGDSN != "" {
		if cfg.RunMigrations {
			if err := runMigrations(cfg.PGDSN); err != nil {
				logger.Error("migration failed", "error", err)
				os.Exit(1)
			}
			logger.Info("migrations applied")
		}
		ps, err := storage.NewPostgresStore(cfg.PGDSN)
		if err != nil {
			logger.Error("postgres unavailable", "error", err)
			os.Exit(1)
		}
		store = ps
	} else {
		logger.Warn("PG_DSN not set, using in-memory store")
		store = storage.NewMemoryStore()
	}

	var registry drivers.Registry
	if cfg.RedisAddr != "" {
		registry = drivers.NewRedisRegistry(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
	} else {
		registry = drivers.NewMemoryRegistry()
	}

	var producer *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		producer = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	wsreg := dispatch.NewWSRegistry(logger)

	rideSvc := &rides.Service{Store: store, Notifier: wsreg}
	recorder := &trail.Recorder{Store: store}
	if producer != nil {
		recorder.Publisher = producer
	}
	ledger := &payments.Ledger{Store: store}
	if cfg.StripeEnabled {
		ledger.Processor = payments.NewStripeProcessor()
	}

	api := httpapi.NewServer(httpapi.Deps{
		Logger:   logger,
		Store:    store,
		Tokens:   tokens,
		Auth:     &auth.Service{Store: store, Tokens: tokens},
		Rides:    rideSvc,
		Trail:    recorder,
		Payments: ledger,
		Drivers:  registry,
		WS:       wsreg,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("ride-hailing api listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func runMigrations(dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	b, err := os.ReadFile(filepath.Join("migrations", "001_init.sql"))
	if err != nil {
		return err
	}
	_, err = db.Exec(string(b))
	return err
}
