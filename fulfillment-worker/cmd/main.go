package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pharmacart/fulfillment-worker/internal/app/worker/config"
	"pharmacart/fulfillment-worker/internal/app/worker/entity"
	"pharmacart/fulfillment-worker/internal/app/worker/handler"
	"pharmacart/fulfillment-worker/internal/app/worker/processor"
	"pharmacart/fulfillment-worker/internal/app/worker/repository"
	"pharmacart/fulfillment-worker/internal/app/worker/service"
	"pharmacart/pkg/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const serviceName = "fulfillment-worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(serviceName, cfg.Log.Level)
	if cfg.Log.LogstashAddr != "" {
		if err := logger.InitLogstash(cfg.Log.LogstashAddr, serviceName, cfg.Log.Level); err != nil {
			logger.Warn().Err(err).Msg("Failed to connect to Logstash, using stdout only")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === ПОДКЛЮЧЕНИЕ К POSTGRESQL ===
	db, err := connectDB(cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := db.AutoMigrate(&entity.TriageRecord{}); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate order_triage")
	}
	logger.Info().Str("database", cfg.Database.DBName).Msg("Connected to PostgreSQL")

	// === СЕРВИСЫ ===
	triageRepo := repository.NewTriageRepository(db)
	triageService := service.NewTriageService(triageRepo, cfg.Triage.StaleAfter)

	// === KAFKA CONSUMER ===
	consumer := processor.NewOrderConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.Topic,
		cfg.Kafka.GroupID,
		cfg.Kafka.MinBytes,
		cfg.Kafka.MaxBytes,
		triageService,
	)
	consumer.Start(ctx)

	// === CRON ===
	scheduler := processor.NewCronScheduler(triageService)
	if err := scheduler.Start(ctx, cfg.Triage.EscalateSchedule); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.Triage.EscalateSchedule).Msg("Failed to start cron scheduler")
	}

	// === HTTP: health, triage, metrics ===
	pingDB := func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}

	mux := http.NewServeMux()
	handler.NewHandler(triageService, pingDB, consumer).RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info().Str("address", cfg.Server.Address()).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	logger.Info().
		Str("topic", cfg.Kafka.Topic).
		Dur("stale_after", cfg.Triage.StaleAfter).
		Msg("Fulfillment Worker is running")

	// === GRACEFUL SHUTDOWN ===
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down Fulfillment Worker...")

	scheduler.Stop()
	cancel()
	consumer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server forced to shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	logger.Info().Msg("Fulfillment Worker stopped gracefully")
}

// connectDB устанавливает соединение с PostgreSQL используя GORM
func connectDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	// Retry logic для устойчивости при запуске в Docker
	var db *gorm.DB
	var err error

	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
		if err == nil {
			sqlDB, sqlErr := db.DB()
			if sqlErr != nil {
				err = sqlErr
			} else if pingErr := sqlDB.Ping(); pingErr != nil {
				err = pingErr
			} else {
				sqlDB.SetMaxOpenConns(10)
				sqlDB.SetMaxIdleConns(5)
				sqlDB.SetConnMaxLifetime(5 * time.Minute)
				sqlDB.SetConnMaxIdleTime(1 * time.Minute)
				return db, nil
			}
		}
		logger.Warn().Err(err).Int("attempt", i+1).Msg("Failed to connect to database, retrying...")
		time.Sleep(3 * time.Second)
	}

	return nil, fmt.Errorf("failed to connect after 10 attempts: %w", err)
}
