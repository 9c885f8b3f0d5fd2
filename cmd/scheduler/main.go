package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/tiendapos/lending-engine/internal/config"
	"github.com/tiendapos/lending-engine/internal/repository"
	"github.com/tiendapos/lending-engine/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	loanRepo := repository.NewLoanRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	loanService := service.NewLoanService(loanRepo, paymentRepo, nil, cfg, logger)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		logger.Fatal("invalid scheduler timezone", zap.Error(err))
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	// Daily job: mark overdue installments, accrue late fees and escalate
	// loans past the default threshold.
	_, err = c.AddFunc(cfg.Scheduler.OverdueCronSpec, func() {
		now := time.Now().In(location)
		logger.Info("running overdue evaluation", zap.Time("now", now))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if err := loanService.EvaluateAllOverdue(ctx, now); err != nil {
			logger.Error("overdue evaluation run failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Fatal("failed to schedule overdue evaluation job", zap.Error(err))
	}

	c.Start()
	logger.Info("scheduler started", zap.String("cron", cfg.Scheduler.OverdueCronSpec))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	logger.Info("scheduler stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() || cfg.Logging.Format == "json" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
