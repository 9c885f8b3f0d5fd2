package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tiendapos/lending-engine/internal/config"
	"github.com/tiendapos/lending-engine/internal/handler"
	"github.com/tiendapos/lending-engine/internal/repository"
	"github.com/tiendapos/lending-engine/internal/service"
	"github.com/tiendapos/lending-engine/pkg/response"
)

func main() {
	// Optional .env for local development
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

	db, err := initDB(cfg)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	redisClient := initRedis(cfg)
	defer redisClient.Close()

	loanRepo := repository.NewLoanRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	loanService := service.NewLoanService(loanRepo, paymentRepo, redisClient, cfg, logger)
	loanHandler := handler.NewLoanHandler(loanService, logger)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	router := setupRoutes(loanHandler, healthHandler, logger)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() || cfg.Logging.Format == "json" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(loanHandler *handler.LoanHandler, healthHandler *handler.HealthHandler, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware(logger))

	// Health checks
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/loans", loanHandler.CreateLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}", loanHandler.GetLoan).Methods("GET")
	api.HandleFunc("/loans/{loanId}/disburse", loanHandler.Disburse).Methods("POST")
	api.HandleFunc("/loans/{loanId}/cancel", loanHandler.Cancel).Methods("POST")
	api.HandleFunc("/loans/{loanId}/payment", loanHandler.RecordPayment).Methods("POST")
	api.HandleFunc("/loans/{loanId}/schedule", loanHandler.GetSchedule).Methods("GET")
	api.HandleFunc("/loans/{loanId}/outstanding", loanHandler.GetOutstanding).Methods("GET")
	api.HandleFunc("/loans/{loanId}/evaluate-overdue", loanHandler.EvaluateOverdue).Methods("POST")

	return router
}
