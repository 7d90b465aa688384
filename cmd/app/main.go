package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"nextvault/configs"
	"nextvault/internal/adapter/chain"
	"nextvault/internal/cache/redis"
	"nextvault/internal/database"
	delivery "nextvault/internal/delivery/http"
	"nextvault/internal/domain"
	"nextvault/internal/infra"
	"nextvault/internal/repository"
	"nextvault/internal/service"
	"nextvault/internal/usecase"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Load configuration
	cfg := configs.Load()

	// Initialize context
	ctx := context.Background()

	// Initialize database
	db, err := infra.NewDatabase(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run schema migrations
	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Redis
	redisClient, err := redis.New(ctx, cfg.Redis.URL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	locks := redis.NewLockManager(redisClient)
	leaderboardCache := redis.NewLeaderboardCache(redisClient)
	nonces := redis.NewNonceStore(redisClient)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	strategyRepo := repository.NewStrategyRepository(db)
	positionRepo := repository.NewPositionRepository(db)
	pointsRepo := repository.NewPointsRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	// Initialize on-chain reader (optional)
	var chainReader domain.ChainReader
	if cfg.Chain.RPCURL != "" {
		reader, err := chain.NewReader(cfg.Chain.RPCURL, cfg.Chain.VaultToken, cfg.Chain.LPPools)
		if err != nil {
			log.Fatalf("Failed to initialize chain reader: %v", err)
		}
		chainReader = reader
		log.Println("[OK] On-chain balance reads enabled")
	} else {
		log.Println("WARNING: CHAIN_RPC_URL not set, on-chain balance reads disabled")
	}

	// Initialize services
	pointsService := service.NewPointsService(pointsRepo, userRepo, leaderboardCache)
	compoundService := service.NewCompoundService(
		positionRepo,
		strategyRepo,
		pointsRepo,
		activityRepo,
		locks,
		leaderboardCache,
	)
	vaultService := usecase.NewVaultService(
		positionRepo,
		strategyRepo,
		userRepo,
		activityRepo,
		pointsService,
		chainReader,
	)

	// Initialize compound sweep scheduler
	scheduler := infra.NewScheduler(compoundService, cfg.Sweep.CronSpec)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	// Initialize handlers
	authHandler := delivery.NewAuthHandler(userRepo, pointsService, nonces, activityRepo)
	userHandler := delivery.NewUserHandler(userRepo, vaultService)
	vaultHandler := delivery.NewVaultHandler(vaultService, strategyRepo)
	pointsHandler := delivery.NewPointsHandler(pointsService)
	adminHandler := delivery.NewAdminHandler(strategyRepo, statsRepo, compoundService)

	// Initialize HTTP server
	e := echo.New()
	e.HideBanner = true

	delivery.SetupRoutes(e, &delivery.RouterConfig{
		AuthHandler:   authHandler,
		UserHandler:   userHandler,
		VaultHandler:  vaultHandler,
		PointsHandler: pointsHandler,
		AdminHandler:  adminHandler,
	})

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("NextVault API starting on %s", addr)
	log.Printf("Environment: %s", cfg.Server.Env)

	// Run server in goroutine
	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("[OK] Server exited gracefully")
}
