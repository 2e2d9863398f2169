package main

import (
	"context"
	"fmt"
	"os"

	"storefront-service/config"
	"storefront-service/internal/cleanup"
	"storefront-service/internal/database"
	"storefront-service/internal/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.L()
	cfg := config.Load(log)

	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	// корзины живут в памяти сервиса либо в redis с TTL, тут их не трогаем
	cleanupSvc := cleanup.NewCleanupService(db, nil, cfg.Site.CartTTL, log)

	ctx := context.Background()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "expired":
			log.Info("running expired tokens cleanup")
			if err := cleanupSvc.CleanupExpiredTokens(ctx); err != nil {
				log.Fatal("failed to cleanup expired tokens", zap.Error(err))
			}
		case "consumed":
			log.Info("running consumed tokens cleanup")
			if err := cleanupSvc.CleanupConsumedTokens(ctx); err != nil {
				log.Fatal("failed to cleanup consumed tokens", zap.Error(err))
			}
		case "all":
			fallthrough
		default:
			log.Info("running full cleanup")
			if err := cleanupSvc.RunFullCleanup(ctx); err != nil {
				log.Fatal("failed to run full cleanup", zap.Error(err))
			}
		}
	} else {
		fmt.Println("Usage: go run cmd/cleanup/main.go [expired|consumed|all]")
		fmt.Println("  expired  - cleanup expired tokens only")
		fmt.Println("  consumed - cleanup consumed reset codes")
		fmt.Println("  all      - run full cleanup (default)")
		os.Exit(1)
	}

	log.Info("cleanup completed successfully")
}
