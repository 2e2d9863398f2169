package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-service/config"
	"storefront-service/internal/cache"
	"storefront-service/internal/cleanup"
	"storefront-service/internal/database"
	"storefront-service/internal/hashing"
	"storefront-service/internal/logger"
	"storefront-service/internal/producer"
	"storefront-service/internal/repository"
	"storefront-service/internal/service"
	"storefront-service/internal/session"
	"storefront-service/internal/storage"
	"storefront-service/internal/token"
	htransport "storefront-service/internal/transport/http"

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

	repos := repository.New(db)

	var redisClient *cache.RedisClient
	if cfg.Redis.Enabled {
		var err error
		redisClient, err = cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err != nil {
			log.Fatal("failed to create redis client", zap.Error(err))
		}
		defer redisClient.Close()
		log.Info("Redis cache enabled")
	} else {
		log.Info("Redis cache disabled")
	}

	// Корзины: redis если доступен, иначе память процесса
	var carts session.Store
	var memCarts *session.MemoryStore
	if redisClient != nil {
		carts = session.NewRedisStore(redisClient, cfg.Site.CartTTL, log)
	} else {
		memCarts = session.NewMemoryStore(log)
		carts = memCarts
	}

	hasher := hashing.NewBcrypt(0)
	tokens := token.NewHSProvider(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience)

	var emailProducer *producer.EmailProducer
	var orderProducer *producer.OrderProducer
	if cfg.Kafka.Enabled {
		emailProducer = producer.NewEmailProducer(cfg.Kafka.Brokers, cfg.Kafka.EmailTopic)
		defer emailProducer.Close()
		orderProducer = producer.NewOrderProducer(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic)
		defer orderProducer.Close()
		log.Info("Kafka producers enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	} else {
		log.Info("Kafka producers disabled")
	}

	var objStorage service.ObjectStorage
	switch cfg.Storage.Backend {
	case "gcs":
		gcs, err := storage.NewGCSStorage(context.Background(), cfg.Storage.Bucket)
		if err != nil {
			log.Fatal("failed to init GCS storage", zap.Error(err))
		}
		defer gcs.Close()
		objStorage = gcs
		log.Info("GCS storage enabled", zap.String("bucket", cfg.Storage.Bucket))
	default:
		fs, err := storage.NewFSStorage(cfg.Storage.Dir, cfg.Storage.BaseURL)
		if err != nil {
			log.Fatal("failed to init local storage", zap.Error(err))
		}
		objStorage = fs
		log.Info("local storage enabled", zap.String("dir", cfg.Storage.Dir))
	}

	var cacheClient service.CacheClient
	if redisClient != nil {
		cacheClient = redisClient
	}
	var emails service.EmailProducer
	if emailProducer != nil {
		emails = emailProducer
	}
	var orderEvents service.OrderEventBus
	if orderProducer != nil {
		orderEvents = orderProducer
	}

	authSvc := service.NewAuthService(
		repos.Users, repos.RefreshTokens, repos.PasswordResets,
		hasher, tokens, cacheClient, emails,
		cfg.Admin.Emails,
		cfg.JWT.AccessExp, cfg.JWT.RefreshExp,
		log,
	)

	cartSvc := service.NewCartService(carts, log)
	catalogSvc := service.NewCatalogService(repos.Categories, repos.Products, repos.Collections, objStorage, log)
	orderSvc := service.NewOrderService(repos.Orders, cartSvc, orderEvents, log)
	settingsSvc := service.NewSettingsService(repos.Settings, cacheClient, cfg.Site.SettingsTTL, log)

	sessions := htransport.NewSessionRegistry(authSvc, carts, cfg.Admin.Emails, log)
	defer sessions.Close()

	var sweeper cleanup.CartSweeper
	if memCarts != nil {
		sweeper = memCarts
	}
	cleanupSvc := cleanup.NewCleanupService(db, sweeper, cfg.Site.CartTTL, log)
	scheduler := cleanup.NewScheduler(cleanupSvc, log)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	scheduler.Start(cleanupCtx)

	handler := htransport.NewHandler(authSvc, sessions, cartSvc, catalogSvc, orderSvc, settingsSvc, log)

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Starting HTTP server", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-quit
	log.Info("Shutting down HTTP server...")

	scheduler.Stop()
	cleanupCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}
	log.Info("HTTP server stopped gracefully")
}
