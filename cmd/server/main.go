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

	"shop-service/config"
	"shop-service/internal/api"
	"shop-service/internal/auth"
	"shop-service/internal/broker"
	"shop-service/internal/notify"
	"shop-service/internal/redisclient"
	"shop-service/internal/service"
	"shop-service/internal/store"
	"shop-service/internal/util"
	"shop-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "shop-service"

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, serviceName, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting shop service")

	tp, err := util.InitTracer(serviceName, cfg.Observ.JaegerEndpoint, cfg.Server.Env)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected")

	ctx := context.Background()
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx, "up"); err != nil {
			logger.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	if err := seedAdmin(ctx, db, cfg.Auth); err != nil {
		logger.Fatal("Failed to seed admin account", zap.Error(err))
	}

	var (
		catalogCache service.CatalogCache
		idempotency  service.IdempotencyStore
	)
	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("Redis unavailable, running without catalog cache and idempotency keys", zap.Error(err))
	} else {
		defer redisClient.Close()
		catalogCache = redisClient
		idempotency = redisClient
		logger.Info("Redis connected")
	}

	mailSender := notify.NewMailSender(cfg.Mail)
	if !mailSender.Configured() {
		logger.Warn("EMAIL_USER/EMAIL_PASS not set, order notifications will not be delivered")
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var (
		notifier           service.Notifier
		producer           *broker.Producer
		notificationWorker *worker.NotificationWorker
	)
	switch {
	case cfg.Kafka.Enabled():
		producer = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
		notifier = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
		notificationWorker = worker.NewNotificationWorker(consumer, mailSender, cfg.Business.NotifyTimeout)
		go func() {
			if err := notificationWorker.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Notification worker error", zap.Error(err))
			}
		}()
	case mailSender.Configured():
		notifier = mailSender
	}

	orderService := service.NewOrderService(db, notifier, idempotency, catalogCache, cfg.Business)
	queryService := service.NewOrderQueryService(db)
	catalogService := service.NewCatalogService(db, catalogCache, cfg.Business.CatalogCacheTTL)
	authService := auth.NewService(db, cfg.Auth)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(orderService, queryService, catalogService, authService, db)
	if redisClient != nil {
		handler.AddReadinessCheck("redis", redisClient)
	}
	if producer != nil {
		handler.AddReadinessCheck("kafka", producer)
	}
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	orderService.Wait()

	workerCancel()
	if notificationWorker != nil {
		_ = notificationWorker.Stop()
	}
	if producer != nil {
		_ = producer.Close()
	}

	logger.Info("Server exited")
}

// seedAdmin creates or refreshes the bootstrap admin account when credentials are configured
func seedAdmin(ctx context.Context, db *store.Store, cfg config.AuthConfig) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	admin, err := db.UpsertAdmin(ctx, cfg.AdminUsername, hash)
	if err != nil {
		return err
	}

	util.GetLogger().Info("Admin account ready", zap.String("username", admin.Username))
	return nil
}
