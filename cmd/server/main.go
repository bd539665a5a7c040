// cmd/server/main.go - Civic Reports Backend Server
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"civic-reports/internal/config"
	"civic-reports/internal/database"
	"civic-reports/internal/handlers"
	"civic-reports/internal/middleware"
	"civic-reports/internal/realtime"
	"civic-reports/internal/repository"
	"civic-reports/internal/services"
	"civic-reports/pkg/auth"
	"civic-reports/pkg/logger"
)

var (
	// Версія застосунку, підставляється через -ldflags
	appVersion = "1.0.0"
	buildTime  = "unknown"
	gitCommit  = "unknown"
)

// Токени видає зовнішній сервіс ідентифікації, тут вони лише перевіряються
const tokenTTL = 24 * time.Hour

type stores struct {
	reports       repository.ReportStore
	notifications repository.NotificationStore
	users         repository.UserStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel, cfg.Env); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.WithModule("main")

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	printStartupInfo(log, cfg)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	health := map[string]handlers.Pinger{}

	st, closeStore, err := openStores(ctx, cfg, health)
	if err != nil {
		log.Fatal("Failed to open storage", zap.Error(err))
	}
	defer closeStore()

	hub := realtime.NewHub()
	go hub.Run(ctx)

	var publisher services.Publisher = hub
	if cfg.RedisEnabled {
		rdb := database.NewRedis(cfg)
		defer rdb.Close()
		if err := rdb.Ping(ctx); err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		health["redis"] = rdb
		publisher = realtime.NewRedisPublisher(rdb.Client)

		relay := realtime.NewRelay(rdb.Client, hub)
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.Error("Notification relay stopped", zap.Error(err))
			}
		}()
	}

	notificationService := services.NewNotificationService(st.notifications, st.users, publisher)
	reportService := services.NewReportService(st.reports, st.users, notificationService)

	var limiter *middleware.RateLimiter
	if cfg.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
		defer limiter.Stop()
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Config:        cfg,
		JWTManager:    auth.NewJWTManager(cfg.JWTSecret, tokenTTL),
		Reports:       reportService,
		Notifications: notificationService,
		Hub:           hub,
		RateLimiter:   limiter,
		Health:        health,
		Version:       appVersion,
	})

	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	go func() {
		log.Info("Server starting",
			zap.String("addr", srv.Addr),
			zap.String("websocket", fmt.Sprintf("ws://%s/ws", srv.Addr)),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("Server forced to shutdown", zap.Error(err))
	} else {
		log.Info("Server gracefully stopped")
	}

	// Зупинка хаба закриває всі websocket-з'єднання
	stop()
	log.Info("Civic Reports Backend exited")
}

// openStores обирає сховище за STORAGE_DRIVER.
func openStores(ctx context.Context, cfg *config.Config, health map[string]handlers.Pinger) (*stores, func(), error) {
	log := logger.WithModule("main")

	if cfg.StorageDriver == config.StorageMemory {
		log.Warn("Using in-memory storage, data is lost on restart")
		mem := repository.NewMemoryStore()
		return &stores{
			reports:       mem.Reports(),
			notifications: mem.Notifications(),
			users:         mem.Users(),
		}, func() {}, nil
	}

	db, err := database.NewMongoDB(cfg)
	if err != nil {
		return nil, nil, err
	}

	indexCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.MongoTimeout)*time.Second)
	defer cancel()
	if err := db.CreateIndexes(indexCtx); err != nil {
		log.Warn("Failed to create some indexes", zap.Error(err))
	}

	health["mongodb"] = db
	closeFn := func() {
		if err := db.Close(); err != nil {
			log.Warn("Error disconnecting from MongoDB", zap.Error(err))
		}
	}

	return &stores{
		reports:       repository.NewMongoReportStore(db.Reports()),
		notifications: repository.NewMongoNotificationStore(db.Notifications()),
		users:         repository.NewMongoUserStore(db.Users()),
	}, closeFn, nil
}

func printStartupInfo(log *zap.Logger, cfg *config.Config) {
	fields := []zap.Field{
		zap.String("version", appVersion),
		zap.String("build", buildTime),
		zap.String("commit", gitCommit),
		zap.String("env", cfg.Env),
		zap.String("host", cfg.Host),
		zap.String("port", cfg.Port),
		zap.String("storage", cfg.StorageDriver),
		zap.Strings("cors_origins", cfg.AllowedOrigins),
		zap.Bool("redis", cfg.RedisEnabled),
	}
	if cfg.StorageDriver == config.StorageMongo {
		fields = append(fields, zap.String("database", cfg.DatabaseName))
	}
	if cfg.RateLimitEnabled {
		fields = append(fields,
			zap.Int("rate_limit_requests", cfg.RateLimitRequests),
			zap.Duration("rate_limit_window", cfg.RateLimitWindow),
		)
	}
	log.Info("Civic Reports Backend Server", fields...)
}
