package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Ruhan456/Natural-Disaster-Severity-Mapping/internal/auth"
	"github.com/Ruhan456/Natural-Disaster-Severity-Mapping/internal/classifier"
	"github.com/Ruhan456/Natural-Disaster-Severity-Mapping/internal/config"
	"github.com/Ruhan456/Natural-Disaster-Severity-Mapping/internal/handlers"
	"github.com/Ruhan456/Natural-Disaster-Severity-Mapping/internal/logging"
	"github.com/Ruhan456/Natural-Disaster-Severity-Mapping/internal/repository"
	"github.com/Ruhan456/Natural-Disaster-Severity-Mapping/internal/usecase"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger(cfg.Logging.Level)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db := initDatabase(ctx, cfg.Database.DSN, logger)
	disasters := repository.NewDisasterRepository(db)
	users := repository.NewUserRepository(db)
	if err := disasters.AutoMigrate(ctx); err != nil {
		logger.Fatal("disaster schema migration failed", zap.Error(err))
	}
	if err := users.AutoMigrate(ctx); err != nil {
		logger.Fatal("user schema migration failed", zap.Error(err))
	}

	redisCtx, redisCancel := context.WithTimeout(ctx, 5*time.Second)
	defer redisCancel()
	redisClient := initRedis(redisCtx, cfg.Redis.Addr, logger)

	// The process must not accept inference traffic without a loaded model.
	model, err := classifier.LoadModel(cfg.Model.Path)
	if err != nil {
		logger.Fatal("failed to load model artifact", zap.Error(err), zap.String("path", cfg.Model.Path))
	}
	logger.Info("model loaded", zap.String("path", cfg.Model.Path), zap.Strings("labels", model.Labels()))

	cache := usecase.NewRedisCache(redisClient)
	reports := usecase.NewReportUseCase(disasters, cache, model, logger)
	accounts := usecase.NewAccountUseCase(users, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
	}))
	router.Use(handlers.RateLimitMiddleware(cfg.Server.RateLimitRPS))
	router.MaxMultipartMemory = handlers.MaxUploadSize

	var authRequired gin.HandlerFunc
	if cfg.Auth.Required {
		authRequired = auth.JWTMiddleware(cfg.Auth.JWTSecret)
	}
	handlers.NewHandler(reports, accounts).RegisterRoutes(router, authRequired)

	server := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: router,
	}

	logger.Info("disaster map API listening", zap.String("addr", server.Addr))
	if err := serveHTTPServer(server, 15*time.Second, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func initDatabase(ctx context.Context, dsn string, zapLogger *zap.Logger) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		zapLogger.Fatal("failed to connect to database", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		zapLogger.Fatal("failed to access db handle", zap.Error(err))
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.PingContext(ctx); err != nil {
		zapLogger.Fatal("database ping failed", zap.Error(err))
	}

	return db
}

func initRedis(ctx context.Context, addr string, zapLogger *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	return client
}

func serveHTTPServer(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	return serveHTTPServerWithOptions(server, shutdownTimeout, logger, nil, nil)
}

func serveHTTPServerWithOptions(server *http.Server, shutdownTimeout time.Duration, logger *zap.Logger, listener net.Listener, signalCh <-chan os.Signal) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if listener != nil {
			err = server.Serve(listener)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errCh <- err
	}()

	var (
		sigCh       <-chan os.Signal
		stopSignals func()
	)

	if signalCh != nil {
		sigCh = signalCh
		stopSignals = func() {}
	} else {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		sigCh = ch
		stopSignals = func() {
			signal.Stop(ch)
		}
	}
	defer stopSignals()

	select {
	case err := <-errCh:
		return err
	case sig, ok := <-sigCh:
		if !ok {
			return <-errCh
		}
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return <-errCh
	}
}
