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

	"tourpack-service/config"
	"tourpack-service/internal/api"
	"tourpack-service/internal/app"
	"tourpack-service/internal/auth"
	"tourpack-service/internal/broker"
	"tourpack-service/internal/clock"
	"tourpack-service/internal/redisclient"
	"tourpack-service/internal/service"
	"tourpack-service/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger("tourpack-service", cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting tourpack service")

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal("JWT_SECRET must be set")
	}

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer("tourpack-service", cfg.Server.Env, cfg.Observ.JaegerEndpoint)
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
	}

	ctx := context.Background()

	db, err := app.OpenStore(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	var (
		spinCache service.SpinCache
		locker    service.Locker
		events    service.EventPublisher
	)

	if cfg.Redis.Enabled {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		spinCache = redisClient
		locker = redisClient
		logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
	}

	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicBooking)
		publisher := broker.NewEventPublisher(producer)
		defer publisher.Close()
		events = publisher
		logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicBooking))
	}

	gateway, err := app.NewGateway(cfg.Server.Env, cfg.Payment)
	if err != nil {
		logger.Fatal("Failed to configure payment gateway", zap.Error(err))
	}

	clk := clock.NewRealClock()
	discountService := service.NewDiscountService(db, db, events, clk)
	spinService := service.NewSpinService(db, spinCache, events, clk, service.SpinConfig{
		Cooldown: cfg.Promotion.SpinCooldown(),
		Validity: cfg.Promotion.DiscountValidity(),
	})
	packageService := service.NewPackageService(db, clk)
	bookingService := service.NewBookingService(db, db, discountService, gateway, locker, events, clk, service.BookingConfig{
		Currency:       cfg.Payment.Currency,
		ConfirmLockTTL: cfg.Business.ConfirmLockTTL(),
	})

	if cfg.Server.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(
		spinService,
		discountService,
		packageService,
		bookingService,
		auth.NewJWTVerifier(cfg.Auth.JWTSecret),
		db,
		api.Options{
			AllowOrigins:   cfg.CORS.AllowOrigins,
			RequestTimeout: cfg.Business.RequestTimeout(),
		},
	)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
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

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
