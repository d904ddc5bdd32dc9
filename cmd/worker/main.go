package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tourpack-service/config"
	"tourpack-service/internal/app"
	"tourpack-service/internal/broker"
	"tourpack-service/internal/service"
	"tourpack-service/internal/util"
	"tourpack-service/internal/worker"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	if err := util.InitLogger("tourpack-worker", cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting notification worker")

	if !cfg.Kafka.Enabled {
		logger.Fatal("KAFKA_ENABLED is false, nothing to consume")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	db, err := app.OpenStore(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicBooking, cfg.Kafka.ConsumerGroup)
	notifications := service.NewNotificationService(db, service.NewLogNotifier())
	w := worker.NewNotificationWorker(consumer, notifications)

	if err := w.Start(ctx); err != nil && ctx.Err() == nil {
		logger.Error("Notification worker stopped", zap.Error(err))
	}
	if err := w.Stop(); err != nil {
		logger.Warn("Failed to close consumer", zap.Error(err))
	}
	logger.Info("Worker exited")
}
