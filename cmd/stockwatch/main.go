package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/ariefcatur/go-order-backoffice/internal/config"
	"github.com/ariefcatur/go-order-backoffice/internal/events"
	kafkax "github.com/ariefcatur/go-order-backoffice/internal/kafka"
	"github.com/ariefcatur/go-order-backoffice/internal/redisx"
	"github.com/ariefcatur/go-order-backoffice/internal/stockwatch"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &stockwatch.Service{
		Redis:       rdb,
		Log:         log,
		Threshold:   cfg.StockAlertThreshold,
		ServiceName: cfg.ServiceName + "-stockwatch",
	}

	group := getenv("STOCKWATCH_GROUP", "stockwatch-svc")
	workers := mustAtoi(os.Getenv("STOCKWATCH_WORKERS"), "4")

	// satu consumer per topic item, handler sama
	topics := []string{events.TopicItemAdded, events.TopicItemUpdated, events.TopicItemRemoved}
	var wg sync.WaitGroup
	for _, topic := range topics {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, topic, workers, log)
		wg.Add(1)
		go func(topic string) {
			defer wg.Done()
			log.Info("stockwatch consumer started",
				zap.String("group", group),
				zap.String("topic", topic),
				zap.Int("workers", workers),
			)
			if err := cons.Start(ctx, svc.HandleItemEvent); err != nil {
				log.Error("consumer exit", zap.String("topic", topic), zap.Error(err))
				cancel()
			}
		}(topic)
	}

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down consumers...")
	cancel()
	wg.Wait()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
