package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-order-backoffice/internal/config"
	"github.com/ariefcatur/go-order-backoffice/internal/events"
	"github.com/ariefcatur/go-order-backoffice/internal/httpx"
	kafkax "github.com/ariefcatur/go-order-backoffice/internal/kafka"
	"github.com/ariefcatur/go-order-backoffice/internal/postgres"
	"github.com/ariefcatur/go-order-backoffice/internal/redisx"
	"github.com/ariefcatur/go-order-backoffice/internal/reservation"
	pgstore "github.com/ariefcatur/go-order-backoffice/internal/store/postgres"
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

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers: satu per topic
	pub := &httpx.Publishers{
		ItemAdded:   kafkax.NewProducer(cfg.KafkaBrokers, events.TopicItemAdded, 1024, log),
		ItemUpdated: kafkax.NewProducer(cfg.KafkaBrokers, events.TopicItemUpdated, 1024, log),
		ItemRemoved: kafkax.NewProducer(cfg.KafkaBrokers, events.TopicItemRemoved, 1024, log),
		OrderTotal:  kafkax.NewProducer(cfg.KafkaBrokers, events.TopicOrderTotal, 1024, log),
	}
	producers := []*kafkax.Producer{pub.ItemAdded, pub.ItemUpdated, pub.ItemRemoved, pub.OrderTotal}
	for _, p := range producers {
		p.Start(ctx)
	}

	// Store, engine, handlers
	store := pgstore.NewStore(db)
	engine := reservation.NewEngine(store, log)
	rec := reservation.NewReconciler(store, log)

	router := httpx.NewRouter()
	ih := &httpx.ItemsHandler{
		Engine:     engine,
		Reconciler: rec,
		Pub:        pub,
		Redis:      rdb,
		Service:    cfg.ServiceName,
	}
	ih.Register(router)
	oh := &httpx.OrdersHandler{Store: store, Redis: rdb}
	oh.Register(router)
	ph := &httpx.ProductsHandler{Store: store}
	ph.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	for _, p := range producers {
		p.Close() // tutup inbox -> flush & close writer
	}
	cancel() // stop producer loops
	for _, p := range producers {
		p.WaitClosed() // drain
	}
}
