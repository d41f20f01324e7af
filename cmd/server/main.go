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

	"storefront-engine/config"
	"storefront-engine/internal/api"
	"storefront-engine/internal/broker"
	"storefront-engine/internal/cart"
	"storefront-engine/internal/catalog"
	"storefront-engine/internal/checkout"
	"storefront-engine/internal/ledger"
	"storefront-engine/internal/recordstore"
	"storefront-engine/internal/users"
	"storefront-engine/internal/util"
	"storefront-engine/internal/worker"

	"github.com/gin-gonic/gin"
)

func newRecordStore(cfg *config.Config) (recordstore.Store, func(), error) {
	switch cfg.Data.Backend {
	case "file":
		return recordstore.NewFileStore(cfg.Data.Dir), func() {}, nil
	case "memory":
		return recordstore.NewMemoryStore(), func() {}, nil
	case "redis":
		s, err := recordstore.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "postgres":
		s, err := recordstore.NewPostgresStore(cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown data backend %q", cfg.Data.Backend)
	}
}

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront engine")

	tp, err := util.InitTracer("storefront-engine", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	store, closeStore, err := newRecordStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize record store: %v", err)
	}
	defer closeStore()
	log.Printf("Record store ready: backend=%s", cfg.Data.Backend)

	ctx := context.Background()

	cat, err := catalog.New(ctx, store)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	led, err := ledger.New(ctx, store)
	if err != nil {
		log.Fatalf("Failed to load order ledger: %v", err)
	}

	userSvc, err := users.New(ctx, store)
	if err != nil {
		log.Fatalf("Failed to load user registry: %v", err)
	}

	carts := cart.NewStore(cat)

	var events checkout.EventPublisher
	var auditWorker *worker.AuditWorker
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
		defer producer.Close()
		events = broker.NewEventPublisher(producer)
		log.Println("Kafka producer initialized")

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
		auditWorker = worker.NewAuditWorker(consumer)
		go func() {
			if err := auditWorker.Start(workerCtx); err != nil {
				log.Printf("Audit worker error: %v", err)
			}
		}()
	}

	checkoutSvc := checkout.NewService(cat, carts, led, events)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(cat, carts, checkoutSvc, led, userSvc)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	if auditWorker != nil {
		auditWorker.Stop()
	}

	log.Println("Server exited")
}
