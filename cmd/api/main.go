package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/catalog"
	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/config"
	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/dashboard"
	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/httpx"
	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/inventory"
	kafkax "github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/kafka"
	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/metrics"
	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/orders"
	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/postgres"
	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/realtime"
	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("service", cfg.ServiceName), zap.String("instance", cfg.InstanceID))

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Metrics
	reg := metrics.NewRegistry()

	// Event fan-out: local registry + kafka bridge to the other instances
	prod := kafkax.NewProducer(cfg.KafkaBrokers, realtime.TopicEvents, 1024, logger)
	prod.Start(ctx)

	registry := realtime.NewRegistry()
	router := &realtime.Router{
		Registry: registry,
		Bridge:   prod,
		Origin:   cfg.InstanceID,
		Log:      logger,
		Metrics:  reg,
	}

	// every instance consumes the whole topic under its own group
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, "realtime-"+cfg.InstanceID, realtime.TopicEvents, cfg.EventWorkers, logger)
	go func() {
		if err := cons.Start(ctx, router.HandleBridge); err != nil {
			logger.Error("event bridge consumer exited", zap.Error(err))
			cancel()
		}
	}()

	// Repos & services
	catalogRepo := &catalog.Repo{DB: db}
	inventoryRepo := &inventory.Repo{DB: db, Log: logger, Metrics: reg}
	orderRepo := &orders.Repo{DB: db}
	coordinator := &orders.Coordinator{
		Stock:             inventoryRepo,
		Products:          catalogRepo,
		Orders:            orderRepo,
		Router:            router,
		Log:               logger,
		Metrics:           reg,
		Origin:            cfg.InstanceID,
		LowStockThreshold: cfg.LowStockThreshold,
		StoreTimeout:      cfg.StoreTimeout,
	}
	dash := &dashboard.Aggregator{DB: db, Redis: rdb, Log: logger, LowStockThreshold: cfg.LowStockThreshold}

	// HTTP
	mux := httpx.NewRouter()
	(&httpx.OrdersHandler{Coordinator: coordinator, Repo: orderRepo, Redis: rdb, Log: logger}).Register(mux)
	(&httpx.ProductsHandler{
		Catalog:           catalogRepo,
		Inventory:         inventoryRepo,
		Router:            router,
		Log:               logger,
		Origin:            cfg.InstanceID,
		LowStockThreshold: cfg.LowStockThreshold,
	}).Register(mux)
	(&httpx.AdminHandler{Dash: dash, Catalog: catalogRepo, Inventory: inventoryRepo, Log: logger}).Register(mux)
	mux.Get("/ws", httpx.WSRoute(&realtime.WSHandler{Registry: registry, Log: logger, Metrics: reg}))
	mux.Handle("/metrics", reg.Handler())

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}

	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close() // stop intake, flush queued events
	cancel()     // stop producer loop and bridge consumer
	prod.WaitClosed()
}
