package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dewmini3/CakeCustomizing/config"
	"github.com/dewmini3/CakeCustomizing/internal/api"
	"github.com/dewmini3/CakeCustomizing/internal/broker"
	"github.com/dewmini3/CakeCustomizing/internal/media"
	"github.com/dewmini3/CakeCustomizing/internal/redisclient"
	"github.com/dewmini3/CakeCustomizing/internal/seed"
	"github.com/dewmini3/CakeCustomizing/internal/service"
	"github.com/dewmini3/CakeCustomizing/internal/store"
	"github.com/dewmini3/CakeCustomizing/internal/util"
	"github.com/dewmini3/CakeCustomizing/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting cake shop service")

	tp, err := util.InitTracer("cake-shop", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 15*time.Second)
	db, err := store.Open(connectCtx, store.Options{
		Driver:      cfg.Store.Driver,
		MongoURL:    cfg.Store.MongoURL,
		MongoDB:     cfg.Store.MongoDB,
		PostgresURL: cfg.Store.PostgresURL,
	})
	connectCancel()
	if err != nil {
		logger.Fatal("Failed to connect to document store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Close(ctx); err != nil {
			logger.Warn("Error closing document store", zap.Error(err))
		}
	}()
	logger.Info("Document store connected", zap.String("driver", cfg.Store.Driver))

	var locker service.Locker = service.NewLocalLocker()
	var idempotency api.IdempotencyStore
	if cfg.Redis.Addr != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.LockTTL, cfg.Redis.LockWait)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		locker = redisClient
		idempotency = redisClient
		logger.Info("Redis connected, using distributed locks and idempotency keys")
	} else {
		logger.Info("REDIS_ADDR not set, using process-local locks")
	}

	publisher, subscriber, err := openEvents(cfg.Events)
	if err != nil {
		logger.Fatal("Failed to initialize event transport", zap.String("driver", cfg.Events.Driver), zap.Error(err))
	}
	eventPublisher := broker.NewEventPublisher(publisher)
	defer eventPublisher.Close()

	seq := service.NewSequenceGenerator(db)
	inventory := service.NewInventoryService(db, seq, locker, eventPublisher, service.InventoryConfig{
		EnforceFloor:      cfg.Business.EnforceStockFloor,
		LowStockThreshold: cfg.Business.LowStockThreshold,
	})
	services := api.Services{
		Inventory:  inventory,
		Options:    service.NewOptionService(db, seq, inventory, locker, eventPublisher),
		Customizes: service.NewCustomizeService(db, seq, locker, eventPublisher),
		Products: service.NewProductService(db, seq, inventory, locker, eventPublisher, service.ProductConfig{
			ReconcileInventory: cfg.Business.ReconcileInventory,
		}),
		Orders:   service.NewOrderService(db, seq, locker, eventPublisher),
		Feedback: service.NewFeedbackService(db, seq, eventPublisher),
	}

	if cfg.Business.SeedFile != "" {
		catalog, err := seed.Load(cfg.Business.SeedFile)
		if err != nil {
			logger.Fatal("Failed to load seed catalog", zap.Error(err))
		}
		if _, err := seed.Apply(context.Background(), catalog, inventory, services.Options); err != nil {
			logger.Fatal("Failed to seed catalog", zap.Error(err))
		}
	}

	images, err := media.NewLocalStorage(cfg.Business.UploadDir, cfg.Business.PublicUploadPath)
	if err != nil {
		logger.Fatal("Failed to initialize image storage", zap.Error(err))
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Static(cfg.Business.PublicUploadPath, images.Dir())
	handler := api.NewHandler(services, images, db, idempotency, api.Config{
		RequestTimeout: cfg.Business.RequestTimeout,
		IdempotencyTTL: cfg.Redis.IdempotencyTTL,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Server forced to shutdown", zap.Error(err))
		}
		return nil
	})

	if subscriber != nil {
		eventWorker := worker.NewEventWorker(subscriber,
			worker.NewFeedbackWorker(worker.NewLogNotifier()),
			worker.NewStockWorker())

		g.Go(func() error {
			err := eventWorker.Start(gctx)
			if stopErr := eventWorker.Stop(); stopErr != nil {
				logger.Warn("Error stopping event worker", zap.Error(stopErr))
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("event worker: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Service stopped with error", zap.Error(err))
	}

	logger.Info("Server exited")
}

// openEvents builds the publisher and, when the transport can deliver events
// back to us, the subscriber that feeds the workers
func openEvents(cfg config.EventsConfig) (broker.Publisher, broker.Subscriber, error) {
	switch cfg.Driver {
	case "kafka":
		return broker.NewProducer(cfg.KafkaBrokers, cfg.Topic),
			broker.NewConsumer(cfg.KafkaBrokers, cfg.Topic, cfg.ConsumerGroup), nil
	case "nats":
		pub, err := broker.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return nil, nil, err
		}
		sub, err := broker.NewNATSSubscriber(cfg.NATSURL, cfg.NATSSubject, cfg.NATSQueue)
		if err != nil {
			pub.Close()
			return nil, nil, err
		}
		return pub, sub, nil
	case "none", "":
		return broker.NewLogPublisher(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported events driver %q", cfg.Driver)
	}
}
