package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"gigfinder-ticketing/config"
	"gigfinder-ticketing/internal/cache"
	"gigfinder-ticketing/internal/credential"
	"gigfinder-ticketing/internal/database"
	"gigfinder-ticketing/internal/handler"
	"gigfinder-ticketing/internal/inventory"
	"gigfinder-ticketing/internal/notification"
	"gigfinder-ticketing/internal/payment"
	"gigfinder-ticketing/internal/queue"
	"gigfinder-ticketing/internal/repository"
	"gigfinder-ticketing/internal/service"
	"gigfinder-ticketing/internal/worker"
	"gigfinder-ticketing/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.LoadConfig()
	logger.SetLevel(cfg.Server.LogLevel)
	log := logger.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}

	// 記憶體隊列時 Redis 可有可無，只是少了可用量快取
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		if cfg.Queue.Driver != "memory" {
			log.Fatal("Failed to initialize redis", zap.Error(err))
		}
		log.Warn("Redis unavailable, running without availability cache", zap.Error(err))
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	notificationQueue, err := newNotificationQueue(ctx, cfg, rdb)
	if err != nil {
		log.Fatal("Failed to initialize notification queue", zap.Error(err))
	}

	var availabilityCache cache.AvailabilityCache
	if rdb != nil {
		availabilityCache = cache.NewRedisAvailabilityCache(rdb)
	}

	tx := database.NewTransactor(pool)
	eventRepo := repository.NewEventRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	ledger := inventory.NewLedger(eventRepo, availabilityCache, cfg.Booking)
	issuer := credential.NewIssuer(cfg.Booking.CredentialNamespace)
	processor := payment.NewStripeProcessor(cfg.Stripe)

	bookingService := service.NewBookingService(tx, eventRepo, bookingRepo, ledger, issuer, notificationQueue, cfg.Booking)
	reconciliationService := service.NewReconciliationService(eventRepo, bookingService, processor, cfg.Booking)
	redemptionService := service.NewRedemptionService(tx, bookingRepo, issuer)
	refundService := service.NewRefundService(tx, eventRepo, bookingRepo, ledger, processor, notificationQueue, cfg.Booking)

	var sender notification.Sender = notification.NewLogSender()
	if cfg.Mail.Enabled {
		sender = notification.NewSMTPSender(cfg.Mail)
	}
	notificationWorker := worker.NewNotificationWorker(
		notificationQueue,
		bookingRepo,
		eventRepo,
		notification.NewComposer(issuer, cfg.Booking.Currency),
		sender,
		cfg.Queue.Workers,
	)

	if cfg.Server.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(cfg.Auth.JWTSecret,
		handler.NewBookingHandler(bookingService),
		handler.NewCheckoutHandler(reconciliationService),
		handler.NewWebhookHandler(reconciliationService),
		handler.NewScanHandler(redemptionService),
		handler.NewRefundHandler(refundService),
	)
	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return notificationWorker.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server stopped with error", zap.Error(err))
	}
	_ = logger.L.Sync()
}

func newNotificationQueue(ctx context.Context, cfg *config.Config, rdb *redis.Client) (queue.NotificationQueue, error) {
	if cfg.Queue.Driver == "memory" {
		return queue.NewMemoryNotificationQueue(cfg.Queue.BufferSize), nil
	}
	return queue.NewRedisStreamNotificationQueue(ctx, rdb, cfg.Queue.ConsumerID, nil)
}
