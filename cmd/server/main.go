package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"consultations/config"
	_ "consultations/docs"
	"consultations/internal/adapters/auth"
	"consultations/internal/adapters/queue"
	"consultations/internal/adapters/ratelimit"
	"consultations/internal/app"
	deliveryhttp "consultations/internal/delivery/http"
	"consultations/internal/delivery/http/controllers"
	"consultations/internal/domain"
	"consultations/internal/repository/postgres"
	"consultations/internal/services"
)

// @title Consultations API
// @version 1.0
// @description Booking of university consultation slots: slots, reservations and notifications.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := config.NewLogger(cfg.Environment, "server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := postgres.Open(ctx, cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()

	broker, err := queue.Dial(queue.Config{
		URL:      cfg.Queue.URL,
		Exchange: cfg.Queue.Exchange,
		Queue:    cfg.Queue.Queue,
	}, logger)
	if err != nil {
		return err
	}
	defer broker.Close()

	clock := domain.SystemClock{}
	policy := domain.LifecyclePolicy{
		ExpiryAfter:  cfg.Reservation.ExpiryAfter,
		CancelCutoff: cfg.Reservation.CancelCutoff,
	}

	uow := postgres.NewUnitOfWork(db, logger)
	slotRepo := postgres.NewSlotRepository(db)
	reservationRepo := postgres.NewReservationRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	directory := postgres.NewUserDirectory(db)

	slotService := services.NewSlotService(uow, slotRepo, reservationRepo, clock, cfg.RequestTimeout)
	reservationService := services.NewReservationService(uow, slotRepo, reservationRepo, clock, policy, logger, cfg.RequestTimeout)
	notificationService := services.NewNotificationService(notificationRepo, cfg.RequestTimeout)

	dispatcher := services.NewDispatcher(slotRepo, reservationRepo, directory, services.DispatcherConfig{
		SMSEnabled:  cfg.SMS.Enabled,
		ExpiryAfter: cfg.Reservation.ExpiryAfter,
	}, logger)
	relay := app.NewRelay(uow, dispatcher, broker, clock, app.RelayConfig{
		PollInterval: cfg.Jobs.OutboxPollInterval,
		BatchSize:    cfg.Jobs.OutboxBatchSize,
	}, logger)

	deps := deliveryhttp.RouterDeps{
		Slots:         controllers.NewSlotController(logger, slotService),
		Reservations:  controllers.NewReservationController(logger, reservationService),
		Notifications: controllers.NewNotificationController(logger, notificationService),
		Verifier:      auth.NewJWTVerifier(cfg.JWTSecret),
		Logger:        logger,
	}
	if limiter := newLimiter(cfg, logger); limiter != nil {
		deps.Limiter = limiter
	}
	mux := deliveryhttp.NewRouter(deps)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           deliveryhttp.NewHandler(mux, cfg.CORSOrigins, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server", "addr", srv.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return relay.Run(ctx)
	})
	return g.Wait()
}

// newLimiter returns nil when rate limiting is disabled or Redis is unreachable.
func newLimiter(cfg *config.Config, logger *slog.Logger) *ratelimit.TokenBucket {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	rdb, err := config.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Warn("rate limiting disabled", "err", err)
		return nil
	}
	return ratelimit.NewTokenBucket(rdb, ratelimit.Config{
		Enabled:        true,
		Capacity:       cfg.RateLimit.Capacity,
		RefillTokens:   cfg.RateLimit.RefillTokens,
		RefillInterval: cfg.RateLimit.RefillInterval,
		TTL:            cfg.RateLimit.TTL,
		Prefix:         cfg.RateLimit.Prefix,
	})
}
