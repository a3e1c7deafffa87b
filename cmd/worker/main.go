package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"consultations/config"
	"consultations/internal/adapters/email"
	"consultations/internal/adapters/queue"
	"consultations/internal/adapters/sms"
	"consultations/internal/app"
	"consultations/internal/domain"
	"consultations/internal/repository/postgres"
	"consultations/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := config.NewLogger(cfg.Environment, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("worker stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := postgres.Open(ctx, cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()

	queueConfig := queue.Config{
		URL:         cfg.Queue.URL,
		Exchange:    cfg.Queue.Exchange,
		Queue:       cfg.Queue.Queue,
		Prefetch:    cfg.Queue.Prefetch,
		Concurrency: cfg.Queue.Concurrency,
	}
	// The publisher re-arms auto_reject jobs delivered before they are due.
	broker, err := queue.Dial(queueConfig, logger)
	if err != nil {
		return err
	}
	defer broker.Close()

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Mail.Provider,
		FromAddress: cfg.Mail.FromAddress,
		FromName:    cfg.Mail.FromName,
		SES: email.SESConfig{
			Region:             cfg.AWS.Region,
			AccessKeyID:        cfg.AWS.AccessKeyID,
			SecretAccessKey:    cfg.AWS.SecretAccessKey,
			InsecureSkipVerify: cfg.AWS.InsecureSkipVerify,
		},
	}, logger)
	if err != nil {
		return err
	}
	smsSender := sms.NewSender(sms.SenderConfig{
		Provider: cfg.SMS.Provider,
		SenderID: cfg.SMS.SenderID,
		SNS: sms.SNSConfig{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
		},
	}, logger)

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

	reservationService := services.NewReservationService(uow, slotRepo, reservationRepo, clock, policy, logger, cfg.RequestTimeout)
	emailService := services.NewEmailService(mailer, email.NewTemplateRenderer(), logger)

	handler := services.NewJobHandler(services.JobHandlerDeps{
		Reservations:     reservationService,
		ReservationRepo:  reservationRepo,
		SlotRepo:         slotRepo,
		NotificationRepo: notificationRepo,
		Directory:        directory,
		Emails:           emailService,
		SMS:              smsSender,
		Queue:            broker,
		Clock:            clock,
		Logger:           logger,
	})

	workerConfig := app.DefaultWorkerConfig()
	if cfg.Jobs.MaxAttempts > 0 {
		workerConfig.MaxAttempts = cfg.Jobs.MaxAttempts
	}
	worker := app.NewWorker(queue.NewConsumer(queueConfig, logger), handler, workerConfig, logger)
	sweeper := app.NewSweeper(reservationRepo, reservationService, clock, app.SweeperConfig{
		Interval:    cfg.Jobs.SweepInterval,
		ExpiryAfter: cfg.Reservation.ExpiryAfter,
	}, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(ctx) })
	g.Go(func() error { return sweeper.Run(ctx) })
	return g.Wait()
}
