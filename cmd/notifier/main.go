// Command notifier consumes notification events from RabbitMQ and sends the emails.
// It shares the API's database for recipient lookup.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"campusfest/config"
	"campusfest/internal/adapters/email"
	"campusfest/internal/adapters/queue"
	"campusfest/internal/repository/postgres"
	"campusfest/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("notifier stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DBUrl)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.EmailProvider,
		FromAddress: cfg.EmailFromAddress,
		FromName:    cfg.EmailFromName,
		SES: email.SESConfig{
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretKey,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("create mailer: %w", err)
	}
	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		return fmt.Errorf("load email templates: %w", err)
	}
	emailSvc := services.NewEmailService(postgres.NewUserRepository(db), mailer, renderer, logger)

	consumer, err := queue.NewConsumer(queue.ConsumerConfig{
		URL:      cfg.RabbitURL,
		Exchange: cfg.NotifyExchange,
		Queue:    cfg.NotifyQueue,
		Prefetch: cfg.NotifyWorkers,
	}, logger)
	if err != nil {
		return fmt.Errorf("connect notification queue: %w", err)
	}
	defer consumer.Close()

	logger.Info("notifier consuming", "queue", cfg.NotifyQueue, "exchange", cfg.NotifyExchange)
	return consumer.Run(ctx, emailSvc.Deliver)
}
