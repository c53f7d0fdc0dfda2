package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/iliyamo/blog-api/internal/config"
	"github.com/iliyamo/blog-api/internal/mail"
	"github.com/iliyamo/blog-api/internal/queue"
	"github.com/iliyamo/blog-api/internal/service"
)

// Worker is a background loop that runs until ctx is cancelled.
type Worker func(ctx context.Context) error

// ResetDelivery returns the notifier handed to PasswordResetService and,
// for the amqp transport, the worker that drains the queue and sends the
// mail. worker is nil when delivery happens inline.
func ResetDelivery(cfg config.Config, log *slog.Logger) (notifier service.ResetNotifier, worker Worker) {
	mailer := mail.NewResetMailer(directSender(cfg, log), cfg.FrontendURL, cfg.ResetTokenTTL)

	if cfg.MailTransport != config.MailAMQP {
		return mailer, nil
	}
	pub := queue.NewResetPublisher(cfg.AMQPURL, cfg.ResetTokenTTL, log)
	return pub, func(ctx context.Context) error {
		return queue.StartResetConsumer(ctx, cfg.AMQPURL, mailer, log)
	}
}

// directSender picks the transport that actually delivers mail. Behind the
// amqp transport this is SMTP when a host is configured and the log sender
// otherwise.
func directSender(cfg config.Config, log *slog.Logger) mail.Sender {
	if cfg.MailTransport == config.MailLog || cfg.SMTPHost == "" {
		return mail.NewLogSender(log)
	}
	return mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.MailFrom,
		Timeout:  10 * time.Second,
	})
}
