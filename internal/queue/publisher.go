package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ResetPublisher satisfies service.ResetNotifier by handing the secret to
// the mail worker over RabbitMQ.
type ResetPublisher struct {
	url string
	ttl time.Duration
	log *slog.Logger
	now func() time.Time
}

// NewResetPublisher returns a publisher for the broker at url. Messages
// expire after ttl, the lifetime of the secret they carry.
func NewResetPublisher(url string, ttl time.Duration, log *slog.Logger) *ResetPublisher {
	return &ResetPublisher{url: url, ttl: ttl, log: log, now: time.Now}
}

func (p *ResetPublisher) NotifyReset(ctx context.Context, email, secret string) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.WarnContext(ctx, "rabbitmq dial failed", "error", err)
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declareResetQueue(ch); err != nil {
		return err
	}
	pub, err := p.publishing(email, secret)
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(ctx, "", ResetQueueName, false, false, pub); err != nil {
		p.log.WarnContext(ctx, "rabbitmq publish failed", "error", err)
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (p *ResetPublisher) publishing(email, secret string) (amqp.Publishing, error) {
	now := p.now().UTC()
	body, err := json.Marshal(PasswordResetRequested{Email: email, Secret: secret, RequestedAt: now})
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Transient,
		Timestamp:    now,
		Body:         body,
	}
	if p.ttl > 0 {
		pub.Expiration = strconv.FormatInt(p.ttl.Milliseconds(), 10)
	}
	return pub, nil
}

// declareResetQueue is idempotent. The queue is durable so the mail worker
// survives restarts; the messages themselves are not.
func declareResetQueue(ch *amqp.Channel) error {
	if _, err := ch.QueueDeclare(ResetQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	return nil
}
