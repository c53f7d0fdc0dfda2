package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Notifier delivers a reset secret, normally a *mail.ResetMailer.
type Notifier interface {
	NotifyReset(ctx context.Context, email, secret string) error
}

// StartResetConsumer connects to RabbitMQ, declares the reset queue and
// delivers every message through notifier. It reconnects with exponential
// backoff and returns only when ctx is cancelled.
func StartResetConsumer(ctx context.Context, url string, notifier Notifier, log *slog.Logger) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.WarnContext(ctx, "reset consumer: dial failed", "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, notifier, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		log.WarnContext(ctx, "reset consumer: loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, notifier Notifier, log *slog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		log.WarnContext(ctx, "reset consumer: set QoS failed", "error", err)
	}
	if err := declareResetQueue(ch); err != nil {
		return err
	}
	msgs, err := ch.Consume(ResetQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			settle(ctx, d, d.Redelivered, handleMessage(ctx, d.Body, notifier), log)
		}
	}
}

// acknowledger is the part of amqp.Delivery used to settle a message.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// settle acks or nacks a delivery. A failed delivery is requeued once; a
// second failure, or a message that can never succeed, is dropped so one bad
// address cannot spin the worker.
func settle(ctx context.Context, d acknowledger, redelivered bool, err error, log *slog.Logger) {
	if err == nil {
		_ = d.Ack(false)
		return
	}
	var poison *poisonError
	requeue := !redelivered && !errors.As(err, &poison)
	log.WarnContext(ctx, "reset consumer: handle message failed", "error", err, "requeue", requeue)
	_ = d.Nack(false, requeue)
}

type poisonError struct{ err error }

func (e *poisonError) Error() string { return e.err.Error() }
func (e *poisonError) Unwrap() error { return e.err }

func handleMessage(ctx context.Context, body []byte, notifier Notifier) error {
	var ev PasswordResetRequested
	if err := json.Unmarshal(body, &ev); err != nil {
		return &poisonError{fmt.Errorf("unmarshal: %w", err)}
	}
	if ev.Email == "" || ev.Secret == "" {
		return &poisonError{errors.New("event without email or secret")}
	}
	if err := notifier.NotifyReset(ctx, ev.Email, ev.Secret); err != nil {
		return fmt.Errorf("deliver reset email: %w", err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
