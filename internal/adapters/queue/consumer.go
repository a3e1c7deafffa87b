package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	amqp "github.com/rabbitmq/amqp091-go"

	"consultations/internal/domain"
)

const consumerTag = "consultations-worker"

// Consumer delivers jobs from the queue to a handler, reconnecting with
// exponential backoff when the broker goes away.
type Consumer struct {
	cfg    Config
	logger *slog.Logger
}

// NewConsumer returns a JobConsumer for cfg.Queue.
func NewConsumer(cfg Config, logger *slog.Logger) domain.JobConsumer {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Prefetch < cfg.Concurrency {
		cfg.Prefetch = cfg.Concurrency
	}
	return &Consumer{cfg: cfg, logger: logger}
}

// Consume blocks until ctx is cancelled. Deliveries already received when
// ctx ends are still handled and acknowledged.
func (c *Consumer) Consume(ctx context.Context, handle func(ctx context.Context, job domain.Job) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	for {
		connected, err := c.consumeOnce(ctx, handle)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			b.Reset()
		}
		wait := b.NextBackOff()
		c.logger.WarnContext(ctx, "job consumer disconnected, reconnecting", "error", err, "retry_in", wait)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

func (c *Consumer) consumeOnce(ctx context.Context, handle func(ctx context.Context, job domain.Job) error) (bool, error) {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return false, fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return false, fmt.Errorf("channel open: %w", err)
	}
	if err := declareTopology(ch, c.cfg.Exchange, c.cfg.Queue); err != nil {
		return false, err
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return false, fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := ch.Consume(c.cfg.Queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return false, fmt.Errorf("queue consume: %w", err)
	}
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	c.logger.InfoContext(ctx, "consuming jobs", "queue", c.cfg.Queue, "concurrency", c.cfg.Concurrency)

	// In-flight jobs finish even after shutdown starts.
	runCtx := context.WithoutCancel(ctx)
	var wg sync.WaitGroup
	for range c.cfg.Concurrency {
		wg.Go(func() {
			for d := range deliveries {
				c.process(runCtx, d, handle)
			}
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		_ = ch.Cancel(consumerTag, false)
		<-done
		return true, nil
	case amqpErr := <-closed:
		<-done
		if amqpErr == nil {
			return true, errors.New("connection closed")
		}
		return true, fmt.Errorf("connection closed: %w", amqpErr)
	case <-done:
		return true, errors.New("deliveries channel closed")
	}
}

// process acknowledges a delivery whose job succeeded. Failed and undecodable
// deliveries are dropped without requeue; retrying is the handler's job.
func (c *Consumer) process(ctx context.Context, d amqp.Delivery, handle func(ctx context.Context, job domain.Job) error) {
	var job domain.Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		c.logger.ErrorContext(ctx, "discarding undecodable job", "message_id", d.MessageId, "error", err)
		_ = d.Nack(false, false)
		return
	}
	if d.Redelivered {
		c.logger.InfoContext(ctx, "job redelivered", "job_id", job.ID, "kind", job.Kind)
	}
	if err := handle(ctx, job); err != nil {
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}
