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

// delayHeader is read by the rabbitmq_delayed_message_exchange plugin.
const delayHeader = "x-delay"

// Config holds the broker settings shared by the publisher and the consumer.
type Config struct {
	URL      string
	Exchange string
	Queue    string
	// Prefetch caps unacknowledged deliveries per consumer channel.
	Prefetch int
	// Concurrency is the number of goroutines handling deliveries.
	Concurrency int
}

// errNacked is returned when the broker refuses responsibility for a message.
var errNacked = errors.New("broker nacked message")

// defaultPublishTries bounds redial-and-publish rounds within one Publish call.
const defaultPublishTries = 3

type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

// publishChannel is a confirm-mode channel together with the connection it lives on.
type publishChannel interface {
	Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error)
	IsClosed() bool
	Close() error
}

// Publisher enqueues jobs on the delayed exchange. A publish only succeeds
// once the broker has confirmed the message; a closed or failing channel is
// dropped and redialled.
type Publisher struct {
	mu         sync.Mutex
	ch         publishChannel
	dial       func() (publishChannel, error)
	exchange   string
	routingKey string
	logger     *slog.Logger
	now        func() time.Time
	maxTries   uint
	newBackOff func() backoff.BackOff
}

func newPublisher(ch publishChannel, dial func() (publishChannel, error), exchange, routingKey string, logger *slog.Logger) *Publisher {
	return &Publisher{
		ch:         ch,
		dial:       dial,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger,
		now:        time.Now,
		maxTries:   defaultPublishTries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
}

// Publish sends job as a persistent JSON message. A positive delay is passed
// to the broker, which holds the message until it is due.
func (p *Publisher) Publish(ctx context.Context, job domain.Job, delay time.Duration) error {
	msg, err := newPublishing(job, delay, p.now())
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, p.publishOnce(ctx, msg)
	},
		backoff.WithBackOff(p.newBackOff()),
		backoff.WithMaxTries(p.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			p.logger.WarnContext(ctx, "publish failed, retrying", "job_id", job.ID, "error", err, "retry_in", next)
		}),
	)
	if err != nil {
		return fmt.Errorf("publish job %s: %w", job.ID, err)
	}
	p.logger.DebugContext(ctx, "job published", "job_id", job.ID, "kind", job.Kind, "delay", delay)
	return nil
}

// publishOnce must be called with p.mu held.
func (p *Publisher) publishOnce(ctx context.Context, msg amqp.Publishing) error {
	if p.ch == nil || p.ch.IsClosed() {
		p.drop()
		ch, err := p.dial()
		if err != nil {
			return fmt.Errorf("redial broker: %w", err)
		}
		p.ch = ch
		p.logger.InfoContext(ctx, "RabbitMQ publisher reconnected", "exchange", p.exchange)
	}
	conf, err := p.ch.Publish(ctx, p.exchange, p.routingKey, msg)
	if err != nil {
		p.drop()
		return err
	}
	ack, err := conf.WaitContext(ctx)
	if err != nil {
		p.drop()
		return fmt.Errorf("await confirm: %w", err)
	}
	if !ack {
		return errNacked
	}
	return nil
}

func (p *Publisher) drop() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
}

// Close releases the current channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.drop()
	return nil
}

func newPublishing(job domain.Job, delay time.Duration, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal job: %w", err)
	}
	headers := amqp.Table{}
	if ms := delay.Milliseconds(); ms > 0 {
		headers[delayHeader] = ms
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Type:         string(job.Kind),
		Timestamp:    now.UTC(),
		Headers:      headers,
		Body:         body,
	}, nil
}

// Client publishes jobs over a broker connection it redials on demand.
type Client struct {
	*Publisher
}

// Dial connects to the broker, declares the job topology and returns a
// client ready to publish. Later connection losses are repaired by the
// publisher itself.
func Dial(cfg Config, logger *slog.Logger) (*Client, error) {
	dial := func() (publishChannel, error) {
		ch, err := dialConfirmChannel(cfg)
		if err != nil {
			return nil, err
		}
		return ch, nil
	}
	ch, err := dial()
	if err != nil {
		return nil, err
	}
	logger.Info("RabbitMQ publisher ready", "exchange", cfg.Exchange, "queue", cfg.Queue)
	return &Client{Publisher: newPublisher(ch, dial, cfg.Exchange, cfg.Queue, logger)}, nil
}

type amqpChannel struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func dialConfirmChannel(cfg Config) (*amqpChannel, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}
	if err := declareTopology(ch, cfg.Exchange, cfg.Queue); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}
	return &amqpChannel{conn: conn, ch: ch}, nil
}

// Publish is never mandatory: the delayed exchange only routes a message once
// its delay expires, so the broker would return every delayed job as unroutable.
func (c *amqpChannel) Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error) {
	dc, err := c.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	if err != nil {
		return nil, err
	}
	if dc == nil {
		return nil, errors.New("channel is not in confirm mode")
	}
	return dc, nil
}

func (c *amqpChannel) IsClosed() bool {
	return c.ch.IsClosed() || c.conn.IsClosed()
}

func (c *amqpChannel) Close() error {
	_ = c.ch.Close()
	return c.conn.Close()
}

// declareTopology declares the delayed exchange and the durable job queue
// bound to it with the queue name as routing key. Declarations are idempotent.
func declareTopology(ch *amqp.Channel, exchange, queue string) error {
	args := amqp.Table{"x-delayed-type": "direct"}
	if err := ch.ExchangeDeclare(exchange, "x-delayed-message", true, false, false, false, args); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", queue, err)
	}
	return nil
}
