// Package queue carries committed notifications over a RabbitMQ topic exchange
// so a separate notifier process can deliver them.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"campusfest/internal/domain"
)

const (
	keyPrefix      = "notification."
	publishTimeout = 5 * time.Second
)

// RoutingKey is the topic a notification of the given kind is published under.
func RoutingKey(kind domain.NotificationKind) string {
	return keyPrefix + string(kind)
}

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type outbound struct {
	kind           domain.NotificationKind
	registrationID string
	msg            amqp.Publishing
}

// Publisher implements domain.NotificationPublisher on a topic exchange.
// Publish only enqueues; a single goroutine owns the channel and does the network writes.
// When the buffer is full the notification is dropped and logged, and a failed publish never
// reaches the registration flow. A closed channel is redialed once per message.
type Publisher struct {
	exchange string
	logger   *slog.Logger
	redial   func() (*amqp.Connection, amqpChannel, error)

	conn *amqp.Connection
	ch   amqpChannel

	queue     chan outbound
	done      chan struct{}
	closeOnce sync.Once
	closed    chan struct{}
	mu        sync.RWMutex
}

// NewPublisher connects to url and starts the publish loop. buffer bounds the messages waiting to be sent.
func NewPublisher(url, exchange string, buffer int, logger *slog.Logger) (*Publisher, error) {
	conn, ch, err := dial(url, exchange)
	if err != nil {
		return nil, err
	}
	redial := func() (*amqp.Connection, amqpChannel, error) {
		conn, ch, err := dial(url, exchange)
		if err != nil {
			return nil, nil, err
		}
		return conn, ch, nil
	}
	return newPublisher(conn, ch, redial, exchange, buffer, logger), nil
}

func newPublisher(conn *amqp.Connection, ch amqpChannel, redial func() (*amqp.Connection, amqpChannel, error), exchange string, buffer int, logger *slog.Logger) *Publisher {
	if buffer < 1 {
		buffer = 1
	}
	p := &Publisher{
		exchange: exchange,
		logger:   logger.With("component", "notify-publisher"),
		redial:   redial,
		conn:     conn,
		ch:       ch,
		queue:    make(chan outbound, buffer),
		done:     make(chan struct{}),
		closed:   make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *Publisher) Publish(ctx context.Context, n domain.Notification) {
	body, err := json.Marshal(n)
	if err != nil {
		p.logger.ErrorContext(ctx, "encode notification", "kind", n.Kind, "err", err)
		return
	}
	out := outbound{
		kind:           n.Kind,
		registrationID: n.RegistrationID,
		msg: amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	select {
	case <-p.closed:
		p.logger.WarnContext(ctx, "notification dropped after shutdown", "kind", n.Kind, "registration_id", n.RegistrationID)
		return
	default:
	}
	select {
	case p.queue <- out:
	default:
		p.logger.WarnContext(ctx, "notification queue full, dropping", "kind", n.Kind, "registration_id", n.RegistrationID)
	}
}

// Close stops accepting notifications, waits for the queued ones to be sent or ctx to end,
// and closes the connection once the loop has drained.
func (p *Publisher) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		close(p.closed)
		close(p.queue)
		p.mu.Unlock()
	})
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	defer p.release()
	for out := range p.queue {
		p.send(out)
	}
}

func (p *Publisher) send(out outbound) {
	key := RoutingKey(out.kind)
	err := p.publish(key, out.msg)
	if errors.Is(err, amqp.ErrClosed) {
		p.release()
		err = p.publish(key, out.msg)
	}
	if err != nil {
		p.logger.Error("publish notification", "kind", out.kind, "registration_id", out.registrationID, "err", err)
	}
}

func (p *Publisher) publish(key string, msg amqp.Publishing) error {
	if p.ch == nil {
		if p.redial == nil {
			return amqp.ErrClosed
		}
		conn, ch, err := p.redial()
		if err != nil {
			return fmt.Errorf("redial: %w", err)
		}
		p.conn, p.ch = conn, ch
		p.logger.Info("notification channel reopened")
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg)
}

// release closes the current channel and connection; the next publish redials.
func (p *Publisher) release() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Handler delivers one decoded notification.
type Handler func(ctx context.Context, n domain.Notification) error

type ConsumerConfig struct {
	URL      string
	Exchange string
	Queue    string
	Prefetch int
}

// Consumer drains the notification queue, bound to every notification.* key.
type Consumer struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	queue  string
	logger *slog.Logger
}

func NewConsumer(cfg ConsumerConfig, logger *slog.Logger) (*Consumer, error) {
	conn, ch, err := dial(cfg.URL, cfg.Exchange)
	if err != nil {
		return nil, err
	}
	q, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, keyPrefix+"#", cfg.Exchange, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 8
	}
	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	return &Consumer{conn: conn, ch: ch, queue: q.Name, logger: logger.With("component", "notify-consumer")}, nil
}

// Run consumes until ctx is done or the channel closes.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			c.dispatch(ctx, d, handle)
		}
	}
}

// dispatch acks on success, drops undecodable bodies and requeues failed deliveries once.
func (c *Consumer) dispatch(ctx context.Context, d amqp.Delivery, handle Handler) {
	var n domain.Notification
	if err := json.Unmarshal(d.Body, &n); err != nil {
		c.logger.ErrorContext(ctx, "drop malformed notification", "routing_key", d.RoutingKey, "err", err)
		_ = d.Reject(false)
		return
	}
	if err := handle(ctx, n); err != nil {
		c.logger.ErrorContext(ctx, "deliver notification", "kind", n.Kind, "registration_id", n.RegistrationID,
			"redelivered", d.Redelivered, "err", err)
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func dial(url, exchange string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("declare exchange: %w", err)
	}
	return conn, ch, nil
}
