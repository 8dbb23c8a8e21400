package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"campusfest/internal/domain"
)

const deliverTimeout = 30 * time.Second

// Dispatcher is the in-process NotificationPublisher: a bounded queue drained by a worker pool.
// Publish never blocks; when the queue is full the notification is dropped and logged.
type Dispatcher struct {
	email   domain.EmailService
	logger  *slog.Logger
	queue   chan domain.Notification
	workers int

	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
	closed    chan struct{}
	mu        sync.RWMutex
}

// NewDispatcher returns a dispatcher with the given worker count and queue size. Call Start before Publish.
func NewDispatcher(email domain.EmailService, logger *slog.Logger, workers, buffer int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if buffer < 1 {
		buffer = 1
	}
	return &Dispatcher{
		email:   email,
		logger:  logger.With("component", "notifications"),
		queue:   make(chan domain.Notification, buffer),
		workers: workers,
		closed:  make(chan struct{}),
	}
}

// Start launches the workers. They exit once Close has drained the queue.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.work()
		}
	})
}

func (d *Dispatcher) Publish(ctx context.Context, n domain.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	select {
	case <-d.closed:
		d.logger.WarnContext(ctx, "notification dropped after shutdown", "kind", n.Kind, "registration_id", n.RegistrationID)
		return
	default:
	}
	select {
	case d.queue <- n:
	default:
		d.logger.WarnContext(ctx, "notification queue full, dropping", "kind", n.Kind, "registration_id", n.RegistrationID)
	}
}

// Close stops accepting notifications and waits for queued ones to be delivered or ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		close(d.closed)
		close(d.queue)
		d.mu.Unlock()
	})
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n domain.Notification) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification delivery panicked", "kind", n.Kind, "registration_id", n.RegistrationID, "panic", r)
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()
	if err := d.email.Deliver(ctx, n); err != nil {
		d.logger.Error("notification delivery failed", "kind", n.Kind, "registration_id", n.RegistrationID, "err", err)
	}
}

// NopPublisher discards notifications.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.Notification) {}
