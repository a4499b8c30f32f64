package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/careslot/internal/metrics"
)

// Dispatch events recorded in metrics.
const (
	EventEnqueued  = "enqueued"
	EventDropped   = "dropped"
	EventDelivered = "delivered"
	EventFailed    = "failed"
)

type DispatcherConfig struct {
	QueueSize       int
	Workers         int
	DeliveryTimeout time.Duration
}

// Dispatcher decouples notification delivery from the request that caused
// it. Enqueue never blocks: when the buffer is full the notification is
// dropped and counted.
type Dispatcher struct {
	sink    Sink
	queue   chan Notification
	timeout time.Duration
	metrics *metrics.SchedulingMetrics
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(sink Sink, cfg DispatcherConfig, m *metrics.SchedulingMetrics, logger *zap.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dispatcher{
		sink:    sink,
		queue:   make(chan Notification, cfg.QueueSize),
		timeout: cfg.DeliveryTimeout,
		metrics: m,
		logger:  logger,
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return d
}

// Enqueue hands n to the workers. It reports false if n was dropped.
func (d *Dispatcher) Enqueue(n Notification) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(n, "dispatcher closed")
		return false
	}
	select {
	case d.queue <- n:
		d.metrics.ObserveNotification(EventEnqueued)
		d.metrics.SetQueueDepth(len(d.queue))
		return true
	default:
		d.drop(n, "queue full")
		return false
	}
}

func (d *Dispatcher) drop(n Notification, reason string) {
	d.metrics.ObserveNotification(EventDropped)
	d.logger.Warn("notification dropped",
		zap.String("reason", reason),
		zap.String("notification_id", n.ID.String()),
		zap.String("user_id", n.UserID.String()),
		zap.String("type", string(n.Type)),
	)
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for n := range d.queue {
		d.metrics.SetQueueDepth(len(d.queue))
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sink.Deliver(ctx, n); err != nil {
		d.metrics.ObserveNotification(EventFailed)
		d.logger.Error("deliver notification",
			zap.String("notification_id", n.ID.String()),
			zap.String("user_id", n.UserID.String()),
			zap.Error(err),
		)
		return
	}
	d.metrics.ObserveNotification(EventDelivered)
}

// Close stops accepting notifications and waits for the queue to drain or
// ctx to end, whichever comes first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

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
