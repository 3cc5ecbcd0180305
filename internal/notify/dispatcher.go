package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultWorkers        = 2
	defaultBufferSize     = 256
	defaultPublishTimeout = 5 * time.Second
)

type DispatcherOptions struct {
	Workers        int
	BufferSize     int
	PublishTimeout time.Duration
}

// Dispatcher queues events and publishes them from a small worker pool.
// When the queue is full the event is dropped and logged; notifications are
// never allowed to slow down or fail a requisition write.
type Dispatcher struct {
	sink    Sink
	logger  *zap.Logger
	timeout time.Duration
	queue   chan Event
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(sink Sink, logger *zap.Logger, opts DispatcherOptions) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultBufferSize
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = defaultPublishTimeout
	}
	d := &Dispatcher{
		sink:    sink,
		logger:  logger.With(zap.String("sink", sink.Name())),
		timeout: opts.PublishTimeout,
		queue:   make(chan Event, opts.BufferSize),
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Notify enqueues the event. The request context is deliberately not used for
// delivery: a finished request must not cancel its notification.
func (d *Dispatcher) Notify(_ context.Context, event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("dispatcher closed, dropping event", zap.String("type", event.Type))
		return
	}
	select {
	case d.queue <- event:
	default:
		d.logger.Warn("notification queue full, dropping event",
			zap.String("type", event.Type),
			zap.String("requisition_id", event.RequisitionID))
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for event := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.sink.Publish(ctx, event); err != nil {
			d.logger.Warn("failed to publish event",
				zap.String("type", event.Type),
				zap.String("requisition_id", event.RequisitionID),
				zap.Error(err))
		}
		cancel()
	}
}

// Close stops accepting events and waits for queued ones to be published.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}
