package messaging

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"deployboard/application/ports"
	"deployboard/domain/events"
)

// EventCounter is told about every dispatched event.
type EventCounter interface {
	EventPublished(eventType string)
}

// Dispatcher is the in-process event publisher. Every subscribed handler
// that accepts the event type receives it synchronously, in subscription
// order. A failing handler is logged and does not stop the others.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers []ports.EventHandler
	counter  EventCounter
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher. counter may be nil.
func NewDispatcher(counter EventCounter, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{counter: counter, logger: logger.Named("events")}
}

// Subscribe adds a handler.
func (d *Dispatcher) Subscribe(h ports.EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
}

// Publish implements ports.EventPublisher.
func (d *Dispatcher) Publish(ctx context.Context, event events.DomainEvent) error {
	d.mu.RLock()
	handlers := d.handlers
	d.mu.RUnlock()

	start := time.Now()
	failed := 0
	for _, h := range handlers {
		if !h.CanHandle(event.GetEventType()) {
			continue
		}
		if err := h.Handle(ctx, event); err != nil {
			failed++
			d.logger.Warn("event handler failed",
				zap.String("eventType", event.GetEventType()),
				zap.String("aggregateID", event.GetAggregateID()),
				zap.Error(err),
			)
		}
	}
	if d.counter != nil {
		d.counter.EventPublished(event.GetEventType())
	}

	d.logger.Debug("event dispatched",
		zap.String("eventType", event.GetEventType()),
		zap.String("aggregateID", event.GetAggregateID()),
		zap.Int("handlers", len(handlers)),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// PublishBatch implements ports.EventPublisher.
func (d *Dispatcher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	for _, e := range batch {
		if err := d.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// LogHandler writes every event to the log at info level.
func LogHandler(logger *zap.Logger) ports.EventHandler {
	return ports.EventHandlerFunc(func(_ context.Context, e events.DomainEvent) error {
		logger.Info("domain event",
			zap.String("eventType", e.GetEventType()),
			zap.String("aggregateID", e.GetAggregateID()),
			zap.Time("timestamp", e.GetTimestamp()),
		)
		return nil
	})
}
