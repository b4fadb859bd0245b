// Package eventbridge forwards editor events to an AWS EventBridge bus.
package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"deployboard/domain/events"
)

// EventBridge limits PutEvents to 10 entries.
const batchSize = 10

// PutEventsAPI is the subset of the EventBridge client the publisher uses.
type PutEventsAPI interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// Publisher sends events to EventBridge.
type Publisher struct {
	client       PutEventsAPI
	eventBusName string
	source       string
	logger       *zap.Logger
}

func NewPublisher(client PutEventsAPI, eventBusName, source string, logger *zap.Logger) *Publisher {
	return &Publisher{
		client:       client,
		eventBusName: eventBusName,
		source:       source,
		logger:       logger.Named("eventbridge"),
	}
}

// Publish sends a single event to EventBridge
func (p *Publisher) Publish(ctx context.Context, event events.DomainEvent) error {
	return p.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch sends events in chunks of ten.
func (p *Publisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for i := 0; i < len(domainEvents); i += batchSize {
		end := min(i+batchSize, len(domainEvents))
		if err := p.publishBatch(ctx, domainEvents[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(domainEvents))
	sent := make([]events.DomainEvent, 0, len(domainEvents))

	for _, event := range domainEvents {
		eventData, err := json.Marshal(event)
		if err != nil {
			p.logger.Error("failed to marshal event",
				zap.Error(err),
				zap.String("eventType", event.GetEventType()),
			)
			continue
		}
		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBusName),
			Source:       aws.String(p.source),
			DetailType:   aws.String(event.GetEventType()),
			Detail:       aws.String(string(eventData)),
			Time:         aws.Time(event.GetTimestamp()),
		})
		sent = append(sent, event)
	}
	if len(entries) == 0 {
		return nil
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to publish events to EventBridge: %w", err)
	}
	if result.FailedEntryCount > 0 {
		for i, entry := range result.Entries {
			if entry.ErrorCode != nil && i < len(sent) {
				p.logger.Error("failed to publish event",
					zap.String("eventType", sent[i].GetEventType()),
					zap.String("errorCode", aws.ToString(entry.ErrorCode)),
					zap.String("errorMessage", aws.ToString(entry.ErrorMessage)),
				)
			}
		}
		return fmt.Errorf("%d events failed to publish", result.FailedEntryCount)
	}

	p.logger.Debug("events published to EventBridge",
		zap.Int("count", len(entries)),
		zap.String("eventBus", p.eventBusName),
	)
	return nil
}

// Forwarder queues events and ships them from a background goroutine so
// editor operations never wait on the network. It is an event handler for
// the in-process dispatcher.
type Forwarder struct {
	publisher *Publisher
	queue     chan events.DomainEvent
	interval  time.Duration
	logger    *zap.Logger
	wg        sync.WaitGroup
	closeOnce sync.Once
	closed    chan struct{}
}

// NewForwarder starts the background sender. queueSize bounds the number
// of events waiting; when full, new events are dropped and logged.
func NewForwarder(publisher *Publisher, queueSize int, interval time.Duration, logger *zap.Logger) *Forwarder {
	if queueSize <= 0 {
		queueSize = 256
	}
	if interval <= 0 {
		interval = time.Second
	}
	f := &Forwarder{
		publisher: publisher,
		queue:     make(chan events.DomainEvent, queueSize),
		interval:  interval,
		logger:    logger.Named("eventbridge"),
		closed:    make(chan struct{}),
	}
	f.wg.Add(1)
	go f.run()
	return f
}

func (f *Forwarder) CanHandle(string) bool { return true }

// Handle enqueues event.
func (f *Forwarder) Handle(_ context.Context, event events.DomainEvent) error {
	select {
	case <-f.closed:
		return fmt.Errorf("forwarder closed")
	default:
	}
	select {
	case f.queue <- event:
		return nil
	default:
		f.logger.Warn("event queue full, dropping event", zap.String("eventType", event.GetEventType()))
		return fmt.Errorf("event queue full")
	}
}

func (f *Forwarder) run() {
	defer f.wg.Done()
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	pending := make([]events.DomainEvent, 0, batchSize)
	flush := func() {
		if len(pending) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := f.publisher.PublishBatch(ctx, pending); err != nil {
			f.logger.Warn("event forwarding failed", zap.Int("count", len(pending)), zap.Error(err))
		}
		cancel()
		pending = pending[:0]
	}

	for {
		select {
		case e := <-f.queue:
			pending = append(pending, e)
			if len(pending) == batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-f.closed:
			for {
				select {
				case e := <-f.queue:
					pending = append(pending, e)
					if len(pending) == batchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close drains the queue and waits for the last batch, or for ctx.
func (f *Forwarder) Close(ctx context.Context) error {
	f.closeOnce.Do(func() { close(f.closed) })
	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
