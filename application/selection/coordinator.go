// Package selection tracks the single module shown in the detail panel.
package selection

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"deployboard/application/ports"
	"deployboard/domain/core/entities"
	"deployboard/domain/events"
)

// Listener is called after every change; sel is nil once cleared.
type Listener func(sel *entities.Selection)

// Coordinator holds the current selection. The last Select wins.
type Coordinator struct {
	mu        sync.RWMutex
	current   *entities.Selection
	listeners []Listener

	publisher ports.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewCoordinator(publisher ports.EventPublisher, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{publisher: publisher, logger: logger, now: time.Now}
}

// Subscribe registers a listener for selection changes.
func (c *Coordinator) Subscribe(l Listener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

// Select replaces the current selection.
func (c *Coordinator) Select(ctx context.Context, sel entities.Selection) {
	c.mu.Lock()
	s := sel
	c.current = &s
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		cp := sel
		l(&cp)
	}
	c.publish(ctx, events.NewSelectionChanged(sel, c.now()))
}

// Clear empties the selection. Clearing an empty selection still notifies.
func (c *Coordinator) Clear(ctx context.Context) {
	c.mu.Lock()
	c.current = nil
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		l(nil)
	}
	c.publish(ctx, events.NewSelectionCleared(c.now()))
}

// Selected returns the current selection.
func (c *Coordinator) Selected() (entities.Selection, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return entities.Selection{}, false
	}
	return *c.current, true
}

// IsSelected reports whether moduleID is the selected module.
func (c *Coordinator) IsSelected(moduleID string) bool {
	sel, ok := c.Selected()
	return ok && sel.Module.ID == moduleID
}

func (c *Coordinator) publish(ctx context.Context, e events.DomainEvent) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, e); err != nil {
		c.logger.Warn("publish selection event", zap.String("event_type", e.GetEventType()), zap.Error(err))
	}
}
