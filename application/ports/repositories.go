package ports

import (
	"context"
	"time"

	"deployboard/domain/core/entities"
	"deployboard/domain/events"
)

// WorkspaceStore persists the editor state. Storage keys and expiry are an
// implementation detail; an absent, expired or corrupt entry reads as empty.
type WorkspaceStore interface {
	// PlacedModules returns the persisted list for a section.
	PlacedModules(ctx context.Context, sectionID string) []entities.PlacedModule

	// SavePlacedModules writes the list, deleting the entry when it is empty.
	SavePlacedModules(ctx context.Context, sectionID string, modules []entities.PlacedModule) error

	// Nodes returns the persisted graph node snapshot.
	Nodes(ctx context.Context) []entities.GraphNode

	// SaveNodes writes the snapshot, deleting the entry when it is empty.
	SaveNodes(ctx context.Context, nodes []entities.GraphNode) error

	// Edges returns the persisted edge snapshot.
	Edges(ctx context.Context) []entities.GraphEdge

	// SaveEdges writes the snapshot, deleting the entry when it is empty.
	SaveEdges(ctx context.Context, edges []entities.GraphEdge) error

	// Reset deletes every persisted editor entry.
	Reset(ctx context.Context) error
}

// Credentials remembered by the login form.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionStore persists the login flag and remembered credentials. Neither
// entry expires.
type SessionStore interface {
	IsAuthenticated(ctx context.Context) bool
	SetAuthenticated(ctx context.Context, authenticated bool) error

	SavedCredentials(ctx context.Context) (Credentials, bool)
	SaveCredentials(ctx context.Context, creds Credentials) error
	ClearCredentials(ctx context.Context) error
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// EventHandler receives published events.
type EventHandler interface {
	// Handle processes an event
	Handle(ctx context.Context, event events.DomainEvent) error

	// CanHandle checks if this handler can process the event
	CanHandle(eventType string) bool
}

// EventHandlerFunc adapts a function that accepts every event type.
type EventHandlerFunc func(ctx context.Context, event events.DomainEvent) error

func (f EventHandlerFunc) Handle(ctx context.Context, event events.DomainEvent) error {
	return f(ctx, event)
}

func (f EventHandlerFunc) CanHandle(string) bool { return true }

// Metrics receives counters for outcomes that are not surfaced to the user.
type Metrics interface {
	PlacementAccepted(sectionID string)
	PlacementRejected(sectionID, reason string)
	SilentFailure(kind string)
	GraphRestored(source string, nodes int)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) PlacementAccepted(string)         {}
func (NopMetrics) PlacementRejected(string, string) {}
func (NopMetrics) SilentFailure(string)             {}
func (NopMetrics) GraphRestored(string, int)        {}

// Notice levels.
const (
	NoticeSuccess = "success"
	NoticeWarning = "warning"
	NoticeError   = "error"
)

// Notice is a transient user-facing message.
type Notice struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Source  string    `json:"source"`
	Time    time.Time `json:"time"`
}

// Notifier delivers notices to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice)

func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }
