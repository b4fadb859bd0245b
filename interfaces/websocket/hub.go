package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"deployboard/application/ports"
	"deployboard/domain/events"
)

// Message types pushed to clients besides domain event types.
const (
	TypeConnectionEstablished = "CONNECTION_ESTABLISHED"
	TypeNotice                = "NOTICE"
	TypePing                  = "PING"
)

// ConnectionObserver is told when clients come and go.
type ConnectionObserver interface {
	ClientConnected()
	ClientDisconnected()
}

// Message is one frame sent to clients.
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// Hub tracks connected editor clients and broadcasts to all of them.
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	observer ConnectionObserver
	logger   *zap.Logger
}

// NewHub creates a hub. observer may be nil.
func NewHub(observer ConnectionObserver, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		broadcast:  make(chan []byte, 256),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		observer:   observer,
		logger:     logger.Named("ws"),
	}
}

// Run is the hub's event loop.
func (h *Hub) Run() {
	defer close(h.done)
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case data := <-h.broadcast:
			h.fanOut(data)
		case <-ticker.C:
			if ping, err := encode(TypePing, nil); err == nil {
				h.fanOut(ping)
			}
		}
	}
}

// Stop closes every connection and waits for Run to return.
func (h *Hub) Stop() {
	h.cancel()
	<-h.done
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Send broadcasts a typed payload.
func (h *Hub) Send(messageType string, data interface{}) error {
	frame, err := encode(messageType, data)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- frame:
		return nil
	case <-h.ctx.Done():
		return fmt.Errorf("hub stopped")
	default:
		return fmt.Errorf("broadcast channel full, message dropped")
	}
}

// Handle implements ports.EventHandler: every domain event is forwarded.
func (h *Hub) Handle(_ context.Context, event events.DomainEvent) error {
	return h.Send(event.GetEventType(), event)
}

func (h *Hub) CanHandle(string) bool { return true }

// Notice forwards a user notice.
func (h *Hub) Notice(n ports.Notice) {
	if err := h.Send(TypeNotice, n); err != nil {
		h.logger.Debug("notice not broadcast", zap.Error(err))
	}
}

func encode(messageType string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal data: %w", err)
	}
	return json.Marshal(Message{Type: messageType, Data: raw, Timestamp: time.Now().Unix()})
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	n := len(h.clients)
	h.mu.Unlock()

	if h.observer != nil {
		h.observer.ClientConnected()
	}
	h.logger.Info("client registered", zap.String("connectionID", c.id), zap.Int("clients", n))
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	n := len(h.clients)
	h.mu.Unlock()

	if h.observer != nil {
		h.observer.ClientDisconnected()
	}
	h.logger.Info("client unregistered", zap.String("connectionID", c.id), zap.Int("clients", n))
}

func (h *Hub) fanOut(data []byte) {
	h.mu.RLock()
	var slow []*Client
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("closing slow client", zap.String("connectionID", c.id))
		h.remove(c)
		c.conn.Close()
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*Client]bool)
	h.mu.Unlock()

	for c := range clients {
		close(c.send)
		c.conn.Close()
		if h.observer != nil {
			h.observer.ClientDisconnected()
		}
	}
	h.logger.Info("all connections closed")
}
