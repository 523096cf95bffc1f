// Package progress broadcasts live progress events from long-running
// backtest and evaluation runs to subscribed websocket clients, adapted
// from the teacher's connection hub.
package progress

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"tarifa/internal/infrastructure"
)

// Event types broadcast over the hub.
const (
	EventConnected    = "connected"
	EventPeriod       = "period"
	EventPhase        = "phase"
	EventComplete     = "complete"
	EventFailed       = "failed"
)

// Hub maintains the set of subscribed clients and fans out progress events.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	logger *slog.Logger

	totalConnections int64
	messagesSent     int64

	quit    chan struct{}
	running bool
}

// NewHub creates a Hub. A nil logger falls back to infrastructure.GetLogger().
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(slog.String("component", "progress.hub")),
		quit:       make(chan struct{}),
	}
}

// Start launches the hub's event loop. Safe to call once; a second call
// before Stop is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

// Stop shuts the hub down and closes every connected client.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

func (h *Hub) run() {
	for {
		select {
		case <-h.quit:
			h.logger.Info("progress hub shutting down")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.totalConnections++
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.Info("progress client registered", slog.Int("total_clients", count))
			h.sendTo(client, Event{Type: EventConnected, Timestamp: time.Now()})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("progress client unregistered", slog.Int("total_clients", count))

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			for _, client := range clients {
				select {
				case client.send <- message:
					h.mu.Lock()
					h.messagesSent++
					h.mu.Unlock()
				default:
					h.mu.Lock()
					close(client.send)
					delete(h.clients, client)
					h.mu.Unlock()
					h.logger.Warn("progress client buffer full, disconnecting")
				}
			}
		}
	}
}

// Event is one progress update broadcast to subscribers.
type Event struct {
	Type       string    `json:"type"`
	Phase      string    `json:"phase,omitempty"`
	Period     int       `json:"period,omitempty"`
	TotalPeriods int     `json:"total_periods,omitempty"`
	Message    string    `json:"message,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publish broadcasts ev to every connected client. Safe to call even with
// no hub goroutine running (Start not yet called): the send just blocks
// until a consumer drains the broadcast channel, so callers typically
// call this only after Start.
func (h *Hub) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to marshal progress event", slog.String("error", err.Error()))
		return
	}
	h.broadcast <- data
}

// PublishPeriod reports completion of one backtest/evaluation period.
func (h *Hub) PublishPeriod(ctx context.Context, phase string, period, total int) {
	h.logger.DebugContext(ctx, "progress", slog.String("phase", phase), slog.Int("period", period), slog.Int("total", total))
	h.Publish(Event{Type: EventPeriod, Phase: phase, Period: period, TotalPeriods: total})
}

// PublishPhase reports a named phase transition (e.g. "loading", "scoring").
func (h *Hub) PublishPhase(ctx context.Context, phase, message string) {
	h.logger.InfoContext(ctx, "phase", slog.String("phase", phase), slog.String("message", message))
	h.Publish(Event{Type: EventPhase, Phase: phase, Message: message})
}

// PublishComplete reports successful completion of the whole run.
func (h *Hub) PublishComplete(message string) {
	h.Publish(Event{Type: EventComplete, Message: message})
}

// PublishFailed reports a terminal failure.
func (h *Hub) PublishFailed(message string) {
	h.Publish(Event{Type: EventFailed, Message: message})
}

func (h *Hub) sendTo(client *Client, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) { h.register <- client }
