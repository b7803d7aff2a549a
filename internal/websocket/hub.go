package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"remcli/internal/config"
	"remcli/internal/infrastructure"
	"remcli/pkg/contracts/events"
)

// broadcastQueueSize bounds the number of pending broadcasts before
// producers block.
const broadcastQueueSize = 64

// Hub owns the set of connected clients and fans broadcast messages out
// to them. All registry mutations happen on the hub goroutine, so client
// send channels are only ever closed there.
type Hub struct {
	cfg config.WebSocketConfig

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	clients map[*Client]struct{}
	running bool

	// Lifetime counters surfaced by Stats
	totalConnections int64
	messagesSent     int64
	droppedClients   int64

	quit chan struct{}
	done chan struct{}

	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
}

// HubStats is a snapshot of the hub's lifetime counters.
type HubStats struct {
	ActiveClients    int   `json:"active_clients"`
	TotalConnections int64 `json:"total_connections"`
	MessagesSent     int64 `json:"messages_sent"`
	DroppedClients   int64 `json:"dropped_clients"`
}

// NewHub creates a hub. Zero-value timing fields in cfg fall back to the
// package defaults when clients are created.
func NewHub(cfg config.WebSocketConfig, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &Hub{
		cfg:        cfg,
		broadcast:  make(chan []byte, broadcastQueueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]struct{}),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.With(slog.String("component", "websocket.hub")),
		metrics:    metrics,
	}
}

// Start launches the hub goroutine. Calling Start on a running hub is a
// no-op.
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

// Stop disconnects all clients and waits for the hub goroutine to exit.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

func (h *Hub) run() {
	for {
		select {
		case <-h.quit:
			h.closeAll()
			h.logger.Info("hub stopped")
			close(h.done)
			return
		case client := <-h.register:
			h.add(client)
		case client := <-h.unregister:
			h.remove(client)
		case message := <-h.broadcast:
			h.fanOut(message)
		}
	}
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.totalConnections++
	count := len(h.clients)
	h.mu.Unlock()

	infrastructure.RecordWSClientChange(context.Background(), h.metrics, 1)
	h.logger.Info("client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))
}

func (h *Hub) remove(client *Client) {
	count, ok := h.detach(client)
	if !ok {
		return
	}

	infrastructure.RecordWSClientChange(context.Background(), h.metrics, -1)
	h.logger.Info("client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
}

// detach removes a client from the registry and closes its send channel.
// It reports the clients left and whether the client was still present.
func (h *Hub) detach(client *Client) (int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, present := h.clients[client]; !present {
		return len(h.clients), false
	}
	delete(h.clients, client)
	close(client.send)
	return len(h.clients), true
}

// fanOut delivers one message to every client. A client whose send
// buffer is already full is dropped rather than allowed to stall the
// loop.
func (h *Hub) fanOut(message []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	var sent int64
	for _, client := range clients {
		select {
		case client.send <- message:
			sent++
		default:
			if _, ok := h.detach(client); !ok {
				continue
			}
			h.mu.Lock()
			h.droppedClients++
			h.mu.Unlock()
			infrastructure.RecordWSClientChange(context.Background(), h.metrics, -1)
			h.logger.Warn("client send buffer full, disconnecting",
				slog.String("client_id", client.id))
		}
	}

	h.mu.Lock()
	h.messagesSent += sent
	h.mu.Unlock()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// BroadcastEnvelope marshals an event envelope and queues it for all
// clients.
func (h *Hub) BroadcastEnvelope(env events.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("event marshal failed",
			slog.String("type", string(env.Type)),
			slog.String("error", err.Error()))
		return
	}
	h.Broadcast(data)
}

// Broadcast queues a pre-marshaled message for all connected clients.
// After Stop the message is discarded.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.quit:
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats returns a snapshot of the hub's counters.
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return HubStats{
		ActiveClients:    len(h.clients),
		TotalConnections: h.totalConnections,
		MessagesSent:     h.messagesSent,
		DroppedClients:   h.droppedClients,
	}
}
