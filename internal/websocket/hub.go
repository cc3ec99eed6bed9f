package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"parkingapp/internal/config"
	"parkingapp/internal/infrastructure"
	"parkingapp/internal/store"
	"parkingapp/pkg/contracts/events"
)

// Hub streams each client the snapshots of its own session store. Changes
// are coalesced per store: a burst of updates produces one broadcast of the
// latest state to that session's clients only.
type Hub struct {
	cfg     config.WebSocketConfig
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger

	register   chan *Client
	unregister chan *Client
	changed    chan struct{}
	done       chan struct{}

	mu      sync.RWMutex
	clients map[*Client]struct{}
	streams map[StateSource]*stream
	started bool

	dirtyMu sync.Mutex
	dirty   map[StateSource]struct{}
}

// stream is the subscription shared by the clients of one store
type stream struct {
	clients     int
	unsubscribe func()
}

// NewHub creates a hub. Call Run to start it.
func NewHub(cfg config.WebSocketConfig, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = 60 * time.Second
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = cfg.PongWait * 9 / 10
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 4096
	}
	return &Hub{
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "websocket.hub")),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		changed:    make(chan struct{}, 1),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		streams:    make(map[StateSource]*stream),
		dirty:      make(map[StateSource]struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// disconnects every client
func (h *Hub) Run(ctx context.Context) {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return
	}
	h.started = true
	h.mu.Unlock()

	defer h.shutdown(ctx)

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.add(ctx, c)

		case c := <-h.unregister:
			h.remove(ctx, c, "disconnected")

		case <-h.changed:
			for _, source := range h.takeDirty() {
				h.broadcastSnapshot(ctx, source)
			}
		}
	}
}

// markDirty records that source changed and wakes Run
func (h *Hub) markDirty(source StateSource) {
	h.dirtyMu.Lock()
	h.dirty[source] = struct{}{}
	h.dirtyMu.Unlock()

	select {
	case h.changed <- struct{}{}:
	default:
	}
}

func (h *Hub) takeDirty() []StateSource {
	h.dirtyMu.Lock()
	defer h.dirtyMu.Unlock()
	out := make([]StateSource, 0, len(h.dirty))
	for source := range h.dirty {
		out = append(out, source)
	}
	clear(h.dirty)
	return out
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register hands a client to the hub. It returns false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) add(ctx context.Context, c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	st, subscribed := h.streams[c.source]
	if !subscribed {
		st = &stream{}
		h.streams[c.source] = st
	}
	st.clients++
	h.mu.Unlock()
	h.metrics.AddWebSocketClients(ctx, 1)

	if !subscribed {
		source := c.source
		unsubscribe := source.Subscribe(func(store.Snapshot) { h.markDirty(source) })
		h.mu.Lock()
		st.unsubscribe = unsubscribe
		h.mu.Unlock()
	}

	h.logger.InfoContext(ctx, "client registered",
		slog.String("client_id", c.id),
		slog.String("remote_addr", c.remoteAddr),
		slog.Int("total_clients", count),
	)

	greeting := events.New(events.MessageTypeConnect, events.ConnectData{
		ClientID:        c.id,
		ProtocolVersion: events.ProtocolVersion,
	})
	greeting.TraceID = c.traceID
	if h.deliver(ctx, c, h.encode(ctx, greeting)) {
		h.deliver(ctx, c, h.encode(ctx, events.New(events.MessageTypeSnapshot, c.source.Snapshot())))
	}
}

func (h *Hub) remove(ctx context.Context, c *Client, reason string) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	close(c.send)
	count := len(h.clients)
	var unsubscribe func()
	if st, ok := h.streams[c.source]; ok {
		st.clients--
		if st.clients == 0 {
			unsubscribe = st.unsubscribe
			delete(h.streams, c.source)
		}
	}
	h.mu.Unlock()
	h.metrics.AddWebSocketClients(ctx, -1)
	if unsubscribe != nil {
		unsubscribe()
	}

	h.logger.InfoContext(ctx, "client unregistered",
		slog.String("client_id", c.id),
		slog.String("reason", reason),
		slog.Duration("connection_duration", time.Since(c.connectedAt)),
		slog.Int("total_clients", count),
	)
}

// broadcastSnapshot sends the latest state of source to its clients
func (h *Hub) broadcastSnapshot(ctx context.Context, source StateSource) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if c.source == source {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()
	if len(clients) == 0 {
		return
	}

	payload := h.encode(ctx, events.New(events.MessageTypeSnapshot, source.Snapshot()))
	if payload == nil {
		return
	}
	for _, c := range clients {
		h.deliver(ctx, c, payload)
	}
}

// deliver queues payload for c, dropping clients that cannot keep up. It
// reports whether c is still connected.
func (h *Hub) deliver(ctx context.Context, c *Client, payload []byte) bool {
	if payload == nil {
		return true
	}
	select {
	case c.send <- payload:
		return true
	default:
		h.logger.WarnContext(ctx, "client send buffer full, disconnecting",
			slog.String("client_id", c.id))
		h.remove(ctx, c, "slow consumer")
		return false
	}
}

func (h *Hub) encode(ctx context.Context, msg events.Message) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to marshal websocket message",
			slog.String("type", string(msg.Type)),
			slog.String("error", err.Error()))
		return nil
	}
	return data
}

func (h *Hub) shutdown(ctx context.Context) {
	close(h.done)

	h.mu.Lock()
	n := len(h.clients)
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	unsubscribes := make([]func(), 0, len(h.streams))
	for source, st := range h.streams {
		if st.unsubscribe != nil {
			unsubscribes = append(unsubscribes, st.unsubscribe)
		}
		delete(h.streams, source)
	}
	h.mu.Unlock()
	for _, unsubscribe := range unsubscribes {
		unsubscribe()
	}
	h.metrics.AddWebSocketClients(context.WithoutCancel(ctx), -int64(n))

	h.logger.InfoContext(ctx, "hub stopped", slog.Int("disconnected", n))
}
