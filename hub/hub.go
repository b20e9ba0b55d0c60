package hub

import (
	"context"
	"encoding/json"
	"pizza-order-service/apperrors"
	"pizza-order-service/metrics"
	"pizza-order-service/models"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// OrderSource is the read side the hub needs for snapshots and re-broadcasts.
type OrderSource interface {
	FindToday(ctx context.Context) ([]models.Order, error)
	FindByID(ctx context.Context, id int64) (*models.Order, error)
}

// Config tunes per-client buffering and websocket timings.
type Config struct {
	SendBuffer      int
	PrimeBuffer     int
	SnapshotTimeout time.Duration
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxMessageSize  int64

	// Per-client token bucket for mirror frames.
	MirrorRate  rate.Limit
	MirrorBurst int
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		SendBuffer:      64,
		PrimeBuffer:     256,
		SnapshotTimeout: 10 * time.Second,
		WriteWait:       10 * time.Second,
		PongWait:        60 * time.Second,
		PingPeriod:      54 * time.Second,
		MaxMessageSize:  64 * 1024,
		MirrorRate:      5,
		MirrorBurst:     10,
	}
}

type primeResult struct {
	client *Client
	frame  []byte
	err    error
}

type directMsg struct {
	client *Client
	frame  []byte
}

// Hub is the registry of connected kitchen screens. A single goroutine
// (Run) owns the registry; everything else talks to it over channels.
type Hub struct {
	source  OrderSource
	cfg     Config
	logger  *zap.Logger
	metrics *metrics.Registry

	register   chan *Client
	unregister chan *Client
	broadcast  chan models.OrderEvent
	primed     chan primeResult
	direct     chan directMsg
	done       chan struct{}

	clients   map[*Client]bool
	nextID    atomic.Int64
	connected atomic.Int64
}

// New creates a Hub. Call Run before serving connections.
func New(source OrderSource, cfg Config, reg *metrics.Registry, logger *zap.Logger) *Hub {
	def := DefaultConfig()
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.PrimeBuffer <= 0 {
		cfg.PrimeBuffer = def.PrimeBuffer
	}
	if cfg.SnapshotTimeout <= 0 {
		cfg.SnapshotTimeout = def.SnapshotTimeout
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = def.WriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = def.PongWait
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = cfg.PongWait * 9 / 10
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.MirrorRate <= 0 {
		cfg.MirrorRate = def.MirrorRate
	}
	if cfg.MirrorBurst <= 0 {
		cfg.MirrorBurst = def.MirrorBurst
	}
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		source:     source,
		cfg:        cfg,
		logger:     logger,
		metrics:    reg,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan models.OrderEvent, 256),
		primed:     make(chan primeResult),
		direct:     make(chan directMsg, 64),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
	}
}

// Run processes registry events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		case c := <-h.register:
			h.clients[c] = true
			c.priming = true
			h.connected.Inc()
			h.metrics.ClientsConnected.Inc()
			h.logger.Info("Kitchen screen connected", zap.Int64("client_id", c.id), zap.Int64("connected", h.connected.Load()))
			go h.loadSnapshot(c)
		case c := <-h.unregister:
			if h.clients[c] {
				h.drop(c)
			}
		case res := <-h.primed:
			h.finishPriming(res)
		case msg := <-h.direct:
			if h.clients[msg.client] {
				h.deliver(msg.client, msg.frame)
			}
		case evt := <-h.broadcast:
			h.fanOut(evt)
		}
	}
}

// Broadcast queues a committed mutation for delivery to every connected client.
// It never blocks on slow clients.
func (h *Hub) Broadcast(evt models.OrderEvent) {
	select {
	case h.broadcast <- evt:
	case <-h.done:
	}
}

// ConnectedClients returns the number of registered clients.
func (h *Hub) ConnectedClients() int64 {
	return h.connected.Load()
}

func (h *Hub) loadSnapshot(c *Client) {
	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.SnapshotTimeout)
	defer cancel()

	res := primeResult{client: c}
	orders, err := h.source.FindToday(ctx)
	if err == nil {
		if orders == nil {
			orders = []models.Order{}
		}
		res.frame, err = encode(models.EventInitialOrders, orders)
	}
	res.err = err

	select {
	case h.primed <- res:
	case <-h.done:
	}
}

func (h *Hub) finishPriming(res primeResult) {
	c := res.client
	if !h.clients[c] {
		return
	}
	if res.err != nil {
		// No empty board: the client reconnects and asks again.
		h.metrics.SnapshotFailures.Inc()
		h.logger.Error("Failed to load snapshot for client", zap.Int64("client_id", c.id), zap.Error(res.err))
		h.drop(c)
		return
	}

	c.priming = false
	pending := c.pending
	c.pending = nil
	if !h.deliver(c, res.frame) {
		return
	}
	for _, frame := range pending {
		if !h.deliver(c, frame) {
			return
		}
	}
}

func (h *Hub) fanOut(evt models.OrderEvent) {
	frame, err := encode(evt.Name, evt.Payload())
	if err != nil {
		h.logger.Error("Failed to encode event", zap.String("event", string(evt.Name)), zap.Error(err))
		return
	}
	h.metrics.Broadcasts.WithLabelValues(string(evt.Name)).Inc()

	for c := range h.clients {
		if c.priming {
			if len(c.pending) >= h.cfg.PrimeBuffer {
				h.logger.Warn("Dropping client, too many events while priming", zap.Int64("client_id", c.id))
				h.drop(c)
				continue
			}
			c.pending = append(c.pending, frame)
			continue
		}
		h.deliver(c, frame)
	}
}

// deliver enqueues frame without blocking; a full queue drops the client.
func (h *Hub) deliver(c *Client, frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		h.logger.Warn("Dropping slow client", zap.Int64("client_id", c.id))
		h.drop(c)
		return false
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	close(c.send)
	h.connected.Dec()
	h.metrics.ClientsConnected.Dec()
	h.metrics.ClientsDropped.Inc()
	h.logger.Info("Kitchen screen disconnected", zap.Int64("client_id", c.id), zap.Int64("connected", h.connected.Load()))
}

// reply sends a frame to one client only.
func (h *Hub) reply(c *Client, frame []byte) {
	select {
	case h.direct <- directMsg{client: c, frame: frame}:
	case <-h.done:
	}
}

// rebroadcast answers a client mirror event with the stored state of the order.
// Client payloads are never relayed.
func (h *Hub) rebroadcast(name models.EventName, id int64) {
	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.SnapshotTimeout)
	defer cancel()

	order, err := h.source.FindByID(ctx, id)
	switch {
	case err == nil && name == models.EventOrderDeleted:
		h.logger.Debug("Ignoring delete mirror for existing order", zap.Int64("order_id", id))
	case err == nil:
		h.Broadcast(models.OrderEvent{Name: name, OrderID: id, Order: order})
	case apperrors.Is(err, apperrors.KindNotFound) && name == models.EventOrderDeleted:
		h.Broadcast(models.OrderDeleted(id))
	case apperrors.Is(err, apperrors.KindNotFound):
		h.logger.Debug("Ignoring mirror for unknown order", zap.String("event", string(name)), zap.Int64("order_id", id))
	default:
		h.logger.Warn("Failed to re-read order for mirror event", zap.Int64("order_id", id), zap.Error(err))
	}
}

func encode(name models.EventName, payload interface{}) ([]byte, error) {
	env, err := models.NewEnvelope(name, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}
