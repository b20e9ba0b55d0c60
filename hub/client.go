package hub

import (
	"bytes"
	"encoding/json"
	"net/http"
	"pizza-order-service/models"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client is one connected screen. send is closed by the hub when the
// client is removed from the registry.
type Client struct {
	id   int64
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mirrors *rate.Limiter

	// owned by the hub loop
	priming bool
	pending [][]byte
}

func (h *Hub) newClient(conn *websocket.Conn) *Client {
	return &Client{
		id:   h.nextID.Inc(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.cfg.SendBuffer),

		mirrors: rate.NewLimiter(h.cfg.MirrorRate, h.cfg.MirrorBurst),
	}
}

// ServeWS upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeWS(upgrader websocket.Upgrader) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
		if err != nil {
			h.logger.Warn("Websocket upgrade failed", zap.Error(err))
			return
		}

		c := h.newClient(conn)
		select {
		case h.register <- c:
		case <-h.done:
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			_ = conn.Close()
			return
		}

		go c.writePump()
		go c.readPump()
	}
}

// NewUpgrader builds an upgrader accepting the given origins ("*" accepts all).
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, o := range allowedOrigins {
				if o == "*" || o == origin {
					return true
				}
			}
			return false
		},
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	cfg := c.hub.cfg
	c.conn.SetReadLimit(cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("Websocket read error", zap.Int64("client_id", c.id), zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
		c.handle(raw)
	}
}

func (c *Client) handle(raw []byte) {
	var env models.Envelope
	if err := json.Unmarshal(bytes.TrimSpace(raw), &env); err != nil {
		c.hub.logger.Debug("Ignoring malformed frame", zap.Int64("client_id", c.id), zap.Error(err))
		return
	}

	switch env.Event {
	case models.EventPing:
		frame, err := encode(models.EventPong, map[string]int64{"ts": time.Now().UnixMilli()})
		if err == nil {
			c.hub.reply(c, frame)
		}
	case models.EventOrderCreated, models.EventOrderUpdated, models.EventOrderDeleted:
		id, ok := orderIDFrom(env.Data)
		if !ok {
			c.hub.logger.Debug("Mirror event without order id", zap.String("event", string(env.Event)))
			return
		}
		if !c.mirrors.Allow() {
			c.hub.logger.Debug("Mirror rate exceeded", zap.Int64("client_id", c.id), zap.Int64("order_id", id))
			return
		}
		// Inline on the read loop: one re-read per client at a time.
		c.hub.rebroadcast(env.Event, id)
	default:
		c.hub.logger.Debug("Ignoring unknown event", zap.String("event", string(env.Event)))
	}
}

// orderIDFrom accepts either a bare id or an object carrying "id".
func orderIDFrom(data json.RawMessage) (int64, bool) {
	if len(data) == 0 {
		return 0, false
	}
	var id int64
	if err := json.Unmarshal(data, &id); err == nil && id > 0 {
		return id, true
	}
	var obj struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.ID > 0 {
		return obj.ID, true
	}
	return 0, false
}

func (c *Client) writePump() {
	cfg := c.hub.cfg
	ticker := time.NewTicker(cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
