package kitchenclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"pizza-order-service/board"
	"pizza-order-service/models"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// ErrHeartbeatTimeout is returned when the hub stops answering pings.
var ErrHeartbeatTimeout = errors.New("heartbeat timeout")

// Config describes how a kitchen screen connects to the hub.
type Config struct {
	// URL of the hub endpoint, e.g. ws://localhost:3000/ws.
	URL   string
	Token string

	HeartbeatInterval time.Duration
	HeartbeatTimeout  time.Duration

	// When Fetcher is set and no initialOrders frame arrives within
	// SnapshotGrace, the board is loaded over REST instead.
	Fetcher       *SnapshotFetcher
	SnapshotGrace time.Duration

	Backoff *Backoff
	Dialer  *websocket.Dialer
}

// Client keeps a board in sync with the hub across reconnects.
type Client struct {
	cfg     Config
	board   *board.Board
	backoff *Backoff
	dialer  *websocket.Dialer
	logger  *zap.Logger

	connected atomic.Bool
	sessions  atomic.Int64
}

func New(cfg Config, b *board.Board, logger *zap.Logger) *Client {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 25 * time.Second
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = 10 * time.Second
	}
	if cfg.SnapshotGrace <= 0 {
		cfg.SnapshotGrace = 5 * time.Second
	}
	if cfg.Backoff == nil {
		cfg.Backoff = DefaultBackoff()
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:     cfg,
		board:   b,
		backoff: cfg.Backoff,
		dialer:  cfg.Dialer,
		logger:  logger,
	}
}

// Connected reports whether a session is currently open.
func (c *Client) Connected() bool { return c.connected.Load() }

// Sessions counts successful connections so far.
func (c *Client) Sessions() int64 { return c.sessions.Load() }

// Run connects and reconnects until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := c.backoff.Next()
		c.logger.Warn("Hub connection lost, retrying",
			zap.Error(err),
			zap.Int("attempt", c.backoff.Attempt()),
			zap.Duration("delay", delay),
		)

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (c *Client) session(ctx context.Context) error {
	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial hub: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("dial hub: %w", err)
	}
	defer conn.Close()

	c.backoff.Reset()
	c.sessions.Inc()
	c.connected.Store(true)
	defer c.connected.Store(false)
	c.logger.Info("Connected to hub", zap.String("url", c.cfg.URL))

	// Cancelled when this session ends so a late REST reply is discarded.
	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Frames are applied on this goroutine only, so a REST snapshot and
	// the hub snapshot never interleave.
	frames := make(chan models.Envelope)
	readErr := make(chan error, 1)
	go func() {
		for {
			var env models.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- env:
			case <-sessCtx.Done():
				return
			}
		}
	}()

	heartbeat := time.NewTicker(c.cfg.HeartbeatInterval)
	defer heartbeat.Stop()

	var (
		lastPong     time.Time
		pingSent     time.Time
		snapshotSeen bool
		pongWaitC    <-chan time.Time
		snapshotC    <-chan time.Time
		restC        = make(chan []models.Order, 1)
	)
	if c.cfg.Fetcher != nil {
		graceTimer := time.NewTimer(c.cfg.SnapshotGrace)
		defer graceTimer.Stop()
		snapshotC = graceTimer.C
	}

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return ctx.Err()

		case err := <-readErr:
			return err

		case env := <-frames:
			switch env.Event {
			case models.EventPong:
				lastPong = time.Now()
				continue
			case models.EventInitialOrders:
				snapshotSeen = true
			}
			if err := c.board.ApplyEnvelope(env); err != nil {
				c.logger.Warn("Dropping bad frame", zap.String("event", string(env.Event)), zap.Error(err))
			}

		case <-heartbeat.C:
			ping, err := models.NewEnvelope(models.EventPing, nil)
			if err != nil {
				return err
			}
			if err := conn.WriteJSON(ping); err != nil {
				return err
			}
			if pongWaitC == nil {
				pingSent = time.Now()
				pongWaitC = time.After(c.cfg.HeartbeatTimeout)
			}

		case <-pongWaitC:
			pongWaitC = nil
			if lastPong.Before(pingSent) {
				return ErrHeartbeatTimeout
			}

		case <-snapshotC:
			snapshotC = nil
			if snapshotSeen {
				continue
			}
			c.logger.Warn("No snapshot from hub yet, loading over REST")
			go c.fetchSnapshot(sessCtx, restC)

		case orders := <-restC:
			if snapshotSeen {
				continue
			}
			c.board.Reset(orders)
		}
	}
}

func (c *Client) fetchSnapshot(ctx context.Context, out chan<- []models.Order) {
	orders, err := c.cfg.Fetcher.Today(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Error("REST snapshot failed", zap.Error(err))
		}
		return
	}
	select {
	case out <- orders:
	case <-ctx.Done():
	}
}
