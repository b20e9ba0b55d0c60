package hub

import (
	"context"
	"encoding/json"
	"errors"
	"pizza-order-service/apperrors"
	"pizza-order-service/models"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type stubSource struct {
	mu    sync.Mutex
	today []models.Order
	byID  map[int64]*models.Order
	gate  chan struct{}
	err   error

	lookups int
}

func (s *stubSource) FindToday(ctx context.Context) ([]models.Order, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.today, s.err
}

func (s *stubSource) FindByID(_ context.Context, id int64) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if o, ok := s.byID[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, apperrors.NotFound("Order not found")
}

func startHub(t *testing.T, src OrderSource) *Hub {
	t.Helper()
	h := New(src, Config{}, nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func testClient(h *Hub, buffer int) *Client {
	return &Client{id: h.nextID.Inc(), hub: h, send: make(chan []byte, buffer)}
}

func receive(t *testing.T, c *Client) models.Envelope {
	t.Helper()
	select {
	case frame, ok := <-c.send:
		require.True(t, ok, "client channel closed")
		var env models.Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
	return models.Envelope{}
}

func TestHub_SnapshotPrecedesEventsBufferedWhilePriming(t *testing.T) {
	src := &stubSource{
		today: []models.Order{{ID: 1, Status: models.StatusPending}},
		gate:  make(chan struct{}),
	}
	h := startHub(t, src)
	c := testClient(h, 8)

	h.register <- c
	h.Broadcast(models.OrderCreated(&models.Order{ID: 2, Status: models.StatusPending}))
	close(src.gate)

	first := receive(t, c)
	assert.Equal(t, models.EventInitialOrders, first.Event)
	var snapshot []models.Order
	require.NoError(t, json.Unmarshal(first.Data, &snapshot))
	require.Len(t, snapshot, 1)
	assert.Equal(t, int64(1), snapshot[0].ID)

	second := receive(t, c)
	assert.Equal(t, models.EventOrderCreated, second.Event)
}

func TestHub_EmptySnapshotIsArray(t *testing.T) {
	h := startHub(t, &stubSource{})
	c := testClient(h, 4)

	h.register <- c

	env := receive(t, c)
	assert.Equal(t, models.EventInitialOrders, env.Event)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestHub_SlowClientDroppedOthersServed(t *testing.T) {
	h := startHub(t, &stubSource{})
	slow := testClient(h, 1)
	fast := testClient(h, 16)

	h.register <- slow
	h.register <- fast
	receive(t, fast)
	assert.Eventually(t, func() bool { return len(slow.send) == 1 }, 2*time.Second, 10*time.Millisecond)

	h.Broadcast(models.OrderDeleted(9))

	env := receive(t, fast)
	assert.Equal(t, models.EventOrderDeleted, env.Event)
	assert.JSONEq(t, `9`, string(env.Data))

	<-slow.send // snapshot
	_, ok := <-slow.send
	assert.False(t, ok, "slow client should have been dropped")
	assert.Eventually(t, func() bool { return h.ConnectedClients() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_SnapshotFailureDropsClient(t *testing.T) {
	h := startHub(t, &stubSource{err: errors.New("db down")})
	c := testClient(h, 4)

	h.register <- c

	select {
	case _, ok := <-c.send:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("client was not dropped")
	}
}

func TestHub_RebroadcastUsesStoredOrder(t *testing.T) {
	src := &stubSource{byID: map[int64]*models.Order{
		5: {ID: 5, CustomerName: "Ana", Status: models.StatusBaking},
	}}
	h := startHub(t, src)
	c := testClient(h, 8)
	h.register <- c
	receive(t, c)

	h.rebroadcast(models.EventOrderUpdated, 5)

	env := receive(t, c)
	assert.Equal(t, models.EventOrderUpdated, env.Event)
	var o models.Order
	require.NoError(t, json.Unmarshal(env.Data, &o))
	assert.Equal(t, models.StatusBaking, o.Status)
}

func TestHub_DeleteMirrorOnlyForMissingOrders(t *testing.T) {
	src := &stubSource{byID: map[int64]*models.Order{5: {ID: 5}}}
	h := startHub(t, src)
	c := testClient(h, 8)
	h.register <- c
	receive(t, c)

	h.rebroadcast(models.EventOrderDeleted, 5)
	h.rebroadcast(models.EventOrderDeleted, 6)

	env := receive(t, c)
	assert.Equal(t, models.EventOrderDeleted, env.Event)
	assert.JSONEq(t, `6`, string(env.Data))
}

func TestClient_MirrorFramesAreRateLimited(t *testing.T) {
	src := &stubSource{byID: map[int64]*models.Order{5: {ID: 5, Status: models.StatusBaking}}}
	h := New(src, Config{MirrorRate: rate.Every(time.Hour), MirrorBurst: 2}, nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)

	c := h.newClient(nil)
	frame := []byte(`{"event":"orderUpdated","data":{"id":5,"status":"READY"}}`)
	for i := 0; i < 10; i++ {
		c.handle(frame)
	}

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Equal(t, 2, src.lookups)
}

func TestOrderIDFrom(t *testing.T) {
	id, ok := orderIDFrom(json.RawMessage(`12`))
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)

	id, ok = orderIDFrom(json.RawMessage(`{"id":7,"status":"READY"}`))
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)

	_, ok = orderIDFrom(json.RawMessage(`"abc"`))
	assert.False(t, ok)
}
