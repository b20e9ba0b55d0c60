package hub_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"pizza-order-service/apperrors"
	"pizza-order-service/hub"
	"pizza-order-service/models"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memorySource struct {
	orders map[int64]*models.Order
}

func (m *memorySource) FindToday(_ context.Context) ([]models.Order, error) {
	var out []models.Order
	for i := int64(1); i <= int64(len(m.orders)); i++ {
		if o, ok := m.orders[i]; ok {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memorySource) FindByID(_ context.Context, id int64) (*models.Order, error) {
	if o, ok := m.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, apperrors.NotFound("Order not found")
}

func setupServer(t *testing.T, src hub.OrderSource) (*hub.Hub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	h := hub.New(src, hub.Config{}, nil, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	r := gin.New()
	r.GET("/ws", h.ServeWS(hub.NewUpgrader([]string{"*"})))
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return h, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) models.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var env models.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestServeWS_InitialSnapshotInCreationOrder(t *testing.T) {
	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	src := &memorySource{orders: map[int64]*models.Order{
		1: {ID: 1, CustomerName: "Ana", Status: models.StatusPending, CreatedAt: base},
		2: {ID: 2, CustomerName: "Bia", Status: models.StatusPending, CreatedAt: base.Add(time.Minute)},
		3: {ID: 3, CustomerName: "Caio", Status: models.StatusPending, CreatedAt: base.Add(2 * time.Minute)},
	}}
	_, url := setupServer(t, src)
	conn := dial(t, url)

	env := read(t, conn)

	assert.Equal(t, models.EventInitialOrders, env.Event)
	var orders []models.Order
	require.NoError(t, json.Unmarshal(env.Data, &orders))
	require.Len(t, orders, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{orders[0].ID, orders[1].ID, orders[2].ID})
}

func TestServeWS_BroadcastReachesEveryClient(t *testing.T) {
	h, url := setupServer(t, &memorySource{orders: map[int64]*models.Order{}})
	a := dial(t, url)
	b := dial(t, url)
	read(t, a)
	read(t, b)

	h.Broadcast(models.OrderUpdated(&models.Order{ID: 4, Status: models.StatusReady}))

	for _, conn := range []*websocket.Conn{a, b} {
		env := read(t, conn)
		assert.Equal(t, models.EventOrderUpdated, env.Event)
		var o models.Order
		require.NoError(t, json.Unmarshal(env.Data, &o))
		assert.Equal(t, models.StatusReady, o.Status)
	}
}

func TestServeWS_PingGetsPong(t *testing.T) {
	_, url := setupServer(t, &memorySource{orders: map[int64]*models.Order{}})
	conn := dial(t, url)
	read(t, conn)

	require.NoError(t, conn.WriteJSON(models.Envelope{Event: models.EventPing}))

	env := read(t, conn)
	assert.Equal(t, models.EventPong, env.Event)
}

func TestServeWS_MirrorEventRebroadcastsStoredState(t *testing.T) {
	src := &memorySource{orders: map[int64]*models.Order{
		1: {ID: 1, CustomerName: "Ana", Status: models.StatusAssembly},
	}}
	_, url := setupServer(t, src)
	sender := dial(t, url)
	watcher := dial(t, url)
	read(t, sender)
	read(t, watcher)

	// The client claims READY; the store says ASSEMBLY.
	require.NoError(t, sender.WriteJSON(map[string]interface{}{
		"event": "orderUpdated",
		"data":  map[string]interface{}{"id": 1, "status": "READY"},
	}))

	for _, conn := range []*websocket.Conn{sender, watcher} {
		env := read(t, conn)
		assert.Equal(t, models.EventOrderUpdated, env.Event)
		var o models.Order
		require.NoError(t, json.Unmarshal(env.Data, &o))
		assert.Equal(t, models.StatusAssembly, o.Status)
	}
}

func TestServeWS_DisconnectUnregisters(t *testing.T) {
	h, url := setupServer(t, &memorySource{orders: map[int64]*models.Order{}})
	conn := dial(t, url)
	read(t, conn)
	assert.Eventually(t, func() bool { return h.ConnectedClients() == 1 }, 2*time.Second, 10*time.Millisecond)

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()

	assert.Eventually(t, func() bool { return h.ConnectedClients() == 0 }, 2*time.Second, 10*time.Millisecond)
}
