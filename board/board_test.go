package board_test

import (
	"encoding/json"
	"pizza-order-service/board"
	"pizza-order-service/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)

func order(id int64, status models.OrderStatus, createdMin int) models.Order {
	return models.Order{
		ID:        id,
		Status:    status,
		CreatedAt: base.Add(time.Duration(createdMin) * time.Minute),
	}
}

func scheduled(id int64, status models.OrderStatus, createdMin, prepMin int) models.Order {
	o := order(id, status, createdMin)
	p := base.Add(time.Duration(prepMin) * time.Minute)
	o.PreparationTime = &p
	return o
}

func ids(orders []models.Order) []int64 {
	out := make([]int64, len(orders))
	for i, o := range orders {
		out[i] = o.ID
	}
	return out
}

func TestLess_ScheduledFirstThenCreatedAtThenID(t *testing.T) {
	v := board.NewView("all")
	v.Reset([]models.Order{
		order(4, models.StatusPending, 1),
		scheduled(3, models.StatusPending, 5, 90),
		order(2, models.StatusPending, 1),
		scheduled(1, models.StatusPending, 9, 30),
		order(5, models.StatusPending, 0),
	})

	assert.Equal(t, []int64{1, 3, 5, 2, 4}, ids(v.Orders()))
}

func TestView_CreatedRespectsFilter(t *testing.T) {
	v := board.NewView(board.AssemblyStation, models.StatusPending, models.StatusAssembly)

	assert.True(t, v.ApplyCreated(order(1, models.StatusPending, 0)))
	assert.False(t, v.ApplyCreated(order(2, models.StatusBaking, 1)))
	assert.True(t, v.ApplyCreated(order(1, models.StatusPending, 0)))

	assert.Equal(t, []int64{1}, ids(v.Orders()))
}

func TestView_UpdatedRemovesReplacesOrInserts(t *testing.T) {
	v := board.NewView(board.FinishingInProgress, models.StatusAssemblyCompleted, models.StatusBaking)
	v.Reset([]models.Order{
		order(1, models.StatusAssemblyCompleted, 0),
		order(2, models.StatusBaking, 1),
	})

	// leaves the view
	assert.True(t, v.ApplyUpdated(order(1, models.StatusReady, 0)))
	assert.Equal(t, []int64{2}, ids(v.Orders()))

	// never seen here but now matches
	assert.True(t, v.ApplyUpdated(order(3, models.StatusBaking, 2)))
	assert.Equal(t, []int64{2, 3}, ids(v.Orders()))

	// replaced in place and re-sorted by a new preparation time
	assert.True(t, v.ApplyUpdated(scheduled(3, models.StatusBaking, 2, 0)))
	assert.Equal(t, []int64{3, 2}, ids(v.Orders()))

	// absent and still not matching
	assert.False(t, v.ApplyUpdated(order(9, models.StatusDelivered, 3)))
}

func TestView_DeletedRemovesUnconditionally(t *testing.T) {
	v := board.NewView("all")
	v.Reset([]models.Order{order(1, models.StatusPending, 0)})

	assert.True(t, v.ApplyDeleted(1))
	assert.False(t, v.ApplyDeleted(1))
	assert.Equal(t, 0, v.Len())
}

func TestBoard_StatusProgressionMovesAcrossStations(t *testing.T) {
	b := board.New()
	b.Reset(nil)

	o := order(1, models.StatusPending, 0)
	require.NoError(t, b.Apply(models.OrderCreated(&o)))
	assert.Len(t, b.Orders(board.AssemblyStation), 1)
	assert.Len(t, b.Orders(board.TodayBoard), 1)

	o.Status = models.StatusBaking
	require.NoError(t, b.Apply(models.OrderUpdated(&o)))
	assert.Empty(t, b.Orders(board.AssemblyStation))
	assert.Len(t, b.Orders(board.FinishingInProgress), 1)

	o.Status = models.StatusReady
	require.NoError(t, b.Apply(models.OrderUpdated(&o)))
	assert.Empty(t, b.Orders(board.FinishingInProgress))
	assert.Len(t, b.Orders(board.FinishingReady), 1)

	require.NoError(t, b.Apply(models.OrderDeleted(1)))
	for _, name := range []string{board.TodayBoard, board.AssemblyStation, board.FinishingInProgress, board.FinishingReady} {
		assert.Empty(t, b.Orders(name), name)
	}
	assert.Nil(t, b.Orders("unknown"))
}

func TestBoard_SubscribeAndUnsubscribe(t *testing.T) {
	b := board.New()
	var changes []board.Change
	unsubscribe := b.Subscribe(func(c board.Change) { changes = append(changes, c) })

	o := order(1, models.StatusReady, 0)
	require.NoError(t, b.Apply(models.OrderCreated(&o)))
	require.Len(t, changes, 1)
	assert.ElementsMatch(t, []string{board.TodayBoard, board.FinishingReady}, changes[0].Views)

	unsubscribe()
	unsubscribe()
	require.NoError(t, b.Apply(models.OrderDeleted(1)))
	assert.Len(t, changes, 1)
}

func TestBoard_ApplyEnvelope(t *testing.T) {
	b := board.New()

	snapshot, err := models.NewEnvelope(models.EventInitialOrders, []models.Order{
		order(1, models.StatusPending, 0),
		order(2, models.StatusReady, 1),
	})
	require.NoError(t, err)
	require.NoError(t, b.ApplyEnvelope(snapshot))
	assert.Equal(t, []int64{1, 2}, ids(b.Orders(board.TodayBoard)))

	updated := order(1, models.StatusAssembly, 0)
	env, err := models.NewEnvelope(models.EventOrderUpdated, updated)
	require.NoError(t, err)
	require.NoError(t, b.ApplyEnvelope(env))
	assert.Equal(t, models.StatusAssembly, b.Orders(board.AssemblyStation)[0].Status)

	require.NoError(t, b.ApplyEnvelope(models.Envelope{Event: models.EventOrderDeleted, Data: json.RawMessage(`{"id":2}`)}))
	assert.Empty(t, b.Orders(board.FinishingReady))

	require.NoError(t, b.ApplyEnvelope(models.Envelope{Event: models.EventPong}))
	assert.Error(t, b.ApplyEnvelope(models.Envelope{Event: models.EventOrderCreated, Data: json.RawMessage(`"x"`)}))
}

func TestBoard_ApplyRejectsMissingOrder(t *testing.T) {
	b := board.New()
	assert.Error(t, b.Apply(models.OrderEvent{Name: models.EventOrderUpdated, OrderID: 1}))
}

func TestBoard_IgnoresEventsOlderThanBoard(t *testing.T) {
	b := board.New()
	b.Reset(nil)

	created := order(1, models.StatusPending, 0)
	created.UpdatedAt = created.CreatedAt
	baking := created
	baking.Status = models.StatusBaking
	baking.UpdatedAt = created.UpdatedAt.Add(time.Minute)

	// the update overtakes the create
	require.NoError(t, b.Apply(models.OrderUpdated(&baking)))
	require.NoError(t, b.Apply(models.OrderCreated(&created)))

	assert.Empty(t, b.Orders(board.AssemblyStation))
	require.Len(t, b.Orders(board.FinishingInProgress), 1)
	assert.Equal(t, models.StatusBaking, b.Orders(board.TodayBoard)[0].Status)

	// a late copy of a deleted order does not come back
	require.NoError(t, b.Apply(models.OrderDeleted(1)))
	require.NoError(t, b.Apply(models.OrderUpdated(&baking)))
	assert.Empty(t, b.Orders(board.TodayBoard))

	// a fresh snapshot forgets what was deleted before it
	b.Reset([]models.Order{created})
	assert.Len(t, b.Orders(board.AssemblyStation), 1)
}
