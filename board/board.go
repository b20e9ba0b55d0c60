package board

import (
	"encoding/json"
	"fmt"
	"pizza-order-service/models"
	"sync"
	"time"
)

// View names of the predefined kitchen screens.
const (
	TodayBoard          = "today"
	AssemblyStation     = "assembly"
	FinishingInProgress = "finishing-in-progress"
	FinishingReady      = "finishing-ready"
)

// KitchenViews returns the screens used in the kitchen.
func KitchenViews() []*View {
	return []*View{
		NewView(TodayBoard),
		NewView(AssemblyStation, models.StatusPending, models.StatusAssembly),
		NewView(FinishingInProgress, models.StatusAssemblyCompleted, models.StatusBaking),
		NewView(FinishingReady, models.StatusReady),
	}
}

// Change describes what one applied event did.
type Change struct {
	Event   models.EventName
	OrderID int64
	Views   []string
}

// Listener is called after each applied event, outside the board lock.
type Listener func(Change)

// Board holds a set of views and keeps them in step with the order stream.
type Board struct {
	mu        sync.RWMutex
	views     []*View
	byName    map[string]*View
	listeners map[int]Listener
	nextID    int

	// updatedAt of the newest version applied per order, and ids deleted
	// since the last snapshot. Used to drop events that arrive out of order.
	versions map[int64]time.Time
	gone     map[int64]struct{}
}

// New creates a board over views. With no views the kitchen screens are used.
func New(views ...*View) *Board {
	if len(views) == 0 {
		views = KitchenViews()
	}
	b := &Board{
		views:     views,
		byName:    make(map[string]*View, len(views)),
		listeners: make(map[int]Listener),
		versions:  make(map[int64]time.Time),
		gone:      make(map[int64]struct{}),
	}
	for _, v := range views {
		b.byName[v.Name()] = v
	}
	return b
}

// Subscribe registers fn and returns a function that removes it. Calling the
// returned function more than once is harmless.
func (b *Board) Subscribe(fn Listener) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.listeners, id)
			b.mu.Unlock()
		})
	}
}

// Orders returns a copy of the named view, or nil if no such view exists.
func (b *Board) Orders(view string) []models.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()

	v, ok := b.byName[view]
	if !ok {
		return nil
	}
	return v.Orders()
}

// Reset replaces every view with the content of a fresh snapshot.
func (b *Board) Reset(snapshot []models.Order) {
	b.mu.Lock()
	b.versions = make(map[int64]time.Time, len(snapshot))
	b.gone = make(map[int64]struct{})
	for _, o := range snapshot {
		b.versions[o.ID] = o.UpdatedAt
	}
	names := make([]string, 0, len(b.views))
	for _, v := range b.views {
		v.Reset(snapshot)
		names = append(names, v.Name())
	}
	b.mu.Unlock()

	b.notify(Change{Event: models.EventInitialOrders, Views: names})
}

// Apply merges a committed order event into every view. A created or
// updated event older than the version already on the board, or about an
// order already deleted, is ignored.
func (b *Board) Apply(evt models.OrderEvent) error {
	switch evt.Name {
	case models.EventOrderCreated, models.EventOrderUpdated:
		if evt.Order == nil {
			return fmt.Errorf("%s event without order", evt.Name)
		}
	case models.EventOrderDeleted:
	default:
		return fmt.Errorf("unsupported event %q", evt.Name)
	}

	b.mu.Lock()
	if b.stale(evt) {
		b.mu.Unlock()
		return nil
	}
	var changed []string
	for _, v := range b.views {
		var hit bool
		switch evt.Name {
		case models.EventOrderCreated:
			hit = v.ApplyCreated(*evt.Order)
		case models.EventOrderUpdated:
			hit = v.ApplyUpdated(*evt.Order)
		case models.EventOrderDeleted:
			hit = v.ApplyDeleted(evt.OrderID)
		}
		if hit {
			changed = append(changed, v.Name())
		}
	}
	b.mu.Unlock()

	if len(changed) > 0 {
		b.notify(Change{Event: evt.Name, OrderID: evt.OrderID, Views: changed})
	}
	return nil
}

// stale reports whether evt is older than what the board holds and records
// its version otherwise. Callers hold b.mu.
func (b *Board) stale(evt models.OrderEvent) bool {
	if evt.Name == models.EventOrderDeleted {
		delete(b.versions, evt.OrderID)
		b.gone[evt.OrderID] = struct{}{}
		return false
	}
	o := evt.Order
	if _, deleted := b.gone[o.ID]; deleted {
		return true
	}
	if seen, ok := b.versions[o.ID]; ok && seen.After(o.UpdatedAt) {
		return true
	}
	b.versions[o.ID] = o.UpdatedAt
	return false
}

// ApplyEnvelope decodes a hub frame and applies it. Frames that do not
// concern the board, such as pong, are ignored.
func (b *Board) ApplyEnvelope(env models.Envelope) error {
	switch env.Event {
	case models.EventInitialOrders:
		var orders []models.Order
		if err := json.Unmarshal(env.Data, &orders); err != nil {
			return fmt.Errorf("decode %s: %w", env.Event, err)
		}
		b.Reset(orders)
		return nil
	case models.EventOrderCreated, models.EventOrderUpdated:
		var o models.Order
		if err := json.Unmarshal(env.Data, &o); err != nil {
			return fmt.Errorf("decode %s: %w", env.Event, err)
		}
		return b.Apply(models.OrderEvent{Name: env.Event, OrderID: o.ID, Order: &o})
	case models.EventOrderDeleted:
		id, err := decodeID(env.Data)
		if err != nil {
			return fmt.Errorf("decode %s: %w", env.Event, err)
		}
		return b.Apply(models.OrderDeleted(id))
	default:
		return nil
	}
}

func (b *Board) notify(c Change) {
	b.mu.RLock()
	fns := make([]Listener, 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}

// decodeID accepts a bare id or an object carrying one.
func decodeID(data json.RawMessage) (int64, error) {
	var id int64
	if err := json.Unmarshal(data, &id); err == nil {
		return id, nil
	}
	var obj struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return 0, err
	}
	if obj.ID == 0 {
		return 0, fmt.Errorf("missing id")
	}
	return obj.ID, nil
}
