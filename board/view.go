package board

import (
	"pizza-order-service/models"
	"sort"
)

// Less orders a board: orders with a preparation time come first, earliest
// first; the rest follow by creation time. Ids break ties.
func Less(a, b *models.Order) bool {
	switch {
	case a.PreparationTime != nil && b.PreparationTime == nil:
		return true
	case a.PreparationTime == nil && b.PreparationTime != nil:
		return false
	case a.PreparationTime != nil && b.PreparationTime != nil && !a.PreparationTime.Equal(*b.PreparationTime):
		return a.PreparationTime.Before(*b.PreparationTime)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

// View is one sorted, filtered list of orders as shown on a kitchen screen.
// A View is not safe for concurrent use; Board serialises access.
type View struct {
	name     string
	statuses map[models.OrderStatus]struct{}
	orders   []models.Order
}

// NewView creates a view accepting the given statuses. No statuses means
// every status matches.
func NewView(name string, statuses ...models.OrderStatus) *View {
	v := &View{name: name}
	if len(statuses) > 0 {
		v.statuses = make(map[models.OrderStatus]struct{}, len(statuses))
		for _, s := range statuses {
			v.statuses[s] = struct{}{}
		}
	}
	return v
}

func (v *View) Name() string { return v.name }

// Matches reports whether an order with status s belongs on this view.
func (v *View) Matches(s models.OrderStatus) bool {
	if v.statuses == nil {
		return true
	}
	_, ok := v.statuses[s]
	return ok
}

// Orders returns a copy of the current list.
func (v *View) Orders() []models.Order {
	out := make([]models.Order, len(v.orders))
	copy(out, v.orders)
	return out
}

func (v *View) Len() int { return len(v.orders) }

// Reset replaces the view content with the matching orders of a snapshot.
func (v *View) Reset(snapshot []models.Order) {
	v.orders = v.orders[:0]
	for _, o := range snapshot {
		if v.Matches(o.Status) {
			v.orders = append(v.orders, o)
		}
	}
	sort.SliceStable(v.orders, func(i, j int) bool {
		return Less(&v.orders[i], &v.orders[j])
	})
}

// ApplyCreated inserts a new matching order, or replaces it if it is already
// present. It reports whether the view changed.
func (v *View) ApplyCreated(o models.Order) bool {
	if !v.Matches(o.Status) {
		return false
	}
	v.remove(o.ID)
	v.insert(o)
	return true
}

// ApplyUpdated removes an order that no longer matches and inserts or
// repositions one that does.
func (v *View) ApplyUpdated(o models.Order) bool {
	removed := v.remove(o.ID)
	if !v.Matches(o.Status) {
		return removed
	}
	v.insert(o)
	return true
}

// ApplyDeleted removes the order with the given id if present.
func (v *View) ApplyDeleted(id int64) bool {
	return v.remove(id)
}

func (v *View) insert(o models.Order) {
	i := sort.Search(len(v.orders), func(i int) bool {
		return Less(&o, &v.orders[i])
	})
	v.orders = append(v.orders, models.Order{})
	copy(v.orders[i+1:], v.orders[i:])
	v.orders[i] = o
}

func (v *View) remove(id int64) bool {
	for i := range v.orders {
		if v.orders[i].ID == id {
			v.orders = append(v.orders[:i], v.orders[i+1:]...)
			return true
		}
	}
	return false
}
