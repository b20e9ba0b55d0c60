package models

import "encoding/json"

// EventName identifies a message on the real-time channel.
type EventName string

const (
	EventInitialOrders EventName = "initialOrders"
	EventOrderCreated  EventName = "orderCreated"
	EventOrderUpdated  EventName = "orderUpdated"
	EventOrderDeleted  EventName = "orderDeleted"
	EventPing          EventName = "ping"
	EventPong          EventName = "pong"
)

// Envelope is the JSON frame exchanged over the websocket.
type Envelope struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope encodes payload as the data of an envelope.
func NewEnvelope(event EventName, payload interface{}) (Envelope, error) {
	if payload == nil {
		return Envelope{Event: event}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: data}, nil
}

// OrderEvent is a committed mutation ready for fan-out.
// Order is set for created/updated, OrderID for every kind.
type OrderEvent struct {
	Name    EventName
	OrderID int64
	Order   *Order
}

// Payload returns the wire payload for the event.
func (e OrderEvent) Payload() interface{} {
	if e.Name == EventOrderDeleted {
		return e.OrderID
	}
	return e.Order
}

// OrderCreated builds the event published after a successful create.
func OrderCreated(o *Order) OrderEvent {
	return OrderEvent{Name: EventOrderCreated, OrderID: o.ID, Order: o}
}

// OrderUpdated builds the event published after a status change.
func OrderUpdated(o *Order) OrderEvent {
	return OrderEvent{Name: EventOrderUpdated, OrderID: o.ID, Order: o}
}

// OrderDeleted builds the event published after a delete.
func OrderDeleted(id int64) OrderEvent {
	return OrderEvent{Name: EventOrderDeleted, OrderID: id}
}
