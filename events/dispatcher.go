package events

import (
	"context"
	"encoding/json"
	"pizza-order-service/metrics"
	"pizza-order-service/models"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Broadcaster delivers an event to every connected screen.
type Broadcaster interface {
	Broadcast(evt models.OrderEvent)
}

// Sink is a best-effort downstream copy of the order event stream.
type Sink interface {
	Name() string
	Publish(ctx context.Context, msg Message) error
}

// Message is the payload written to mirror sinks.
type Message struct {
	EventType string        `json:"event_type"`
	OrderID   int64         `json:"order_id"`
	Status    string        `json:"status,omitempty"`
	Order     *models.Order `json:"order,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Encode returns the JSON form of the message.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Dispatcher hands committed mutations to the hub and mirrors them downstream.
// Mirror failures are logged and counted but never surface to the caller.
type Dispatcher struct {
	hub     Broadcaster
	sinks   []Sink
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Registry
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher. Nil sinks are skipped.
func NewDispatcher(hub Broadcaster, reg *metrics.Registry, logger *zap.Logger, sinks ...Sink) *Dispatcher {
	d := &Dispatcher{
		hub:     hub,
		timeout: 5 * time.Second,
		logger:  logger,
		metrics: reg,
	}
	for _, s := range sinks {
		if s != nil {
			d.sinks = append(d.sinks, s)
		}
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	return d
}

// Dispatch broadcasts evt and starts the mirror publishes in the background.
func (d *Dispatcher) Dispatch(evt models.OrderEvent) {
	if d.hub != nil {
		d.hub.Broadcast(evt)
	}
	if len(d.sinks) == 0 {
		return
	}

	msg := Message{
		EventType: string(evt.Name),
		OrderID:   evt.OrderID,
		Order:     evt.Order,
		Timestamp: time.Now().UTC(),
	}
	if evt.Order != nil {
		msg.Status = string(evt.Order.Status)
	}

	for _, s := range d.sinks {
		d.wg.Add(1)
		go func(s Sink) {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()
			if err := s.Publish(ctx, msg); err != nil {
				if d.metrics != nil {
					d.metrics.MirrorFailures.WithLabelValues(s.Name()).Inc()
				}
				d.logger.Warn("Failed to mirror order event",
					zap.String("sink", s.Name()),
					zap.String("event", msg.EventType),
					zap.Int64("order_id", msg.OrderID),
					zap.Error(err),
				)
			}
		}(s)
	}
}

// Wait blocks until in-flight mirror publishes finish.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
