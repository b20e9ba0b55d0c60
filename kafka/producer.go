package kafka

import (
	"context"
	"pizza-order-service/events"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer mirrors order events onto a Kafka topic, keyed by order id so
// every event of one order lands on the same partition.
type Producer struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
}

func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
	logger.Info("Kafka producer initialized", zap.String("topic", topic), zap.Strings("brokers", brokers))
	return &Producer{writer: w, topic: topic, logger: logger}
}

func (p *Producer) Name() string { return "kafka" }

func (p *Producer) Publish(ctx context.Context, msg events.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	km := kafka.Message{
		Key:   []byte(strconv.FormatInt(msg.OrderID, 10)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(msg.EventType)},
		},
	}
	if err := p.writer.WriteMessages(ctx, km); err != nil {
		return err
	}
	p.logger.Debug("Order event published",
		zap.String("topic", p.topic),
		zap.String("event", msg.EventType),
		zap.Int64("order_id", msg.OrderID),
	)
	return nil
}

func (p *Producer) Close() error {
	p.logger.Info("Closing Kafka producer", zap.String("topic", p.topic))
	return p.writer.Close()
}
