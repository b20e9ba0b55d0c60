package events

import (
	"context"
	"pizza-order-service/models"

	awspkg "pizza-order-service/pkg/aws"
)

// CountRecorder is satisfied by *awspkg.MetricsClient.
type CountRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
}

// MetricsSink turns order events into CloudWatch business counters.
type MetricsSink struct {
	recorder CountRecorder
	service  string
}

// NewMetricsSink returns nil when metrics are disabled.
func NewMetricsSink(client *awspkg.MetricsClient, service string) *MetricsSink {
	if !client.IsEnabled() {
		return nil
	}
	return &MetricsSink{recorder: client, service: service}
}

// NewMetricsSinkWithRecorder builds a sink over any counter backend.
func NewMetricsSinkWithRecorder(recorder CountRecorder, service string) *MetricsSink {
	return &MetricsSink{recorder: recorder, service: service}
}

func (s *MetricsSink) Name() string { return "cloudwatch" }

func (s *MetricsSink) Publish(ctx context.Context, msg Message) error {
	dims := map[string]string{"Service": s.service}

	switch models.EventName(msg.EventType) {
	case models.EventOrderCreated:
		return s.recorder.RecordCount(ctx, awspkg.MetricOrdersCreated, dims)
	case models.EventOrderUpdated:
		dims["Status"] = msg.Status
		return s.recorder.RecordCount(ctx, awspkg.MetricOrderStatusChanged, dims)
	case models.EventOrderDeleted:
		return s.recorder.RecordCount(ctx, awspkg.MetricOrdersDeleted, dims)
	}
	return nil
}
