package events

import (
	"context"
	"fmt"

	awspkg "pizza-order-service/pkg/aws"
)

// SNSSink publishes order events to an SNS topic.
type SNSSink struct {
	publisher awspkg.SNSPublisher
	topicArn  string
}

// NewSNSSink returns nil when SNS is not configured.
func NewSNSSink(publisher awspkg.SNSPublisher, topicArn string) *SNSSink {
	if publisher == nil || topicArn == "" {
		return nil
	}
	return &SNSSink{publisher: publisher, topicArn: topicArn}
}

func (s *SNSSink) Name() string { return "sns" }

func (s *SNSSink) Publish(ctx context.Context, msg Message) error {
	body, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("encode %s event: %w", msg.EventType, err)
	}
	return s.publisher.Publish(ctx, s.topicArn, body)
}
