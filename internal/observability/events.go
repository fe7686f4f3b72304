package observability

import "context"

// Publisher is the event sink handlers publish domain events through.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// EventEnvelope wraps a domain event with its correlation identifiers.
type EventEnvelope struct {
	EventType string `json:"event_type"`
	EventName string `json:"event_name"`
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
	Payload   any    `json:"payload"`
}

var defaultPublisher Publisher

// SetPublisher installs the process-wide event publisher.
func SetPublisher(publisher Publisher) {
	defaultPublisher = publisher
}

// PublishEvent publishes through the installed publisher; a nil publisher
// drops the event silently. The domain-events counter only counts deliveries,
// failed publishes land on the error counter instead.
func PublishEvent(ctx context.Context, routingKey string, envelope EventEnvelope) error {
	if defaultPublisher == nil {
		return nil
	}

	if err := defaultPublisher.Publish(ctx, routingKey, envelope); err != nil {
		IncAMQPPublishError()
		return err
	}
	IncDomainEvent(envelope.EventName)
	return nil
}
