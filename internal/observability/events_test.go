package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPublisher struct {
	err error
}

func (p stubPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	return p.err
}

func TestPublishEventCountsOnlyDeliveredEvents(t *testing.T) {
	t.Cleanup(func() { SetPublisher(nil) })

	SetPublisher(stubPublisher{})
	require.NoError(t, PublishEvent(context.Background(), "chat_events.test_delivered", EventEnvelope{EventName: "test_delivered"}))
	assert.Equal(t, 1.0, testutil.ToFloat64(domainEventsTotal.WithLabelValues("test_delivered")))

	SetPublisher(stubPublisher{err: errors.New("broker down")})
	errorsBefore := testutil.ToFloat64(amqpPublishErrorsTotal)
	require.Error(t, PublishEvent(context.Background(), "chat_events.test_failed", EventEnvelope{EventName: "test_failed"}))
	assert.Equal(t, 0.0, testutil.ToFloat64(domainEventsTotal.WithLabelValues("test_failed")))
	assert.Equal(t, errorsBefore+1, testutil.ToFloat64(amqpPublishErrorsTotal))
}

func TestPublishEventNilPublisherDropsSilently(t *testing.T) {
	SetPublisher(nil)
	require.NoError(t, PublishEvent(context.Background(), "chat_events.test_dropped", EventEnvelope{EventName: "test_dropped"}))
	assert.Equal(t, 0.0, testutil.ToFloat64(domainEventsTotal.WithLabelValues("test_dropped")))
}
