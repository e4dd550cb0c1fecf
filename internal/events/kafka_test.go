package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	fail   bool
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broker down")
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func TestKafkaPublisher_WrapsPayloadInEnvelope(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisher(w, "order-service", 4)

	require.NoError(t, p.Publish(context.Background(), TopicOrderPaid, "o1",
		OrderSettled{OrderID: "o1", Status: "paid", AmountMinor: 20000}))
	p.Close()

	require.Len(t, w.msgs, 1)
	assert.True(t, w.closed)
	m := w.msgs[0]
	assert.Equal(t, TopicOrderPaid, m.Topic)
	assert.Equal(t, "o1", string(m.Key))

	var env Envelope
	require.NoError(t, json.Unmarshal(m.Value, &env))
	assert.Equal(t, TopicOrderPaid, env.EventType)
	assert.Equal(t, "order-service", env.Producer)
	assert.Equal(t, "o1", env.CorrelationID)
	assert.NotEmpty(t, env.EventID)

	var got OrderSettled
	require.NoError(t, json.Unmarshal(env.Payload, &got))
	assert.Equal(t, int64(20000), got.AmountMinor)
}

func TestKafkaPublisher_WriteErrorsAreNotFatal(t *testing.T) {
	w := &fakeWriter{fail: true}
	p := newPublisher(w, "order-service", 1)
	require.NoError(t, p.Publish(context.Background(), TopicOrderCreated, "o1", OrderCreated{OrderID: "o1"}))
	p.Close()
	assert.Empty(t, w.msgs)
	assert.True(t, w.closed)
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard{}.Publish(context.Background(), TopicOrderCreated, "o1", nil))
}
