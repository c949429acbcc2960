package mq

import (
	"context"
	"testing"

	"github.com/noteful/apiserver/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBackend struct {
	channel string
	data    []byte
	attrs   map[string]string
	closed  bool
}

func (b *recordingBackend) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	b.channel, b.data, b.attrs = channel, data, attrs
	return "id-1", nil
}

func (b *recordingBackend) Close() error {
	b.closed = true
	return nil
}

func TestMQ_DelegatesToBackend(t *testing.T) {
	backend := &recordingBackend{}
	m := New(backend, "memory")

	id, err := m.Publish(context.Background(), "noteful.events", []byte(`{}`), map[string]string{"type": "tag.created"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)
	assert.Equal(t, "noteful.events", backend.channel)
	assert.Equal(t, "memory", m.Name())

	require.NoError(t, m.Close())
	assert.True(t, backend.closed)
}

func TestOpen_ConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		backend string
	}{
		{"unknown backend", "kafka"},
		{"rabbitmq without url", BackendRabbitMQ},
		{"pubsub without project", BackendPubSub},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Config{Events: config.EventsConfig{Backend: tt.backend}}
			m, err := Open(context.Background(), cfg)
			assert.Error(t, err)
			assert.Nil(t, m)
		})
	}
}

func TestPublishing(t *testing.T) {
	attrs := map[string]string{"type": "note.deleted", "user_id": "u-1"}

	msg := publishing([]byte(`{"a":1}`), attrs, true)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, "note.deleted", msg.Type)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Len(t, msg.MessageId, 36)
	assert.Equal(t, amqp.Table{"type": "note.deleted", "user_id": "u-1"}, msg.Headers)
	assert.Equal(t, []byte(`{"a":1}`), msg.Body)

	transient := publishing(nil, nil, false)
	assert.Equal(t, uint8(0), transient.DeliveryMode)
	assert.Empty(t, transient.Headers)
	assert.NoError(t, transient.Headers.Validate())
}

func TestRabbitMQClient_RequiresChannel(t *testing.T) {
	c := &RabbitMQClient{declared: map[string]struct{}{}}
	_, err := c.Publish(context.Background(), "  ", nil, nil)
	assert.EqualError(t, err, "rabbitmq channel is required")
}
