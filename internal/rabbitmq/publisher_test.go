package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	mu        sync.Mutex
	published []amqp.Publishing
	keys      []string
	err       error
}

func (c *fakeChannel) Publish(exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if exchange != Exchange {
		return errors.New("unexpected exchange " + exchange)
	}
	c.keys = append(c.keys, key)
	c.published = append(c.published, msg)
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch)

	err := p.Publish(context.Background(), RouteTrialExpiring, "reminder-1", map[string]string{"tenant_id": "t1"})
	require.NoError(t, err)

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, RouteTrialExpiring, ch.keys[0])
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "reminder-1", msg.MessageId)

	var body map[string]string
	require.NoError(t, json.Unmarshal(msg.Body, &body))
	assert.Equal(t, "t1", body["tenant_id"])
}

func TestPublisher_GeneratesMessageID(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch)

	require.NoError(t, p.Publish(context.Background(), RouteBillingEvent, "", struct{}{}))
	require.NoError(t, p.Publish(context.Background(), RouteBillingEvent, "", struct{}{}))

	assert.NotEmpty(t, ch.published[0].MessageId)
	assert.NotEqual(t, ch.published[0].MessageId, ch.published[1].MessageId)
}

func TestPublisher_Errors(t *testing.T) {
	t.Run("channel error", func(t *testing.T) {
		p := NewPublisher(&fakeChannel{err: amqp.ErrClosed})
		err := p.Publish(context.Background(), RouteBillingEvent, "", struct{}{})
		assert.ErrorIs(t, err, amqp.ErrClosed)
	})

	t.Run("unmarshalable message", func(t *testing.T) {
		p := NewPublisher(&fakeChannel{})
		err := p.Publish(context.Background(), RouteBillingEvent, "", make(chan int))
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ch := &fakeChannel{}
		p := NewPublisher(ch)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := p.Publish(ctx, RouteBillingEvent, "", struct{}{})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, ch.published)
	})
}
