package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
)

// Channel is the part of *amqp.Channel the publisher uses.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher sends JSON messages to Exchange. amqp channels are not safe for
// concurrent publishing, so calls are serialized.
type Publisher struct {
	mu sync.Mutex
	ch Channel
}

// NewPublisher creates a Publisher over ch.
func NewPublisher(ch Channel) *Publisher {
	return &Publisher{ch: ch}
}

// Publish marshals message and sends it persistently with routingKey. The
// message id is generated unless messageID is set.
func (p *Publisher) Publish(ctx context.Context, routingKey, messageID string, message any) error {
	const op = "rabbitmq.Publish"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if messageID == "" {
		messageID = uuid.NewString()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.Publish(
		Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
