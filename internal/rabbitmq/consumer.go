package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/strata-gate/internal/lib/sl"
)

const prefetch = 10

// ErrPermanent marks a handler failure that redelivery cannot fix. Such
// messages are dropped instead of requeued.
var ErrPermanent = errors.New("permanent failure")

// Handler processes one message body.
type Handler func(ctx context.Context, body []byte) error

// Consume delivers messages of queueName to handler, at most prefetch at a
// time. Successful messages are acked, ErrPermanent ones rejected, anything
// else requeued. It returns once ctx is done or the delivery channel closes
// and all in-flight handlers have returned.
func Consume(ctx context.Context, ch *amqp.Channel, queueName string, handler Handler, log *slog.Logger) error {
	const op = "rabbitmq.Consume"
	log = log.With(slog.String("op", op), slog.String("queue", queueName))

	deliveries, err := ch.Consume(
		queueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	sem := make(chan struct{}, prefetch)
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			sem <- struct{}{}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				settle(ctx, d, handler, log)
			}(d)
		}
	}
}

// Acknowledger is the part of amqp.Delivery settle needs.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func settle(ctx context.Context, d amqp.Delivery, handler Handler, log *slog.Logger) {
	settleWith(ctx, d, d.Body, d.MessageId, handler, log)
}

func settleWith(ctx context.Context, ack Acknowledger, body []byte, messageID string, handler Handler, log *slog.Logger) {
	log = log.With(slog.String("message_id", messageID))

	err := handler(ctx, body)
	switch {
	case err == nil:
		if ackErr := ack.Ack(false); ackErr != nil {
			log.Error("failed to ack message", sl.Err(ackErr))
		}
	case errors.Is(err, ErrPermanent):
		log.Warn("dropping message", sl.Err(err))
		if nackErr := ack.Nack(false, false); nackErr != nil {
			log.Error("failed to reject message", sl.Err(nackErr))
		}
	default:
		log.Error("message handling failed, requeueing", sl.Err(err))
		if nackErr := ack.Nack(false, true); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
	}
}
