package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// Exchange is the direct exchange every queue is bound to.
const Exchange = "strata"

// Routing keys.
const (
	RouteBillingEvent  = "billing.event"
	RouteTrialExpiring = "trial.expiring"
)

// QueueConfig binds one durable queue to Exchange.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// Queues returns the topology of the worker for the configured queue names.
func Queues(billingQueue, notificationQueue string) []QueueConfig {
	return []QueueConfig{
		{QueueName: billingQueue, RoutingKey: RouteBillingEvent},
		{QueueName: notificationQueue, RoutingKey: RouteTrialExpiring},
	}
}

// SetupChannel opens a channel with prefetch, declares Exchange and binds
// queues to it.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("%s: qos: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		Exchange,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		if _, err := ch.QueueDeclare(q.QueueName, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("%s: declare queue %s: %w", op, q.QueueName, err)
		}
		if err := ch.QueueBind(q.QueueName, q.RoutingKey, Exchange, false, nil); err != nil {
			return nil, fmt.Errorf("%s: bind queue %s to %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}
	return ch, nil
}
