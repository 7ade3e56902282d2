// Package rabbitmq wraps the AMQP connection used by the billing worker:
// topology setup, a bounded consumer and a JSON publisher.
package rabbitmq

import (
	"fmt"
	"time"

	"github.com/streadway/amqp"
)

// Connect dials url, retrying up to retries times with delay in between.
func Connect(url string, retries int, delay time.Duration) (*amqp.Connection, error) {
	const op = "rabbitmq.Connect"
	if retries < 1 {
		retries = 1
	}

	var conn *amqp.Connection
	var err error
	for i := range retries {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		if i < retries-1 {
			time.Sleep(delay)
		}
	}
	return nil, fmt.Errorf("%s: %w", op, err)
}
