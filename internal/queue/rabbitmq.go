package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	statusExchange   = "video_watermark"
	statusRoutingKey = "status"
)

func NewRabbitMQClient(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

func NewChannel(conn *amqp.Connection) (*amqp.Channel, error) {
	if conn == nil {
		return nil, fmt.Errorf("failed to open channel: no connection")
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	return ch, nil
}

func NewQueue(ch *amqp.Channel, queueName string) (*amqp.Queue, error) {
	queue, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}
	return &queue, nil
}

// NewQueueConsumer hands out one unacknowledged delivery at a time since a
// controller runs a single flow.
func NewQueueConsumer(ch *amqp.Channel, queueName string) (<-chan amqp.Delivery, error) {
	if err := ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set prefetch: %w", err)
	}
	msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to consume: %w", err)
	}
	return msgs, nil
}

// DeclareStatusTopology declares the status queue and binds it to the direct
// status exchange.
func DeclareStatusTopology(ch *amqp.Channel, statusQueue string) error {
	if _, err := NewQueue(ch, statusQueue); err != nil {
		return err
	}
	err := ch.ExchangeDeclare(
		statusExchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("error while declaring an exchange: %w", err)
	}
	if err := ch.QueueBind(statusQueue, statusRoutingKey, statusExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind status queue: %w", err)
	}
	return nil
}
