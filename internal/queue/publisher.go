package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const verificationQueueName = "verification.requested"

// Publisher pushes verification events to RabbitMQ. An empty URL means
// no broker is configured; callers decide whether that is fatal (prod)
// or merely logged (dev). The connection is dialed per publish so the
// request path never holds broker state; errors are logged and returned
// without panicking.
type Publisher struct {
	url string
}

// NewPublisher returns a Publisher for the given broker URL. The URL
// may be empty, producing an unconfigured publisher.
func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

// Configured reports whether a broker URL is present.
func (p *Publisher) Configured() bool { return p != nil && p.url != "" }

// Publish sends a VerificationRequestedEvent to the
// verification.requested queue. Messages are marked persistent so they
// survive broker restarts.
func (p *Publisher) Publish(ctx context.Context, event VerificationRequestedEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		verificationQueueName, // name
		true,                  // durable
		false,                 // autoDelete
		false,                 // exclusive
		false,                 // noWait
		nil,                   // args
	); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",                    // default exchange
		verificationQueueName, // routing key = queue name
		false,                 // mandatory
		false,                 // immediate
		pub,
	); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
		return err
	}

	return nil
}
