package notify

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the part of *amqp.Channel the AMQP sender needs.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSender queues email jobs on a durable queue for an external mail worker.
type AMQPSender struct {
	publisher Publisher
	queue     string
	from      string

	conn *amqp.Connection
	chn  *amqp.Channel
}

// DialAMQP opens the connection and declares the queue.
func DialAMQP(config *AMQPConfig, from string) (*AMQPSender, error) {
	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rabbitmq: %w", err)
	}

	chn, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = chn.QueueDeclare(
		config.Queue, // name of queue
		true,         // durable
		false,        // delete when unused
		false,        // exclusive
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		chn.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", config.Queue, err)
	}

	s := NewAMQPSender(chn, config.Queue, from)
	s.conn = conn
	s.chn = chn
	return s, nil
}

func NewAMQPSender(publisher Publisher, queue, from string) *AMQPSender {
	return &AMQPSender{
		publisher: publisher,
		queue:     queue,
		from:      from,
	}
}

func (s *AMQPSender) Send(ctx context.Context, to, subject, htmlBody, plainBody string) error {
	body, err := json.Marshal(newEmail(s.from, to, subject, htmlBody, plainBody))
	if err != nil {
		return err
	}

	return s.publisher.PublishWithContext(
		ctx,
		"",      // default exchange
		s.queue, // routing key is the queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func (s *AMQPSender) Close() error {
	if s.chn != nil {
		if err := s.chn.Close(); err != nil {
			return err
		}
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
