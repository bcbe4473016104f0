package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// GameEventPublisher defines the interface for publishing terminal game events.
type GameEventPublisher interface {
	PublishGameEvent(ctx context.Context, payload GameEventPayload) error
}

// rabbitMQPublisher implements GameEventPublisher for RabbitMQ.
type rabbitMQPublisher struct {
	channel   *amqp.Channel
	queueName string
}

// NewRabbitMQGameEventPublisher creates a new GameEventPublisher. The queue is
// declared durable here so publishing works regardless of consumer start order.
func NewRabbitMQGameEventPublisher(conn *amqp.Connection, queueName string) (GameEventPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("game event publisher: failed to open channel: %w", err)
	}
	_, err = ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("game event publisher: failed to declare queue '%s': %w", queueName, err)
	}
	log.Printf("GameEventPublisher: queue '%s' declared", queueName)
	return &rabbitMQPublisher{channel: ch, queueName: queueName}, nil
}

// PublishGameEvent publishes a terminal game event.
func (p *rabbitMQPublisher) PublishGameEvent(ctx context.Context, payload GameEventPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal game event for session %s: %w", payload.SessionID, err)
	}
	if err := p.publishMessage(ctx, body); err != nil {
		return fmt.Errorf("failed to publish game event for session %s: %w", payload.SessionID, err)
	}
	return nil
}

// publishMessage is a helper method for publishing a message.
func (p *rabbitMQPublisher) publishMessage(ctx context.Context, body []byte) error {
	if p.channel == nil {
		return errors.New("rabbitmq channel is not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var err error
	// Up to 3 attempts with a short linear backoff.
	for attempt := 1; attempt <= 3; attempt++ {
		err = p.channel.PublishWithContext(ctx,
			"",          // exchange (default)
			p.queueName, // routing key (queue name)
			false,       // mandatory
			false,       // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Body:         body,
				Timestamp:    time.Now(),
				AppId:        "gymkapp-server",
			},
		)
		if err == nil {
			return nil
		}
		log.Printf("Publish attempt %d to queue '%s' failed: %v", attempt, p.queueName, err)
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	return fmt.Errorf("failed to publish to queue %s after retries: %w", p.queueName, err)
}
