package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Command is the envelope terminals understand. MessageID is echoed back
// in the device's acknowledgment, which is how the rendezvous correlates.
type Command struct {
	Operator  string          `json:"operator"`
	Info      json.RawMessage `json:"info"`
	MessageID string          `json:"messageId"`
}

// Ack is a device acknowledgment matched to a command
type Ack struct {
	MessageID  string
	Body       []byte
	ReceivedAt time.Time
}

// ackEnvelope is the slice of the ack payload needed for correlation
type ackEnvelope struct {
	MessageID string `json:"messageId"`
	Info      struct {
		MessageID string `json:"messageId"`
	} `json:"info"`
}

// Publisher publishes device commands and optionally waits for the
// correlated acknowledgment.
type Publisher struct {
	conn       *Connection
	channel    *amqp.Channel
	exchange   string
	ackTimeout time.Duration
	logger     *zap.Logger
}

// NewPublisher creates a new command publisher on the command exchange
func NewPublisher(conn *Connection, exchange string, ackTimeoutSeconds int, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		conn:       conn,
		channel:    ch,
		exchange:   exchange,
		ackTimeout: time.Duration(ackTimeoutSeconds) * time.Second,
		logger:     logger,
	}, nil
}

// Publish sends a command to the device topic, attaching a fresh message
// id, and returns that id. Fire and forget: no acknowledgment is awaited.
func (p *Publisher) Publish(ctx context.Context, topic, operator string, info json.RawMessage) (string, error) {
	messageID := uuid.New().String()
	if err := p.publish(ctx, topic, operator, info, messageID); err != nil {
		return "", err
	}
	return messageID, nil
}

// PublishAndWaitForAck sends a command and blocks until the device echoes
// the message id on the ack topic or the timeout elapses. The ack
// subscription is opened before publishing so an early reply cannot be
// missed, and it is torn down on every exit path. A timeout is not an
// error: the ack result is simply nil. The message id is returned even
// on error so the failed attempt can be recorded under it.
func (p *Publisher) PublishAndWaitForAck(ctx context.Context, topic, operator string, info json.RawMessage) (string, *Ack, error) {
	messageID := uuid.New().String()
	ackTopic := topic + "/Ack"

	// Dedicated channel so the exclusive ack queue dies with it
	ch, err := p.conn.Channel()
	if err != nil {
		return messageID, nil, fmt.Errorf("failed to create ack channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return messageID, nil, fmt.Errorf("failed to declare ack queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, ackTopic, p.exchange, false, nil); err != nil {
		return messageID, nil, fmt.Errorf("failed to bind ack queue: %w", err)
	}

	consumerTag := "ack-" + messageID
	deliveries, err := ch.Consume(
		q.Name,
		consumerTag,
		true,  // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return messageID, nil, fmt.Errorf("failed to consume ack queue: %w", err)
	}
	defer func() {
		if cancelErr := ch.Cancel(consumerTag, false); cancelErr != nil {
			p.logger.Warn("failed to cancel ack consumer", zap.Error(cancelErr))
		}
	}()

	publishedAt := time.Now()
	if err := p.publish(ctx, topic, operator, info, messageID); err != nil {
		return messageID, nil, err
	}

	ack := awaitAck(deliveries, messageID, p.ackTimeout)
	if ack == nil {
		p.logger.Warn("command acknowledgment timed out",
			zap.String("topic", topic),
			zap.String("message_id", messageID),
			zap.Duration("timeout", p.ackTimeout),
		)
		return messageID, nil, nil
	}

	p.logger.Debug("command acknowledged",
		zap.String("topic", topic),
		zap.String("message_id", messageID),
		zap.Duration("roundtrip", ack.ReceivedAt.Sub(publishedAt)),
	)
	return messageID, ack, nil
}

func (p *Publisher) publish(ctx context.Context, topic, operator string, info json.RawMessage, messageID string) error {
	body, err := json.Marshal(Command{
		Operator:  operator,
		Info:      info,
		MessageID: messageID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		topic,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			Body:          body,
			DeliveryMode:  amqp.Persistent,
			CorrelationId: messageID,
			MessageId:     messageID,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish command: %w", err)
	}

	p.logger.Debug("published command",
		zap.String("topic", topic),
		zap.String("operator", operator),
		zap.String("message_id", messageID),
	)
	return nil
}

// awaitAck drains deliveries until one correlates with messageID or the
// timeout elapses. The timeout is the only way out of the wait; the
// rendezvous always reaches a terminal state.
func awaitAck(deliveries <-chan amqp.Delivery, messageID string, timeout time.Duration) *Ack {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			if ackMatches(d, messageID) {
				return &Ack{
					MessageID:  messageID,
					Body:       d.Body,
					ReceivedAt: time.Now(),
				}
			}
		}
	}
}

// ackMatches correlates a delivery with the command's message id, either
// through the AMQP correlation property or the echoed payload field.
func ackMatches(d amqp.Delivery, messageID string) bool {
	if d.CorrelationId == messageID {
		return true
	}
	var env ackEnvelope
	if err := json.Unmarshal(d.Body, &env); err != nil {
		return false
	}
	return env.MessageID == messageID || env.Info.MessageID == messageID
}
