package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/contracts"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/order"
)

const publishTimeout = 3 * time.Second

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends storefront events to the shared topic exchange.
type Publisher struct {
	ch     channel
	seq    OrderSequences
	logger *zap.Logger
}

// NewPublisher opens a channel on conn and declares the events exchange.
// seq may be nil, in which case every envelope carries sequence 0.
func NewPublisher(conn *amqp.Connection, seq OrderSequences, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare %s: %w", EventsExchange, err)
	}
	return newPublisher(ch, seq, logger), nil
}

func newPublisher(ch channel, seq OrderSequences, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{ch: ch, seq: seq, logger: logger.With(zap.String("component", "events"))}
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) PublishOrderPlaced(ctx context.Context, o *order.Order) error {
	var seq int64
	if p.seq != nil {
		next, err := p.seq.NextOrderSequence(ctx, o.UserID)
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}
		seq = next
	}

	ev := contracts.BuildOrderPlacedEvent(o, contracts.EnvelopeOptions{
		Sequence:      seq,
		CorrelationID: CorrelationID(ctx),
	})

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal OrderPlaced: %w", err)
	}
	if err := p.publishJSON(ctx, OrderPlacedRoutingKey, ev.EventID, body); err != nil {
		return fmt.Errorf("publish OrderPlaced: %w", err)
	}

	p.logger.Debug("published event",
		zap.String("event", contracts.OrderPlacedEventName),
		zap.String("event_id", ev.EventID),
		zap.String("order_id", o.ID),
		zap.Int64("sequence", seq),
	)
	return nil
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey, messageID string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}
