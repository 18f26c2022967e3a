// Package relay forwards committed bid events from the in-process hub to a
// RabbitMQ topic exchange for consumers outside this process.
package relay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"live-auction/internal/broadcast"
	"live-auction/internal/models"
	"live-auction/internal/observability"
	"live-auction/utils"
)

const ExchangeName = "auction.events"

const publishTimeout = 5 * time.Second

// channel is the subset of *amqp.Channel the relay needs
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type Publisher struct {
	ch channel
}

// NewPublisher opens a channel on conn and declares the durable topic exchange.
func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, errors.Wrap(err, "relay: open channel")
	}
	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		return nil, errors.Wrap(err, "relay: declare exchange")
	}
	return &Publisher{ch: ch}, nil
}

// RoutingKey is "<event type>.<auction id>", e.g. "bid_placed.aB3xY9"
func RoutingKey(ev models.Event) string {
	return string(ev.Type) + "." + ev.AuctionID
}

// Publish sends one event. The bid id doubles as the message id so consumers can dedupe.
func (p *Publisher) Publish(ctx context.Context, ev models.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "relay: encode event")
	}
	msg := amqp.Publishing{
		MessageId:    ev.Bid.BidID,
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    ev.Bid.CreatedAt,
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, ExchangeName, RoutingKey(ev), false, false, msg); err != nil {
		return errors.Wrapf(err, "relay: publish %s", RoutingKey(ev))
	}
	return nil
}

// Run forwards every hub event until ctx is done. If the hub prunes the
// relay's subscription it subscribes again; events in between are lost.
func (p *Publisher) Run(ctx context.Context, hub *broadcast.Hub) error {
	for {
		sub, err := hub.Subscribe(ctx, "")
		if err != nil {
			if errors.Is(err, broadcast.ErrHubClosed) {
				return nil
			}
			return err
		}
		p.forward(ctx, sub)

		select {
		case <-ctx.Done():
			return nil
		default:
			utils.Warn("relay: subscription dropped, resubscribing", nil)
		}
	}
}

func (p *Publisher) forward(ctx context.Context, sub *broadcast.Subscription) {
	defer sub.Close()
	for msg := range sub.Messages() {
		if msg.Event == nil {
			continue
		}
		pctx, cancel := context.WithTimeout(ctx, publishTimeout)
		err := p.Publish(pctx, *msg.Event)
		cancel()
		if err != nil {
			observability.RelayPublishFailures.Inc()
			utils.Warn("relay: publish failed", map[string]any{
				"auction_id": msg.Event.AuctionID,
				"bid_id":     msg.Event.Bid.BidID,
				"error":      err.Error(),
			})
		}
	}
}
