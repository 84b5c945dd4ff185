package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix = "series:"
	channelSuffix = ":events"

	subscriberBuffer = 8
)

// Broker - fans series updates out over redis pub/sub so every instance can serve a subscriber.
type Broker struct {
	logger *slog.Logger
	client *redis.Client
}

func NewBroker(logger *slog.Logger, client *redis.Client) *Broker {
	return &Broker{
		logger: logger.With("component", "broker"),
		client: client,
	}
}

// Publish - sends payload to everyone watching seriesID.
func (that *Broker) Publish(ctx context.Context, seriesID string, payload []byte) error {
	if err := that.client.Publish(ctx, Channel(seriesID), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish series update: %w", err)
	}

	return nil
}

// Subscribe - returns updates for seriesID until ctx ends or unsubscribe is called.
// A subscriber that falls behind loses updates instead of blocking the others.
func (that *Broker) Subscribe(ctx context.Context, seriesID string) (<-chan []byte, func(), error) {
	log := that.logger.With("method", "Subscribe", "series", seriesID)

	pubsub := that.client.Subscribe(ctx, Channel(seriesID))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("failed to subscribe to series updates: %w", err)
	}

	updates := make(chan []byte, subscriberBuffer)
	messages := pubsub.Channel()

	go func() {
		defer close(updates)

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}

				select {
				case updates <- []byte(msg.Payload):
				default:
					log.Warn("subscriber is slow, update dropped")
				}
			}
		}
	}()

	unsubscribe := func() {
		if err := pubsub.Close(); err != nil {
			log.Debug("failed to close subscription", "error", err)
		}
	}

	return updates, unsubscribe, nil
}

func Channel(seriesID string) string {
	return channelPrefix + seriesID + channelSuffix
}
