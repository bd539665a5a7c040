// internal/realtime/redis.go
package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"civic-reports/internal/models"
	"civic-reports/pkg/logger"
)

// NotificationChannel - канал Redis, через який інстанси API обмінюються сповіщеннями.
const NotificationChannel = "civic:notifications"

// RedisPublisher публікує сповіщення в Redis замість локального хабу;
// доставку в сокети виконує Relay на кожному інстансі.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client, channel: NotificationChannel}
}

func (p *RedisPublisher) Publish(ctx context.Context, notification *models.Notification) error {
	payload, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Relay пересилає сповіщення з Redis у локальний хаб.
type Relay struct {
	client  *redis.Client
	hub     *Hub
	channel string
	log     *zap.Logger
}

func NewRelay(client *redis.Client, hub *Hub) *Relay {
	return &Relay{
		client:  client,
		hub:     hub,
		channel: NotificationChannel,
		log:     logger.WithModule("realtime.relay"),
	}
}

// Run блокується до скасування ctx.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	// Чекаємо підтвердження підписки, щоб помилка підключення повернулась одразу
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	r.log.Info("Subscribed to notification channel", zap.String("channel", r.channel))

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}

			var notification models.Notification
			if err := json.Unmarshal([]byte(msg.Payload), &notification); err != nil {
				r.log.Warn("Dropping malformed notification payload", zap.Error(err))
				continue
			}
			if err := r.hub.Publish(ctx, &notification); err != nil {
				r.log.Warn("Failed to forward notification", zap.Error(err))
			}
		}
	}
}
