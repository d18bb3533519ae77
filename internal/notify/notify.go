// Package notify delivers notifications about grading events. Delivery is
// best effort: callers log failures and move on.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/gradebook/internal/models"
)

type Publisher interface {
	Publish(ctx context.Context, n models.Notification) error
	Close() error
}

// RedisPublisher pushes notifications as JSON onto a Redis list for a
// consumer to pick up.
type RedisPublisher struct {
	redis *redis.Client
	queue string
}

func NewRedisPublisher(ctx context.Context, redisURL, queue string) (*RedisPublisher, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisPublisher{redis: client, queue: queue}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, n models.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if err := p.redis.LPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	if p.redis != nil {
		return p.redis.Close()
	}
	return nil
}

// LogPublisher only logs. Used when no queue is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, n models.Notification) error {
	logger.Info.Printf("Notification %q to %v: %s", n.Title, n.RecipientIDs, n.Content)
	return nil
}

func (LogPublisher) Close() error {
	return nil
}
