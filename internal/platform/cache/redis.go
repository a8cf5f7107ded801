package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"filedrop/internal/platform/config"
	"filedrop/internal/platform/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(ctx context.Context, cfg config.RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := cfg.SlugTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func (c *Redis) Client() *redis.Client {
	return c.client
}

func (c *Redis) Close() error {
	return c.client.Close()
}

func (c *Redis) Get(ctx context.Context, slug string) (*models.Inbox, bool) {
	data, err := c.client.Get(ctx, slugKey(slug)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("slug", slug).Msg("inbox cache read failed")
		}
		return nil, false
	}

	var inbox models.Inbox
	if err := json.Unmarshal(data, &inbox); err != nil {
		c.Invalidate(ctx, slug)
		return nil, false
	}
	return &inbox, true
}

func (c *Redis) Set(ctx context.Context, inbox *models.Inbox) {
	data, err := json.Marshal(inbox)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, slugKey(inbox.Slug), data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("slug", inbox.Slug).Msg("inbox cache write failed")
	}
}

func (c *Redis) Invalidate(ctx context.Context, slug string) {
	if err := c.client.Del(ctx, slugKey(slug)).Err(); err != nil {
		log.Warn().Err(err).Str("slug", slug).Msg("inbox cache invalidate failed")
	}
}

func (c *Redis) Refresh(ctx context.Context, creatorID string) error {
	return c.client.Publish(ctx, refreshChannel(creatorID), time.Now().Unix()).Err()
}

// Subscribe listens on the creator's refresh channel. It returns once redis
// has confirmed the subscription.
func (c *Redis) Subscribe(ctx context.Context, creatorID string) (<-chan struct{}, error) {
	sub := c.client.Subscribe(ctx, refreshChannel(creatorID))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to refresh signals: %w", err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()

	return out, nil
}
