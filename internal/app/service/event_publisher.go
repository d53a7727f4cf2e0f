package service

import (
	"context"
	"encoding/json"
	"fmt"

	"messagely/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

// EventPublisher hands message events to the notification pipeline.
type EventPublisher interface {
	Publish(ctx context.Context, event model.MessageEvent) error
}

type RedisEventPublisher struct {
	rdb   *redis.Client
	queue string
}

func NewRedisEventPublisher(rdb *redis.Client, queue string) *RedisEventPublisher {
	return &RedisEventPublisher{rdb: rdb, queue: queue}
}

// Publish LPUSHes the JSON event; the worker BRPOPs from the other end.
func (p *RedisEventPublisher) Publish(ctx context.Context, event model.MessageEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal message event: %w", err)
	}
	if err := p.rdb.LPush(ctx, p.queue, payload).Err(); err != nil {
		return fmt.Errorf("failed to push message event to %s: %w", p.queue, err)
	}
	return nil
}

type nopEventPublisher struct{}

// NewNopEventPublisher drops every event. Used when Redis is disabled.
func NewNopEventPublisher() EventPublisher { return nopEventPublisher{} }

func (nopEventPublisher) Publish(context.Context, model.MessageEvent) error { return nil }
