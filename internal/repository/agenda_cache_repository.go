package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/eduschedule/eduschedule-api/pkg/errors"
)

// AgendaCacheRepository caches rendered agenda days in Redis. The calendar
// view is read-heavy and every render re-expands recurrences, so day payloads
// are cached and invalidated whenever an event changes.
type AgendaCacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewAgendaCacheRepository constructs an agenda cache repository.
func NewAgendaCacheRepository(client *redis.Client, logger *zap.Logger) *AgendaCacheRepository {
	return &AgendaCacheRepository{client: client, logger: logger}
}

// Key builds the cache key for one rendered day and filter combination.
func (r *AgendaCacheRepository) Key(isoDate, calendarID, classroomID, courseID string) string {
	return fmt.Sprintf("agenda:%s:%s:%s:%s", isoDate, calendarID, classroomID, courseID)
}

// Get retrieves and unmarshals a cached day into the provided destination.
func (r *AgendaCacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cached agenda for %s: %w", key, err)
	}

	return nil
}

// Set marshals the provided day payload and stores it with the given TTL.
func (r *AgendaCacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal agenda for %s: %w", key, err)
	}

	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

// InvalidateAll drops every cached agenda day. Called on any event mutation;
// recurrences make it impractical to compute the affected day set precisely.
func (r *AgendaCacheRepository) InvalidateAll(ctx context.Context) error {
	if r.client == nil {
		return nil
	}

	iter := r.client.Scan(ctx, 0, "agenda:*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis delete %s: %w", key, err)
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan agenda keys: %w", err)
	}

	return nil
}

// Close releases the underlying Redis connection if present.
func (r *AgendaCacheRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
