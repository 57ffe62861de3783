package cooldown

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares cooldowns between gateway instances. Deadlines live as
// keys whose TTL is the remaining cooldown.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps client; keys are written under prefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "cooldown:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Start sets the deadline for key, never shortening an active one.
func (s *RedisStore) Start(ctx context.Context, key string, d time.Duration) error {
	left, err := s.Remaining(ctx, key)
	if err != nil {
		return err
	}
	if left >= d {
		return nil
	}
	until := time.Now().Add(d).Unix()
	if err := s.client.Set(ctx, s.prefix+key, until, d).Err(); err != nil {
		return fmt.Errorf("set cooldown: %w", err)
	}
	return nil
}

func (s *RedisStore) Remaining(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.client.PTTL(ctx, s.prefix+key).Result()
	if err != nil {
		return 0, fmt.Errorf("read cooldown: %w", err)
	}
	// -1 and -2 come back as raw durations for keys without TTL or missing keys.
	if ttl <= 0 {
		return 0, nil
	}
	return ttl, nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("clear cooldown: %w", err)
	}
	return nil
}
