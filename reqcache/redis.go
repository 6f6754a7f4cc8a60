package reqcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/apolloAuth/internal/codec"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces cache keys when [NewRedis] is given an empty prefix.
const DefaultRedisPrefix = "apollo:cache"

const clearScanCount = 256

// Redis stores entries under prefix-scoped keys so Clear can wipe exactly the
// keys this cache owns.
type Redis struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedis returns a cache whose keys live under prefix. A zero ttl stores
// entries without expiry.
func NewRedis(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{redis: client, prefix: prefix, ttl: ttl}
}

func (c *Redis) key(key string) string {
	return c.prefix + ":" + key
}

// Get decodes the value stored at key into dst and reports whether it existed.
func (c *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.redis.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := codec.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores value at key.
func (c *Redis) Set(ctx context.Context, key string, value any) error {
	data, err := codec.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.redis.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is a no-op.
func (c *Redis) Delete(ctx context.Context, key string) error {
	if err := c.redis.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Clear deletes every key under the cache prefix.
func (c *Redis) Clear(ctx context.Context) error {
	var cursor uint64
	match := c.prefix + ":*"
	for {
		keys, next, err := c.redis.Scan(ctx, cursor, match, clearScanCount).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if len(keys) > 0 {
			if err := c.redis.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
