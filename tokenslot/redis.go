package tokenslot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key used when [NewRedis] is given an empty key.
const DefaultRedisKey = "apollo_token"

// Redis stores the token under a single key. Every process sharing the key
// sees the last write.
type Redis struct {
	redis redis.UniversalClient
	key   string
	ttl   time.Duration
	now   func() time.Time
}

// NewRedis returns a slot stored at key. A zero ttl stores the record without
// expiry.
func NewRedis(client redis.UniversalClient, key string, ttl time.Duration) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{
		redis: client,
		key:   key,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Key returns the Redis key backing the slot.
func (s *Redis) Key() string {
	return s.key
}

// Read returns the stored token. A missing key is an empty slot.
func (s *Redis) Read(ctx context.Context) (string, bool, error) {
	data, err := s.redis.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	rec, err := DecodeRecord(data)
	if err != nil {
		return "", false, err
	}
	return rec.Token, rec.Token != "", nil
}

// Write stores token. Writing the empty token is equivalent to Clear.
func (s *Redis) Write(ctx context.Context, token string) error {
	if token == "" {
		return s.Clear(ctx)
	}

	data, err := EncodeRecord(token, s.now())
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Clear deletes the key. Clearing an empty slot is a no-op.
func (s *Redis) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
