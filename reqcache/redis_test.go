package reqcache

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisCacheTest(t *testing.T) (*Redis, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedis(rdb, "", 0), mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestRedisCacheRoundTrip(t *testing.T) {
	c, _, done := newRedisCacheTest(t)
	defer done()
	ctx := context.Background()

	if err := c.Set(ctx, "user", identity{ID: 42, Email: "x@y.com"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got identity
	ok, err := c.Get(ctx, "user", &got)
	if err != nil || !ok || got.ID != 42 {
		t.Fatalf("expected hit, got %+v ok=%v err=%v", got, ok, err)
	}
	if err := c.Delete(ctx, "user"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := c.Get(ctx, "user", &got); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestRedisCacheClearOnlyOwnPrefix(t *testing.T) {
	c, mr, done := newRedisCacheTest(t)
	defer done()
	ctx := context.Background()

	for _, key := range []string{"user", "goals", "plan", "tasks"} {
		if err := c.Set(ctx, key, key); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}
	if err := mr.Set("unrelated", "keep"); err != nil {
		t.Fatalf("seed unrelated: %v", err)
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	for _, key := range []string{"user", "goals", "plan", "tasks"} {
		if mr.Exists(DefaultRedisPrefix + ":" + key) {
			t.Fatalf("expected %s cleared", key)
		}
	}
	if !mr.Exists("unrelated") {
		t.Fatalf("expected key outside the prefix to survive clear")
	}
}

func TestRedisCacheUnavailable(t *testing.T) {
	c, mr, done := newRedisCacheTest(t)
	defer done()
	mr.Close()

	ctx := context.Background()
	var got identity
	if _, err := c.Get(ctx, "user", &got); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := c.Clear(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on clear, got %v", err)
	}
}
