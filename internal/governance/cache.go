package governance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheVersionKey = "governance:version"
	bumpChannel     = "governance.bump"
)

// Cache stores rendered reports under keys suffixed with a generation
// counter. Bumping the counter orphans every report at once; the TTL
// reclaims them.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCache returns a cache backed by client. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// Version reports the current generation. A missing key is generation 0.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	gen, err := c.client.Get(ctx, cacheVersionKey).Int64()
	switch {
	case errors.Is(err, redis.Nil):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("read cache generation: %w", err)
	}
	return gen, nil
}

// BuildKey joins parts with ':' and appends the current generation.
func (c *Cache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	base := strings.Join(parts, ":")
	if !c.enabled() {
		return base, nil
	}
	gen, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return base + ":" + strconv.FormatInt(gen, 10), nil
}

// FetchJSON decodes the value stored at key into dest. On a miss it calls
// build, stores the encoded result and decodes it into dest. Redis failures
// are logged and the value is built and served uncached; only build and
// encoding errors are returned.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, build func(context.Context) (any, error)) error {
	if build == nil {
		return errors.New("governance cache: build func required")
	}
	if c.enabled() {
		raw, err := c.client.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			if err := json.Unmarshal(raw, dest); err == nil {
				return nil
			}
			c.logger.Warn("governance cache entry unreadable", slog.String("key", key))
		case !errors.Is(err, redis.Nil):
			c.logger.Warn("governance cache read failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	fresh, err := build(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(fresh)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if c.enabled() {
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.logger.Warn("governance cache write failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	return json.Unmarshal(raw, dest)
}

// Bump advances the generation and announces it on the bump channel.
func (c *Cache) Bump(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	gen, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return 0, fmt.Errorf("advance cache generation: %w", err)
	}
	if err := c.client.Publish(ctx, bumpChannel, strconv.FormatInt(gen, 10)).Err(); err != nil {
		return gen, fmt.Errorf("announce generation %d: %w", gen, err)
	}
	return gen, nil
}

// Invalidate satisfies the roles and users invalidator hooks.
func (c *Cache) Invalidate(ctx context.Context) error {
	_, err := c.Bump(ctx)
	return err
}

// Watch calls fn with each generation announced on the bump channel until
// ctx ends. It returns once the subscription is live; delivery continues
// in a background goroutine.
func (c *Cache) Watch(ctx context.Context, fn func(context.Context, int64)) error {
	if !c.enabled() || fn == nil {
		return nil
	}
	sub := c.client.Subscribe(ctx, bumpChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", bumpChannel, err)
	}
	go func() {
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				gen, err := strconv.ParseInt(msg.Payload, 10, 64)
				if err != nil {
					continue
				}
				fn(ctx, gen)
			}
		}
	}()
	return nil
}
