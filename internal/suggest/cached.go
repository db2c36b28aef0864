package suggest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "usermanage:suggest:"

// cache is the subset of redis.Cmdable used by Cached.
type cache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Cached serves repeated prompts from Redis. A failing cache is logged and
// bypassed, it never fails the suggestion itself.
type Cached struct {
	next   Suggester
	rdb    cache
	ttl    time.Duration
	logger *zap.SugaredLogger
}

func NewCached(next Suggester, rdb cache, ttl time.Duration, logger *zap.SugaredLogger) *Cached {
	return &Cached{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

func cacheKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

func (c *Cached) Suggest(ctx context.Context, prompt string) (string, error) {
	key := cacheKey(prompt)
	if v, err := c.rdb.Get(ctx, key).Result(); err == nil {
		return v, nil
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warnw("suggestion cache read failed", "key", key, "err", err)
	}

	text, err := c.next.Suggest(ctx, prompt)
	if err != nil {
		return "", err
	}
	if err := c.rdb.Set(ctx, key, text, c.ttl).Err(); err != nil {
		c.logger.Warnw("suggestion cache write failed", "key", key, "err", err)
	}
	return text, nil
}
