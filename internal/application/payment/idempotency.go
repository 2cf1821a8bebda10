package payment

import (
	"context"
	"time"

	"github.com/amicale-sp/calendriers/internal/domain/shared"
	"go.uber.org/zap"
)

// claims guards provider notifications against concurrent or repeated
// delivery. The store is the first of three layers: repository existence
// checks and unique indexes back it up when it is unavailable.
type claims struct {
	store  shared.IdempotencyStore
	ttl    time.Duration
	logger *zap.Logger
}

func newClaims(store shared.IdempotencyStore, ttl time.Duration, logger *zap.Logger) claims {
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyConfig().TTL
	}
	return claims{store: store, ttl: ttl, logger: logger}
}

// take reports whether the caller owns key. Store errors are logged and the
// caller proceeds, relying on the database checks.
func (c claims) take(ctx context.Context, key string) bool {
	if c.store == nil {
		return true
	}
	ok, err := c.store.MarkProcessed(ctx, key, c.ttl)
	if err != nil {
		c.logger.Warn("Idempotency store unavailable, relying on database checks",
			zap.String("key", key), zap.Error(err))
		return true
	}
	return ok
}

// release drops key so a retried delivery can redo failed work.
func (c claims) release(ctx context.Context, key string) {
	if c.store == nil {
		return
	}
	if err := c.store.Release(ctx, key); err != nil {
		c.logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(err))
	}
}
