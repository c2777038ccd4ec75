package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AdalSuUygur/Akademi-Topluluk-Botu/internal/domain"
)

var ErrLimited = errors.New("rate limit exceeded")

// Limiter counts challenge creations per user in a rolling window, backed by
// Redis so the limit holds across replicas. A nil Limiter allows everything.
type Limiter struct {
	rdb    *redis.Client
	max    int
	window time.Duration
}

func New(rdb *redis.Client, max int, window time.Duration) *Limiter {
	return &Limiter{rdb: rdb, max: max, window: window}
}

// Allow records one attempt for the user and reports ErrLimited once the
// window budget is spent. Redis being unreachable fails open.
func (l *Limiter) Allow(ctx context.Context, userID domain.UserID) error {
	if l == nil || l.rdb == nil {
		return nil
	}

	key := "ratelimit:create:" + string(userID)
	// create the key with its TTL in one step so a failed EXPIRE can
	// never leave an immortal counter behind
	if err := l.rdb.SetNX(ctx, key, 0, l.window).Err(); err != nil {
		return nil
	}
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return nil
	}
	if count == 1 {
		// the key expired between SETNX and INCR; re-arm its TTL
		l.rdb.Expire(ctx, key, l.window)
	}
	if count > int64(l.max) {
		return ErrLimited
	}
	return nil
}
