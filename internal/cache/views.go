package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ViewTracker remembers which viewer has already been counted for an ad.
type ViewTracker interface {
	// FirstView reports whether viewerKey has not viewed adID within ttl,
	// recording the view when it has not.
	FirstView(ctx context.Context, adID, viewerKey string, ttl time.Duration) (bool, error)
}

type redisViewTracker struct {
	rdb *redis.Client
}

// NewViewTracker returns a Redis backed ViewTracker.
func NewViewTracker(rdb *redis.Client) ViewTracker {
	return &redisViewTracker{rdb: rdb}
}

func (t *redisViewTracker) FirstView(ctx context.Context, adID, viewerKey string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("adview:%s:%s", adID, viewerKey)
	ok, err := t.rdb.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record view %s: %w", key, err)
	}
	return ok, nil
}
