package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const (
	dialTimeout  = 5 * time.Second
	ioTimeout    = 3 * time.Second
	startupPings = 4
)

// ConnectRedis returns a client once the server answers PING. Redis backs
// the task queue, config notifications, view dedup and test mail capture,
// so the process does not start without it.
func ConnectRedis(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	})

	var err error
	for attempt := 1; attempt <= startupPings; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		err = rdb.Ping(ctx).Err()
		cancel()
		if err == nil {
			log.WithFields(log.Fields{"addr": addr, "db": db}).Info("Connected to Redis")
			return rdb, nil
		}
		if attempt < startupPings {
			log.WithField("attempt", attempt).Warnf("Redis not reachable yet: %v", err)
			time.Sleep(time.Duration(attempt) * 250 * time.Millisecond)
		}
	}
	_ = rdb.Close()
	return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
}

// DisconnectRedis closes the client; nil is a no-op.
func DisconnectRedis(client *redis.Client) error {
	if client == nil {
		return nil
	}
	if err := client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}
	log.Info("Redis connection closed")
	return nil
}
