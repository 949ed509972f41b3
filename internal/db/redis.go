package db

import (
	"github.com/go-redis/redis/v8"
)

// ConnectRedis builds a Redis client for the incident snapshot feed. The
// client is lazy; a dead Redis shows up as logged publish failures rather
// than a startup error, because the feed is best-effort.
func ConnectRedis(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
	})
}
