package cache

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	redisClient *redis.Client
	redisCtx    = context.Background()
	initOnce    sync.Once
	initialized bool

	// cached tallies go stale quickly, keep the window short
	resultTTL = 30 * time.Second
)

// InitRedis connects the shared Redis client. The server runs fine without
// Redis: on failure the cache and the advisory lock simply disable themselves.
func InitRedis() error {
	initOnce.Do(func() {
		redisAddr := os.Getenv("REDIS_ADDR")
		redisPassword := os.Getenv("REDIS_PASSWORD")
		redisDb := 0
		if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
			if db, err := strconv.Atoi(dbStr); err == nil {
				redisDb = db
			}
		}
		if redisAddr == "" {
			redisAddr = "localhost:6379"
		}

		log.Printf("Initializing Redis connection at %s", redisAddr)

		client := redis.NewClient(&redis.Options{
			Addr:        redisAddr,
			Password:    redisPassword,
			DB:          redisDb,
			DialTimeout: 3 * time.Second,
			ReadTimeout: 3 * time.Second,
			PoolSize:    10,
		})

		if _, err := client.Ping(redisCtx).Result(); err != nil {
			log.Printf("Redis connection failed: %v, running without cache", err)
			initialized = true
			return
		}

		redisClient = client
		initialized = true
		log.Println("Redis connection initialized")
	})
	return nil
}

// GetClient returns the shared Redis client
func GetClient() (*redis.Client, error) {
	if !initialized || redisClient == nil {
		return nil, fmt.Errorf("redis client not available")
	}
	return redisClient, nil
}

// CloseRedis closes the shared client
func CloseRedis() {
	if redisClient == nil {
		return
	}
	if err := redisClient.Close(); err != nil {
		log.Printf("Failed to close Redis connection: %v", err)
		return
	}
	log.Println("Redis connection closed")
}

func resultKey(pollID string) string {
	return "poll_results:" + pollID
}

// CachePollResult stores a rendered tally payload. Best effort, no error
// surfaces to the caller.
func CachePollResult(pollID string, payload []byte) {
	if redisClient == nil {
		return
	}
	if err := redisClient.Set(redisCtx, resultKey(pollID), payload, resultTTL).Err(); err != nil {
		log.Printf("Failed to cache results for poll %s: %v", pollID, err)
	}
}

// GetCachedPollResult returns a previously cached tally payload
func GetCachedPollResult(pollID string) ([]byte, bool) {
	if redisClient == nil {
		return nil, false
	}
	payload, err := redisClient.Get(redisCtx, resultKey(pollID)).Bytes()
	if err != nil {
		return nil, false
	}
	return payload, true
}

// InvalidatePollResult drops the cached tally after a vote or poll mutation
func InvalidatePollResult(pollID string) {
	if redisClient == nil {
		return
	}
	if err := redisClient.Del(redisCtx, resultKey(pollID)).Err(); err != nil {
		log.Printf("Failed to invalidate cached results for poll %s: %v", pollID, err)
	}
}
