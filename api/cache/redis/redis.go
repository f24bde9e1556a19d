package redis

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

var (
	ErrRedisBadValue = errors.New("Bad value")
)

const (
	REDIS_MIN_RETRY_BACKOFF = 3 * time.Second
	REDIS_MAX_RETRY_BACKOFF = 5 * time.Second
	REDIS_DATABASE_AUTH     = 0
	REDIS_DATABASE_CACHE    = 1
)

func NewClient(addr string, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:            addr,
		Password:        password,
		DB:              db,
		MinRetryBackoff: REDIS_MIN_RETRY_BACKOFF,
		MaxRetryBackoff: REDIS_MAX_RETRY_BACKOFF,
	})
}

func Ping(ctx context.Context, rdb *redis.Client) error {
	return rdb.Ping(ctx).Err()
}
