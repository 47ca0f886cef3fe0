package helpers

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient initializes a redis client
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// ErrRedisGuardMoved reports that a guarded write was skipped because the
// guard counter no longer held the expected value.
var ErrRedisGuardMoved = errors.New("redis guard moved")

// RedisHSetJSONIf stores value as JSON under key/field and refreshes the key
// TTL, but only while guardKey still holds want (a missing guard reads as 0).
// The check and the write run in one WATCH/MULTI transaction.
func RedisHSetJSONIf(ctx context.Context, rdb *redis.Client, key, field string, value interface{}, ttl time.Duration, guardKey string, want int64) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	err = rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := redisInt64(ctx, tx, guardKey)
		if err != nil {
			return err
		}
		if cur != want {
			return ErrRedisGuardMoved
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, field, b)
			if ttl > 0 {
				pipe.Expire(ctx, key, ttl)
			}
			return nil
		})
		return err
	}, guardKey)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrRedisGuardMoved
	}
	return err
}

// RedisGetInt64 reads a counter; a missing key is 0.
func RedisGetInt64(ctx context.Context, rdb *redis.Client, key string) (int64, error) {
	return redisInt64(ctx, rdb, key)
}

type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func redisInt64(ctx context.Context, c redisGetter, key string) (int64, error) {
	n, err := c.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// RedisHGetJSON decodes key/field into dest. It reports false on a miss.
func RedisHGetJSON[T any](ctx context.Context, rdb *redis.Client, key, field string, dest *T) (bool, error) {
	res, err := rdb.HGet(ctx, key, field).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(res, dest); err != nil {
		return false, err
	}
	return true, nil
}

// RedisDelAndBump deletes key and increments counterKey atomically.
func RedisDelAndBump(ctx context.Context, rdb *redis.Client, key, counterKey string) error {
	_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, counterKey)
		pipe.Del(ctx, key)
		return nil
	})
	return err
}
