package recordstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps each collection as a Redis list of record lines under
// records:<collection>.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{rdb: rdb}, nil
}

func redisKey(collection string) string {
	return "records:" + collection
}

// ReadAll returns the collection's lines in stored order.
func (s *RedisStore) ReadAll(ctx context.Context, collection string) ([]string, error) {
	lines, err := s.rdb.LRange(ctx, redisKey(collection), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read collection %s: %w", collection, err)
	}
	return lines, nil
}

// WriteAll replaces the collection list atomically via MULTI/EXEC.
func (s *RedisStore) WriteAll(ctx context.Context, collection string, lines []string) error {
	key := redisKey(collection)

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key)
	if len(lines) > 0 {
		values := make([]interface{}, len(lines))
		for i, line := range lines {
			values[i] = line
		}
		pipe.RPush(ctx, key, values...)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write collection %s: %w", collection, err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
