package kvstore

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisKV stores cart state in Redis so it survives restarts and is shared
// across replicas.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV accepts either a redis:// URL or a plain "host:port" address.
func NewRedisKV(addr string) *RedisKV {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{
			Addr:         addr,
			MinIdleConns: 1,
			DialTimeout:  10 * time.Second,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			PoolSize:     10,
		}
	}

	return &RedisKV{client: redis.NewClient(opts)}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Ping reports whether Redis is reachable.
func (r *RedisKV) Ping(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return false
	}
	return true
}

func (r *RedisKV) Close() error {
	return r.client.Close()
}
