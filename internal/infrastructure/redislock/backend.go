package redislock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend is the minimal key-value surface the lock service needs: atomic
// set-if-absent with expiry, ownership-checked delete and extend, and key
// introspection. Tests swap in an in-memory fake.
type Backend interface {
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
	CompareAndExtend(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// Ownership-checked scripts. Delete and extend succeed only while the stored
// token matches, so a slow holder whose lock already expired cannot clobber
// the key once a newer holder owns it.
var (
	releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

	extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)
)

// RedisBackend adapts a go-redis client to the Backend interface.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend creates a Backend backed by the given Redis client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (rb *RedisBackend) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return rb.client.SetNX(ctx, key, value, ttl).Result()
}

func (rb *RedisBackend) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	n, err := releaseScript.Run(ctx, rb.client, []string{key}, value).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (rb *RedisBackend) CompareAndExtend(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	n, err := extendScript.Run(ctx, rb.client, []string{key}, value, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (rb *RedisBackend) Exists(ctx context.Context, key string) (bool, error) {
	n, err := rb.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (rb *RedisBackend) TTL(ctx context.Context, key string) (time.Duration, error) {
	return rb.client.TTL(ctx, key).Result()
}
