// cartservice/kvstore/redis_kvstore.go

package kvstore

import (
	"context"
	"time"

	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	defaultConnectAttempts = 30
	maxConnectBackoff      = 30 * time.Second
)

// RedisKVStore is a key-value store backed by Redis.
type RedisKVStore struct {
	client   *redis.Client
	log      logrus.FieldLogger
	attempts int
}

// NewRedisKVStore accepts a Redis connection string ("redis://..." or "hostname:port") and returns a store instance.
func NewRedisKVStore(redisAddr string, log logrus.FieldLogger) *RedisKVStore {
	opts, err := redis.ParseURL(redisAddr)
	if err != nil {
		// Not a redis:// URL, use it as a plain Addr.
		opts = &redis.Options{
			Addr:         redisAddr,
			MinIdleConns: 1,
			MaxRetries:   3,
			DialTimeout:  30 * time.Second,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			PoolSize:     10,
			PoolTimeout:  4 * time.Second,
			IdleTimeout:  180 * time.Second,
		}
	}

	client := redis.NewClient(opts)
	client.AddHook(redisotel.NewTracingHook())

	return &RedisKVStore{
		client:   client,
		log:      log.WithField("component", "redis-kvstore"),
		attempts: defaultConnectAttempts,
	}
}

// Initialize waits for Redis to answer a PING, backing off exponentially between attempts.
func (r *RedisKVStore) Initialize(ctx context.Context) error {
	r.log.Info("initializing connection")

	for i := 0; i < r.attempts; i++ {
		if r.Ping(ctx) {
			r.log.WithField("attempt", i+1).Info("redis reachable")
			return nil
		}

		backoff := time.Duration(1000*(1<<uint(i))) * time.Millisecond
		if backoff > maxConnectBackoff || backoff <= 0 {
			backoff = maxConnectBackoff
		}
		r.log.WithFields(logrus.Fields{
			"attempt": i + 1,
			"backoff": backoff,
		}).Warn("redis not reachable, retrying")

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "redis initialize")
		case <-time.After(backoff):
		}
	}

	return errors.Errorf("failed to connect to Redis after %d attempts", r.attempts)
}

// Get reads key with GET. A redis.Nil reply means the key is absent.
func (r *RedisKVStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "redis GET %s", key)
	}
	return val, true, nil
}

// Set writes key with SET and no expiry.
func (r *RedisKVStore) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return errors.Wrapf(err, "redis SET %s", key)
	}
	return nil
}

// Remove deletes key with DEL.
func (r *RedisKVStore) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrapf(err, "redis DEL %s", key)
	}
	return nil
}

// Ping checks if Redis is alive.
func (r *RedisKVStore) Ping(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.client.Ping(pingCtx).Err(); err != nil {
		r.log.WithError(err).Debug("ping failed")
		return false
	}
	return true
}

// Close releases the connection pool.
func (r *RedisKVStore) Close() error {
	return r.client.Close()
}
