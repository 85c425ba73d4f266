package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// releaseScript deletes the lock only when it is still owned by the caller's
// token, so an expired lease taken over by another replica is left alone.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisOptions configures a Redis locker.
type RedisOptions struct {
	// Prefix namespaces lock keys. Defaults to "lock".
	Prefix string
	// TTL bounds how long a crashed holder can block others. Defaults to 30s.
	TTL time.Duration
	// RetryEvery is the polling interval while the lock is taken. Defaults
	// to 50ms.
	RetryEvery time.Duration
	Logger     zerolog.Logger
}

// Redis is a lease-based Locker shared by every replica connected to the same
// Redis server.
type Redis struct {
	rdb  *redis.Client
	opts RedisOptions
	log  zerolog.Logger
}

// NewRedis returns a Locker backed by rdb.
func NewRedis(rdb *redis.Client, opts RedisOptions) *Redis {
	if rdb == nil {
		panic("nil redis client passed to lock.NewRedis")
	}
	if opts.Prefix == "" {
		opts.Prefix = "lock"
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.RetryEvery <= 0 {
		opts.RetryEvery = 50 * time.Millisecond
	}
	return &Redis{
		rdb:  rdb,
		opts: opts,
		log:  opts.Logger.With().Str("component", "redis-lock").Logger(),
	}
}

// Lock implements Locker.
func (l *Redis) Lock(ctx context.Context, key string) (Release, error) {
	k := l.opts.Prefix + ":" + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.opts.RetryEvery)
	defer ticker.Stop()
	for {
		ok, err := l.rdb.SetNX(ctx, k, token, l.opts.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", k, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.rdb, []string{k}, token).Err(); err != nil {
				l.log.Warn().Err(err).Str("key", k).Msg("release lock failed; lease will expire")
			}
		})
	}, nil
}
