package lock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type tokenGenerator interface {
	Generate() string
}

// Redis is a Locker built on SET NX PX with a per-acquisition token.
type Redis struct {
	client redis.UniversalClient
	tokens tokenGenerator
	prefix string
	opts   options
}

// NewRedis returns a Redis locker. Keys are stored under "lock:".
func NewRedis(client redis.UniversalClient, tokens tokenGenerator, opts ...Option) *Redis {
	return &Redis{
		client: client,
		tokens: tokens,
		prefix: "lock:",
		opts:   newOptions(opts),
	}
}

// Acquire implements Locker.
func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	fk := r.prefix + key
	token := r.tokens.Generate()

	backoff := retry.WithMaxDuration(r.opts.wait, retry.NewConstant(r.opts.poll))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		ok, err := r.client.SetNX(ctx, fk, token, ttl).Result()
		if err != nil {
			return err
		}
		if !ok {
			return retry.RetryableError(ErrNotAcquired)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, r.client, []string{fk}, token).Err()
	}, nil
}
