package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/twofa/internal/pkg/instrument"
)

// Cache keeps short-lived two-factor bookkeeping in Redis.
type Cache struct {
	client redis.UniversalClient
	ins    instrument.Instrumentation
}

func NewCache(client redis.UniversalClient, ins instrument.Instrumentation) *Cache {
	return &Cache{client: client, ins: ins}
}

func (c *Cache) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return c.ins.Tracer("twofactor.outbound.cache").Start(ctx, name)
}

func (c *Cache) endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func stepKey(accountID int64, step int64) string {
	return "twofactor:replay:" + strconv.FormatInt(accountID, 10) + ":" + strconv.FormatInt(step, 10)
}

// ClaimStep records step as used by the account. It returns false when the
// step was already claimed within ttl.
func (c *Cache) ClaimStep(ctx context.Context, accountID int64, step int64, ttl time.Duration) (_ bool, err error) {
	ctx, span := c.startSpan(ctx, "ClaimStep")
	defer func() { c.endSpan(span, err) }()

	ok, err := c.client.SetNX(ctx, stepKey(accountID, step), 1, ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// ReleaseStep forgets a claim made by ClaimStep.
func (c *Cache) ReleaseStep(ctx context.Context, accountID int64, step int64) (err error) {
	ctx, span := c.startSpan(ctx, "ReleaseStep")
	defer func() { c.endSpan(span, err) }()

	return c.client.Del(ctx, stepKey(accountID, step)).Err()
}
