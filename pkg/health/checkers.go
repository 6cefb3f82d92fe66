package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// GoroutineCountCheck fails when the goroutine count exceeds threshold,
// which usually indicates a leak.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(context.Context) error {
		count := runtime.NumGoroutine()
		if count > threshold {
			return errors.Errorf("too many goroutines: %d > %d", count, threshold)
		}
		return nil
	}
}

// PostgresCheck pings the connection pool.
func PostgresCheck(pool *pgxpool.Pool) CheckFunc {
	return func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping postgres")
		}
		return nil
	}
}

// RedisCheck pings the redis client backing the task broker.
func RedisCheck(client redis.UniversalClient) CheckFunc {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Wrap(err, "ping redis")
		}
		return nil
	}
}
