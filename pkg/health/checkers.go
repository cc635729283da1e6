package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// CountCheck fails when count() exceeds limit. what names the counted thing
// in the error.
func CountCheck(what string, count func() int, limit int) CheckFunc {
	return func(_ context.Context) error {
		if n := count(); n > limit {
			return errors.Errorf("%s count %d exceeds limit %d", what, n, limit)
		}
		return nil
	}
}

// GoroutineCountCheck fails when the process runs more than limit goroutines.
func GoroutineCountCheck(limit int) CheckFunc {
	return CountCheck("goroutine", runtime.NumGoroutine, limit)
}

// PingCheck adapts a connectivity probe such as pgxpool.Pool.Ping.
func PingCheck(ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) error {
		if err := ping(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}
