package store

import (
	"context"
	"time"

	"github.com/loykin/sqlmigrate/internal/common"
	"github.com/loykin/sqlmigrate/internal/constants"
	"github.com/loykin/sqlmigrate/internal/retry"
)

// WaitReady pings the configured database every interval until it answers or
// timeout is spent.
func WaitReady(ctx context.Context, cfg Config, timeout, interval time.Duration) error {
	if timeout <= 0 {
		timeout = constants.DefaultWaitTimeout
	}
	if interval <= 0 {
		interval = constants.DefaultWaitInterval
	}
	db, d, err := Connect(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	logger := common.GetLogger().WithStore(d.Name())
	logger.Info("waiting for database", "timeout", timeout, "interval", interval)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	start := time.Now()
	err = retry.WithRetry(ctx, retry.ForTimeout(timeout, interval), func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		return err
	}
	logger.Info("database is ready", "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}
