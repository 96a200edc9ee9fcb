package scheduler

import (
	"context"
	"log"
	"time"

	"essaysmaster_backend/internals/configs"
)

type ExpiredLockPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// StartLockCleanupScheduler sweeps expired round lock rows every
// ROUND_LOCK_CLEANUP_INTERVAL (default 10 minutes) until ctx ends.
// The returned channel closes when the loop has stopped.
func StartLockCleanupScheduler(ctx context.Context, p ExpiredLockPurger) <-chan struct{} {
	interval := configs.GetEnvDuration("ROUND_LOCK_CLEANUP_INTERVAL", 10*time.Minute)
	return startCleanup(ctx, p, interval)
}

func startCleanup(ctx context.Context, p ExpiredLockPurger, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			sweep(ctx, p)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return done
}

func sweep(ctx context.Context, p ExpiredLockPurger) {
	cctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := p.PurgeExpired(cctx)
	switch {
	case err != nil && ctx.Err() == nil:
		log.Printf("[CLEANUP ERROR] failed to purge expired round locks: %v", err)
	case n > 0:
		log.Printf("[CLEANUP] %d expired round locks removed", n)
	}
}
