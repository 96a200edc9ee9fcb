// file: internals/features/essays/revision/lock/lock.go
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBusy = errors.New("lock is held by another request")
	// ErrLeaseLost means the handle no longer owns its key.
	ErrLeaseLost = errors.New("lock lease lost")
)

const pollInterval = 50 * time.Millisecond

type Handle struct {
	Key       string
	Token     string
	ExpiresAt time.Time
}

// Locker is a short-lived advisory lock. TryAcquire never blocks; it
// returns ErrBusy while another unexpired holder exists. Renew pushes the
// expiry of a held lease out to now+ttl, or returns ErrLeaseLost.
type Locker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (*Handle, error)
	Renew(ctx context.Context, h *Handle, ttl time.Duration) error
	Release(ctx context.Context, h *Handle) error
}

func RoundKey(submissionID uuid.UUID, round int) string {
	return fmt.Sprintf("revision_%s_r%d", submissionID, round)
}

func newToken() string {
	return uuid.NewString()
}

// Acquire polls TryAcquire until it succeeds, wait elapses or ctx ends.
// wait <= 0 means a single attempt.
func Acquire(ctx context.Context, l Locker, key string, ttl, wait time.Duration) (*Handle, error) {
	deadline := time.Now().Add(wait)
	for {
		h, err := l.TryAcquire(ctx, key, ttl)
		if err == nil {
			return h, nil
		}
		if !errors.Is(err, ErrBusy) {
			return nil, err
		}
		if wait <= 0 || !time.Now().Before(deadline) {
			return nil, ErrBusy
		}

		sleep := pollInterval
		if remain := time.Until(deadline); remain < sleep {
			sleep = remain
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ErrBusy
		case <-timer.C:
		}
	}
}
