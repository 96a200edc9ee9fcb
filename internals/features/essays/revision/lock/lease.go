// file: internals/features/essays/revision/lock/lease.go
package lock

import (
	"context"
	"errors"
	"log"
	"time"
)

/*
Lease renews a held handle every ttl/3 until Stop.

	lease := lock.KeepAlive(ctx, l, h, ttl)
	defer lease.Stop()
	work(lease.Context())
	if err := lease.Err(); err != nil { ... }

When the lease can no longer be renewed, Context() is cancelled with
ErrLeaseLost as its cause.
*/
type Lease struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	done   chan struct{}
}

func KeepAlive(parent context.Context, l Locker, h *Handle, ttl time.Duration) *Lease {
	ctx, cancel := context.WithCancelCause(parent)
	ls := &Lease{ctx: ctx, cancel: cancel, done: make(chan struct{})}

	every := ttl / 3
	if every <= 0 {
		every = pollInterval
	}
	go ls.run(l, h, ttl, every)
	return ls
}

func (ls *Lease) run(l Locker, h *Handle, ttl, every time.Duration) {
	defer close(ls.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	expires := h.ExpiresAt
	for {
		select {
		case <-ls.ctx.Done():
			return
		case <-ticker.C:
		}

		rctx, cancel := context.WithTimeout(context.WithoutCancel(ls.ctx), every)
		err := l.Renew(rctx, h, ttl)
		cancel()
		switch {
		case err == nil:
			expires = h.ExpiresAt
		case !errors.Is(err, ErrLeaseLost) && time.Now().Before(expires):
			// transient failure, the lease is still ours until expires
			log.Printf("[LOCK] ⚠️ renew key=%s: %v", h.Key, err)
		default:
			log.Printf("[LOCK] ❌ lease lost key=%s: %v", h.Key, err)
			ls.cancel(ErrLeaseLost)
			return
		}
	}
}

// Context is cancelled when the parent ends, Stop is called or the lease is lost.
func (ls *Lease) Context() context.Context { return ls.ctx }

// Err reports ErrLeaseLost once renewal has failed, nil otherwise.
func (ls *Lease) Err() error {
	if errors.Is(context.Cause(ls.ctx), ErrLeaseLost) {
		return ErrLeaseLost
	}
	return nil
}

// Stop ends renewal and waits for the renewer to exit. It does not release the lock.
func (ls *Lease) Stop() {
	ls.cancel(context.Canceled)
	<-ls.done
}
