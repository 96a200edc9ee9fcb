package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBadgerLocker(t *testing.T) *BadgerLocker {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewBadgerLocker(db)
}

func lockers(t *testing.T) map[string]Locker {
	return map[string]Locker{
		"memory": NewMemoryLocker(),
		"badger": newBadgerLocker(t),
	}
}

func TestRoundKey(t *testing.T) {
	id := uuid.MustParse("6f1c3a2e-0000-4000-8000-000000000001")
	assert.Equal(t, "revision_6f1c3a2e-0000-4000-8000-000000000001_r4", RoundKey(id, 4))
}

func TestLocker_ExclusiveUntilRelease(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			h, err := l.TryAcquire(ctx, "k1", 30*time.Second)
			require.NoError(t, err)

			_, err = l.TryAcquire(ctx, "k1", 30*time.Second)
			assert.ErrorIs(t, err, ErrBusy)

			other, err := l.TryAcquire(ctx, "k2", 30*time.Second)
			require.NoError(t, err)
			require.NoError(t, l.Release(ctx, other))

			require.NoError(t, l.Release(ctx, h))

			again, err := l.TryAcquire(ctx, "k1", 30*time.Second)
			require.NoError(t, err)
			require.NoError(t, l.Release(ctx, again))
		})
	}
}

func TestLocker_StaleHandleDoesNotReleaseNewHolder(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			h, err := l.TryAcquire(ctx, "k", 30*time.Second)
			require.NoError(t, err)

			stale := &Handle{Key: "k", Token: "not-the-owner"}
			require.NoError(t, l.Release(ctx, stale))

			_, err = l.TryAcquire(ctx, "k", 30*time.Second)
			assert.ErrorIs(t, err, ErrBusy)
			require.NoError(t, l.Release(ctx, h))
		})
	}
}

func TestMemoryLocker_ExpiredLeaseCanBeTaken(t *testing.T) {
	l := NewMemoryLocker()
	now := time.Now()
	l.now = func() time.Time { return now }

	_, err := l.TryAcquire(context.Background(), "k", time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	_, err = l.TryAcquire(context.Background(), "k", time.Second)
	assert.NoError(t, err)
}

func TestAcquire_BoundedWait(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	h, err := Acquire(ctx, l, "k", 30*time.Second, 0)
	require.NoError(t, err)

	start := time.Now()
	_, err = Acquire(ctx, l, "k", 30*time.Second, 120*time.Millisecond)
	assert.ErrorIs(t, err, ErrBusy)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)

	go func() {
		time.Sleep(60 * time.Millisecond)
		_ = l.Release(ctx, h)
	}()
	h2, err := Acquire(ctx, l, "k", 30*time.Second, 2*time.Second)
	require.NoError(t, err)
	assert.NotEqual(t, h.Token, h2.Token)
}

func TestLocker_AtMostOneHolder(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var inside, maxInside, acquired int32

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					h, err := l.TryAcquire(ctx, "hot", 30*time.Second)
					if err != nil {
						assert.ErrorIs(t, err, ErrBusy)
						return
					}
					atomic.AddInt32(&acquired, 1)
					n := atomic.AddInt32(&inside, 1)
					for {
						m := atomic.LoadInt32(&maxInside)
						if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
							break
						}
					}
					time.Sleep(5 * time.Millisecond)
					atomic.AddInt32(&inside, -1)
					_ = l.Release(ctx, h)
				}()
			}
			wg.Wait()

			assert.EqualValues(t, 1, atomic.LoadInt32(&maxInside))
			assert.GreaterOrEqual(t, atomic.LoadInt32(&acquired), int32(1))
		})
	}
}
