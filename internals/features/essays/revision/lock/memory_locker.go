package lock

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// MemoryLocker only serializes requests inside one process.
type MemoryLocker struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *MemoryLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.entries[key]; ok && now.Before(e.expiresAt) {
		return nil, ErrBusy
	}

	h := &Handle{Key: key, Token: newToken(), ExpiresAt: now.Add(ttl)}
	m.entries[key] = memoryEntry{token: h.Token, expiresAt: h.ExpiresAt}
	return h, nil
}

func (m *MemoryLocker) Renew(ctx context.Context, h *Handle, ttl time.Duration) error {
	if h == nil {
		return ErrLeaseLost
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	e, ok := m.entries[h.Key]
	if !ok || e.token != h.Token || !now.Before(e.expiresAt) {
		return ErrLeaseLost
	}
	e.expiresAt = now.Add(ttl)
	m.entries[h.Key] = e
	h.ExpiresAt = e.expiresAt
	return nil
}

// Release is a no-op when the lease already expired and was taken over.
func (m *MemoryLocker) Release(ctx context.Context, h *Handle) error {
	if h == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[h.Key]; ok && e.token == h.Token {
		delete(m.entries, h.Key)
	}
	return nil
}
