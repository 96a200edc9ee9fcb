package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const badgerLockPrefix = "lock/"

// BadgerLocker stores each lease as an entry with a native TTL, so an
// abandoned lease disappears on its own.
type BadgerLocker struct {
	DB *badger.DB
}

func NewBadgerLocker(db *badger.DB) *BadgerLocker {
	return &BadgerLocker{DB: db}
}

func (b *BadgerLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (*Handle, error) {
	h := &Handle{Key: key, Token: newToken(), ExpiresAt: time.Now().Add(ttl)}
	k := []byte(badgerLockPrefix + key)

	err := b.DB.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(k); err == nil {
			return ErrBusy
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.SetEntry(badger.NewEntry(k, []byte(h.Token)).WithTTL(ttl))
	})
	switch {
	case err == nil:
		return h, nil
	case errors.Is(err, ErrBusy), errors.Is(err, badger.ErrConflict):
		return nil, ErrBusy
	default:
		return nil, fmt.Errorf("acquire round lock: %w", err)
	}
}

// Renew rewrites the entry with a fresh TTL. An entry that already
// expired is gone, so renewal after expiry reports ErrLeaseLost.
func (b *BadgerLocker) Renew(ctx context.Context, h *Handle, ttl time.Duration) error {
	if h == nil {
		return ErrLeaseLost
	}
	k := []byte(badgerLockPrefix + h.Key)
	expires := time.Now().Add(ttl)
	err := b.DB.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrLeaseLost
		}
		if err != nil {
			return err
		}
		var owned bool
		if err := item.Value(func(val []byte) error {
			owned = string(val) == h.Token
			return nil
		}); err != nil {
			return err
		}
		if !owned {
			return ErrLeaseLost
		}
		return txn.SetEntry(badger.NewEntry(k, []byte(h.Token)).WithTTL(ttl))
	})
	switch {
	case err == nil:
		h.ExpiresAt = expires
		return nil
	case errors.Is(err, ErrLeaseLost):
		return ErrLeaseLost
	default:
		return fmt.Errorf("renew round lock: %w", err)
	}
}

func (b *BadgerLocker) Release(ctx context.Context, h *Handle) error {
	if h == nil {
		return nil
	}
	k := []byte(badgerLockPrefix + h.Key)
	err := b.DB.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var owned bool
		if err := item.Value(func(val []byte) error {
			owned = string(val) == h.Token
			return nil
		}); err != nil {
			return err
		}
		if !owned {
			return nil
		}
		return txn.Delete(k)
	})
	if err != nil && !errors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("release round lock: %w", err)
	}
	return nil
}
