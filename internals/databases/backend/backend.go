package backend

import (
	"context"
	"fmt"
	"log"

	"essaysmaster_backend/internals/configs"
	database "essaysmaster_backend/internals/databases"
	"essaysmaster_backend/internals/features/essays/revision/lock"
	"essaysmaster_backend/internals/features/essays/revision/store"
)

// Backend is the storage + lock pair picked by REVISION_STORE_DRIVER and
// ROUND_LOCK_DRIVER. Close releases whatever was opened.
type Backend struct {
	Store  store.Store
	Locker lock.Locker

	// GormLocker is set when leases live in postgres, for the purge scheduler.
	GormLocker *lock.GormLocker

	badger  *database.BadgerDB
	sqlOpen bool
}

func Open(cfg configs.RevisionConfig) (*Backend, error) {
	b := &Backend{}

	needPG := cfg.StoreDriver == configs.StoreDriverPostgres || cfg.LockDriver == configs.LockDriverPostgres
	needBadger := cfg.StoreDriver == configs.StoreDriverBadger || cfg.LockDriver == configs.LockDriverBadger

	if needPG {
		database.ConnectDB()
		database.TunePool()
		if err := database.AutoMigrate(database.DB); err != nil {
			database.Close()
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
		database.WarmUpQueries()
		b.sqlOpen = true
	}
	if needBadger {
		bdb, err := database.OpenBadger(database.DefaultBadgerConfig(cfg.BadgerPath))
		if err != nil {
			b.Close()
			return nil, err
		}
		b.badger = bdb
	}

	switch cfg.StoreDriver {
	case configs.StoreDriverBadger:
		b.Store = store.NewBadgerStore(b.badger.DB)
	default:
		b.Store = store.NewGormStore(database.DB)
	}

	switch cfg.LockDriver {
	case configs.LockDriverPostgres:
		b.GormLocker = lock.NewGormLocker(database.DB)
		b.Locker = b.GormLocker
	case configs.LockDriverBadger:
		b.Locker = lock.NewBadgerLocker(b.badger.DB)
	default:
		b.Locker = lock.NewMemoryLocker()
	}

	log.Printf("✅ Revision backend ready (store=%s lock=%s)", cfg.StoreDriver, cfg.LockDriver)
	return b, nil
}

func (b *Backend) Ping(ctx context.Context) error {
	return b.Store.Ping(ctx)
}

func (b *Backend) Close() {
	if b.badger != nil {
		if err := b.badger.Close(); err != nil {
			log.Printf("[BADGER] close: %v", err)
		}
		b.badger = nil
	}
	if b.sqlOpen {
		database.Close()
		b.sqlOpen = false
	}
}
