package database

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type BadgerConfig struct {
	Path       string
	InMemory   bool
	SyncWrites bool
	// Quiet drops badger's own INFO/DEBUG chatter.
	Quiet bool

	GCInterval     time.Duration
	GCDiscardRatio float64
}

func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:           path,
		SyncWrites:     true,
		Quiet:          true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true, Quiet: true}
}

// badgerLogger routes badger's logger onto the standard log package.
type badgerLogger struct {
	quiet bool
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	log.Printf("[BADGER][ERROR] "+format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	log.Printf("[BADGER][WARN] "+format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	if !l.quiet {
		log.Printf("[BADGER][INFO] "+format, args...)
	}
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {}

type BadgerDB struct {
	*badger.DB

	stopGC chan struct{}
	doneGC chan struct{}
	once   sync.Once
}

func OpenBadger(cfg BadgerConfig) (*BadgerDB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger path is required for a persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create badger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(&badgerLogger{quiet: cfg.Quiet})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	out := &BadgerDB{DB: db}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		out.stopGC = make(chan struct{})
		out.doneGC = make(chan struct{})
		go out.runGC(cfg.GCInterval, cfg.GCDiscardRatio)
	}
	log.Printf("✅ Badger opened (in_memory=%v path=%q)", cfg.InMemory, cfg.Path)
	return out, nil
}

func (b *BadgerDB) runGC(interval time.Duration, ratio float64) {
	defer close(b.doneGC)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stopGC:
			return
		case <-ticker.C:
			if err := b.DB.RunValueLogGC(ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				log.Printf("[BADGER] value log GC: %v", err)
			}
		}
	}
}

func (b *BadgerDB) Close() error {
	var err error
	b.once.Do(func() {
		if b.stopGC != nil {
			close(b.stopGC)
			<-b.doneGC
		}
		err = b.DB.Close()
	})
	return err
}
