// file: internals/features/essays/revision/lock/gorm_locker.go
package lock

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	model "essaysmaster_backend/internals/features/essays/revision/model"
)

/*
GormLocker keeps one lease row per key.

	INSERT ... ON CONFLICT (round_lock_key) DO UPDATE ...
	WHERE round_lock_expires_at < now

Zero affected rows means a live lease exists.
*/
type GormLocker struct {
	DB *gorm.DB
}

func NewGormLocker(db *gorm.DB) *GormLocker {
	return &GormLocker{DB: db}
}

// acquireLease inserts the lease row or takes over an expired one.
func acquireLease(db *gorm.DB, row *model.RoundLockModel, now time.Time) *gorm.DB {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "round_lock_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"round_lock_token", "round_lock_expires_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "essay_revision_round_locks.round_lock_expires_at < ?", Vars: []any{now}},
		}},
	}).Create(row)
}

func renewLease(db *gorm.DB, h *Handle, now, expires time.Time) *gorm.DB {
	return db.Model(&model.RoundLockModel{}).
		Where("round_lock_key = ? AND round_lock_token = ? AND round_lock_expires_at >= ?", h.Key, h.Token, now).
		Update("round_lock_expires_at", expires)
}

func (g *GormLocker) TryAcquire(ctx context.Context, key string, ttl time.Duration) (*Handle, error) {
	now := time.Now()
	row := model.RoundLockModel{
		RoundLockKey:       key,
		RoundLockToken:     newToken(),
		RoundLockExpiresAt: now.Add(ttl),
	}

	res := acquireLease(g.DB.WithContext(ctx), &row, now)
	if res.Error != nil {
		return nil, fmt.Errorf("acquire round lock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrBusy
	}
	return &Handle{Key: key, Token: row.RoundLockToken, ExpiresAt: row.RoundLockExpiresAt}, nil
}

// Renew only matches the holder's token, so a taken-over lease reports
// ErrLeaseLost.
func (g *GormLocker) Renew(ctx context.Context, h *Handle, ttl time.Duration) error {
	if h == nil {
		return ErrLeaseLost
	}
	now := time.Now()
	expires := now.Add(ttl)
	res := renewLease(g.DB.WithContext(ctx), h, now, expires)
	if res.Error != nil {
		return fmt.Errorf("renew round lock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrLeaseLost
	}
	h.ExpiresAt = expires
	return nil
}

func (g *GormLocker) Release(ctx context.Context, h *Handle) error {
	if h == nil {
		return nil
	}
	err := g.DB.WithContext(ctx).
		Where("round_lock_key = ? AND round_lock_token = ?", h.Key, h.Token).
		Delete(&model.RoundLockModel{}).Error
	if err != nil {
		return fmt.Errorf("release round lock: %w", err)
	}
	return nil
}

// PurgeExpired drops stale lease rows. Safe to run from a ticker.
func (g *GormLocker) PurgeExpired(ctx context.Context) (int64, error) {
	res := g.DB.WithContext(ctx).
		Where("round_lock_expires_at < ?", time.Now()).
		Delete(&model.RoundLockModel{})
	return res.RowsAffected, res.Error
}
