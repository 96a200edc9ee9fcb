package model

import "time"

// RoundLockModel is the lease row used by the postgres-backed locker.
type RoundLockModel struct {
	RoundLockKey       string    `gorm:"type:varchar(120);primaryKey;column:round_lock_key" json:"round_lock_key"`
	RoundLockToken     string    `gorm:"type:varchar(64);not null;column:round_lock_token" json:"round_lock_token"`
	RoundLockExpiresAt time.Time `gorm:"type:timestamptz;not null;index;column:round_lock_expires_at" json:"round_lock_expires_at"`
}

func (RoundLockModel) TableName() string {
	return "essay_revision_round_locks"
}
