// file: internals/features/essays/revision/model/version_snapshot_model.go
package model

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

/*
=========================================================

	VERSION SNAPSHOTS (append-only audit trail)
	- feedback round   : original_text = essay sent, revised_text = NULL
	- validation round : original_text = first draft, revised_text = current essay
	Nothing reads these for gating.

=========================================================
*/

type VersionSnapshotModel struct {
	VersionSnapshotID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey;column:version_snapshot_id" json:"version_snapshot_id"`

	VersionSnapshotSessionID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_version_snapshot_session_number;column:version_snapshot_session_id" json:"version_snapshot_session_id"`
	VersionSnapshotVersionNumber int       `gorm:"type:int;not null;uniqueIndex:uq_version_snapshot_session_number;column:version_snapshot_version_number" json:"version_snapshot_version_number"`
	VersionSnapshotRound         int       `gorm:"type:int;not null;column:version_snapshot_round" json:"version_snapshot_round"`

	VersionSnapshotOriginalText string  `gorm:"type:text;not null;column:version_snapshot_original_text" json:"version_snapshot_original_text"`
	VersionSnapshotRevisedText  *string `gorm:"type:text;column:version_snapshot_revised_text" json:"version_snapshot_revised_text,omitempty"`

	VersionSnapshotWordCount      int  `gorm:"type:int;not null;default:0;column:version_snapshot_word_count" json:"version_snapshot_word_count"`
	VersionSnapshotCharacterCount int  `gorm:"type:int;not null;default:0;column:version_snapshot_character_count" json:"version_snapshot_character_count"`
	VersionSnapshotIsInitial      bool `gorm:"not null;default:false;column:version_snapshot_is_initial" json:"version_snapshot_is_initial"`

	VersionSnapshotCapturedAt time.Time `gorm:"type:timestamptz;not null;column:version_snapshot_captured_at" json:"version_snapshot_captured_at"`
}

func (VersionSnapshotModel) TableName() string {
	return "essay_revision_versions"
}

// NewVersionSnapshot fills the counters from the text the round actually
// worked on. VersionNumber and IsInitial are assigned by the store.
func NewVersionSnapshot(sessionID uuid.UUID, round int, originalText string, revisedText *string, now time.Time) *VersionSnapshotModel {
	counted := originalText
	if revisedText != nil {
		counted = *revisedText
	}
	return &VersionSnapshotModel{
		VersionSnapshotID:             uuid.New(),
		VersionSnapshotSessionID:      sessionID,
		VersionSnapshotRound:          round,
		VersionSnapshotOriginalText:   originalText,
		VersionSnapshotRevisedText:    revisedText,
		VersionSnapshotWordCount:      CountWords(counted),
		VersionSnapshotCharacterCount: utf8.RuneCountInString(counted),
		VersionSnapshotCapturedAt:     now,
	}
}

func CountWords(s string) int {
	return len(strings.Fields(s))
}
