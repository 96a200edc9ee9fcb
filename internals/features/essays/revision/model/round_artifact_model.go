// file: internals/features/essays/revision/model/round_artifact_model.go
package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

/*
=========================================================

	ROUND ARTIFACTS
	1 row = 1 submission × 1 round
	A re-attempt overwrites the row; it never appends.
	score/passed/analysis are only set for validation rounds.

=========================================================
*/

type Highlight struct {
	Word    string `json:"word"`
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

type RoundArtifactModel struct {
	RoundArtifactID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey;column:round_artifact_id" json:"round_artifact_id"`

	RoundArtifactSubmissionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_round_artifact_submission_round;column:round_artifact_submission_id" json:"round_artifact_submission_id"`
	RoundArtifactRound        int       `gorm:"type:int;not null;uniqueIndex:uq_round_artifact_submission_round;column:round_artifact_round" json:"round_artifact_round"`
	RoundArtifactSessionID    uuid.UUID `gorm:"type:uuid;not null;index;column:round_artifact_session_id" json:"round_artifact_session_id"`

	RoundArtifactKind    RoundKind `gorm:"type:varchar(20);not null;column:round_artifact_kind" json:"round_artifact_kind"`
	RoundArtifactRawText string    `gorm:"type:text;not null;column:round_artifact_raw_text" json:"round_artifact_raw_text"`

	RoundArtifactScore    *float64 `gorm:"type:numeric(6,2);column:round_artifact_score" json:"round_artifact_score,omitempty"`
	RoundArtifactPassed   *bool    `gorm:"column:round_artifact_passed" json:"round_artifact_passed,omitempty"`
	RoundArtifactAnalysis *string  `gorm:"type:text;column:round_artifact_analysis" json:"round_artifact_analysis,omitempty"`

	RoundArtifactHighlights datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'::jsonb;column:round_artifact_highlights" json:"round_artifact_highlights"`

	// Client nonce. Advisory only, never used for dedup.
	RoundArtifactRetryMarker *string `gorm:"type:varchar(100);column:round_artifact_retry_marker" json:"round_artifact_retry_marker,omitempty"`

	RoundArtifactLatencyMs   int64     `gorm:"type:bigint;not null;default:0;column:round_artifact_latency_ms" json:"round_artifact_latency_ms"`
	RoundArtifactGeneratedAt time.Time `gorm:"type:timestamptz;not null;column:round_artifact_generated_at" json:"round_artifact_generated_at"`

	RoundArtifactCreatedAt time.Time `gorm:"type:timestamptz;not null;default:now();autoCreateTime;column:round_artifact_created_at" json:"round_artifact_created_at"`
	RoundArtifactUpdatedAt time.Time `gorm:"type:timestamptz;not null;default:now();autoUpdateTime;column:round_artifact_updated_at" json:"round_artifact_updated_at"`
}

func (RoundArtifactModel) TableName() string {
	return "essay_revision_round_artifacts"
}

// SetHighlights serializes the list; nil becomes [].
func (m *RoundArtifactModel) SetHighlights(items []Highlight) error {
	if items == nil {
		items = []Highlight{}
	}
	buf, err := json.Marshal(items)
	if err != nil {
		return err
	}
	m.RoundArtifactHighlights = datatypes.JSON(buf)
	return nil
}

func (m *RoundArtifactModel) Highlights() []Highlight {
	out := []Highlight{}
	if len(m.RoundArtifactHighlights) == 0 {
		return out
	}
	_ = json.Unmarshal(m.RoundArtifactHighlights, &out)
	return out
}
