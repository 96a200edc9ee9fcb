// file: internals/features/essays/revision/model/round_progress_model.go
package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Analytics only. Nothing in the round flow reads this table.

type RequirementResult struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Count       int     `json:"count"`
	Target      int     `json:"target"`
	Weight      float64 `json:"weight"`
	Completed   bool    `json:"completed"`
}

type RoundProgressModel struct {
	RoundProgressID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey;column:round_progress_id" json:"round_progress_id"`

	RoundProgressSessionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_round_progress_session_round;column:round_progress_session_id" json:"round_progress_session_id"`
	RoundProgressRound     int       `gorm:"type:int;not null;uniqueIndex:uq_round_progress_session_round;column:round_progress_round" json:"round_progress_round"`

	RoundProgressScore           float64        `gorm:"type:numeric(6,2);not null;default:0;column:round_progress_score" json:"round_progress_score"`
	RoundProgressRequirements    datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'::jsonb;column:round_progress_requirements" json:"round_progress_requirements"`
	RoundProgressMatchedKeywords pq.StringArray `gorm:"type:text[];column:round_progress_matched_keywords" json:"round_progress_matched_keywords"`

	RoundProgressEvaluatedAt time.Time `gorm:"type:timestamptz;not null;column:round_progress_evaluated_at" json:"round_progress_evaluated_at"`
}

func (RoundProgressModel) TableName() string {
	return "essay_revision_progress"
}

func (m *RoundProgressModel) SetRequirements(items []RequirementResult) error {
	if items == nil {
		items = []RequirementResult{}
	}
	buf, err := json.Marshal(items)
	if err != nil {
		return err
	}
	m.RoundProgressRequirements = datatypes.JSON(buf)
	return nil
}

func (m *RoundProgressModel) Requirements() []RequirementResult {
	out := []RequirementResult{}
	if len(m.RoundProgressRequirements) == 0 {
		return out
	}
	_ = json.Unmarshal(m.RoundProgressRequirements, &out)
	return out
}
