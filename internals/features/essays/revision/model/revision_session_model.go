// file: internals/features/essays/revision/model/revision_session_model.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

/*
=========================================================

	ESSAY REVISION SESSIONS
	1 row = 1 submission × 1 student (non-deleted)
	- current_round           : furthest round reached (1..6)
	- last_processed_round    : round touched by the latest success
	- rounds_completed        : max round ever completed (never goes down, except admin reset)
	- final_submission_allowed: rounds_completed >= max_round

=========================================================
*/

type RevisionSessionStatus string

const (
	RevisionSessionActive    RevisionSessionStatus = "active"
	RevisionSessionCompleted RevisionSessionStatus = "completed"

	// Never stored; returned by get_state when no row exists yet.
	RevisionSessionNew RevisionSessionStatus = "new"
)

type RevisionSessionModel struct {
	RevisionSessionID uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey;column:revision_session_id" json:"revision_session_id"`

	RevisionSessionSubmissionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_revision_session_submission_student,where:revision_session_deleted_at IS NULL;column:revision_session_submission_id" json:"revision_session_submission_id"`
	RevisionSessionStudentID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_revision_session_submission_student,where:revision_session_deleted_at IS NULL;column:revision_session_student_id" json:"revision_session_student_id"`

	RevisionSessionCurrentRound       int     `gorm:"type:int;not null;default:1;column:revision_session_current_round" json:"revision_session_current_round"`
	RevisionSessionLastProcessedRound int     `gorm:"type:int;not null;default:0;column:revision_session_last_processed_round" json:"revision_session_last_processed_round"`
	RevisionSessionMaxRound           int     `gorm:"type:int;not null;default:6;column:revision_session_max_round" json:"revision_session_max_round"`
	RevisionSessionThresholdPercent   float64 `gorm:"type:numeric(5,2);not null;default:50;column:revision_session_threshold_percent" json:"revision_session_threshold_percent"`

	RevisionSessionStatus                 RevisionSessionStatus `gorm:"type:varchar(20);not null;default:'active';column:revision_session_status" json:"revision_session_status"`
	RevisionSessionRoundsCompleted        int                   `gorm:"type:int;not null;default:0;column:revision_session_rounds_completed" json:"revision_session_rounds_completed"`
	RevisionSessionFinalSubmissionAllowed bool                  `gorm:"not null;default:false;column:revision_session_final_submission_allowed" json:"revision_session_final_submission_allowed"`

	RevisionSessionStartedAt time.Time  `gorm:"type:timestamptz;not null;column:revision_session_started_at" json:"revision_session_started_at"`
	RevisionSessionEndedAt   *time.Time `gorm:"type:timestamptz;column:revision_session_ended_at" json:"revision_session_ended_at,omitempty"`

	RevisionSessionCreatedAt time.Time      `gorm:"type:timestamptz;not null;default:now();autoCreateTime;column:revision_session_created_at" json:"revision_session_created_at"`
	RevisionSessionUpdatedAt time.Time      `gorm:"type:timestamptz;not null;default:now();autoUpdateTime;column:revision_session_updated_at" json:"revision_session_updated_at"`
	RevisionSessionDeletedAt gorm.DeletedAt `gorm:"index;column:revision_session_deleted_at" json:"-"`
}

func (RevisionSessionModel) TableName() string {
	return "essay_revision_sessions"
}

// NewRevisionSession builds the row inserted on the first round request.
func NewRevisionSession(submissionID, studentID uuid.UUID, thresholdPercent float64, now time.Time) *RevisionSessionModel {
	return &RevisionSessionModel{
		RevisionSessionID:                     uuid.New(),
		RevisionSessionSubmissionID:           submissionID,
		RevisionSessionStudentID:              studentID,
		RevisionSessionCurrentRound:           1,
		RevisionSessionMaxRound:               MaxRound,
		RevisionSessionThresholdPercent:       thresholdPercent,
		RevisionSessionStatus:                 RevisionSessionActive,
		RevisionSessionRoundsCompleted:        0,
		RevisionSessionFinalSubmissionAllowed: false,
		RevisionSessionStartedAt:              now,
		RevisionSessionCreatedAt:              now,
		RevisionSessionUpdatedAt:              now,
	}
}

/* =========================================================
   STATE TRANSITIONS
   Stores that cannot express the transition in one SQL
   statement apply these inside their own transaction.
========================================================= */

// ApplyAdvance records a successful round. Rounds only move forward.
func (m *RevisionSessionModel) ApplyAdvance(round int, now time.Time) {
	maxRound := m.effectiveMaxRound()
	if round > maxRound {
		round = maxRound
	}
	if round > m.RevisionSessionRoundsCompleted {
		m.RevisionSessionRoundsCompleted = round
	}
	if round > m.RevisionSessionCurrentRound {
		m.RevisionSessionCurrentRound = round
	}
	m.RevisionSessionLastProcessedRound = round
	if m.RevisionSessionRoundsCompleted >= maxRound {
		m.RevisionSessionFinalSubmissionAllowed = true
		m.RevisionSessionStatus = RevisionSessionCompleted
		// first completion only
		if m.RevisionSessionEndedAt == nil {
			ended := now
			m.RevisionSessionEndedAt = &ended
		}
	}
	m.RevisionSessionUpdatedAt = now
}

// ApplyReset rewinds the session so `round` can be redone.
func (m *RevisionSessionModel) ApplyReset(round int, now time.Time) {
	m.RevisionSessionCurrentRound = round
	m.RevisionSessionRoundsCompleted = round - 1
	m.RevisionSessionLastProcessedRound = round - 1
	m.RevisionSessionFinalSubmissionAllowed = false
	m.RevisionSessionStatus = RevisionSessionActive
	m.RevisionSessionEndedAt = nil
	m.RevisionSessionUpdatedAt = now
}

func (m *RevisionSessionModel) effectiveMaxRound() int {
	if m.RevisionSessionMaxRound <= 0 {
		return MaxRound
	}
	return m.RevisionSessionMaxRound
}
