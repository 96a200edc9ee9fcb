package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"

	model "essaysmaster_backend/internals/features/essays/revision/model"
	"essaysmaster_backend/internals/features/essays/revision/service"
)

/* =========================================================
   REQUEST
========================================================= */

const (
	ActionProcess  = "process"
	ActionGetState = "get_state"
)

// FeedbackRequest is the body of the combined endpoint.
// action=get_state needs only submission_id; round and current_text are
// checked by the round service for action=process.
type FeedbackRequest struct {
	SubmissionID   string `json:"submission_id" validate:"required,uuid"`
	Round          int    `json:"round" validate:"omitempty,min=1,max=6"`
	Action         string `json:"action" validate:"omitempty,oneof=process get_state"`
	CurrentText    string `json:"current_text"`
	OriginalText   string `json:"original_text"`
	QuestionPrompt string `json:"question_prompt" validate:"max=10000"`
	Nonce          string `json:"nonce" validate:"max=100"`
}

func (r *FeedbackRequest) Normalize() {
	r.SubmissionID = strings.TrimSpace(r.SubmissionID)
	r.Action = strings.ToLower(strings.TrimSpace(r.Action))
	if r.Action == "" {
		r.Action = ActionProcess
	}
	r.Nonce = strings.TrimSpace(r.Nonce)
}

// ProcessRoundRequest is the body of POST /:submission_id/rounds/:round.
type ProcessRoundRequest struct {
	CurrentText    string `json:"current_text" validate:"required"`
	OriginalText   string `json:"original_text"`
	QuestionPrompt string `json:"question_prompt" validate:"max=10000"`
	Nonce          string `json:"nonce" validate:"max=100"`
}

type ResetSessionRequest struct {
	Round int `json:"round" validate:"required,min=1,max=6"`
}

func (r ProcessRoundRequest) ToInput(submissionID, studentID uuid.UUID, round int, studentName string) service.RoundInput {
	return service.RoundInput{
		SubmissionID:   submissionID,
		StudentID:      studentID,
		Round:          round,
		CurrentText:    r.CurrentText,
		OriginalText:   r.OriginalText,
		QuestionPrompt: r.QuestionPrompt,
		StudentName:    studentName,
		Nonce:          strings.TrimSpace(r.Nonce),
	}
}

func (r FeedbackRequest) ToProcess() ProcessRoundRequest {
	return ProcessRoundRequest{
		CurrentText:    r.CurrentText,
		OriginalText:   r.OriginalText,
		QuestionPrompt: r.QuestionPrompt,
		Nonce:          r.Nonce,
	}
}

/* =========================================================
   RESPONSE
========================================================= */

type RoundResponse struct {
	Feedback               string            `json:"feedback"`
	Round                  int               `json:"round"`
	Kind                   model.RoundKind   `json:"kind"`
	Passed                 *bool             `json:"passed,omitempty"`
	Score                  *float64          `json:"score,omitempty"`
	Highlights             []model.Highlight `json:"highlights"`
	RoundsCompleted        int               `json:"rounds_completed"`
	CurrentRound           int               `json:"current_round"`
	FinalSubmissionAllowed bool              `json:"final_submission_allowed"`
	IsFinalRound           bool              `json:"is_final_round"`
	MaxRounds              int               `json:"max_rounds"`
	SessionID              uuid.UUID         `json:"session_id"`
}

func NewRoundResponse(r *service.RoundResult) RoundResponse {
	hs := r.Highlights
	if hs == nil {
		hs = []model.Highlight{}
	}
	return RoundResponse{
		Feedback:               r.Feedback,
		Round:                  r.Artifact.RoundArtifactRound,
		Kind:                   r.Kind,
		Passed:                 r.Passed,
		Score:                  r.Score,
		Highlights:             hs,
		RoundsCompleted:        r.Session.RevisionSessionRoundsCompleted,
		CurrentRound:           r.Session.RevisionSessionCurrentRound,
		FinalSubmissionAllowed: r.Session.RevisionSessionFinalSubmissionAllowed,
		IsFinalRound:           r.IsFinalRound(),
		MaxRounds:              r.Session.RevisionSessionMaxRound,
		SessionID:              r.Session.RevisionSessionID,
	}
}

type ArtifactResponse struct {
	Round       int               `json:"round"`
	Kind        model.RoundKind   `json:"kind"`
	Feedback    string            `json:"feedback"`
	Score       *float64          `json:"score,omitempty"`
	Passed      *bool             `json:"passed,omitempty"`
	Analysis    *string           `json:"analysis,omitempty"`
	Highlights  []model.Highlight `json:"highlights"`
	GeneratedAt time.Time         `json:"generated_at"`
}

func NewArtifactResponse(a *model.RoundArtifactModel) ArtifactResponse {
	return ArtifactResponse{
		Round:       a.RoundArtifactRound,
		Kind:        a.RoundArtifactKind,
		Feedback:    a.RoundArtifactRawText,
		Score:       a.RoundArtifactScore,
		Passed:      a.RoundArtifactPassed,
		Analysis:    a.RoundArtifactAnalysis,
		Highlights:  a.Highlights(),
		GeneratedAt: a.RoundArtifactGeneratedAt,
	}
}

type ProgressResponse struct {
	Round           int                       `json:"round"`
	Score           float64                   `json:"score"`
	Requirements    []model.RequirementResult `json:"requirements"`
	MatchedKeywords []string                  `json:"matched_keywords"`
	EvaluatedAt     time.Time                 `json:"evaluated_at"`
}

func NewProgressResponses(rows []model.RoundProgressModel) []ProgressResponse {
	out := make([]ProgressResponse, 0, len(rows))
	for i := range rows {
		kw := []string(rows[i].RoundProgressMatchedKeywords)
		if kw == nil {
			kw = []string{}
		}
		out = append(out, ProgressResponse{
			Round:           rows[i].RoundProgressRound,
			Score:           rows[i].RoundProgressScore,
			Requirements:    rows[i].Requirements(),
			MatchedKeywords: kw,
			EvaluatedAt:     rows[i].RoundProgressEvaluatedAt,
		})
	}
	return out
}
