package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"essaysmaster_backend/internals/configs"
	model "essaysmaster_backend/internals/features/essays/revision/model"
	"essaysmaster_backend/internals/features/essays/revision/store"
)

/* =========================================================
   SESSION MANAGER
   - one live session per (submission, student)
   - creation is idempotent across goroutines and instances
   - advance is forward-only and done by the store atomically
========================================================= */

const sessionLookupTimeout = 10 * time.Second

type SessionService struct {
	Store store.Store
	Cfg   configs.RevisionConfig

	group singleflight.Group
	now   func() time.Time
}

func NewSessionService(st store.Store, cfg configs.RevisionConfig) *SessionService {
	return &SessionService{Store: st, Cfg: cfg, now: time.Now}
}

// SessionState is the read model returned by get_state.
type SessionState struct {
	SessionID              *uuid.UUID                  `json:"session_id,omitempty"`
	CurrentLevel           int                         `json:"current_level"`
	RoundsCompleted        int                         `json:"rounds_completed"`
	Status                 model.RevisionSessionStatus `json:"status"`
	FinalSubmissionAllowed bool                        `json:"final_submission_allowed"`
	MaxRounds              int                         `json:"max_rounds"`
}

func NewStateFromSession(s *model.RevisionSessionModel) SessionState {
	if s == nil {
		return SessionState{
			CurrentLevel:           0,
			RoundsCompleted:        0,
			Status:                 model.RevisionSessionNew,
			FinalSubmissionAllowed: false,
			MaxRounds:              model.MaxRound,
		}
	}
	id := s.RevisionSessionID
	return SessionState{
		SessionID:              &id,
		CurrentLevel:           s.RevisionSessionCurrentRound,
		RoundsCompleted:        s.RevisionSessionRoundsCompleted,
		Status:                 s.RevisionSessionStatus,
		FinalSubmissionAllowed: s.RevisionSessionFinalSubmissionAllowed,
		MaxRounds:              s.RevisionSessionMaxRound,
	}
}

// GetOrCreate returns the live session, inserting it on first use.
// A lost insert race is resolved by re-reading the winner's row.
func (s *SessionService) GetOrCreate(ctx context.Context, submissionID, studentID uuid.UUID) (*model.RevisionSessionModel, error) {
	if submissionID == uuid.Nil || studentID == uuid.Nil {
		return nil, invalidInput("submission_id and student_id are required")
	}

	key := submissionID.String() + "/" + studentID.String()
	// shared by every waiter on key, so it must not die with the first caller
	v, err, _ := s.group.Do(key, func() (any, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sessionLookupTimeout)
		defer cancel()
		return s.getOrCreate(cctx, submissionID, studentID)
	})
	if err != nil {
		return nil, err
	}
	// singleflight shares the pointer between callers
	cp := *v.(*model.RevisionSessionModel)
	return &cp, nil
}

func (s *SessionService) getOrCreate(ctx context.Context, submissionID, studentID uuid.UUID) (*model.RevisionSessionModel, error) {
	sess, err := s.Store.FindSession(ctx, submissionID, studentID)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, storageFailure("failed to read session", err)
	}

	sess = model.NewRevisionSession(submissionID, studentID, s.Cfg.ThresholdPercent, s.now())
	err = s.Store.CreateSession(ctx, sess)
	switch {
	case err == nil:
		sessionsCreated.Inc()
		log.Printf("[SessionService] created session=%s submission=%s student=%s", sess.RevisionSessionID, submissionID, studentID)
		return sess, nil
	case errors.Is(err, store.ErrDuplicate):
		existing, rerr := s.Store.FindSession(ctx, submissionID, studentID)
		if rerr != nil {
			return nil, storageFailure("failed to re-read session after conflict", rerr)
		}
		return existing, nil
	default:
		return nil, storageFailure("failed to create session", err)
	}
}

// Advance records a successful round. Must not be called for failed rounds.
func (s *SessionService) Advance(ctx context.Context, sess *model.RevisionSessionModel, round int) (*model.RevisionSessionModel, error) {
	if sess == nil {
		return nil, invalidInput("session is required")
	}
	if !model.IsValidRound(round) {
		return nil, invalidInput("round must be between 1 and 6")
	}
	updated, err := s.Store.AdvanceSession(ctx, sess.RevisionSessionID, round, s.now())
	if err != nil {
		return nil, storageFailure("failed to advance session", err)
	}
	if updated.RevisionSessionFinalSubmissionAllowed && !sess.RevisionSessionFinalSubmissionAllowed {
		log.Printf("[SessionService] session=%s completed, final submission unlocked", updated.RevisionSessionID)
	}
	return updated, nil
}

// State never creates a session.
func (s *SessionService) State(ctx context.Context, submissionID, studentID uuid.UUID) (SessionState, error) {
	if submissionID == uuid.Nil || studentID == uuid.Nil {
		return SessionState{}, invalidInput("submission_id and student_id are required")
	}
	sess, err := s.Store.FindSession(ctx, submissionID, studentID)
	if errors.Is(err, store.ErrNotFound) {
		return NewStateFromSession(nil), nil
	}
	if err != nil {
		return SessionState{}, storageFailure("failed to read session", err)
	}
	return NewStateFromSession(sess), nil
}

// Find returns not_found instead of creating.
func (s *SessionService) Find(ctx context.Context, submissionID, studentID uuid.UUID) (*model.RevisionSessionModel, error) {
	sess, err := s.Store.FindSession(ctx, submissionID, studentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &RoundError{Kind: KindNotFound, Message: "revision session not found", Err: err}
	}
	if err != nil {
		return nil, storageFailure("failed to read session", err)
	}
	return sess, nil
}

// Reset rewinds a session so `round` can be redone. Administrative only.
func (s *SessionService) Reset(ctx context.Context, submissionID, studentID uuid.UUID, round int) (*model.RevisionSessionModel, error) {
	if !model.IsValidRound(round) {
		return nil, invalidInput("round must be between 1 and 6")
	}
	sess, err := s.Find(ctx, submissionID, studentID)
	if err != nil {
		return nil, err
	}
	updated, err := s.Store.ResetSession(ctx, sess.RevisionSessionID, round, s.now())
	if err != nil {
		return nil, storageFailure("failed to reset session", err)
	}
	log.Printf("[SessionService] reset session=%s to round=%d", updated.RevisionSessionID, round)
	return updated, nil
}
