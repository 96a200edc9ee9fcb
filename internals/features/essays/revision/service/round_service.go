package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"essaysmaster_backend/internals/configs"
	"essaysmaster_backend/internals/features/essays/revision/ai"
	"essaysmaster_backend/internals/features/essays/revision/lock"
	model "essaysmaster_backend/internals/features/essays/revision/model"
	"essaysmaster_backend/internals/features/essays/revision/store"
)

const busyMessage = "Could not acquire processing lock. Please try again."

// RoundInput is one request to process round `Round` of a submission.
type RoundInput struct {
	SubmissionID   uuid.UUID
	StudentID      uuid.UUID
	Round          int
	CurrentText    string
	OriginalText   string
	QuestionPrompt string
	StudentName    string
	Nonce          string
}

type RoundResult struct {
	Session    *model.RevisionSessionModel
	Artifact   *model.RoundArtifactModel
	Kind       model.RoundKind
	Feedback   string
	Score      *float64
	Passed     *bool
	Highlights []model.Highlight
}

func (r *RoundResult) IsFinalRound() bool {
	return r.Artifact != nil && r.Artifact.RoundArtifactRound >= model.MaxRound
}

/* =========================================================
   ROUND ORCHESTRATOR
   validate -> session -> lock(sub, round) -> collaborator
   -> artifact upsert -> snapshot -> advance -> async progress
   Nothing is written unless the collaborator succeeded.
========================================================= */

type RoundService struct {
	Store        store.Store
	Locker       lock.Locker
	Collaborator ai.Collaborator
	Sessions     *SessionService
	Progress     *ProgressService
	Cfg          configs.RevisionConfig

	wg  sync.WaitGroup
	now func() time.Time
}

func NewRoundService(st store.Store, l lock.Locker, c ai.Collaborator, cfg configs.RevisionConfig) *RoundService {
	return &RoundService{
		Store:        st,
		Locker:       l,
		Collaborator: c,
		Sessions:     NewSessionService(st, cfg),
		Progress:     NewProgressService(st),
		Cfg:          cfg,
		now:          time.Now,
	}
}

func validateInput(in *RoundInput) error {
	if in.SubmissionID == uuid.Nil {
		return invalidInput("submission_id is required")
	}
	if in.StudentID == uuid.Nil {
		return invalidInput("student_id is required")
	}
	if !model.IsValidRound(in.Round) {
		return invalidInput("round must be between 1 and 6")
	}
	if strings.TrimSpace(in.CurrentText) == "" {
		return invalidInput("current_text is required")
	}
	if strings.TrimSpace(in.OriginalText) == "" {
		in.OriginalText = in.CurrentText
	}
	return nil
}

func (s *RoundService) ProcessRound(ctx context.Context, in RoundInput) (res *RoundResult, err error) {
	start := s.now()
	defer func() { observeRound(in.Round, start, err) }()

	if err := validateInput(&in); err != nil {
		return nil, err
	}

	sess, err := s.Sessions.GetOrCreate(ctx, in.SubmissionID, in.StudentID)
	if err != nil {
		return nil, err
	}

	key := lock.RoundKey(in.SubmissionID, in.Round)
	h, err := lock.Acquire(ctx, s.Locker, key, s.Cfg.LockTTL, s.Cfg.LockWait)
	if err != nil {
		if errors.Is(err, lock.ErrBusy) {
			log.Printf("[RoundService] busy key=%s", key)
			return nil, &RoundError{Kind: KindBusy, Message: busyMessage, Err: err}
		}
		return nil, storageFailure("failed to acquire round lock", err)
	}
	defer func() {
		// release must outlive a cancelled request
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if rerr := s.Locker.Release(rctx, h); rerr != nil {
			log.Printf("[RoundService] ⚠️ release key=%s: %v", key, rerr)
		}
	}()

	// the collaborator may outlive LockTTL; keep the lease and stop the
	// call if another request takes the key over
	lease := lock.KeepAlive(ctx, s.Locker, h, s.Cfg.LockTTL)
	defer lease.Stop()
	callCtx := lease.Context()

	kind := model.KindOfRound(in.Round)
	artifact := &model.RoundArtifactModel{
		RoundArtifactID:           uuid.New(),
		RoundArtifactSubmissionID: in.SubmissionID,
		RoundArtifactRound:        in.Round,
		RoundArtifactSessionID:    sess.RevisionSessionID,
		RoundArtifactKind:         kind,
	}
	if in.Nonce != "" {
		nonce := in.Nonce
		artifact.RoundArtifactRetryMarker = &nonce
	}

	var (
		highlights []model.Highlight
		snapshot   *model.VersionSnapshotModel
		callStart  = s.now()
	)

	switch kind {
	case model.RoundKindFeedback:
		fb, cerr := s.Collaborator.ProduceFeedback(callCtx, ai.FeedbackRequest{
			Round:          in.Round,
			Text:           in.CurrentText,
			QuestionPrompt: in.QuestionPrompt,
			StudentName:    in.StudentName,
		})
		if cerr != nil {
			return nil, s.collaboratorFailure(key, in.Round, lease, cerr)
		}
		artifact.RoundArtifactRawText = fb.Text
		highlights = fb.Highlights
		snapshot = model.NewVersionSnapshot(sess.RevisionSessionID, in.Round, in.CurrentText, nil, s.now())

	case model.RoundKindValidation:
		prior := s.priorFeedback(ctx, in.SubmissionID, in.Round)
		v, cerr := s.Collaborator.ProduceValidation(callCtx, ai.ValidationRequest{
			Round:              in.Round,
			OriginalText:       in.OriginalText,
			CurrentText:        in.CurrentText,
			QuestionPrompt:     in.QuestionPrompt,
			StudentName:        in.StudentName,
			PriorRoundFeedback: prior,
		})
		if cerr != nil {
			return nil, s.collaboratorFailure(key, in.Round, lease, cerr)
		}
		score := v.Score
		passed := score >= s.threshold(sess)
		analysis := v.Analysis
		artifact.RoundArtifactScore = &score
		artifact.RoundArtifactPassed = &passed
		artifact.RoundArtifactAnalysis = &analysis
		artifact.RoundArtifactRawText = validationMessage(in.Round, passed, score, v.Analysis, v.Feedback)
		highlights = v.Highlights
		validationScores.Observe(score)

		revised := in.CurrentText
		snapshot = model.NewVersionSnapshot(sess.RevisionSessionID, in.Round, in.OriginalText, &revised, s.now())
	}

	if lerr := lease.Err(); lerr != nil {
		return nil, leaseLost(key, lerr)
	}

	artifact.RoundArtifactLatencyMs = s.now().Sub(callStart).Milliseconds()
	artifact.RoundArtifactGeneratedAt = s.now()
	if err := artifact.SetHighlights(highlights); err != nil {
		return nil, storageFailure("failed to encode highlights", err)
	}

	if err := s.Store.UpsertArtifact(ctx, artifact); err != nil {
		log.Printf("[RoundService] ❌ upsert artifact sub=%s round=%d: %v", in.SubmissionID, in.Round, err)
		return nil, storageFailure("failed to save round result", err)
	}

	// snapshots are an audit trail; losing one never fails the round
	if model.SnapshotsRound(in.Round) && snapshot != nil {
		if serr := s.Store.AppendVersion(ctx, snapshot); serr != nil {
			log.Printf("[RoundService] ⚠️ snapshot session=%s round=%d: %v", sess.RevisionSessionID, in.Round, serr)
		} else {
			log.Printf("[RoundService] saved snapshot v%d session=%s round=%d", snapshot.VersionSnapshotVersionNumber, sess.RevisionSessionID, in.Round)
		}
	}

	updated, err := s.Sessions.Advance(ctx, sess, in.Round)
	if err != nil {
		return nil, err
	}

	s.evaluateAsync(updated.RevisionSessionID, in.Round, artifact.RoundArtifactRawText, in.OriginalText, in.CurrentText)

	return &RoundResult{
		Session:    updated,
		Artifact:   artifact,
		Kind:       kind,
		Feedback:   artifact.RoundArtifactRawText,
		Score:      artifact.RoundArtifactScore,
		Passed:     artifact.RoundArtifactPassed,
		Highlights: artifact.Highlights(),
	}, nil
}

func (s *RoundService) threshold(sess *model.RevisionSessionModel) float64 {
	if sess.RevisionSessionThresholdPercent > 0 {
		return sess.RevisionSessionThresholdPercent
	}
	return s.Cfg.ThresholdPercent
}

// priorFeedback reads the preceding feedback round's stored text, if any.
func (s *RoundService) priorFeedback(ctx context.Context, submissionID uuid.UUID, round int) string {
	prev := model.PriorContextRound(round)
	if prev == 0 {
		return ""
	}
	a, err := s.Store.GetArtifact(ctx, submissionID, prev)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("[RoundService] ⚠️ prior feedback sub=%s round=%d: %v", submissionID, prev, err)
		}
		return ""
	}
	return a.RoundArtifactRawText
}

func leaseLost(key string, err error) error {
	log.Printf("[RoundService] ❌ lease lost key=%s, discarding result", key)
	return &RoundError{Kind: KindBusy, Message: busyMessage, Err: err}
}

func (s *RoundService) collaboratorFailure(key string, round int, lease *lock.Lease, err error) error {
	if lerr := lease.Err(); lerr != nil {
		return leaseLost(key, lerr)
	}
	log.Printf("[RoundService] ❌ collaborator round=%d: %v", round, err)
	return &RoundError{
		Kind:    KindTemporarilyUnavailable,
		Message: fmt.Sprintf("%s service is temporarily unavailable, please try again", model.KindOfRound(round)),
		Err:     err,
	}
}

func validationMessage(round int, passed bool, score float64, analysis, feedback string) string {
	verdict := "FAILED"
	if passed {
		verdict = "PASSED"
	}
	return fmt.Sprintf("Validation Round %d - %s\n\nScore: %s/100\nAnalysis: %s\n\nFeedback: %s",
		round, verdict, formatScore(score), analysis, feedback)
}

func formatScore(score float64) string {
	if score == float64(int64(score)) {
		return fmt.Sprintf("%d", int64(score))
	}
	return fmt.Sprintf("%.1f", score)
}

/* ---------- background progress ---------- */

func (s *RoundService) evaluateAsync(sessionID uuid.UUID, round int, feedback, before, after string) {
	if s.Progress == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				progressEvaluations.WithLabelValues("panic").Inc()
				log.Printf("[RoundService] ❌ progress panic session=%s round=%d: %v", sessionID, round, r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.Cfg.ProgressTimeout)
		defer cancel()

		if _, err := s.Progress.Record(ctx, sessionID, round, feedback, before, after); err != nil {
			progressEvaluations.WithLabelValues("error").Inc()
			log.Printf("[RoundService] ⚠️ progress session=%s round=%d: %v", sessionID, round, err)
			return
		}
		progressEvaluations.WithLabelValues("ok").Inc()
	}()
}

// Wait blocks until background progress evaluations finish or ctx ends.
func (s *RoundService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

/* ---------- reads ---------- */

// Artifact returns the cached output of a round for the student's session.
func (s *RoundService) Artifact(ctx context.Context, submissionID, studentID uuid.UUID, round int) (*model.RoundArtifactModel, error) {
	if !model.IsValidRound(round) {
		return nil, invalidInput("round must be between 1 and 6")
	}
	if _, err := s.Sessions.Find(ctx, submissionID, studentID); err != nil {
		return nil, err
	}
	a, err := s.Store.GetArtifact(ctx, submissionID, round)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &RoundError{Kind: KindNotFound, Message: "round has not been processed yet", Err: err}
	}
	if err != nil {
		return nil, storageFailure("failed to read round result", err)
	}
	return a, nil
}

func (s *RoundService) Versions(ctx context.Context, submissionID, studentID uuid.UUID, offset, limit int) ([]model.VersionSnapshotModel, int64, error) {
	sess, err := s.Sessions.Find(ctx, submissionID, studentID)
	if err != nil {
		return nil, 0, err
	}
	rows, total, err := s.Store.ListVersions(ctx, sess.RevisionSessionID, offset, limit)
	if err != nil {
		return nil, 0, storageFailure("failed to list versions", err)
	}
	return rows, total, nil
}

func (s *RoundService) ProgressOf(ctx context.Context, submissionID, studentID uuid.UUID) ([]model.RoundProgressModel, error) {
	sess, err := s.Sessions.Find(ctx, submissionID, studentID)
	if err != nil {
		return nil, err
	}
	return s.Progress.List(ctx, sess.RevisionSessionID)
}
