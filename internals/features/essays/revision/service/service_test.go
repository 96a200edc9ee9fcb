package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"essaysmaster_backend/internals/configs"
	database "essaysmaster_backend/internals/databases"
	"essaysmaster_backend/internals/features/essays/revision/ai"
	"essaysmaster_backend/internals/features/essays/revision/lock"
	model "essaysmaster_backend/internals/features/essays/revision/model"
	"essaysmaster_backend/internals/features/essays/revision/store"
)

// fakeCollaborator returns canned output. scores are consumed per
// validation call; the last one repeats.
type fakeCollaborator struct {
	mu sync.Mutex

	scores  []float64
	failing bool

	// when set, ProduceFeedback signals entered and waits for release or ctx
	entered chan struct{}
	release chan struct{}

	feedbackCalls   int
	validationCalls int
	lastValidation  ai.ValidationRequest
}

func (f *fakeCollaborator) ProduceFeedback(ctx context.Context, req ai.FeedbackRequest) (*ai.FeedbackResult, error) {
	f.mu.Lock()
	f.feedbackCalls++
	failing := f.failing
	entered, release := f.entered, f.release
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failing {
		return nil, ai.ErrProviderUnavailable
	}
	return &ai.FeedbackResult{
		Text:       "Round feedback: check your grammar and spelling. [HIGHLIGHT]alot[/HIGHLIGHT] => a lot",
		Highlights: []model.Highlight{{Word: "alot", Type: "mechanics", Message: "a lot"}},
	}, nil
}

func (f *fakeCollaborator) ProduceValidation(ctx context.Context, req ai.ValidationRequest) (*ai.ValidationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.validationCalls++
	f.lastValidation = req
	if f.failing {
		return nil, ai.ErrProviderUnavailable
	}
	score := 75.0
	if len(f.scores) > 0 {
		score = f.scores[0]
		if len(f.scores) > 1 {
			f.scores = f.scores[1:]
		}
	}
	return &ai.ValidationResult{
		Score:      score,
		Status:     "PASS",
		Analysis:   "analysis text",
		Feedback:   "keep improving",
		Highlights: []model.Highlight{},
	}, nil
}

func (f *fakeCollaborator) setFailing(v bool) {
	f.mu.Lock()
	f.failing = v
	f.mu.Unlock()
}

func (f *fakeCollaborator) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.feedbackCalls, f.validationCalls
}

type fixture struct {
	store  store.Store
	locker *lock.MemoryLocker
	collab *fakeCollaborator
	rounds *RoundService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.OpenBadger(database.InMemoryBadgerConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := configs.DefaultRevisionConfig()
	cfg.LockWait = 0
	cfg.LockTTL = 5 * time.Second
	cfg.ProgressTimeout = 2 * time.Second

	st := store.NewBadgerStore(db.DB)
	locker := lock.NewMemoryLocker()
	collab := &fakeCollaborator{}
	rs := NewRoundService(st, locker, collab, cfg)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = rs.Wait(ctx)
	})
	return &fixture{store: st, locker: locker, collab: collab, rounds: rs}
}

// leaseLosingLocker grants leases that can never be renewed.
type leaseLosingLocker struct {
	lock.Locker
}

func (leaseLosingLocker) Renew(ctx context.Context, h *lock.Handle, ttl time.Duration) error {
	return lock.ErrLeaseLost
}

func roundInput(sub, student uuid.UUID, round int) RoundInput {
	return RoundInput{
		SubmissionID: sub,
		StudentID:    student,
		Round:        round,
		OriginalText: "My frist draft has alot of erors.",
		CurrentText:  "My first draft had a lot of errors. However, the evidence shows progress.",
	}
}

func kindOf(t *testing.T, err error) ErrorKind {
	t.Helper()
	var re *RoundError
	require.True(t, errors.As(err, &re), "expected *RoundError, got %T", err)
	return re.Kind
}
