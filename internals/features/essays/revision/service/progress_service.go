package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	model "essaysmaster_backend/internals/features/essays/revision/model"
	"essaysmaster_backend/internals/features/essays/revision/store"
)

type ProgressService struct {
	Store store.Store
	now   func() time.Time
}

func NewProgressService(st store.Store) *ProgressService {
	return &ProgressService{Store: st, now: time.Now}
}

// Record evaluates one round and upserts the result for (session, round).
func (s *ProgressService) Record(ctx context.Context, sessionID uuid.UUID, round int, feedback, before, after string) (*model.RoundProgressModel, error) {
	ev := ScoreImprovement(round, feedback, before, after)

	row := &model.RoundProgressModel{
		RoundProgressID:              uuid.New(),
		RoundProgressSessionID:       sessionID,
		RoundProgressRound:           round,
		RoundProgressScore:           ev.Score,
		RoundProgressMatchedKeywords: pq.StringArray(ev.MatchedKeywords),
		RoundProgressEvaluatedAt:     s.now(),
	}
	if err := row.SetRequirements(ev.Requirements); err != nil {
		return nil, fmt.Errorf("encode requirements: %w", err)
	}
	if err := s.Store.UpsertProgress(ctx, row); err != nil {
		return nil, fmt.Errorf("upsert progress: %w", err)
	}
	return row, nil
}

func (s *ProgressService) List(ctx context.Context, sessionID uuid.UUID) ([]model.RoundProgressModel, error) {
	rows, err := s.Store.ListProgress(ctx, sessionID)
	if err != nil {
		return nil, storageFailure("failed to list progress", err)
	}
	return rows, nil
}
