package store

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	database "essaysmaster_backend/internals/databases"
	model "essaysmaster_backend/internals/features/essays/revision/model"
)

// newTestGormStore runs against a real postgres when REVISION_TEST_DSN is set,
// e.g. REVISION_TEST_DSN="host=localhost user=postgres dbname=revision_test sslmode=disable".
func newTestGormStore(t *testing.T) *GormStore {
	t.Helper()
	dsn := os.Getenv("REVISION_TEST_DSN")
	if dsn == "" {
		t.Skip("REVISION_TEST_DSN not set")
	}
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewGormStore(db)
}

func TestGormStore_CreateSessionDuplicate(t *testing.T) {
	s := newTestGormStore(t)
	ctx := context.Background()
	row := createSession(t, s)

	dup := model.NewRevisionSession(row.RevisionSessionSubmissionID, row.RevisionSessionStudentID, 50, time.Now())
	assert.ErrorIs(t, s.CreateSession(ctx, dup), ErrDuplicate)

	got, err := s.FindSession(ctx, row.RevisionSessionSubmissionID, row.RevisionSessionStudentID)
	require.NoError(t, err)
	assert.Equal(t, row.RevisionSessionID, got.RevisionSessionID)

	_, err = s.FindSession(ctx, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_AdvanceIsMonotonicAndStampsCompletionOnce(t *testing.T) {
	s := newTestGormStore(t)
	ctx := context.Background()
	row := createSession(t, s)

	got, err := s.AdvanceSession(ctx, row.RevisionSessionID, 3, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 3, got.RevisionSessionRoundsCompleted)
	assert.Equal(t, 3, got.RevisionSessionCurrentRound)
	assert.Equal(t, model.RevisionSessionActive, got.RevisionSessionStatus)
	assert.Nil(t, got.RevisionSessionEndedAt)

	got, err = s.AdvanceSession(ctx, row.RevisionSessionID, 1, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 3, got.RevisionSessionRoundsCompleted)
	assert.Equal(t, 3, got.RevisionSessionCurrentRound)
	assert.Equal(t, 1, got.RevisionSessionLastProcessedRound)

	// past the max is clamped
	done := time.Now()
	got, err = s.AdvanceSession(ctx, row.RevisionSessionID, 9, done)
	require.NoError(t, err)
	assert.Equal(t, model.MaxRound, got.RevisionSessionRoundsCompleted)
	assert.True(t, got.RevisionSessionFinalSubmissionAllowed)
	assert.Equal(t, model.RevisionSessionCompleted, got.RevisionSessionStatus)
	require.NotNil(t, got.RevisionSessionEndedAt)
	assert.WithinDuration(t, done, *got.RevisionSessionEndedAt, time.Millisecond)

	got, err = s.AdvanceSession(ctx, row.RevisionSessionID, 2, done.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.RevisionSessionCompleted, got.RevisionSessionStatus)
	require.NotNil(t, got.RevisionSessionEndedAt)
	assert.WithinDuration(t, done, *got.RevisionSessionEndedAt, time.Millisecond)

	_, err = s.AdvanceSession(ctx, uuid.New(), 2, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_ConcurrentAdvanceConvergesOnMax(t *testing.T) {
	s := newTestGormStore(t)
	ctx := context.Background()
	row := createSession(t, s)

	var wg sync.WaitGroup
	for r := 1; r <= model.MaxRound; r++ {
		wg.Add(1)
		go func(round int) {
			defer wg.Done()
			_, err := s.AdvanceSession(ctx, row.RevisionSessionID, round, time.Now())
			assert.NoError(t, err)
		}(r)
	}
	wg.Wait()

	got, err := s.GetSession(ctx, row.RevisionSessionID)
	require.NoError(t, err)
	assert.Equal(t, model.MaxRound, got.RevisionSessionRoundsCompleted)
	assert.True(t, got.RevisionSessionFinalSubmissionAllowed)
	assert.NotNil(t, got.RevisionSessionEndedAt)
}

func TestGormStore_UpsertArtifactKeepsStoredID(t *testing.T) {
	s := newTestGormStore(t)
	ctx := context.Background()
	row := createSession(t, s)

	artifact := func(text string) *model.RoundArtifactModel {
		return &model.RoundArtifactModel{
			RoundArtifactID:           uuid.New(),
			RoundArtifactSubmissionID: row.RevisionSessionSubmissionID,
			RoundArtifactSessionID:    row.RevisionSessionID,
			RoundArtifactRound:        1,
			RoundArtifactKind:         model.RoundKindFeedback,
			RoundArtifactRawText:      text,
			RoundArtifactGeneratedAt:  time.Now(),
		}
	}

	first := artifact("first")
	require.NoError(t, s.UpsertArtifact(ctx, first))
	second := artifact("second")
	marker := "retry-1"
	second.RoundArtifactRetryMarker = &marker
	require.NoError(t, s.UpsertArtifact(ctx, second))

	assert.Equal(t, first.RoundArtifactID, second.RoundArtifactID)
	assert.WithinDuration(t, first.RoundArtifactCreatedAt, second.RoundArtifactCreatedAt, time.Millisecond)

	got, err := s.GetArtifact(ctx, row.RevisionSessionSubmissionID, 1)
	require.NoError(t, err)
	assert.Equal(t, first.RoundArtifactID, got.RoundArtifactID)
	assert.Equal(t, "second", got.RoundArtifactRawText)
	require.NotNil(t, got.RoundArtifactRetryMarker)
	assert.Equal(t, marker, *got.RoundArtifactRetryMarker)
	assert.Empty(t, got.Highlights())
}

func TestGormStore_ResetRewindsAndDropsArtifact(t *testing.T) {
	s := newTestGormStore(t)
	ctx := context.Background()
	row := createSession(t, s)

	_, err := s.AdvanceSession(ctx, row.RevisionSessionID, 6, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.UpsertArtifact(ctx, &model.RoundArtifactModel{
		RoundArtifactSubmissionID: row.RevisionSessionSubmissionID,
		RoundArtifactSessionID:    row.RevisionSessionID,
		RoundArtifactRound:        4,
		RoundArtifactKind:         model.RoundKindValidation,
		RoundArtifactRawText:      "validation",
		RoundArtifactGeneratedAt:  time.Now(),
	}))

	got, err := s.ResetSession(ctx, row.RevisionSessionID, 4, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 4, got.RevisionSessionCurrentRound)
	assert.Equal(t, 3, got.RevisionSessionRoundsCompleted)
	assert.Equal(t, model.RevisionSessionActive, got.RevisionSessionStatus)

	stored, err := s.GetSession(ctx, row.RevisionSessionID)
	require.NoError(t, err)
	assert.False(t, stored.RevisionSessionFinalSubmissionAllowed)
	assert.Nil(t, stored.RevisionSessionEndedAt)

	_, err = s.GetArtifact(ctx, row.RevisionSessionSubmissionID, 4)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.ResetSession(ctx, uuid.New(), 2, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_VersionsAreNumberedAndPaged(t *testing.T) {
	s := newTestGormStore(t)
	ctx := context.Background()
	row := createSession(t, s)

	var wg sync.WaitGroup
	for r := 1; r <= 5; r++ {
		wg.Add(1)
		go func(round int) {
			defer wg.Done()
			assert.NoError(t, s.AppendVersion(ctx, model.NewVersionSnapshot(row.RevisionSessionID, round, "draft text", nil, time.Now())))
		}(r)
	}
	wg.Wait()

	page, total, err := s.ListVersions(ctx, row.RevisionSessionID, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)
	require.Len(t, page, 5)
	for i, v := range page {
		assert.Equal(t, i+1, v.VersionSnapshotVersionNumber)
		assert.Equal(t, i == 0, v.VersionSnapshotIsInitial)
	}

	page, _, err = s.ListVersions(ctx, row.RevisionSessionID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, 3, page[0].VersionSnapshotVersionNumber)

	err = s.AppendVersion(ctx, model.NewVersionSnapshot(uuid.New(), 1, "x", nil, time.Now()))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_ProgressUpsert(t *testing.T) {
	s := newTestGormStore(t)
	ctx := context.Background()
	row := createSession(t, s)

	require.NoError(t, s.UpsertProgress(ctx, &model.RoundProgressModel{
		RoundProgressSessionID:   row.RevisionSessionID,
		RoundProgressRound:       2,
		RoundProgressScore:       40,
		RoundProgressEvaluatedAt: time.Now(),
	}))
	require.NoError(t, s.UpsertProgress(ctx, &model.RoundProgressModel{
		RoundProgressSessionID:       row.RevisionSessionID,
		RoundProgressRound:           2,
		RoundProgressScore:           75,
		RoundProgressMatchedKeywords: []string{"however"},
		RoundProgressEvaluatedAt:     time.Now(),
	}))

	rows, err := s.ListProgress(ctx, row.RevisionSessionID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 75.0, rows[0].RoundProgressScore)
	assert.Equal(t, []string{"however"}, []string(rows[0].RoundProgressMatchedKeywords))
	assert.NoError(t, s.Ping(ctx))
}
