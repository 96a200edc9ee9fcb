// file: internals/features/essays/revision/store/gorm_store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	model "essaysmaster_backend/internals/features/essays/revision/model"
)

type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

// isUniqueViolation: SQLSTATE 23505, either translated by gorm or raw from pgx.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "23505")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

/* =========================================================
   SESSIONS
========================================================= */

func (s *GormStore) FindSession(ctx context.Context, submissionID, studentID uuid.UUID) (*model.RevisionSessionModel, error) {
	var row model.RevisionSessionModel
	err := s.DB.WithContext(ctx).
		Where("revision_session_submission_id = ? AND revision_session_student_id = ?", submissionID, studentID).
		First(&row).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func (s *GormStore) GetSession(ctx context.Context, sessionID uuid.UUID) (*model.RevisionSessionModel, error) {
	var row model.RevisionSessionModel
	if err := s.DB.WithContext(ctx).First(&row, "revision_session_id = ?", sessionID).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func (s *GormStore) CreateSession(ctx context.Context, row *model.RevisionSessionModel) error {
	if err := s.DB.WithContext(ctx).Create(row).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// advanceSession is a single conditional UPDATE. Every SET expression reads
// the pre-update row, so concurrent advances converge on the max round.
// ended_at is stamped only by the update that first completes the session.
func advanceSession(db *gorm.DB, sessionID uuid.UUID, round int, now time.Time) *gorm.DB {
	completed := "GREATEST(revision_session_rounds_completed, LEAST(?::int, revision_session_max_round))"
	return db.Model(&model.RevisionSessionModel{}).
		Where("revision_session_id = ?", sessionID).
		Updates(map[string]any{
			"revision_session_rounds_completed":         gorm.Expr(completed, round),
			"revision_session_current_round":            gorm.Expr("GREATEST(revision_session_current_round, LEAST(?::int, revision_session_max_round))", round),
			"revision_session_last_processed_round":     round,
			"revision_session_final_submission_allowed": gorm.Expr(completed+" >= revision_session_max_round", round),
			"revision_session_status": gorm.Expr(
				"CASE WHEN "+completed+" >= revision_session_max_round THEN ? ELSE ? END",
				round, string(model.RevisionSessionCompleted), string(model.RevisionSessionActive),
			),
			"revision_session_ended_at": gorm.Expr(
				"CASE WHEN revision_session_ended_at IS NULL AND "+completed+" >= revision_session_max_round THEN ?::timestamptz ELSE revision_session_ended_at END",
				round, now,
			),
			"revision_session_updated_at": now,
		})
}

func (s *GormStore) AdvanceSession(ctx context.Context, sessionID uuid.UUID, round int, now time.Time) (*model.RevisionSessionModel, error) {
	var out model.RevisionSessionModel
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := advanceSession(tx, sessionID, round, now)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.First(&out, "revision_session_id = ?", sessionID).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("advance session: %w", notFound(err))
	}
	return &out, nil
}

func (s *GormStore) ResetSession(ctx context.Context, sessionID uuid.UUID, round int, now time.Time) (*model.RevisionSessionModel, error) {
	var out model.RevisionSessionModel
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&out, "revision_session_id = ?", sessionID).Error; err != nil {
			return notFound(err)
		}
		out.ApplyReset(round, now)

		if err := tx.Model(&model.RevisionSessionModel{}).
			Where("revision_session_id = ?", sessionID).
			Updates(map[string]any{
				"revision_session_current_round":            out.RevisionSessionCurrentRound,
				"revision_session_rounds_completed":         out.RevisionSessionRoundsCompleted,
				"revision_session_last_processed_round":     out.RevisionSessionLastProcessedRound,
				"revision_session_final_submission_allowed": false,
				"revision_session_status":                   string(model.RevisionSessionActive),
				"revision_session_ended_at":                 nil,
				"revision_session_updated_at":               now,
			}).Error; err != nil {
			return err
		}

		return tx.Where("round_artifact_submission_id = ? AND round_artifact_round = ?", out.RevisionSessionSubmissionID, round).
			Delete(&model.RoundArtifactModel{}).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reset session: %w", err)
	}
	return &out, nil
}

/* =========================================================
   ARTIFACTS
========================================================= */

// upsertArtifact overwrites the (submission, round) row in place. RETURNING
// scans the stored row back so a keeps the original id and created_at.
func upsertArtifact(db *gorm.DB, a *model.RoundArtifactModel, now time.Time) *gorm.DB {
	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "round_artifact_submission_id"},
			{Name: "round_artifact_round"},
		},
		DoUpdates: clause.Assignments(map[string]any{
			"round_artifact_session_id":   a.RoundArtifactSessionID,
			"round_artifact_kind":         a.RoundArtifactKind,
			"round_artifact_raw_text":     a.RoundArtifactRawText,
			"round_artifact_score":        a.RoundArtifactScore,
			"round_artifact_passed":       a.RoundArtifactPassed,
			"round_artifact_analysis":     a.RoundArtifactAnalysis,
			"round_artifact_highlights":   a.RoundArtifactHighlights,
			"round_artifact_retry_marker": a.RoundArtifactRetryMarker,
			"round_artifact_latency_ms":   a.RoundArtifactLatencyMs,
			"round_artifact_generated_at": a.RoundArtifactGeneratedAt,
			"round_artifact_updated_at":   now,
		}),
	}, clause.Returning{}).Create(a)
}

func (s *GormStore) UpsertArtifact(ctx context.Context, a *model.RoundArtifactModel) error {
	if a.RoundArtifactID == uuid.Nil {
		a.RoundArtifactID = uuid.New()
	}
	if len(a.RoundArtifactHighlights) == 0 {
		_ = a.SetHighlights(nil)
	}
	if err := upsertArtifact(s.DB.WithContext(ctx), a, time.Now()).Error; err != nil {
		return fmt.Errorf("upsert artifact: %w", err)
	}
	return nil
}

func (s *GormStore) GetArtifact(ctx context.Context, submissionID uuid.UUID, round int) (*model.RoundArtifactModel, error) {
	var row model.RoundArtifactModel
	err := s.DB.WithContext(ctx).
		Where("round_artifact_submission_id = ? AND round_artifact_round = ?", submissionID, round).
		First(&row).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

/* =========================================================
   VERSIONS
========================================================= */

// AppendVersion numbers under a row lock on the parent session; the unique
// (session, number) index catches anything that slips past it.
func (s *GormStore) AppendVersion(ctx context.Context, v *model.VersionSnapshotModel) error {
	if v.VersionSnapshotID == uuid.Nil {
		v.VersionSnapshotID = uuid.New()
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sess model.RevisionSessionModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("revision_session_id").
			First(&sess, "revision_session_id = ?", v.VersionSnapshotSessionID).Error; err != nil {
			return notFound(err)
		}

		var last int
		if err := tx.Model(&model.VersionSnapshotModel{}).
			Where("version_snapshot_session_id = ?", v.VersionSnapshotSessionID).
			Select("COALESCE(MAX(version_snapshot_version_number), 0)").
			Scan(&last).Error; err != nil {
			return err
		}
		v.VersionSnapshotVersionNumber = last + 1
		v.VersionSnapshotIsInitial = v.VersionSnapshotVersionNumber == 1
		return tx.Create(v).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("append version: %w", err)
	}
	return nil
}

func (s *GormStore) ListVersions(ctx context.Context, sessionID uuid.UUID, offset, limit int) ([]model.VersionSnapshotModel, int64, error) {
	q := s.DB.WithContext(ctx).Model(&model.VersionSnapshotModel{}).
		Where("version_snapshot_session_id = ?", sessionID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count versions: %w", err)
	}

	rows := []model.VersionSnapshotModel{}
	if err := q.Order("version_snapshot_version_number ASC").
		Offset(offset).Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list versions: %w", err)
	}
	return rows, total, nil
}

/* =========================================================
   PROGRESS
========================================================= */

func (s *GormStore) UpsertProgress(ctx context.Context, p *model.RoundProgressModel) error {
	if p.RoundProgressID == uuid.Nil {
		p.RoundProgressID = uuid.New()
	}
	if len(p.RoundProgressRequirements) == 0 {
		_ = p.SetRequirements(nil)
	}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "round_progress_session_id"},
			{Name: "round_progress_round"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"round_progress_score",
			"round_progress_requirements",
			"round_progress_matched_keywords",
			"round_progress_evaluated_at",
		}),
	}).Create(p).Error
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

func (s *GormStore) ListProgress(ctx context.Context, sessionID uuid.UUID) ([]model.RoundProgressModel, error) {
	rows := []model.RoundProgressModel{}
	if err := s.DB.WithContext(ctx).
		Where("round_progress_session_id = ?", sessionID).
		Order("round_progress_round ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return rows, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
