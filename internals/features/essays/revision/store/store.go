// file: internals/features/essays/revision/store/store.go
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	model "essaysmaster_backend/internals/features/essays/revision/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

/* =========================================================
   STORE CONTRACT
   - sessions     : one live row per (submission, student)
   - artifacts    : one row per (submission, round), last writer wins
   - versions     : append-only, numbered per session
   - progress     : one row per (session, round), upsert
========================================================= */

type Store interface {
	// FindSession returns ErrNotFound when no live session exists.
	FindSession(ctx context.Context, submissionID, studentID uuid.UUID) (*model.RevisionSessionModel, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*model.RevisionSessionModel, error)
	// CreateSession returns ErrDuplicate when a live session already exists.
	CreateSession(ctx context.Context, s *model.RevisionSessionModel) error
	// AdvanceSession applies a successful round atomically and returns the updated row.
	AdvanceSession(ctx context.Context, sessionID uuid.UUID, round int, now time.Time) (*model.RevisionSessionModel, error)
	// ResetSession rewinds to `round` and drops that round's artifact in the same transaction.
	ResetSession(ctx context.Context, sessionID uuid.UUID, round int, now time.Time) (*model.RevisionSessionModel, error)

	UpsertArtifact(ctx context.Context, a *model.RoundArtifactModel) error
	GetArtifact(ctx context.Context, submissionID uuid.UUID, round int) (*model.RoundArtifactModel, error)

	// AppendVersion assigns the next version number for the session.
	AppendVersion(ctx context.Context, v *model.VersionSnapshotModel) error
	ListVersions(ctx context.Context, sessionID uuid.UUID, offset, limit int) ([]model.VersionSnapshotModel, int64, error)

	UpsertProgress(ctx context.Context, p *model.RoundProgressModel) error
	ListProgress(ctx context.Context, sessionID uuid.UUID) ([]model.RoundProgressModel, error)

	Ping(ctx context.Context) error
}
