package store

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	model "essaysmaster_backend/internals/features/essays/revision/model"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.True(t, isUniqueViolation(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "uq_revision_session_submission_student"`)))
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
}

func TestNotFoundMapping(t *testing.T) {
	assert.ErrorIs(t, notFound(gorm.ErrRecordNotFound), ErrNotFound)
	other := errors.New("boom")
	assert.Equal(t, other, notFound(other))
}

/* ---------- generated SQL (no server needed) ---------- */

// dryRunDB renders postgres SQL without connecting.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN: "host=127.0.0.1 user=test dbname=test sslmode=disable",
	}), &gorm.Config{
		DryRun:                 true,
		DisableAutomaticPing:   true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db
}

var placeholder = regexp.MustCompile(`\$(\d+)`)

// boundSQL checks that placeholders are $1..$n in order with one var each.
func boundSQL(t *testing.T, stmt *gorm.Statement) string {
	t.Helper()
	sql := stmt.SQL.String()
	found := placeholder.FindAllStringSubmatch(sql, -1)
	require.Len(t, found, len(stmt.Vars), sql)
	for i, m := range found {
		assert.Equal(t, strconv.Itoa(i+1), m[1], sql)
	}
	return sql
}

func countVar(vars []any, want any) int {
	n := 0
	for _, v := range vars {
		if assert.ObjectsAreEqual(want, v) {
			n++
		}
	}
	return n
}

func TestAdvanceSessionSQL(t *testing.T) {
	db := dryRunDB(t)
	id := uuid.New()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	stmt := advanceSession(db, id, 4, now).Statement
	sql := boundSQL(t, stmt)

	assert.Contains(t, sql, `UPDATE "essay_revision_sessions" SET`)
	assert.Contains(t, sql, `"revision_session_rounds_completed"=GREATEST(revision_session_rounds_completed, LEAST($`)
	assert.Contains(t, sql, `"revision_session_current_round"=GREATEST(revision_session_current_round, LEAST($`)
	assert.Contains(t, sql, `::int, revision_session_max_round)) >= revision_session_max_round`)
	assert.Contains(t, sql, `"revision_session_status"=CASE WHEN GREATEST(`)
	assert.Contains(t, sql, `"revision_session_ended_at"=CASE WHEN revision_session_ended_at IS NULL AND GREATEST(`)
	assert.Contains(t, sql, `::timestamptz ELSE revision_session_ended_at END`)
	assert.Contains(t, sql, `revision_session_id = $`)
	assert.Contains(t, sql, `"revision_session_deleted_at" IS NULL`)

	// the round feeds every derived column plus last_processed_round
	assert.Equal(t, 6, countVar(stmt.Vars, 4))
	assert.Equal(t, 1, countVar(stmt.Vars, string(model.RevisionSessionCompleted)))
	assert.Equal(t, 1, countVar(stmt.Vars, string(model.RevisionSessionActive)))
	assert.Equal(t, 2, countVar(stmt.Vars, now), "ended_at and updated_at")
	assert.Equal(t, 1, countVar(stmt.Vars, id))
}

func TestUpsertArtifactSQL(t *testing.T) {
	db := dryRunDB(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	a := &model.RoundArtifactModel{
		RoundArtifactID:           uuid.New(),
		RoundArtifactSubmissionID: uuid.New(),
		RoundArtifactSessionID:    uuid.New(),
		RoundArtifactRound:        2,
		RoundArtifactKind:         model.RoundKindValidation,
		RoundArtifactRawText:      "Validation Round 2 - PASSED",
		RoundArtifactGeneratedAt:  now,
	}
	require.NoError(t, a.SetHighlights(nil))

	stmt := upsertArtifact(db, a, now).Statement
	sql := boundSQL(t, stmt)

	assert.Contains(t, sql, `INSERT INTO "essay_revision_round_artifacts"`)
	assert.Contains(t, sql, `ON CONFLICT ("round_artifact_submission_id","round_artifact_round") DO UPDATE SET`)
	assert.Contains(t, sql, `"round_artifact_raw_text"=$`)
	assert.Contains(t, sql, `"round_artifact_updated_at"=$`)
	assert.NotContains(t, sql, `"round_artifact_id"=$`, "the stored id must survive an overwrite")
	assert.NotContains(t, sql, `"round_artifact_created_at"=$`)
	assert.Regexp(t, `RETURNING \*$`, sql)

	// once for the insert, once for the conflict update
	assert.Equal(t, 2, countVar(stmt.Vars, a.RoundArtifactRawText))
	assert.Equal(t, 2, countVar(stmt.Vars, a.RoundArtifactSessionID))
	assert.Equal(t, 1, countVar(stmt.Vars, a.RoundArtifactSubmissionID))
}
