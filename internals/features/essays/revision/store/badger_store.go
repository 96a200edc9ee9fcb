// file: internals/features/essays/revision/store/badger_store.go
package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	model "essaysmaster_backend/internals/features/essays/revision/model"
)

/*
=========================================================

	BADGER KEY LAYOUT
	session/{submission}/{student}     -> session json
	session-id/{session}               -> session key
	artifact/{submission}/{round:02}   -> artifact json
	version/{session}/{number:010}     -> version json
	version-seq/{session}              -> uint64 big endian
	progress/{session}/{round:02}      -> progress json

=========================================================
*/

const badgerConflictRetries = 8

type BadgerStore struct {
	DB *badger.DB
}

func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{DB: db}
}

func sessionKey(submissionID, studentID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("session/%s/%s", submissionID, studentID))
}

func sessionIDKey(sessionID uuid.UUID) []byte {
	return []byte("session-id/" + sessionID.String())
}

func artifactKey(submissionID uuid.UUID, round int) []byte {
	return []byte(fmt.Sprintf("artifact/%s/%02d", submissionID, round))
}

func versionPrefix(sessionID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("version/%s/", sessionID))
}

func versionKey(sessionID uuid.UUID, n int) []byte {
	return []byte(fmt.Sprintf("version/%s/%010d", sessionID, n))
}

func versionSeqKey(sessionID uuid.UUID) []byte {
	return []byte("version-seq/" + sessionID.String())
}

func progressPrefix(sessionID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("progress/%s/", sessionID))
}

func progressKey(sessionID uuid.UUID, round int) []byte {
	return []byte(fmt.Sprintf("progress/%s/%02d", sessionID, round))
}

/* =========================================================
   txn helpers
========================================================= */

func getJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return item.Value(func(val []byte) error {
		return sonic.Unmarshal(val, out)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	buf, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, buf)
}

// update retries fn on optimistic-concurrency conflicts.
func (s *BadgerStore) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < badgerConflictRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = s.DB.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func loadSessionByID(txn *badger.Txn, sessionID uuid.UUID) (*model.RevisionSessionModel, []byte, error) {
	item, err := txn.Get(sessionIDKey(sessionID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	key, err := item.ValueCopy(nil)
	if err != nil {
		return nil, nil, err
	}
	var row model.RevisionSessionModel
	if err := getJSON(txn, key, &row); err != nil {
		return nil, nil, err
	}
	return &row, key, nil
}

/* =========================================================
   SESSIONS
========================================================= */

func (s *BadgerStore) FindSession(ctx context.Context, submissionID, studentID uuid.UUID) (*model.RevisionSessionModel, error) {
	var row model.RevisionSessionModel
	err := s.DB.View(func(txn *badger.Txn) error {
		return getJSON(txn, sessionKey(submissionID, studentID), &row)
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (s *BadgerStore) GetSession(ctx context.Context, sessionID uuid.UUID) (*model.RevisionSessionModel, error) {
	var out *model.RevisionSessionModel
	err := s.DB.View(func(txn *badger.Txn) error {
		row, _, err := loadSessionByID(txn, sessionID)
		out = row
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSession: a concurrent creator committing first surfaces as
// ErrConflict on our read of the same key, which is a duplicate.
func (s *BadgerStore) CreateSession(ctx context.Context, row *model.RevisionSessionModel) error {
	if row.RevisionSessionID == uuid.Nil {
		row.RevisionSessionID = uuid.New()
	}
	key := sessionKey(row.RevisionSessionSubmissionID, row.RevisionSessionStudentID)
	err := s.DB.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return ErrDuplicate
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := setJSON(txn, key, row); err != nil {
			return err
		}
		return txn.Set(sessionIDKey(row.RevisionSessionID), key)
	})
	if errors.Is(err, badger.ErrConflict) {
		return ErrDuplicate
	}
	if err != nil && !errors.Is(err, ErrDuplicate) {
		return fmt.Errorf("create session: %w", err)
	}
	return err
}

func (s *BadgerStore) AdvanceSession(ctx context.Context, sessionID uuid.UUID, round int, now time.Time) (*model.RevisionSessionModel, error) {
	var out *model.RevisionSessionModel
	err := s.update(ctx, func(txn *badger.Txn) error {
		row, key, err := loadSessionByID(txn, sessionID)
		if err != nil {
			return err
		}
		row.ApplyAdvance(round, now)
		out = row
		return setJSON(txn, key, row)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("advance session: %w", err)
	}
	return out, nil
}

func (s *BadgerStore) ResetSession(ctx context.Context, sessionID uuid.UUID, round int, now time.Time) (*model.RevisionSessionModel, error) {
	var out *model.RevisionSessionModel
	err := s.update(ctx, func(txn *badger.Txn) error {
		row, key, err := loadSessionByID(txn, sessionID)
		if err != nil {
			return err
		}
		row.ApplyReset(round, now)
		out = row
		if err := setJSON(txn, key, row); err != nil {
			return err
		}
		return txn.Delete(artifactKey(row.RevisionSessionSubmissionID, round))
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reset session: %w", err)
	}
	return out, nil
}

/* =========================================================
   ARTIFACTS
========================================================= */

// UpsertArtifact keeps the original id and created_at on overwrite.
func (s *BadgerStore) UpsertArtifact(ctx context.Context, a *model.RoundArtifactModel) error {
	if len(a.RoundArtifactHighlights) == 0 {
		_ = a.SetHighlights(nil)
	}
	key := artifactKey(a.RoundArtifactSubmissionID, a.RoundArtifactRound)
	err := s.update(ctx, func(txn *badger.Txn) error {
		now := time.Now()
		var existing model.RoundArtifactModel
		switch err := getJSON(txn, key, &existing); {
		case err == nil:
			a.RoundArtifactID = existing.RoundArtifactID
			a.RoundArtifactCreatedAt = existing.RoundArtifactCreatedAt
		case errors.Is(err, ErrNotFound):
			if a.RoundArtifactID == uuid.Nil {
				a.RoundArtifactID = uuid.New()
			}
			a.RoundArtifactCreatedAt = now
		default:
			return err
		}
		a.RoundArtifactUpdatedAt = now
		return setJSON(txn, key, a)
	})
	if err != nil {
		return fmt.Errorf("upsert artifact: %w", err)
	}
	return nil
}

func (s *BadgerStore) GetArtifact(ctx context.Context, submissionID uuid.UUID, round int) (*model.RoundArtifactModel, error) {
	var row model.RoundArtifactModel
	err := s.DB.View(func(txn *badger.Txn) error {
		return getJSON(txn, artifactKey(submissionID, round), &row)
	})
	if err != nil {
		return nil, err
	}
	return &row, nil
}

/* =========================================================
   VERSIONS
========================================================= */

func (s *BadgerStore) AppendVersion(ctx context.Context, v *model.VersionSnapshotModel) error {
	if v.VersionSnapshotID == uuid.Nil {
		v.VersionSnapshotID = uuid.New()
	}
	err := s.update(ctx, func(txn *badger.Txn) error {
		if _, _, err := loadSessionByID(txn, v.VersionSnapshotSessionID); err != nil {
			return err
		}

		var last uint64
		item, err := txn.Get(versionSeqKey(v.VersionSnapshotSessionID))
		switch {
		case err == nil:
			if err := item.Value(func(val []byte) error {
				if len(val) == 8 {
					last = binary.BigEndian.Uint64(val)
				}
				return nil
			}); err != nil {
				return err
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		next := last + 1
		v.VersionSnapshotVersionNumber = int(next)
		v.VersionSnapshotIsInitial = next == 1

		seq := make([]byte, 8)
		binary.BigEndian.PutUint64(seq, next)
		if err := txn.Set(versionSeqKey(v.VersionSnapshotSessionID), seq); err != nil {
			return err
		}
		return setJSON(txn, versionKey(v.VersionSnapshotSessionID, int(next)), v)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("append version: %w", err)
	}
	return nil
}

func (s *BadgerStore) ListVersions(ctx context.Context, sessionID uuid.UUID, offset, limit int) ([]model.VersionSnapshotModel, int64, error) {
	rows := []model.VersionSnapshotModel{}
	var total int64
	prefix := versionPrefix(sessionID)

	err := s.DB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			idx := total
			total++
			if idx < int64(offset) || (limit > 0 && len(rows) >= limit) {
				continue
			}
			var row model.VersionSnapshotModel
			if err := it.Item().Value(func(val []byte) error {
				return sonic.Unmarshal(val, &row)
			}); err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list versions: %w", err)
	}
	return rows, total, nil
}

/* =========================================================
   PROGRESS
========================================================= */

func (s *BadgerStore) UpsertProgress(ctx context.Context, p *model.RoundProgressModel) error {
	if len(p.RoundProgressRequirements) == 0 {
		_ = p.SetRequirements(nil)
	}
	key := progressKey(p.RoundProgressSessionID, p.RoundProgressRound)
	err := s.update(ctx, func(txn *badger.Txn) error {
		var existing model.RoundProgressModel
		switch err := getJSON(txn, key, &existing); {
		case err == nil:
			p.RoundProgressID = existing.RoundProgressID
		case errors.Is(err, ErrNotFound):
			if p.RoundProgressID == uuid.Nil {
				p.RoundProgressID = uuid.New()
			}
		default:
			return err
		}
		return setJSON(txn, key, p)
	})
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

func (s *BadgerStore) ListProgress(ctx context.Context, sessionID uuid.UUID) ([]model.RoundProgressModel, error) {
	rows := []model.RoundProgressModel{}
	prefix := progressPrefix(sessionID)
	err := s.DB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var row model.RoundProgressModel
			if err := it.Item().Value(func(val []byte) error {
				return sonic.Unmarshal(val, &row)
			}); err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return rows, nil
}

func (s *BadgerStore) Ping(ctx context.Context) error {
	if s.DB == nil || s.DB.IsClosed() {
		return errors.New("badger is closed")
	}
	return nil
}
