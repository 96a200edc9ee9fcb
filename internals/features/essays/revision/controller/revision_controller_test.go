package controller

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"essaysmaster_backend/internals/configs"
	database "essaysmaster_backend/internals/databases"
	"essaysmaster_backend/internals/features/essays/revision/ai"
	"essaysmaster_backend/internals/features/essays/revision/lock"
	model "essaysmaster_backend/internals/features/essays/revision/model"
	"essaysmaster_backend/internals/features/essays/revision/service"
	"essaysmaster_backend/internals/features/essays/revision/store"
	helper "essaysmaster_backend/internals/helpers"
)

type stubCollaborator struct {
	down  atomic.Bool
	score float64
}

func (s *stubCollaborator) ProduceFeedback(ctx context.Context, req ai.FeedbackRequest) (*ai.FeedbackResult, error) {
	if s.down.Load() {
		return nil, ai.ErrProviderUnavailable
	}
	return &ai.FeedbackResult{Text: "feedback for round", Highlights: []model.Highlight{}}, nil
}

func (s *stubCollaborator) ProduceValidation(ctx context.Context, req ai.ValidationRequest) (*ai.ValidationResult, error) {
	if s.down.Load() {
		return nil, ai.ErrProviderUnavailable
	}
	return &ai.ValidationResult{Score: s.score, Analysis: "ok", Feedback: "fine"}, nil
}

type testEnv struct {
	app     *fiber.App
	rounds  *service.RoundService
	locker  *lock.MemoryLocker
	collab  *stubCollaborator
	student uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.OpenBadger(database.InMemoryBadgerConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := configs.DefaultRevisionConfig()
	cfg.LockWait = 0
	locker := lock.NewMemoryLocker()
	collab := &stubCollaborator{score: 72}
	rounds := service.NewRoundService(store.NewBadgerStore(db.DB), locker, collab, cfg)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = rounds.Wait(ctx)
	})

	env := &testEnv{rounds: rounds, locker: locker, collab: collab, student: uuid.New()}

	app := fiber.New(fiber.Config{JSONEncoder: sonic.Marshal, JSONDecoder: sonic.Unmarshal})
	// stands in for the JWT middleware
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(helper.LocUserID, env.student.String())
		c.Locals(helper.LocFirstName, "Ava")
		c.Locals(helper.LocRole, "student")
		return c.Next()
	})

	ctrl := NewRevisionController(rounds)
	app.Post("/feedback", ctrl.Feedback)
	app.Post("/:submission_id/rounds/:round", ctrl.ProcessRound)
	app.Get("/:submission_id/rounds/:round", ctrl.GetRound)
	app.Get("/:submission_id/state", ctrl.State)
	app.Get("/:submission_id/versions", ctrl.ListVersions)
	app.Get("/:submission_id/progress", ctrl.ListProgress)
	app.Post("/admin/:submission_id/students/:student_id/reset", ctrl.Reset)

	env.app = app
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	require.NoError(t, sonic.Unmarshal(raw, &out), string(raw))
	return resp.StatusCode, out
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "missing data: %v", body)
	return d
}

func TestFeedback_GetStateBeforeAnyRound(t *testing.T) {
	e := newTestEnv(t)
	sub := uuid.New()

	status, body := e.do(t, http.MethodPost, "/feedback", `{"submission_id":"`+sub.String()+`","action":"get_state"}`)
	require.Equal(t, http.StatusOK, status)
	d := data(t, body)
	assert.Equal(t, "new", d["status"])
	assert.EqualValues(t, 0, d["current_level"])
	assert.EqualValues(t, 0, d["rounds_completed"])
	assert.Equal(t, false, d["final_submission_allowed"])

	_, err := e.rounds.Store.FindSession(context.Background(), sub, e.student)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFeedback_ProcessRound(t *testing.T) {
	e := newTestEnv(t)
	sub := uuid.New()

	status, body := e.do(t, http.MethodPost, "/feedback",
		`{"submission_id":"`+sub.String()+`","round":1,"current_text":"My essay.","question_prompt":"Why?"}`)
	require.Equal(t, http.StatusOK, status, body)
	d := data(t, body)
	assert.Equal(t, "feedback for round", d["feedback"])
	assert.Equal(t, "feedback", d["kind"])
	assert.EqualValues(t, 1, d["round"])
	assert.EqualValues(t, 1, d["rounds_completed"])
	assert.EqualValues(t, 6, d["max_rounds"])
	assert.Equal(t, false, d["is_final_round"])
	assert.NotNil(t, d["highlights"])
	_, hasScore := d["score"]
	assert.False(t, hasScore)
}

func TestFeedback_ValidationErrors(t *testing.T) {
	e := newTestEnv(t)

	status, body := e.do(t, http.MethodPost, "/feedback", `{"submission_id":"nope","round":1,"current_text":"x"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "invalid_input", body["error_kind"])
	errs, _ := body["errors"].(map[string]any)
	assert.Contains(t, errs, "submission_id")

	status, body = e.do(t, http.MethodPost, "/feedback", `{"submission_id":"`+uuid.NewString()+`","round":1}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_input", body["error_kind"])
	assert.Equal(t, false, body["success"])
}

func TestProcessRound_ValidationAndStateEndpoints(t *testing.T) {
	e := newTestEnv(t)
	sub := uuid.New()
	base := "/" + sub.String()

	status, body := e.do(t, http.MethodPost, base+"/rounds/2", `{"current_text":"revised","original_text":"draft"}`)
	require.Equal(t, http.StatusOK, status, body)
	d := data(t, body)
	assert.Equal(t, "validation", d["kind"])
	assert.Equal(t, true, d["passed"])
	assert.EqualValues(t, 72, d["score"])

	status, body = e.do(t, http.MethodGet, base+"/state", "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, data(t, body)["rounds_completed"])
	assert.Equal(t, "active", data(t, body)["status"])

	status, body = e.do(t, http.MethodGet, base+"/rounds/2", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, data(t, body)["feedback"], "Validation Round 2 - PASSED")

	status, body = e.do(t, http.MethodGet, base+"/rounds/3", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["error_kind"])

	status, _ = e.do(t, http.MethodPost, base+"/rounds/x", `{"current_text":"a"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = e.do(t, http.MethodPost, base+"/rounds/7", `{"current_text":"a"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_input", body["error_kind"])
}

func TestProcessRound_BusyAndUnavailable(t *testing.T) {
	e := newTestEnv(t)
	sub := uuid.New()
	ctx := context.Background()

	h, err := e.locker.TryAcquire(ctx, lock.RoundKey(sub, 1), time.Minute)
	require.NoError(t, err)
	status, body := e.do(t, http.MethodPost, "/"+sub.String()+"/rounds/1", `{"current_text":"x"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "busy", body["error_kind"])
	assert.Equal(t, "Could not acquire processing lock. Please try again.", body["message"])
	require.NoError(t, e.locker.Release(ctx, h))

	e.collab.down.Store(true)
	status, body = e.do(t, http.MethodPost, "/"+sub.String()+"/rounds/1", `{"current_text":"x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "temporarily_unavailable", body["error_kind"])
}

func TestListVersionsAndProgress(t *testing.T) {
	e := newTestEnv(t)
	sub := uuid.New()
	base := "/" + sub.String()

	for r := 1; r <= 3; r++ {
		status, _ := e.do(t, http.MethodPost, base+"/rounds/"+strconv.Itoa(r), `{"current_text":"text `+strconv.Itoa(r)+`"}`)
		require.Equal(t, http.StatusOK, status)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, e.rounds.Wait(ctx))

	status, body := e.do(t, http.MethodGet, base+"/versions?page=2&per_page=2", "")
	require.Equal(t, http.StatusOK, status)
	rows, _ := body["data"].([]any)
	assert.Len(t, rows, 1)
	pg, _ := body["pagination"].(map[string]any)
	assert.EqualValues(t, 3, pg["total"])
	assert.EqualValues(t, 2, pg["page"])
	assert.Equal(t, false, pg["has_next"])

	status, body = e.do(t, http.MethodGet, base+"/progress", "")
	require.Equal(t, http.StatusOK, status)
	prog, _ := body["data"].([]any)
	assert.Len(t, prog, 3)

	status, body = e.do(t, http.MethodGet, "/"+uuid.NewString()+"/versions", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["error_kind"])
}

func TestReset(t *testing.T) {
	e := newTestEnv(t)
	sub := uuid.New()

	for r := 1; r <= 2; r++ {
		status, _ := e.do(t, http.MethodPost, "/"+sub.String()+"/rounds/"+strconv.Itoa(r), `{"current_text":"x"}`)
		require.Equal(t, http.StatusOK, status)
	}

	path := "/admin/" + sub.String() + "/students/" + e.student.String() + "/reset"
	status, body := e.do(t, http.MethodPost, path, `{"round":2}`)
	require.Equal(t, http.StatusOK, status, body)
	d := data(t, body)
	assert.EqualValues(t, 2, d["current_level"])
	assert.EqualValues(t, 1, d["rounds_completed"])

	status, body = e.do(t, http.MethodPost, path, `{"round":9}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "invalid_input", body["error_kind"])
}
