package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	seededSubmission = "1a2b3c4d-5e6f-4a1b-8c2d-3e4f5a6b7c02"
	seededStudent    = "7c2d4e91-3b7a-4d2f-8e11-6a5b4c3d2e10"
)

func useBadger(t *testing.T) {
	t.Setenv("REVISION_STORE_DRIVER", "badger")
	t.Setenv("ROUND_LOCK_DRIVER", "memory")
	t.Setenv("BADGER_PATH", filepath.Join(t.TempDir(), "badger"))
	t.Setenv("AI_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, sonic.UnmarshalString(s, &m))
	return m
}

func TestStateOfUnknownSessionIsNew(t *testing.T) {
	useBadger(t)

	out, err := run(t, "state", "--submission", seededSubmission, "--student", seededStudent)
	require.NoError(t, err)
	m := decode(t, out)
	assert.Equal(t, "new", m["status"])
	assert.EqualValues(t, 0, m["current_level"])
	assert.NotContains(t, m, "session_id")
}

func TestSeedThenResetFlow(t *testing.T) {
	useBadger(t)

	_, err := run(t, "seed", "--dir", filepath.Join("..", "..", "internals", "seeds"))
	require.NoError(t, err)

	out, err := run(t, "state", "--submission", seededSubmission, "--student", seededStudent)
	require.NoError(t, err)
	m := decode(t, out)
	assert.Equal(t, "active", m["status"])
	assert.EqualValues(t, 3, m["rounds_completed"])

	out, err = run(t, "reset", "--submission", seededSubmission, "--student", seededStudent, "--round", "2")
	require.NoError(t, err)
	assert.EqualValues(t, 1, decode(t, out)["rounds_completed"])
}

func TestCommandErrors(t *testing.T) {
	useBadger(t)

	_, err := run(t, "state", "--submission", "nope", "--student", seededStudent)
	assert.ErrorContains(t, err, "invalid --submission")

	_, err = run(t, "state", "--submission", seededSubmission)
	assert.Error(t, err)

	_, err = run(t, "reset", "--submission", seededSubmission, "--student", seededStudent, "--round", "1")
	assert.ErrorContains(t, err, "not_found")

	_, err = run(t, "purge-locks")
	assert.ErrorContains(t, err, "ROUND_LOCK_DRIVER=postgres")
}

func TestProcessWithoutProviderIsTemporarilyUnavailable(t *testing.T) {
	useBadger(t)

	essay := filepath.Join(t.TempDir(), "essay.txt")
	require.NoError(t, os.WriteFile(essay, []byte("My essay about recycling."), 0o600))

	_, err := run(t, "process", "--submission", seededSubmission, "--student", seededStudent, "--round", "1", "--text-file", essay)
	assert.ErrorContains(t, err, "temporarily_unavailable")
}
