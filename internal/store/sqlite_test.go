package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/invoice-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteCreateAndGetRun(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, model.RunExtract, "invoice.pdf")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, model.RunExtract, got.Kind)
	assert.Equal(t, "invoice.pdf", got.Document)
}

func TestSQLiteCompleteRun(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, model.RunExtract, "invoice.pdf")
	require.NoError(t, err)

	records := []model.PageRecord{{PageIndex: 1, ShipmentID: "0471234567"}}
	require.NoError(t, s.CompleteRun(ctx, run.ID, records))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, got.Status)

	var stored []model.PageRecord
	require.NoError(t, json.Unmarshal(got.Result, &stored))
	require.Len(t, stored, 1)
	assert.Equal(t, "0471234567", stored[0].ShipmentID)
}

func TestSQLiteFailRun(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, model.RunVerify, "scan.png")
	require.NoError(t, err)
	require.NoError(t, s.FailRun(ctx, run.ID, eris.New("detector unavailable")))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Contains(t, got.Error, "detector unavailable")
}

func TestSQLiteUpdateMissingRun(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	err := s.CompleteRun(ctx, "missing-id", nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	err = s.FailRun(ctx, "missing-id", eris.New("x"))
	assert.Error(t, err)
}

func TestSQLiteGetMissingRun(t *testing.T) {
	s := newTestSQLite(t)
	_, err := s.GetRun(context.Background(), "missing-id")
	assert.Error(t, err)
}

func TestSQLiteListRunsFiltered(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.CreateRun(ctx, model.RunExtract, "a.pdf")
	require.NoError(t, err)
	verify, err := s.CreateRun(ctx, model.RunVerify, "b.pdf")
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(ctx, verify.ID, model.VerificationRecord{}))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	verifies, err := s.ListRuns(ctx, RunFilter{Kind: model.RunVerify})
	require.NoError(t, err)
	require.Len(t, verifies, 1)
	assert.Equal(t, "b.pdf", verifies[0].Document)

	complete, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, verify.ID, complete[0].ID)
}

func TestSQLiteListRunsLimit(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	for range 5 {
		_, err := s.CreateRun(ctx, model.RunExtract, "doc.pdf")
		require.NoError(t, err)
	}

	runs, err := s.ListRuns(ctx, RunFilter{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestNewFactory(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		_, err := New(context.Background(), testStoreConfig("bolt", ""))
		assert.Error(t, err)
	})
	t.Run("postgres requires url", func(t *testing.T) {
		_, err := New(context.Background(), testStoreConfig("postgres", ""))
		assert.Error(t, err)
	})
}
