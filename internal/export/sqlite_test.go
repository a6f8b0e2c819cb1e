package export

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLite(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() }) //nolint:errcheck
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestSQLiteSaveAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveResult(ctx, sampleResult()))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run := runs[0]
	assert.Equal(t, "run-42", run.ID)
	assert.Equal(t, "max", run.Aggregate)
	assert.Equal(t, 3, run.Classified)
	// One Height and one Boundary violation; the None row does not count.
	assert.Equal(t, 2, run.Violating)
	assert.True(t, run.FinishedAt.After(run.StartedAt))
}

func TestSQLiteMultipleRunsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := sampleResult()
	require.NoError(t, store.SaveResult(ctx, first))

	second := sampleResult()
	second.RunID = "run-43"
	second.StartedAt = first.StartedAt.Add(time.Hour)
	second.FinishedAt = second.StartedAt.Add(time.Hour)
	for i := range second.Violations {
		second.Violations[i].FootprintID = "x" + second.Violations[i].FootprintID
	}
	require.NoError(t, store.SaveResult(ctx, second))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-43", runs[0].ID)
	assert.Equal(t, "run-42", runs[1].ID)
}

func TestSQLiteDuplicateRunFails(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveResult(ctx, sampleResult()))
	assert.Error(t, store.SaveResult(ctx, sampleResult()))
}

func TestEncodeEWKBNilGeometry(t *testing.T) {
	blob, err := encodeEWKB(nil)
	require.NoError(t, err)
	assert.Nil(t, blob)
}

func TestEncodeEWKBDoesNotMutateInput(t *testing.T) {
	p := squareFootprint(0, 0, 1, 1)
	blob, err := encodeEWKB(p)
	require.NoError(t, err)
	assert.NotEmpty(t, blob)
	assert.Equal(t, 0, p.SRID())
}
