package export

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresMigrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS zoning_runs").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	sink := NewPostgresWithPool(mock)
	require.NoError(t, sink.Migrate(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveResult(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	res := sampleResult()

	mock.ExpectExec("INSERT INTO zoning_runs").
		WithArgs(res.RunID, res.StartedAt, res.FinishedAt, res.Aggregate,
			res.Counters.Footprints, res.Counters.Zones, res.Counters.Classified,
			res.Counters.SkippedCoverage, res.Counters.SkippedNoZone,
			res.Counters.SkippedMalformed, res.Counters.ClampedSamples).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	for range res.Violations {
		mock.ExpectExec("INSERT INTO zoning_violations").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}

	sink := NewPostgresWithPool(mock)
	require.NoError(t, sink.SaveResult(context.Background(), res))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveResultRunInsertFails(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO zoning_runs").
		WillReturnError(assert.AnError)

	sink := NewPostgresWithPool(mock)
	err = sink.SaveResult(context.Background(), sampleResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert run")
}
