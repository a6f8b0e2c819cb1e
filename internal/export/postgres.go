package export

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/zoning-audit/internal/model"
)

// Pool is the subset of pgxpool.Pool the sink needs. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSink writes audit results into a PostGIS database.
type PostgresSink struct {
	pool    Pool
	closeFn func()
}

// NewPostgres connects a sink to the given database.
func NewPostgres(ctx context.Context, connString string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresSink{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests.
func NewPostgresWithPool(pool Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

func (p *PostgresSink) Close() {
	if p.closeFn != nil {
		p.closeFn()
	}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS zoning_runs (
	id                TEXT PRIMARY KEY,
	started_at        TIMESTAMPTZ NOT NULL,
	finished_at       TIMESTAMPTZ NOT NULL,
	aggregate         TEXT NOT NULL,
	footprints        INTEGER NOT NULL,
	zones             INTEGER NOT NULL,
	classified        INTEGER NOT NULL,
	skipped_coverage  INTEGER NOT NULL,
	skipped_no_zone   INTEGER NOT NULL,
	skipped_malformed INTEGER NOT NULL,
	clamped_samples   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS zoning_violations (
	run_id            TEXT NOT NULL REFERENCES zoning_runs(id),
	footprint_id      TEXT NOT NULL,
	name              TEXT,
	zone_id           TEXT NOT NULL,
	height            DOUBLE PRECISION NOT NULL,
	height_source     TEXT NOT NULL,
	boundary_distance DOUBLE PRECISION NOT NULL,
	category          TEXT NOT NULL,
	geom              geometry(Polygon, 4326),
	PRIMARY KEY (run_id, footprint_id)
);

CREATE INDEX IF NOT EXISTS idx_zoning_violations_geom ON zoning_violations USING GIST (geom);
`

// Migrate creates the result tables. PostGIS must already be installed.
func (p *PostgresSink) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// SaveResult inserts the run and its violations.
func (p *PostgresSink) SaveResult(ctx context.Context, res *model.AuditResult) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO zoning_runs (id, started_at, finished_at, aggregate, footprints, zones,
			classified, skipped_coverage, skipped_no_zone, skipped_malformed, clamped_samples)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		res.RunID, res.StartedAt, res.FinishedAt, res.Aggregate,
		res.Counters.Footprints, res.Counters.Zones, res.Counters.Classified,
		res.Counters.SkippedCoverage, res.Counters.SkippedNoZone,
		res.Counters.SkippedMalformed, res.Counters.ClampedSamples,
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert run")
	}

	for _, v := range res.Violations {
		blob, err := encodeEWKB(v.Geometry)
		if err != nil {
			return eris.Wrapf(err, "postgres: encode geometry %s", v.FootprintID)
		}
		_, err = p.pool.Exec(ctx, `
			INSERT INTO zoning_violations (run_id, footprint_id, name, zone_id, height,
				height_source, boundary_distance, category, geom)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, ST_GeomFromEWKB($9))`,
			res.RunID, v.FootprintID, v.Name, v.ZoneID, v.Height,
			string(v.HeightSource), v.BoundaryDistance, string(v.Category), blob,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert violation %s", v.FootprintID)
		}
	}
	return nil
}
