package export

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	_ "modernc.org/sqlite"

	"github.com/sells-group/zoning-audit/internal/model"
)

// SQLiteStore records audit runs in a local results file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id                TEXT PRIMARY KEY,
	started_at        DATETIME NOT NULL,
	finished_at       DATETIME NOT NULL,
	aggregate         TEXT NOT NULL,
	footprints        INTEGER NOT NULL,
	zones             INTEGER NOT NULL,
	classified        INTEGER NOT NULL,
	skipped_coverage  INTEGER NOT NULL,
	skipped_no_zone   INTEGER NOT NULL,
	skipped_malformed INTEGER NOT NULL,
	clamped_samples   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS violations (
	run_id            TEXT NOT NULL REFERENCES runs(id),
	footprint_id      TEXT NOT NULL,
	name              TEXT,
	zone_id           TEXT NOT NULL,
	height            REAL NOT NULL,
	height_source     TEXT NOT NULL,
	boundary_distance REAL NOT NULL,
	category          TEXT NOT NULL,
	geom              BLOB,
	PRIMARY KEY (run_id, footprint_id)
);

CREATE INDEX IF NOT EXISTS idx_violations_category ON violations(category);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveResult inserts a run row and one violation row per building, with
// the footprint geometry stored as EWKB.
func (s *SQLiteStore) SaveResult(ctx context.Context, res *model.AuditResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, aggregate, footprints, zones,
			classified, skipped_coverage, skipped_no_zone, skipped_malformed, clamped_samples)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.StartedAt, res.FinishedAt, res.Aggregate,
		res.Counters.Footprints, res.Counters.Zones, res.Counters.Classified,
		res.Counters.SkippedCoverage, res.Counters.SkippedNoZone,
		res.Counters.SkippedMalformed, res.Counters.ClampedSamples,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert run")
	}

	for _, v := range res.Violations {
		blob, err := encodeEWKB(v.Geometry)
		if err != nil {
			return eris.Wrapf(err, "sqlite: encode geometry %s", v.FootprintID)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO violations (run_id, footprint_id, name, zone_id, height,
				height_source, boundary_distance, category, geom)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			res.RunID, v.FootprintID, v.Name, v.ZoneID, v.Height,
			string(v.HeightSource), v.BoundaryDistance, string(v.Category), blob,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert violation %s", v.FootprintID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

// RunSummary is one row of the runs listing.
type RunSummary struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Aggregate  string
	Classified int
	Violating  int
}

// ListRuns returns recorded runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.started_at, r.finished_at, r.aggregate, r.classified,
			COALESCE(SUM(CASE WHEN v.category != 'None' THEN 1 ELSE 0 END), 0)
		FROM runs r
		LEFT JOIN violations v ON v.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Aggregate, &r.Classified, &r.Violating); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

// encodeEWKB serializes a footprint polygon as EWKB with SRID 4326. The
// input is copied so the shared geometry keeps its zero SRID.
func encodeEWKB(p *geom.Polygon) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	flat := make([]float64, len(p.FlatCoords()))
	copy(flat, p.FlatCoords())
	ends := make([]int, len(p.Ends()))
	copy(ends, p.Ends())
	g := geom.NewPolygonFlat(p.Layout(), flat, ends).SetSRID(4326)
	return ewkb.Marshal(g, ewkb.NDR)
}
