package store

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/synthpop/internal/census"
)

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the database at the given URL.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	households BIGINT NOT NULL,
	persons    BIGINT NOT NULL,
	failures   BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS households (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	hh_id       BIGINT NOT NULL,
	cat_id      INT NOT NULL,
	state       TEXT NOT NULL,
	county      TEXT NOT NULL,
	tract       TEXT NOT NULL,
	block_group TEXT NOT NULL,
	attrs       JSONB,
	PRIMARY KEY (run_id, hh_id)
);

CREATE TABLE IF NOT EXISTS persons (
	run_id TEXT NOT NULL REFERENCES runs(id),
	hh_id  BIGINT NOT NULL,
	cat_id INT NOT NULL,
	attrs  JSONB
);

CREATE TABLE IF NOT EXISTS fit_quality (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	state       TEXT NOT NULL,
	county      TEXT NOT NULL,
	tract       TEXT NOT NULL,
	block_group TEXT NOT NULL,
	chisq       DOUBLE PRECISION NOT NULL,
	p           DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, state, county, tract, block_group)
);

CREATE INDEX IF NOT EXISTS idx_households_run ON households(run_id);
CREATE INDEX IF NOT EXISTS idx_persons_run ON persons(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// SaveRun writes the run header, then bulk-loads the row tables with
// COPY inside one transaction.
func (s *PostgresStore) SaveRun(ctx context.Context, run Run) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx)

	res := run.Result
	_, err = tx.Exec(ctx,
		`INSERT INTO runs (id, created_at, households, persons, failures) VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.CreatedAt.UTC(), len(res.Households.Rows), len(res.Persons.Rows), len(res.Failures),
	)
	if err != nil {
		return eris.Wrap(err, "postgres: insert run")
	}

	hhRows := make([][]any, 0, len(res.Households.Rows))
	for _, h := range res.Households.Rows {
		attrs, err := json.Marshal(h.Attrs)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal household %d attrs", h.ID)
		}
		hhRows = append(hhRows, []any{
			run.ID, h.ID, h.CatID, h.Geog.State, h.Geog.County, h.Geog.Tract, h.Geog.BlockGroup, attrs,
		})
	}
	_, err = tx.CopyFrom(ctx, pgx.Identifier{"households"},
		[]string{"run_id", "hh_id", "cat_id", "state", "county", "tract", "block_group", "attrs"},
		pgx.CopyFromRows(hhRows))
	if err != nil {
		return eris.Wrap(err, "postgres: copy households")
	}

	pRows := make([][]any, 0, len(res.Persons.Rows))
	for _, p := range res.Persons.Rows {
		attrs, err := json.Marshal(p.Attrs)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal person attrs")
		}
		pRows = append(pRows, []any{run.ID, p.HHID, p.CatID, attrs})
	}
	_, err = tx.CopyFrom(ctx, pgx.Identifier{"persons"},
		[]string{"run_id", "hh_id", "cat_id", "attrs"},
		pgx.CopyFromRows(pRows))
	if err != nil {
		return eris.Wrap(err, "postgres: copy persons")
	}

	for g, fq := range res.FitQuality {
		_, err := tx.Exec(ctx,
			`INSERT INTO fit_quality (run_id, state, county, tract, block_group, chisq, p)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			run.ID, g.State, g.County, g.Tract, g.BlockGroup, fq.Chisq, fq.P)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert fit quality for %s", g)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return eris.Wrap(err, "postgres: commit")
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, created_at, households, persons, failures FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Households, &r.Persons, &r.Failures); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

func (s *PostgresStore) FitQuality(ctx context.Context, runID string) (map[census.GeographyID]census.FitQuality, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT state, county, tract, block_group, chisq, p FROM fit_quality WHERE run_id = $1`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: fit quality for run %s", runID)
	}
	defer rows.Close()

	out := make(map[census.GeographyID]census.FitQuality)
	for rows.Next() {
		var g census.GeographyID
		var fq census.FitQuality
		if err := rows.Scan(&g.State, &g.County, &g.Tract, &g.BlockGroup, &fq.Chisq, &fq.P); err != nil {
			return nil, eris.Wrap(err, "postgres: scan fit quality")
		}
		out[g] = fq
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate fit quality")
}
