package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/synthpop/internal/census"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures
// WAL mode.
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
	id         TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	households INTEGER NOT NULL,
	persons    INTEGER NOT NULL,
	failures   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS households (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	hh_id       INTEGER NOT NULL,
	cat_id      INTEGER NOT NULL,
	state       TEXT NOT NULL,
	county      TEXT NOT NULL,
	tract       TEXT NOT NULL,
	block_group TEXT NOT NULL,
	attrs       TEXT,
	PRIMARY KEY (run_id, hh_id)
);

CREATE TABLE IF NOT EXISTS persons (
	run_id TEXT NOT NULL REFERENCES runs(id),
	hh_id  INTEGER NOT NULL,
	cat_id INTEGER NOT NULL,
	attrs  TEXT
);

CREATE TABLE IF NOT EXISTS fit_quality (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	state       TEXT NOT NULL,
	county      TEXT NOT NULL,
	tract       TEXT NOT NULL,
	block_group TEXT NOT NULL,
	chisq       REAL NOT NULL,
	p           REAL NOT NULL,
	PRIMARY KEY (run_id, state, county, tract, block_group)
);

CREATE INDEX IF NOT EXISTS idx_households_run ON households(run_id);
CREATE INDEX IF NOT EXISTS idx_persons_run ON persons(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	res := run.Result
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, households, persons, failures) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC(), len(res.Households.Rows), len(res.Persons.Rows), len(res.Failures),
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: insert run")
	}

	hhStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO households (run_id, hh_id, cat_id, state, county, tract, block_group, attrs)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare household insert")
	}
	defer hhStmt.Close()

	for _, h := range res.Households.Rows {
		attrs, err := json.Marshal(h.Attrs)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal household %d attrs", h.ID)
		}
		if _, err := hhStmt.ExecContext(ctx, run.ID, h.ID, h.CatID,
			h.Geog.State, h.Geog.County, h.Geog.Tract, h.Geog.BlockGroup, string(attrs)); err != nil {
			return eris.Wrapf(err, "sqlite: insert household %d", h.ID)
		}
	}

	pStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO persons (run_id, hh_id, cat_id, attrs) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare person insert")
	}
	defer pStmt.Close()

	for _, p := range res.Persons.Rows {
		attrs, err := json.Marshal(p.Attrs)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal person attrs")
		}
		if _, err := pStmt.ExecContext(ctx, run.ID, p.HHID, p.CatID, string(attrs)); err != nil {
			return eris.Wrap(err, "sqlite: insert person")
		}
	}

	for g, fq := range res.FitQuality {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO fit_quality (run_id, state, county, tract, block_group, chisq, p)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, g.State, g.County, g.Tract, g.BlockGroup, fq.Chisq, fq.P)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert fit quality for %s", g)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit")
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, households, persons, failures FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Households, &r.Persons, &r.Failures); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func (s *SQLiteStore) FitQuality(ctx context.Context, runID string) (map[census.GeographyID]census.FitQuality, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT state, county, tract, block_group, chisq, p FROM fit_quality WHERE run_id = ?`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: fit quality for run %s", runID)
	}
	defer rows.Close()

	out := make(map[census.GeographyID]census.FitQuality)
	for rows.Next() {
		var g census.GeographyID
		var fq census.FitQuality
		if err := rows.Scan(&g.State, &g.County, &g.Tract, &g.BlockGroup, &fq.Chisq, &fq.P); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan fit quality")
		}
		out[g] = fq
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate fit quality")
}
