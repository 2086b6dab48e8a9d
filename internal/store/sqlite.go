package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/stoveplan/internal/calibrate"
)

// SQLiteStore implements Store using modernc.org/sqlite.
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
	id         TEXT PRIMARY KEY,
	region     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS net_costs (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	x          REAL NOT NULL,
	y          REAL NOT NULL,
	technology TEXT NOT NULL,
	net_cost   REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS calibrations (
	run_id         TEXT PRIMARY KEY REFERENCES runs(id),
	factor         REAL NOT NULL,
	modelled_share REAL NOT NULL,
	iterations     INTEGER NOT NULL,
	converged      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_net_costs_run_id ON net_costs(run_id);
CREATE INDEX IF NOT EXISTS idx_net_costs_technology ON net_costs(technology);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, region string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, region, created_at) VALUES (?, ?, ?)`,
		id, region, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return &Run{ID: id, Region: region, CreatedAt: now}, nil
}

func (s *SQLiteStore) SaveNetCosts(ctx context.Context, runID string, rows []NetCostRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO net_costs (run_id, x, y, technology, net_cost) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, runID, r.X, r.Y, r.Technology, r.NetCost); err != nil {
			return eris.Wrap(err, "sqlite: insert net cost")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit net costs")
}

func (s *SQLiteStore) SaveCalibration(ctx context.Context, runID string, result calibrate.Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO calibrations (run_id, factor, modelled_share, iterations, converged)
		 VALUES (?, ?, ?, ?, ?)`,
		runID, result.Factor, result.ModelledShare, result.Iterations, result.Converged,
	)
	return eris.Wrap(err, "sqlite: save calibration")
}
