package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/stoveplan/internal/calibrate"
	"github.com/sells-group/stoveplan/internal/db"
)

// PostgresStore implements Store on top of a pgx pool. Net cost rows are
// bulk-inserted with COPY since a national run can export millions of cells.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres wraps an existing pool. The caller remains responsible for
// closing the pool.
func NewPostgres(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         UUID PRIMARY KEY,
	region     TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS net_costs (
	run_id     UUID NOT NULL REFERENCES runs(id),
	x          DOUBLE PRECISION NOT NULL,
	y          DOUBLE PRECISION NOT NULL,
	technology TEXT NOT NULL,
	net_cost   DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS calibrations (
	run_id         UUID PRIMARY KEY REFERENCES runs(id),
	factor         DOUBLE PRECISION NOT NULL,
	modelled_share DOUBLE PRECISION NOT NULL,
	iterations     INTEGER NOT NULL,
	converged      BOOLEAN NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_net_costs_run_id ON net_costs(run_id);
CREATE INDEX IF NOT EXISTS idx_net_costs_technology ON net_costs(technology);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "store: migrate")
}

// Close is a no-op; the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

func (s *PostgresStore) CreateRun(ctx context.Context, region string) (*Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, region, created_at) VALUES ($1, $2, $3)`,
		id, region, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: insert run")
	}
	return &Run{ID: id, Region: region, CreatedAt: now}, nil
}

func (s *PostgresStore) SaveNetCosts(ctx context.Context, runID string, rows []NetCostRow) error {
	if len(rows) == 0 {
		return nil
	}
	copyRows := make([][]any, len(rows))
	for i, r := range rows {
		copyRows[i] = []any{runID, r.X, r.Y, r.Technology, r.NetCost}
	}
	_, err := db.CopyRows(ctx, s.pool, "net_costs",
		[]string{"run_id", "x", "y", "technology", "net_cost"}, copyRows)
	return eris.Wrap(err, "store: copy net costs")
}

func (s *PostgresStore) SaveCalibration(ctx context.Context, runID string, result calibrate.Result) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO calibrations (run_id, factor, modelled_share, iterations, converged)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (run_id) DO UPDATE SET
		   factor = EXCLUDED.factor,
		   modelled_share = EXCLUDED.modelled_share,
		   iterations = EXCLUDED.iterations,
		   converged = EXCLUDED.converged`,
		runID, result.Factor, result.ModelledShare, result.Iterations, result.Converged,
	)
	return eris.Wrap(err, "store: save calibration")
}
