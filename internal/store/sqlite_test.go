package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/stoveplan/internal/calibrate"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "stoveplan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteRunRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "nepal")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "nepal", run.Region)

	rows := []NetCostRow{
		{X: 85.3, Y: 27.7, Technology: "lpg", NetCost: -3.5},
		{X: 85.4, Y: 27.7, Technology: "electricity", NetCost: 1.25},
	}
	require.NoError(t, s.SaveNetCosts(ctx, run.ID, rows))

	var count int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM net_costs WHERE run_id = ?`, run.ID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSQLiteSaveNetCostsEmpty(t *testing.T) {
	s := newTestSQLite(t)
	assert.NoError(t, s.SaveNetCosts(context.Background(), "missing", nil))
}

func TestSQLiteSaveCalibrationUpsert(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "nepal")
	require.NoError(t, err)

	first := calibrate.Result{Factor: 0.9, ModelledShare: 0.3, Iterations: 3, Converged: false}
	require.NoError(t, s.SaveCalibration(ctx, run.ID, first))

	second := calibrate.Result{Factor: 1.2, ModelledShare: 0.41, Iterations: 12, Converged: true}
	require.NoError(t, s.SaveCalibration(ctx, run.ID, second))

	var factor float64
	var converged bool
	err = s.db.QueryRowContext(ctx,
		`SELECT factor, converged FROM calibrations WHERE run_id = ?`, run.ID).
		Scan(&factor, &converged)
	require.NoError(t, err)
	assert.InDelta(t, 1.2, factor, 1e-9)
	assert.True(t, converged)
}
