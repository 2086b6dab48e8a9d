// Package store persists run results: per-point net costs per technology
// and the calibration outcome. Two backends implement the same interface,
// PostgreSQL for shared deployments and SQLite for single-machine runs.
package store

import (
	"context"
	"time"

	"github.com/sells-group/stoveplan/internal/calibrate"
)

// Run is one analysis run record.
type Run struct {
	ID        string
	Region    string
	CreatedAt time.Time
}

// NetCostRow is one point/technology result.
type NetCostRow struct {
	X          float64
	Y          float64
	Technology string
	NetCost    float64
}

// Store is the persistence interface for run results.
type Store interface {
	Migrate(ctx context.Context) error
	CreateRun(ctx context.Context, region string) (*Run, error)
	SaveNetCosts(ctx context.Context, runID string, rows []NetCostRow) error
	SaveCalibration(ctx context.Context, runID string, result calibrate.Result) error
	Close() error
}
