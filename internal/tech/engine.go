package tech

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/stoveplan/internal/points"
)

// Engine evaluates technologies across every analysis point of a table and
// writes one net-cost column per technology, named after it.
type Engine struct {
	// Scenario holds the scenario-level inputs. Urban, TransportFactor and
	// CollectionTravelTime are overwritten per point.
	Scenario Inputs

	// RoadTravelColumn names the table column with road travel time to the
	// nearest LPG supply point, in hours. Optional; zero when absent.
	RoadTravelColumn string

	// WalkTravelColumn names the table column with one-way walking travel
	// time to the nearest biomass source, in hours. Optional.
	WalkTravelColumn string

	// TransportSurcharge is the LPG fuel price surcharge per hour of road
	// travel, fed into TransportCostFactor.
	TransportSurcharge float64
}

// Apply computes the net cost of one technology at every point and writes the
// result into the column named after the technology.
func (e *Engine) Apply(tbl *points.Table, t *Technology) error {
	values, err := e.compute(tbl, t)
	if err != nil {
		return err
	}
	return tbl.SetColumn(t.Name, values)
}

// ApplyAll evaluates every technology, one goroutine each. Columns are
// written only after all evaluations succeed so a failure leaves the table
// untouched.
func (e *Engine) ApplyAll(tbl *points.Table, techs []*Technology) error {
	results := make([][]float64, len(techs))
	var g errgroup.Group
	for i, t := range techs {
		g.Go(func() error {
			values, err := e.compute(tbl, t)
			if err != nil {
				return err
			}
			results[i] = values
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, t := range techs {
		if err := tbl.SetColumn(t.Name, results[i]); err != nil {
			return err
		}
	}
	zap.L().Info("net costs computed",
		zap.Int("technologies", len(techs)),
		zap.Int("points", tbl.Len()))
	return nil
}

func (e *Engine) compute(tbl *points.Table, t *Technology) ([]float64, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if tbl.Len() == 0 {
		return nil, eris.New("tech: point table is empty")
	}
	urban, err := tbl.Column(points.ColIsUrban)
	if err != nil {
		return nil, eris.Wrap(err, "tech: urban column")
	}
	road := e.optionalColumn(tbl, e.RoadTravelColumn)
	walk := e.optionalColumn(tbl, e.WalkTravelColumn)

	values := make([]float64, tbl.Len())
	for i := range values {
		in := e.Scenario
		in.Urban = urban[i] >= 1
		in.TransportFactor = 1
		// Negative travel values are no-data sentinels from unreached
		// cells and carry no cost signal.
		if road != nil && !math.IsNaN(road[i]) && road[i] >= 0 {
			in.TransportFactor = TransportCostFactor(road[i], e.TransportSurcharge)
		}
		if walk != nil && !math.IsNaN(walk[i]) && walk[i] >= 0 {
			in.CollectionTravelTime = walk[i]
		}
		nc, err := NetCost(t, in)
		if err != nil {
			return nil, eris.Wrapf(err, "tech: net cost of %s at point %d", t.Name, i)
		}
		values[i] = nc
	}
	return values, nil
}

func (e *Engine) optionalColumn(tbl *points.Table, name string) []float64 {
	if name == "" || !tbl.HasColumn(name) {
		return nil
	}
	col, err := tbl.Column(name)
	if err != nil {
		return nil
	}
	return col
}

// Best returns, for each point, the index into techs of the technology with
// the lowest net cost. ApplyAll must have run first.
func Best(tbl *points.Table, techs []*Technology) ([]int, error) {
	if len(techs) == 0 {
		return nil, eris.New("tech: no technologies to rank")
	}
	cols := make([][]float64, len(techs))
	for i, t := range techs {
		col, err := tbl.Column(t.Name)
		if err != nil {
			return nil, eris.Wrapf(err, "tech: net cost column for %s", t.Name)
		}
		cols[i] = col
	}
	best := make([]int, tbl.Len())
	for p := range best {
		lowest := math.Inf(1)
		for i := range techs {
			if cols[i][p] < lowest {
				lowest = cols[i][p]
				best[p] = i
			}
		}
	}
	return best, nil
}
