// Package calibrate adjusts the point table against national statistics:
// scaling raster population to a configured total and fitting the urban
// classification threshold factor to an observed urban population share.
package calibrate

import (
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/stoveplan/internal/points"
)

// Urban classification tiers. Tier thresholds are the degree-of-urbanization
// population and density cutoffs, scaled by the calibration factor.
const (
	TierRural = 0
	TierUrban = 1
	TierCity  = 2
)

const (
	tier1Pop     = 5000.0
	tier1Density = 350.0
	tier2Pop     = 50000.0
	tier2Density = 1500.0
)

// shareTolerance is the absolute difference between modelled and target
// urban share considered converged.
const shareTolerance = 0.01

// maxIterations caps the geometric factor search; the search is not
// guaranteed to converge and may oscillate around the target.
const maxIterations = 500

// Spec holds the calibration targets.
type Spec struct {
	PopulationStartYear float64 // national population in the start year
	UrbanShareTarget    float64 // observed urban population share, 0..1
	CellAreaKM2         float64 // analysis cell area in km2
}

// Result reports the outcome of the urban calibration loop.
type Result struct {
	Factor        float64
	ModelledShare float64
	Iterations    int
	Converged     bool
}

// Population writes the Calibrated_pop column: raster population scaled so
// that it sums to the configured national total.
func Population(t *points.Table, populationStartYear float64) error {
	pop, err := t.Column(points.ColPop)
	if err != nil {
		return eris.Wrap(err, "calibrate: population")
	}
	var total float64
	for _, v := range pop {
		total += v
	}
	if total <= 0 {
		return eris.New("calibrate: total raster population is not positive")
	}
	factor := populationStartYear / total
	calibrated := make([]float64, len(pop))
	for i, v := range pop {
		calibrated[i] = v * factor
	}
	return t.SetColumn(points.ColCalibratedPop, calibrated)
}

// Urban fits the threshold scale factor so that the calibrated population
// classified urban matches the target share. The search multiplies the
// factor by 1.1 while the modelled share overshoots and by 0.9 while it
// undershoots; it is a geometric walk, not a bisection, and is allowed to
// run out of iterations. Non-convergence is reported in the result and
// logged, never returned as an error: the last classification is still the
// best available.
func Urban(t *points.Table, spec Spec) (Result, error) {
	if spec.PopulationStartYear <= 0 {
		return Result{}, eris.New("calibrate: population start year total must be positive")
	}
	if spec.CellAreaKM2 <= 0 {
		return Result{}, eris.New("calibrate: cell area must be positive")
	}
	pop, err := t.Column(points.ColPop)
	if err != nil {
		return Result{}, eris.Wrap(err, "calibrate: urban")
	}
	calibrated, err := t.Column(points.ColCalibratedPop)
	if err != nil {
		return Result{}, eris.Wrap(err, "calibrate: urban needs calibrated population")
	}

	factor := 1.0
	tiers := make([]float64, len(pop))
	var modelled float64

	for i := 0; i < maxIterations; i++ {
		var urbanPop float64
		for j, p := range pop {
			tiers[j] = classify(p, spec.CellAreaKM2, factor)
			if tiers[j] >= TierUrban {
				urbanPop += calibrated[j]
			}
		}
		modelled = urbanPop / spec.PopulationStartYear

		if math.Abs(modelled-spec.UrbanShareTarget) <= shareTolerance {
			if err := t.SetColumn(points.ColIsUrban, tiers); err != nil {
				return Result{}, err
			}
			return Result{Factor: factor, ModelledShare: modelled, Iterations: i + 1, Converged: true}, nil
		}

		if modelled > spec.UrbanShareTarget {
			factor *= 1.1
		} else {
			factor *= 0.9
		}
	}

	if err := t.SetColumn(points.ColIsUrban, tiers); err != nil {
		return Result{}, err
	}
	zap.L().Warn("calibrate: urban share search did not converge",
		zap.Float64("target", spec.UrbanShareTarget),
		zap.Float64("modelled", modelled),
		zap.Float64("factor", factor),
		zap.Int("iterations", maxIterations),
	)
	return Result{Factor: factor, ModelledShare: modelled, Iterations: maxIterations, Converged: false}, nil
}

func classify(pop, cellAreaKM2, factor float64) float64 {
	density := pop / cellAreaKM2
	if pop > tier2Pop*factor && density > tier2Density*factor {
		return TierCity
	}
	if pop > tier1Pop*factor && density > tier1Density*factor {
		return TierUrban
	}
	return TierRural
}
